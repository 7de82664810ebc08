package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection is the outbound side of a connection: a bounded queue
// drained by a single writer. Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks. It returns ErrBackpressure when the queue is
	// full and ErrClosed once the connection is torn down.
	TrySend(Frame) error
	Close()
}
