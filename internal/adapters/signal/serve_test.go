package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/app/orch"
	"github.com/dkeye/voicerelay/internal/core"
)

// pipeSocket stands in for *websocket.Conn: reads come from in, and Close
// makes every later read fail.
type pipeSocket struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	// beforeWrite, if set, runs ahead of every write and may fail it.
	beforeWrite func() error
}

func newPipeSocket() *pipeSocket {
	return &pipeSocket{in: make(chan []byte, 8), closed: make(chan struct{})}
}

func (s *pipeSocket) ReadMessage() (int, []byte, error) {
	select {
	case data := <-s.in:
		return websocket.TextMessage, data, nil
	case <-s.closed:
		return 0, nil, net.ErrClosed
	}
}

func (s *pipeSocket) WriteMessage(int, []byte) error {
	if s.beforeWrite != nil {
		return s.beforeWrite()
	}
	return nil
}

func (s *pipeSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *pipeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// peer is an in-process connection that decodes what it receives.
type peer struct {
	mu     sync.Mutex
	msgs   []map[string]any
	onRecv func(map[string]any)
}

func (p *peer) TrySend(f core.Frame) error {
	var m map[string]any
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	p.mu.Lock()
	p.msgs = append(p.msgs, m)
	hook := p.onRecv
	p.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return nil
}

func (p *peer) Close() {}

func (p *peer) received() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.msgs...)
}

func (p *peer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = nil
}

func newController() *SignalWSController {
	reg := app.NewRegistry()
	o := orch.New(reg, app.NewLedger(app.DefaultBalance), app.NewBroadcaster(reg, nil, nil), nil)
	return &SignalWSController{Orch: o, QueueSize: 16}
}

func TestServe_WriteFailureDisconnects(t *testing.T) {
	ctl := newController()
	sock := newPipeSocket()
	sock.beforeWrite = func() error { return errors.New("broken pipe") }

	id := ctl.serve(context.Background(), NewWsSignalConn(sock, 16, 0), sock)
	sock.in <- []byte(`{"type":"Identify","user_id":"b","name":"N","avatar":"A"}`)

	require.Eventually(t, func() bool {
		_, ok := ctl.Orch.Registry.Lookup(id)
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, ctl.Orch.Registry.Len())
}

func TestServe_ReadFailureDisconnects(t *testing.T) {
	ctl := newController()
	sock := newPipeSocket()

	ctl.serve(context.Background(), NewWsSignalConn(sock, 16, 0), sock)
	require.Equal(t, 1, ctl.Orch.Registry.Len())
	_ = sock.Close()

	require.Eventually(t, func() bool { return ctl.Orch.Registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

// A write that fails while a join is being routed must not let the peer see
// the departure before the join.
func TestServe_WriteFailureDuringJoin(t *testing.T) {
	ctl := newController()
	o := ctl.Orch

	a := &peer{}
	aid := o.Connect(a)
	o.Handle(aid, []byte(`{"type":"Identify","user_id":"a","name":"N","avatar":"A"}`))
	o.Handle(aid, []byte(`{"type":"JoinRoom","room_id":"lobby"}`))
	a.reset()

	gate := make(chan struct{})
	var release sync.Once
	a.onRecv = func(m map[string]any) {
		if m["type"] == "UserJoined" {
			release.Do(func() { close(gate) })
		}
	}

	sock := newPipeSocket()
	sock.beforeWrite = func() error {
		<-gate
		return errors.New("broken pipe")
	}
	bid := ctl.serve(context.Background(), NewWsSignalConn(sock, 16, 0), sock)
	sock.in <- []byte(`{"type":"Identify","user_id":"b","name":"N","avatar":"A"}`)
	sock.in <- []byte(`{"type":"JoinRoom","room_id":"lobby"}`)

	require.Eventually(t, func() bool {
		_, ok := o.Registry.Lookup(bid)
		return !ok
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(a.received()) == 4 }, time.Second, 5*time.Millisecond)

	got := a.received()
	assert.Equal(t, "UserJoined", got[0]["type"])
	assert.Equal(t, map[string]any{"type": "VoiceStateUpdate", "user_id": "b", "name": "N", "avatar": "A", "room_id": "lobby"}, got[1])
	assert.Equal(t, map[string]any{"type": "UserLeft", "user_id": "b"}, got[2])
	assert.Equal(t, map[string]any{"type": "VoiceStateUpdate", "user_id": "b", "name": "N", "avatar": "A"}, got[3])
}
