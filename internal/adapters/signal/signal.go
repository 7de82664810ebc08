package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicerelay/internal/app/orch"
	"github.com/dkeye/voicerelay/internal/config"
	"github.com/dkeye/voicerelay/internal/core"
)

type SignalWSController struct {
	Orch      *orch.Orchestrator
	ReadLimit int64
	QueueSize int
	WriteWait time.Duration
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:      o,
		ReadLimit: cfg.ReadLimit,
		QueueSize: cfg.SendQueue,
		WriteWait: cfg.WriteWait,
	}
}

// frameWriter is the part of *websocket.Conn the write pump needs.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WsSignalConn is the outbound pipeline of one connection: a bounded queue
// drained by writePump, the only goroutine that writes to the socket.
type WsSignalConn struct {
	conn      frameWriter
	send      chan core.Frame
	writeWait time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewWsSignalConn(conn frameWriter, queueSize int, writeWait time.Duration) *WsSignalConn {
	return &WsSignalConn{
		conn:      conn,
		send:      make(chan core.Frame, queueSize),
		writeWait: writeWait,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.ReadLimit)

	conn := NewWsSignalConn(ws, ctl.QueueSize, ctl.WriteWait)
	id := ctl.serve(ctx, conn, ws)
	log.Info().Str("module", "signal").Stringer("conn", id).Str("token", token).Str("remote", c.Request.RemoteAddr).Msg("new WS connection")
}

// serve registers conn and starts its pumps. A failed write only closes the
// socket; the read pump then fails its next read and runs the disconnect, so
// teardown never overlaps a dispatch.
func (ctl *SignalWSController) serve(ctx context.Context, conn *WsSignalConn, r frameReader) core.ConnID {
	id := ctl.Orch.Connect(conn)
	ctx, cancel := context.WithCancel(ctx)

	go conn.writePump(ctx, id, conn.Close)
	go ctl.readPump(ctx, id, r, func() {
		cancel()
		ctl.Orch.OnDisconnect(id)
		conn.Close()
		log.Info().Str("module", "signal").Stringer("conn", id).Msg("connection closed")
	})
	return id
}
