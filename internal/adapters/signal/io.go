package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicerelay/internal/core"
)

// writePump drains the queue in FIFO order. It stops when the queue is
// closed, a write fails or ctx ends, and then runs done.
func (c *WsSignalConn) writePump(ctx context.Context, id core.ConnID, done func()) {
	defer done()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Stringer("conn", id).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Stringer("conn", id).Msg("writePump channel closed")
				return
			}
			if c.writeWait > 0 {
				if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
					log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Msg("writePump set deadline")
					return
				}
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Msg("writePump write error")
				return
			}
		}
	}
}

type frameReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// readPump feeds text frames to the orchestrator one at a time. Binary
// frames are ignored.
func (ctl *SignalWSController) readPump(ctx context.Context, id core.ConnID, r frameReader, done func()) {
	defer done()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Stringer("conn", id).Msg("readPump ctx done")
			return
		default:
			mt, data, err := r.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Msg("readPump read error")
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			ctl.Orch.Handle(id, data)
		}
	}
}
