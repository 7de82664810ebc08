package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/dkeye/voicerelay/internal/protocol"
)

// Views are read-only JSON snapshots of relay state.
type Views struct {
	Registry    *app.Registry
	Ledger      *app.Ledger
	Broadcaster *app.Broadcaster
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance uint64 `json:"balance"`
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/rooms
func (v Views) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms":       app.Rooms(v.Registry),
		"connections": v.Registry.Len(),
	})
}

// GET /api/presence
func (v Views) Presence(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.GlobalVoiceState{States: v.Broadcaster.VoiceStates()})
}

// GET /api/balances/:user_id
func (v Views) Balance(c *gin.Context) {
	uid := c.Param("user_id")
	balance, ok := v.Ledger.Balance(domain.UserID(uid))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{UserID: uid, Balance: balance})
}
