package orch

import (
	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Chat traffic needs an identity (and a room, for ChatMessage) but goes to
// every connection, not just the sender's room.

func (o *Orchestrator) Chat(id core.ConnID, p *protocol.ChatMessage) {
	self, ok := o.sender(id, core.InRoom)
	if !ok {
		return
	}
	o.Presence.ToAll(protocol.ChatBroadcast{
		UserID:    string(self.Identity.UserID),
		Name:      self.Identity.Name,
		Avatar:    self.Identity.Avatar,
		Text:      p.Text,
		Timestamp: uint64(o.Now().UnixMilli()),
		ChannelID: string(self.Room),
	})
}

func (o *Orchestrator) Edit(id core.ConnID, p *protocol.EditMessage) {
	self, ok := o.sender(id, core.Identified)
	if !ok {
		return
	}
	o.Presence.ToAll(protocol.MessageEdited{
		MessageID: p.MessageID,
		NewText:   p.NewText,
		ChannelID: string(self.Room),
	})
}

func (o *Orchestrator) Delete(id core.ConnID, p *protocol.DeleteMessage) {
	self, ok := o.sender(id, core.Identified)
	if !ok {
		return
	}
	o.Presence.ToAll(protocol.MessageDeleted{
		MessageID: p.MessageID,
		ChannelID: string(self.Room),
	})
}

func (o *Orchestrator) Read(id core.ConnID, p *protocol.MessageRead) {
	self, ok := o.sender(id, core.Identified)
	if !ok {
		return
	}
	o.Presence.ToAll(protocol.ReadReceipt{
		UserID:    string(self.Identity.UserID),
		ChannelID: p.ChannelID,
		Timestamp: p.Timestamp,
	})
}

// sender returns the caller's entry when it has reached at least need.
func (o *Orchestrator) sender(id core.ConnID, need core.State) (app.Entry, bool) {
	e, ok := o.Registry.Lookup(id)
	if !ok || e.State() < need {
		log.Debug().Str("module", "orch").Stringer("conn", id).Str("need", need.String()).Msg("dropped unauthorized message")
		return app.Entry{}, false
	}
	return e, true
}
