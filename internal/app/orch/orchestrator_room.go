package orch

import (
	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/dkeye/voicerelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Join moves an identified connection into room. Whatever room it was in
// before is not notified.
func (o *Orchestrator) Join(id core.ConnID, room domain.RoomID) {
	change, ok := o.Registry.SetRoom(id, room)
	if !ok {
		log.Debug().Str("module", "orch").Stringer("conn", id).Str("room", string(room)).Msg("join ignored")
		return
	}
	self := change.Self
	o.Presence.Send(id, app.RoomUsers(change.Peers))
	o.Presence.ToRoom(room, id, protocol.UserJoined{
		UserID: string(self.Identity.UserID),
		Name:   self.Identity.Name,
		Avatar: self.Identity.Avatar,
	})
	o.Presence.ToAll(app.VoiceStateOf(self))
	log.Info().Str("module", "orch").Stringer("conn", id).Str("from_room", string(change.From)).Str("room", string(room)).Int("peers", len(change.Peers)).Msg("joined room")
}

func (o *Orchestrator) Leave(id core.ConnID) {
	change, ok := o.Registry.SetRoom(id, "")
	if !ok {
		log.Debug().Str("module", "orch").Stringer("conn", id).Msg("leave ignored")
		return
	}
	o.announceLeave(change.Self, change.From)
	log.Info().Str("module", "orch").Stringer("conn", id).Str("room", string(change.From)).Msg("left room")
}

// announceLeave tells the old room and then everyone that e has no room.
// e.Room is ignored; the update always carries no room.
func (o *Orchestrator) announceLeave(e app.Entry, from domain.RoomID) {
	o.Presence.ToRoom(from, e.ID, protocol.UserLeft{UserID: string(e.Identity.UserID)})
	e.Room = ""
	o.Presence.ToAll(app.VoiceStateOf(e))
}
