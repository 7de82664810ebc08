package app

import (
	"errors"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/dkeye/voicerelay/internal/metrics"
	"github.com/dkeye/voicerelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Broadcaster encodes an envelope once and enqueues it on each recipient's
// pipeline. Recipients are taken from one registry snapshot and the lock is
// released before any enqueue.
type Broadcaster struct {
	Registry *Registry
	Policy   Policy
	Metrics  metrics.Metrics
}

func NewBroadcaster(reg *Registry, policy Policy, m metrics.Metrics) *Broadcaster {
	if policy == nil {
		policy = DropPolicy{}
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Broadcaster{Registry: reg, Policy: policy, Metrics: m}
}

// ToRoom sends msg to everyone in room except one connection.
func (b *Broadcaster) ToRoom(room domain.RoomID, except core.ConnID, msg protocol.Outbound) int {
	return b.Deliver(b.Registry.RoomMembers(room, except), msg)
}

// ToAll sends msg to every registered connection.
func (b *Broadcaster) ToAll(msg protocol.Outbound) int {
	return b.Deliver(b.Registry.Snapshot(), msg)
}

// Send delivers msg to a single connection id, if it is still registered.
func (b *Broadcaster) Send(id core.ConnID, msg protocol.Outbound) bool {
	e, ok := b.Registry.Lookup(id)
	if !ok {
		return false
	}
	return b.Deliver([]Entry{e}, msg) == 1
}

// Deliver returns how many recipients accepted the frame.
func (b *Broadcaster) Deliver(to []Entry, msg protocol.Outbound) int {
	if len(to) == 0 {
		return 0
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("encode")
		return 0
	}
	sent := 0
	for _, e := range to {
		err := e.Conn.TrySend(frame)
		if err == nil {
			sent++
			continue
		}
		b.Metrics.FrameDropped()
		if !errors.Is(err, core.ErrBackpressure) {
			continue
		}
		switch b.Policy.OnBackPressure(e) {
		case KickMember:
			log.Warn().Str("module", "app.presence").Stringer("conn", e.ID).Str("type", msg.Type()).Msg("kicking slow connection")
			e.Conn.Close()
		case DropFrame, NoAction:
			log.Debug().Str("module", "app.presence").Stringer("conn", e.ID).Str("type", msg.Type()).Msg("dropped frame")
		}
	}
	return sent
}

// VoiceStates lists every identified connection that sits in a room.
func (b *Broadcaster) VoiceStates() []protocol.VoiceState {
	out := make([]protocol.VoiceState, 0)
	for _, e := range b.Registry.Snapshot() {
		if !e.Bound {
			continue
		}
		m := e.Member()
		if !m.InRoom() {
			continue
		}
		out = append(out, protocol.VoiceState{
			UserID: string(m.UserID),
			Name:   m.Name,
			Avatar: m.Avatar,
			RoomID: string(m.Room),
		})
	}
	return out
}

// RoomUsers converts a membership snapshot into the RoomUsers payload.
func RoomUsers(peers []Entry) protocol.RoomUsers {
	users := make([]protocol.RoomUser, 0, len(peers))
	for _, p := range peers {
		users = append(users, protocol.RoomUser{
			ID:     string(p.Identity.UserID),
			Name:   p.Identity.Name,
			Avatar: p.Identity.Avatar,
		})
	}
	return protocol.RoomUsers{Users: users}
}

// VoiceStateOf builds the presence update for one connection; a connection
// without a room produces an update with no room_id.
func VoiceStateOf(e Entry) protocol.VoiceStateUpdate {
	u := protocol.VoiceStateUpdate{
		UserID: string(e.Identity.UserID),
		Name:   e.Identity.Name,
		Avatar: e.Identity.Avatar,
	}
	if e.Room != "" {
		room := string(e.Room)
		u.RoomID = &room
	}
	return u
}
