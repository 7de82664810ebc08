package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	conn     core.SignalConnection
	identity domain.Identity
	bound    bool
	room     domain.RoomID
}

func (e *connEntry) state() core.State {
	switch {
	case !e.bound:
		return core.Anonymous
	case e.room == "":
		return core.Identified
	default:
		return core.InRoom
	}
}

// Entry is a copy of one connection's registry state. Holding an Entry never
// pins registry memory, and its Conn may already be closed.
type Entry struct {
	ID       core.ConnID
	Conn     core.SignalConnection
	Identity domain.Identity
	Bound    bool
	Room     domain.RoomID
}

func (e Entry) State() core.State {
	return (&connEntry{bound: e.Bound, room: e.Room}).state()
}

func (e Entry) Member() domain.Member {
	return domain.Member{Identity: e.Identity, Room: e.Room}
}

// RoomChange describes the outcome of SetRoom. Peers holds the other
// connections in the new room at the instant of the change.
type RoomChange struct {
	Self  Entry
	From  domain.RoomID
	Peers []Entry
}

// Registry is the single source of truth for live connections.
// Writers take the exclusive lock; every read returns copies taken under one
// shared lock, so callers never see a half-applied change.
type Registry struct {
	mu     sync.RWMutex
	nextID core.ConnID
	conns  map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
	}
}

func (r *Registry) Register(conn core.SignalConnection) core.ConnID {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.conns[id] = &connEntry{conn: conn}
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Stringer("conn", id).Msg("registered connection")
	return id
}

// BindIdentity overwrites any previous identity. The room is left alone.
func (r *Registry) BindIdentity(id core.ConnID, ident domain.Identity) (Entry, bool) {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return Entry{}, false
	}
	if _, ok := e.state().Next(core.Identify); !ok {
		r.mu.Unlock()
		return Entry{}, false
	}
	e.identity = ident
	e.bound = true
	self := snapshotOf(id, e)
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Stringer("conn", id).Str("user", string(ident.UserID)).Msg("bound identity")
	return self, true
}

// SetRoom moves a connection into room, or out of its room when room is
// empty. Joining needs an identity and leaving needs a room; otherwise the
// call is a no-op and reports false. The previous room is not told about an
// implicit move.
func (r *Registry) SetRoom(id core.ConnID, room domain.RoomID) (RoomChange, bool) {
	change, ok := r.setRoom(id, room)
	if ok {
		log.Info().Str("module", "app.registry").Stringer("conn", id).Str("from", string(change.From)).Str("room", string(room)).Msg("updated room")
	}
	return change, ok
}

func (r *Registry) setRoom(id core.ConnID, room domain.RoomID) (RoomChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return RoomChange{}, false
	}
	t := core.Join
	if room == "" {
		t = core.Leave
	}
	if _, ok := e.state().Next(t); !ok {
		return RoomChange{}, false
	}

	change := RoomChange{From: e.room}
	if room != "" {
		change.Peers = make([]Entry, 0)
		for pid, p := range r.conns {
			if pid != id && p.room == room {
				change.Peers = append(change.Peers, snapshotOf(pid, p))
			}
		}
		sortEntries(change.Peers)
	}
	e.room = room
	change.Self = snapshotOf(id, e)
	return change, true
}

// Unregister is idempotent; only the first call for an id reports true.
func (r *Registry) Unregister(id core.ConnID) (Entry, bool) {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return Entry{}, false
	}
	delete(r.conns, id)
	self := snapshotOf(id, e)
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Stringer("conn", id).Msg("unregistered connection")
	return self, true
}

func (r *Registry) Lookup(id core.ConnID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return Entry{}, false
	}
	return snapshotOf(id, e), true
}

// Snapshot returns every connection ordered by id.
func (r *Registry) Snapshot() []Entry {
	return r.filter(func(core.ConnID, *connEntry) bool { return true })
}

// RoomMembers returns the connections in room, minus except.
func (r *Registry) RoomMembers(room domain.RoomID, except core.ConnID) []Entry {
	if room == "" {
		return nil
	}
	return r.filter(func(id core.ConnID, e *connEntry) bool {
		return id != except && e.room == room
	})
}

// ByUser returns every connection currently bound to uid.
func (r *Registry) ByUser(uid domain.UserID) []Entry {
	return r.filter(func(_ core.ConnID, e *connEntry) bool {
		return e.bound && e.identity.UserID == uid
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) filter(keep func(core.ConnID, *connEntry) bool) []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.conns))
	for id, e := range r.conns {
		if keep(id, e) {
			out = append(out, snapshotOf(id, e))
		}
	}
	r.mu.RUnlock()
	sortEntries(out)
	return out
}

func snapshotOf(id core.ConnID, e *connEntry) Entry {
	return Entry{
		ID:       id,
		Conn:     e.conn,
		Identity: e.identity,
		Bound:    e.bound,
		Room:     e.room,
	}
}

func sortEntries(es []Entry) {
	slices.SortFunc(es, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
}
