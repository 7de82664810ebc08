package core

import "strconv"

// ConnID is assigned once per accepted connection and never reused.
type ConnID uint64

func (id ConnID) String() string { return strconv.FormatUint(uint64(id), 10) }

// State is the per-connection protocol state.
type State int

const (
	Anonymous State = iota
	Identified
	InRoom
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Identified:
		return "identified"
	case InRoom:
		return "in_room"
	default:
		return "unknown"
	}
}

// HasIdentity reports whether an identity is bound.
func (s State) HasIdentity() bool { return s >= Identified }

type Transition int

const (
	Identify Transition = iota
	Join
	Leave
)

// Next validates a transition. Identify never clears a room, and a join from
// InRoom simply moves the connection.
func (s State) Next(t Transition) (State, bool) {
	switch t {
	case Identify:
		if s == InRoom {
			return InRoom, true
		}
		return Identified, true
	case Join:
		if s == Anonymous {
			return s, false
		}
		return InRoom, true
	case Leave:
		if s != InRoom {
			return s, false
		}
		return Identified, true
	}
	return s, false
}
