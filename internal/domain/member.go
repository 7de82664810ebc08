package domain

// Member is a read-only view of one identified connection and the room it
// sits in, if any. Duplicate UserIDs are possible when the same identity is
// claimed from several connections.
type Member struct {
	Identity
	Room RoomID
}

func (m Member) InRoom() bool { return m.Room != "" }
