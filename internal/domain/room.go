package domain

// RoomID names a room. Rooms are not stored anywhere; membership is derived
// from connections pointing at the same RoomID. The zero value means "no room".
type RoomID string

type RoomInfo struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"member_count"`
}
