package app

import (
	"cmp"
	"slices"

	"github.com/dkeye/voicerelay/internal/domain"
)

// Rooms derives the room list from one registry snapshot. A room exists
// exactly as long as some connection points at it.
func Rooms(reg *Registry) []domain.RoomInfo {
	counts := make(map[domain.RoomID]int)
	for _, e := range reg.Snapshot() {
		if e.Room != "" {
			counts[e.Room]++
		}
	}
	out := make([]domain.RoomInfo, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: n})
	}
	slices.SortFunc(out, func(a, b domain.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
