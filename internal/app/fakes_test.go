package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	limit  int
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrClosed
	}
	if f.limit > 0 && len(f.frames) >= f.limit {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range f.messages(t) {
		out = append(out, m["type"].(string))
	}
	return out
}

func ident(uid string) domain.Identity {
	return domain.Identity{UserID: domain.UserID(uid), Name: "name-" + uid, Avatar: "avatar-" + uid}
}

// joined registers a connection bound to uid and, if room is set, in room.
func joined(t *testing.T, reg *Registry, uid string, room domain.RoomID) (core.ConnID, *fakeConn) {
	t.Helper()
	c := &fakeConn{}
	id := reg.Register(c)
	_, ok := reg.BindIdentity(id, ident(uid))
	require.True(t, ok)
	if room != "" {
		_, ok = reg.SetRoom(id, room)
		require.True(t, ok)
	}
	return id, c
}
