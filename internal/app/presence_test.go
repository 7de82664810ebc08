package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicerelay/internal/metrics"
	"github.com/dkeye/voicerelay/internal/protocol"
)

func TestBroadcaster_ToRoom(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, nil, nil)
	a, ca := joined(t, reg, "a", "lobby")
	_, cb := joined(t, reg, "b", "lobby")
	_, cc := joined(t, reg, "c", "other")

	sent := b.ToRoom("lobby", a, protocol.UserLeft{UserID: "x"})

	assert.Equal(t, 1, sent)
	assert.Empty(t, ca.types(t))
	assert.Equal(t, []string{"UserLeft"}, cb.types(t))
	assert.Empty(t, cc.types(t))
}

func TestBroadcaster_ToAll(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, nil, nil)
	anon := &fakeConn{}
	reg.Register(anon)
	_, ca := joined(t, reg, "a", "lobby")

	sent := b.ToAll(protocol.MessageDeleted{MessageID: "m1", ChannelID: "lobby"})

	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"MessageDeleted"}, anon.types(t))
	assert.Equal(t, []string{"MessageDeleted"}, ca.types(t))
}

func TestBroadcaster_FullPipelineDoesNotBlockOthers(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantClosed bool
	}{
		{name: "drop", policy: DropPolicy{}, wantClosed: false},
		{name: "kick", policy: KickPolicy{}, wantClosed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			m := metrics.NewPrometheus()
			b := NewBroadcaster(reg, tt.policy, m)

			slow := &fakeConn{limit: 1}
			reg.Register(slow)
			_, fast := joined(t, reg, "fast", "")

			b.ToAll(protocol.UserLeft{UserID: "1"})
			sent := b.ToAll(protocol.UserLeft{UserID: "2"})

			assert.Equal(t, 1, sent)
			assert.Len(t, fast.types(t), 2)
			assert.Len(t, slow.types(t), 1)
			assert.Equal(t, tt.wantClosed, slow.isClosed())
		})
	}
}

func TestBroadcaster_ClosedPipelineIsSkipped(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, KickPolicy{}, nil)
	id, c := joined(t, reg, "a", "")
	c.Close()

	assert.False(t, b.Send(id, protocol.Identified{Success: true}))
	assert.False(t, b.Send(999, protocol.Identified{Success: true}))
}

func TestBroadcaster_VoiceStates(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, nil, nil)
	reg.Register(&fakeConn{})
	joined(t, reg, "a", "lobby")
	joined(t, reg, "b", "")
	joined(t, reg, "c", "gaming")

	got := b.VoiceStates()

	require.Len(t, got, 2)
	assert.Equal(t, protocol.VoiceState{UserID: "a", Name: "name-a", Avatar: "avatar-a", RoomID: "lobby"}, got[0])
	assert.Equal(t, "gaming", got[1].RoomID)
}

func TestVoiceStateOf(t *testing.T) {
	reg := NewRegistry()
	id, _ := joined(t, reg, "a", "lobby")
	e, _ := reg.Lookup(id)

	u := VoiceStateOf(e)
	require.NotNil(t, u.RoomID)
	assert.Equal(t, "lobby", *u.RoomID)

	e.Room = ""
	assert.Nil(t, VoiceStateOf(e).RoomID)
}

func TestRoomUsersNeverNil(t *testing.T) {
	assert.NotNil(t, RoomUsers(nil).Users)
}

func TestRooms(t *testing.T) {
	reg := NewRegistry()
	joined(t, reg, "a", "lobby")
	joined(t, reg, "b", "lobby")
	joined(t, reg, "c", "gaming")
	joined(t, reg, "d", "")

	got := Rooms(reg)

	require.Len(t, got, 2)
	assert.Equal(t, "gaming", string(got[0].ID))
	assert.Equal(t, 1, got[0].MemberCount)
	assert.Equal(t, "lobby", string(got[1].ID))
	assert.Equal(t, 2, got[1].MemberCount)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.IsType(t, DropPolicy{}, p)

	p, err = PolicyByName("kick")
	require.NoError(t, err)
	assert.IsType(t, KickPolicy{}, p)

	_, err = PolicyByName("shout")
	assert.Error(t, err)
}
