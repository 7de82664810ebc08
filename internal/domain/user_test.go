package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("u1", "Alice", "a.png")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Name: "Alice", Avatar: "a.png"}, id)

	_, err = NewIdentity("", "Alice", "")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	long := strings.Repeat("x", 4096)
	id, err = NewIdentity(long, long, "")
	require.NoError(t, err)
	assert.Equal(t, UserID(long), id.UserID)
	assert.Equal(t, long, id.Name)
}

func TestMemberInRoom(t *testing.T) {
	assert.False(t, Member{}.InRoom())
	assert.True(t, Member{Room: "lobby"}.InRoom())
}
