package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateNext(t *testing.T) {
	tests := []struct {
		from   State
		t      Transition
		want   State
		wantOK bool
	}{
		{Anonymous, Identify, Identified, true},
		{Identified, Identify, Identified, true},
		{InRoom, Identify, InRoom, true},
		{Anonymous, Join, Anonymous, false},
		{Identified, Join, InRoom, true},
		{InRoom, Join, InRoom, true},
		{Anonymous, Leave, Anonymous, false},
		{Identified, Leave, Identified, false},
		{InRoom, Leave, Identified, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			got, ok := tt.from.Next(tt.t)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateHasIdentity(t *testing.T) {
	assert.False(t, Anonymous.HasIdentity())
	assert.True(t, Identified.HasIdentity())
	assert.True(t, InRoom.HasIdentity())
}
