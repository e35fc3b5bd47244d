package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomPairKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoomPairKey("a", "b"), RoomPairKey("b", "a"))
	assert.Equal(t, "a:b", RoomPairKey("b", "a"))
	assert.NotEqual(t, RoomPairKey("a", "b"), RoomPairKey("a", "c"))
}

func TestChatRoom_HasParticipant(t *testing.T) {
	t.Parallel()

	room := &ChatRoom{ParticipantIDs: []string{"u1", "u2"}}
	assert.True(t, room.HasParticipant("u1"))
	assert.True(t, room.HasParticipant("u2"))
	assert.False(t, room.HasParticipant("u3"))
}
