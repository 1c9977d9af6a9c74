package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRooms_JoinIsIdempotent(t *testing.T) {
	r := NewRooms()
	r.Join("room", "c1")
	r.Join("room", "c1")
	r.Join("room", "c2")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.Members("room", ""))
	assert.True(t, r.IsMember("room", "c1"))
}

func TestRooms_MembersExclude(t *testing.T) {
	r := NewRooms()
	r.Join("room", "c1")
	r.Join("room", "c2")

	assert.Equal(t, []string{"c2"}, r.Members("room", "c1"))
	assert.Empty(t, r.Members("unknown", ""))
}

func TestRooms_Leave(t *testing.T) {
	r := NewRooms()
	r.Join("room", "c1")
	r.Leave("room", "c1")
	r.Leave("room", "c1")
	r.Leave("other", "c9")

	assert.Empty(t, r.Members("room", ""))
	assert.False(t, r.IsMember("room", "c1"))
	assert.Empty(t, r.RoomsOf("c1"))
}

func TestRooms_LeaveAll(t *testing.T) {
	r := NewRooms()
	r.Join("b", "c1")
	r.Join("a", "c1")
	r.Join("a", "c2")

	assert.Equal(t, []string{"a", "b"}, r.RoomsOf("c1"))
	assert.Equal(t, []string{"a", "b"}, r.LeaveAll("c1"))
	assert.Equal(t, []string{"c2"}, r.Members("a", ""))
	assert.Empty(t, r.Members("b", ""))
	assert.Empty(t, r.LeaveAll("c1"))
}
