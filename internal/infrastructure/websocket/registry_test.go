package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrySetTopicMovesRooms(t *testing.T) {
	r := NewRegistry()
	c := newConnection("c1", 1)
	r.Add(c)

	r.SetTopic(c, "a", "Puki")
	r.SetTopic(c, "b", "Puki")

	assert.Empty(t, r.Members("a"))
	assert.Len(t, r.Members("b"), 1)
	assert.False(t, c.InRoom("a"))
	assert.True(t, c.InRoom("b"))
	assert.Equal(t, "b", c.Topic)
}

func TestRegistryRemoveClearsRooms(t *testing.T) {
	r := NewRegistry()
	c := newConnection("c1", 1)
	r.Add(c)
	r.SetTopic(c, "a", "Puki")
	r.Join(c, WatchRoom("u1"))

	assert.True(t, r.Remove(c))
	assert.False(t, r.Remove(c))
	assert.Empty(t, r.Members("a"))
	assert.Empty(t, r.Members("watching:u1"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryUserConnection(t *testing.T) {
	r := NewRegistry()
	first, second := newConnection("c1", 1), newConnection("c2", 1)
	r.Add(first)
	r.Add(second)

	assert.Nil(t, r.UserConnection("u1"))
	assert.Nil(t, r.UserConnection(""))

	r.Bind(second, "u1")
	r.Bind(first, "u1")
	assert.Same(t, first, r.UserConnection("u1"))

	r.Unbind(first)
	assert.Same(t, second, r.UserConnection("u1"))

	r.Remove(second)
	assert.Nil(t, r.UserConnection("u1"))
}
