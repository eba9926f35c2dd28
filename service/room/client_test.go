package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAfterShutdownIsNoop(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("c1", "u1", nil, 4)
	reg.Add(c)
	reg.Subscribe(c, "list:l1")

	// a fanout worker can snapshot the subscribers before teardown runs
	snapshot := reg.ListChannel("list:l1")
	require.Len(t, snapshot, 1)

	reg.Remove(c.ConnID)
	c.shutdown()

	require.NotPanics(t, func() {
		for _, sub := range snapshot {
			sub.enqueue([]byte(`{"type":"event"}`))
		}
	})

	// the queue is closed for the writer and took nothing after shutdown
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestShutdownIdempotent(t *testing.T) {
	c := NewClient("c1", "u1", nil, 1)
	require.NotPanics(t, func() {
		c.shutdown()
		c.shutdown()
	})
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	c := NewClient("c1", "u1", nil, 1)
	c.enqueue([]byte("a"))
	c.enqueue([]byte("b")) // queue full, dropped

	require.Len(t, c.Send, 1)
	assert.Equal(t, []byte("a"), <-c.Send)
}
