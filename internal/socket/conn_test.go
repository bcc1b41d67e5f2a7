package socket

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(buffer int) *conn {
	return &conn{
		srv:  &Server{log: zerolog.Nop()},
		uid:  7,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	c := newTestConn(1)

	c.push([]byte("first"))
	c.push([]byte("second"))

	require.Len(t, c.send, 1)
	assert.Equal(t, "first", string(<-c.send))
}

func TestReplyWaitsForSpace(t *testing.T) {
	c := newTestConn(1)
	c.push([]byte("push"))

	queued := make(chan struct{})
	go func() {
		c.reply([]byte("reply"))
		close(queued)
	}()

	select {
	case <-queued:
		t.Fatal("reply returned while the buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, "push", string(<-c.send))

	select {
	case <-queued:
	case <-time.After(time.Second):
		t.Fatal("reply was not queued after the buffer drained")
	}
	assert.Equal(t, "reply", string(<-c.send))
}

func TestReplyReturnsWhenClosed(t *testing.T) {
	c := newTestConn(1)
	c.push([]byte("push"))

	queued := make(chan struct{})
	go func() {
		c.reply([]byte("reply"))
		close(queued)
	}()

	close(c.done)

	select {
	case <-queued:
	case <-time.After(time.Second):
		t.Fatal("reply blocked on a closed connection")
	}
	assert.Len(t, c.send, 1)
}
