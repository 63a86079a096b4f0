package rabbitmq

import (
	"testing"

	"github.com/kinterstore/qrishub.go/lib/logging"
	"github.com/stretchr/testify/assert"
)

func TestBroadcastSkipsFullWatchers(t *testing.T) {
	c := &defaultAMQPClient{logger: logging.Logger("", "error")}
	busy := c.watch()
	idle := c.watch()

	c.broadcast(connRestored)
	c.broadcast(connRestored)
	// busy never drains, the third event must not block
	c.broadcast(connLost)

	assert.Len(t, busy, 2)
	assert.Equal(t, connRestored, <-idle)
	assert.Equal(t, connRestored, <-idle)

	c.unwatch(idle)
	c.broadcast(connLost)
	assert.Len(t, idle, 0)
	assert.Len(t, c.watchers, 1)
}

func TestListenOptions(t *testing.T) {
	opts := ListenOptions{Durable: true}
	for _, opt := range []ListenOption{WithTransientQueue(), WithExclusive(true), WithAutoAck(true)} {
		opt(&opts)
	}
	assert.Equal(t, ListenOptions{AutoDelete: true, Exclusive: true, AutoAck: true}, opts)
}
