package natsserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedNATS_RoundTrip(t *testing.T) {
	e, err := New(Config{Port: -1}, zap.NewNop())
	require.NoError(t, err)
	defer e.Shutdown()

	got := make(chan []byte, 1)
	sub, err := e.Conn().Subscribe("test.subject", func(m *nats.Msg) {
		got <- m.Data
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, e.Conn().Flush())

	require.NoError(t, e.Conn().Publish("test.subject", []byte("hello")))

	select {
	case data := <-got:
		assert.Equal(t, "hello", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	stats := e.GetStats()
	assert.GreaterOrEqual(t, stats.Clients, 1)
	assert.NotEmpty(t, e.ClientURL())
}
