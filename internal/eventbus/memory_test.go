package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishConsume_RoundTrip(t *testing.T) {
	bus := NewMemoryBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []string

	go func() {
		_ = bus.Consume(ctx, func(_ context.Context, msg Message) error {
			mu.Lock()
			received = append(received, string(msg.Value))
			mu.Unlock()
			if len(received) == 2 {
				cancel()
			}
			return nil
		})
	}()

	require.NoError(t, bus.Publish(context.Background(), "tenant-a", []byte("one")))
	require.NoError(t, bus.Publish(context.Background(), "tenant-a", []byte("two")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"one", "two"}, received, "per-key ordering must be preserved")
	mu.Unlock()
}

func TestMemoryBus_PublishDeadLetter_RecordsReason(t *testing.T) {
	bus := NewMemoryBus(8)

	err := bus.PublishDeadLetter(context.Background(), "tenant-a", []byte("garbage"), "checksum mismatch")
	require.NoError(t, err)

	reasons := bus.DeadLetters()
	assert.Equal(t, []string{"checksum mismatch"}, reasons)
}

func TestMemoryBus_Publish_FailsAfterClose(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), "tenant-a", []byte("x"))
	assert.Error(t, err)
}
