package streamprocessor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/statestore"
)

func TestPreAggregator_IncrReturnsRunningLocalTotal(t *testing.T) {
	p := newPreAggregator(defaultPreAggregateInterval)

	assert.Equal(t, int64(1), p.incr("k"))
	assert.Equal(t, int64(2), p.incr("k"))
	assert.Equal(t, int64(1), p.incr("other"), "distinct keys track independently")
}

func TestPreAggregator_ResetClearsLocalAndPendingTotals(t *testing.T) {
	p := newPreAggregator(defaultPreAggregateInterval)
	p.incr("k")
	p.incr("k")

	p.reset("k")

	assert.Equal(t, int64(1), p.incr("k"), "a reset key should start counting from zero again")
}

func TestPreAggregator_FlushSendsAccumulatedDeltaToStore(t *testing.T) {
	p := newPreAggregator(defaultPreAggregateInterval)
	p.incr("k")
	p.incr("k")
	p.incr("k")

	store := statestore.New()
	p.flush(context.Background(), store, nil)

	v, err := store.Incr(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v, "store should have received the flushed delta of 3, then this Incr takes it to 4")
}

func TestPreAggregator_DrainIsIdempotentBetweenFlushes(t *testing.T) {
	p := newPreAggregator(defaultPreAggregateInterval)
	p.incr("k")

	first := p.drain()
	assert.Equal(t, map[string]int64{"k": 1}, first)

	second := p.drain()
	assert.Nil(t, second, "draining again with no new increments should yield nothing")
}
