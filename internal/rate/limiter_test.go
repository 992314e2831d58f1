package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurstThenBlocks(t *testing.T) {
	l := NewMemory(0.5, 2)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "nsfw"))
	require.NoError(t, l.Wait(ctx, "nsfw"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short, "nsfw"))

	// Separate keys have separate buckets.
	assert.NoError(t, l.Wait(ctx, "other"))
}

func TestMemoryLimiterDisabled(t *testing.T) {
	l := NewMemory(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "k"))
	}
}

func TestUnlimitedHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited{}.Wait(ctx, "k"), context.Canceled)
}
