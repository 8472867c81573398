package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	release, ok, err := g.Acquire(ctx, "charge.success:ref1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.Acquire(ctx, "charge.success:ref1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire while held")

	_, ok, _ = g.Acquire(ctx, "charge.success:ref2", time.Minute)
	assert.True(t, ok, "other keys are independent")

	release()
	_, ok, _ = g.Acquire(ctx, "charge.success:ref1", time.Minute)
	assert.True(t, ok, "free after release")
}

func TestLocalGuardExpires(t *testing.T) {
	g := NewLocalGuard()
	_, ok, _ := g.Acquire(context.Background(), "k", time.Nanosecond)
	require.True(t, ok)
	time.Sleep(time.Millisecond)
	_, ok, _ = g.Acquire(context.Background(), "k", time.Minute)
	assert.True(t, ok)
}
