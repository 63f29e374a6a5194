package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepKey(t *testing.T) {
	assert.Equal(t, "sweep:expired-payments:65f0", SweepKey("expired-payments", "65f0"))
}

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLocker().WithClock(func() time.Time { return now })

	ok, err := l.Acquire(ctx, "sweep:auto-cancel:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "sweep:auto-cancel:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held claim cannot be taken")

	require.NoError(t, l.Release(ctx, "sweep:auto-cancel:1"))
	ok, _ = l.Acquire(ctx, "sweep:auto-cancel:1", time.Minute)
	assert.True(t, ok, "released claim can be retaken")
}

func TestMemoryLocker_ExpiredClaimIsTakenOver(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLocker().WithClock(func() time.Time { return now })

	ok, _ := l.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_SingleWinnerUnderContention(t *testing.T) {
	l := NewMemoryLocker()
	var winners int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Acquire(context.Background(), "sweep:expired-payments:p1", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestValidate(t *testing.T) {
	l := NewMemoryLocker()
	_, err := l.Acquire(context.Background(), " ", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = l.Acquire(context.Background(), "k", 0)
	assert.Error(t, err)
}
