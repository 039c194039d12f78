package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Worker Pool:
// - Non-positive sizes default to one worker per CPU
// - Every submitted task runs
// - No more than Size tasks run at once
// - Submit returns the context error when no worker frees up in time
// - Submit after Close fails with ErrClosed; Close is idempotent

func TestNew_DefaultSize(t *testing.T) {
	t.Parallel()

	p := New(0)
	defer p.Close()
	assert.Positive(t, p.Size())
}

func TestSubmit_RunsEveryTask(t *testing.T) {
	t.Parallel()

	p := New(4)
	var done atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			done.Add(1)
		}))
	}
	wg.Wait()
	p.Close()
	assert.Equal(t, int64(100), done.Load())
}

func TestSubmit_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	p := New(2)
	defer p.Close()

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestSubmit_ContextCancelled(t *testing.T) {
	t.Parallel()

	p := New(1)
	defer p.Close()

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	close(release)
}

func TestClose(t *testing.T) {
	t.Parallel()

	p := New(1)
	p.Close()
	p.Close()
	assert.True(t, errors.Is(p.Submit(context.Background(), func() {}), ErrClosed))
}
