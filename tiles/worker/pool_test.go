package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(4)
	defer p.Shutdown()

	var running, peak, done atomic.Int32
	for i := 0; i < 40; i++ {
		p.Submit(Task{Work: func() error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
			return nil
		}})
	}
	require.NoError(t, p.Wait())
	require.Equal(t, int32(40), done.Load())
	require.LessOrEqual(t, peak.Load(), int32(4))
	require.Greater(t, peak.Load(), int32(1))
}

func TestPoolJoinsErrors(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	errA := errors.New("a")
	errB := errors.New("b")
	p.Submit(Task{Work: func() error { return errA }})
	p.Submit(Task{Work: func() error { return nil }})
	p.Submit(Task{Work: func() error { return errB }})

	err := p.Wait()
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)

	// errors are reset between batches
	p.Submit(Task{Work: func() error { return nil }})
	require.NoError(t, p.Wait())
}

func TestPoolSkipsCancelledTasks(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	p.Submit(Task{Ctx: ctx, Work: func() error {
		ran.Store(true)
		return nil
	}})
	require.ErrorIs(t, p.Wait(), context.Canceled)
	require.False(t, ran.Load())
}
