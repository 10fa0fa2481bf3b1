package gc_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-babylon/concurrent/gc"
	"github.com/go-babylon/concurrent/tlocal"
)

func TestRetiredClosuresRunAfterStop(t *testing.T) {
	var count atomic.Int64
	c := gc.New[func()](func(f func()) { f() }, gc.WithQueueCapacity[func()](1024))
	require.NoError(t, c.Start())

	for i := 0; i < 1000; i++ {
		c.Retire(func() { count.Add(1) })
	}
	c.Epoch().Tick()
	c.Stop()

	assert.Equal(t, int64(1000), count.Load())
}

func TestStartTwiceReturnsError(t *testing.T) {
	c := gc.New[int](func(int) {})
	require.NoError(t, c.Start())
	defer c.Stop()
	assert.ErrorIs(t, c.Start(), gc.ErrAlreadyStarted)
}

func TestReclaimWaitsForLowWaterMark(t *testing.T) {
	var reclaimed atomic.Bool
	c := gc.New[int](func(int) { reclaimed.Store(true) })
	require.NoError(t, c.Start())
	defer c.Stop()

	slot := acquireReaderSlot(c)
	e := c.Epoch()
	target := e.Tick()

	c.RetireAt(1, target)

	// The reader opened before target's tick, so it must not see a
	// reclaim while it's still inside its critical section.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, reclaimed.Load())

	slot.exit()
	require.Eventually(t, func() bool { return reclaimed.Load() }, time.Second, time.Millisecond)
}

// acquireReaderSlot opens a reader critical section stamped before
// e.Tick() is called again, giving the test a controllable low-water-mark.
type readerSlot struct {
	exit func()
}

func acquireReaderSlot(c *gc.Collector[int]) readerSlot {
	slot := tlocal.Acquire(true)
	guard := c.Epoch().Enter(slot)
	return readerSlot{exit: guard.Exit}
}
