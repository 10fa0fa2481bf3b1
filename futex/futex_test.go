package futex_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-babylon/concurrent/futex"
)

func TestEmulatedWaitValueChanged(t *testing.T) {
	var word uint32 = 5
	s := futex.NewEmulated()
	got := s.Wait(&word, 6, 0)
	assert.Equal(t, futex.ValueChanged, got)
}

func TestEmulatedWakeOne(t *testing.T) {
	var word uint32
	s := futex.NewEmulated()

	var g errgroup.Group
	woken := make(chan futex.Result, 1)
	g.Go(func() error {
		woken <- s.Wait(&word, 0, 0)
		return nil
	})

	require.Eventually(t, func() bool {
		return s.WakeOne(&word) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, g.Wait())
	assert.Equal(t, futex.Awoken, <-woken)
}

func TestEmulatedWakeAll(t *testing.T) {
	var word uint32
	s := futex.NewEmulated()

	const n = 8
	var ready, finished atomic.Int32
	for i := 0; i < n; i++ {
		go func() {
			ready.Add(1)
			s.Wait(&word, 0, 0)
			finished.Add(1)
		}()
	}

	require.Eventually(t, func() bool {
		return ready.Load() == n
	}, time.Second, time.Millisecond)
	// A waiter may still be between incrementing ready and registering in
	// its bucket; retry WakeAll until every goroutine has left.
	require.Eventually(t, func() bool {
		s.WakeAll(&word)
		return finished.Load() == n
	}, time.Second, time.Millisecond)
}

func TestEmulatedWaitTimeout(t *testing.T) {
	var word uint32
	s := futex.NewEmulated()
	got := s.Wait(&word, 0, 10*time.Millisecond)
	assert.Equal(t, futex.TimedOut, got)
}

func TestMockCountsWaitsAndWakes(t *testing.T) {
	var word uint32
	m := futex.NewMock()

	done := make(chan struct{})
	go func() {
		m.Wait(&word, 0, 0)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return m.WakeOne(&word) == 1
	}, time.Second, time.Millisecond)
	<-done

	assert.Equal(t, int64(1), m.Waits())
	assert.Equal(t, int64(1), m.WakeOnes())
}

func TestDefaultSchedulerWorks(t *testing.T) {
	var word uint32
	s := futex.Default()

	var g errgroup.Group
	g.Go(func() error {
		s.Wait(&word, 0, 2*time.Second)
		return nil
	})

	require.Eventually(t, func() bool {
		return s.WakeOne(&word) == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, g.Wait())
}
