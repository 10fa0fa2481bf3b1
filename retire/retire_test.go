package retire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/go-babylon/concurrent/retire"
)

func TestRetireChainsUnderSteadyTraffic(t *testing.T) {
	var l retire.List[int]
	l.Retire(1)
	l.Retire(2)
	l.Retire(3)
	assert.Equal(t, 3, l.Len())
}

func TestGCNoopBeforeExpiry(t *testing.T) {
	var l retire.List[int]
	l.Retire(1)
	assert.False(t, l.GC(), "freshly retired chain should not be immediately reclaimable")
	assert.Equal(t, 1, l.Len())
}

func TestUnsafeGCAlwaysClears(t *testing.T) {
	var l retire.List[int]
	l.Retire(1)
	l.UnsafeGC()
	assert.Equal(t, 0, l.Len())
}

func TestConcurrentRetire(t *testing.T) {
	var l retire.List[int]
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		i := i
		g.Go(func() error {
			l.Retire(i)
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 100, l.Len())
}
