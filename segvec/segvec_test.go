package segvec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-babylon/concurrent/segvec"
)

func TestEnsureGrowsAndIsStable(t *testing.T) {
	v := segvec.New[int](segvec.WithBlockBits[int](2)) // 4 elements per block

	p0 := v.Ensure(0)
	*p0 = 100

	p10 := v.Ensure(10) // forces growth past the first block
	*p10 = 200

	// p0 must still be valid and unchanged after growth.
	assert.Equal(t, 100, *v.Ensure(0))
	assert.Equal(t, 200, *v.Ensure(10))
	assert.Same(t, p0, v.Ensure(0))
}

func TestConstructorRunsOnce(t *testing.T) {
	calls := 0
	v := segvec.New[int](
		segvec.WithBlockBits[int](2),
		segvec.WithConstructor(func(p *int) { *p = -1; calls++ }),
	)
	v.Ensure(0)
	assert.Equal(t, 4, calls) // whole block constructed eagerly
	assert.Equal(t, -1, *v.Ensure(1))
}

func TestSnapshotForEachRun(t *testing.T) {
	v := segvec.New[int](segvec.WithBlockBits[int](2))
	for i := uint64(0); i < 6; i++ {
		*v.Ensure(i) = int(i)
	}
	snap := v.Snapshot()

	var got []int
	snap.ForEachRun(6, func(base uint64, run []int) {
		got = append(got, run...)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}

func TestConcurrentEnsureIsRaceFree(t *testing.T) {
	v := segvec.New[int](segvec.WithBlockBits[int](4))
	var g errgroup.Group
	for i := uint64(0); i < 1000; i++ {
		i := i
		g.Go(func() error {
			*v.Ensure(i) = int(i)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i := uint64(0); i < 1000; i++ {
		assert.Equal(t, int(i), *v.Ensure(i))
	}
}
