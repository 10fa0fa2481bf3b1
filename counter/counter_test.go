package counter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/go-babylon/concurrent/counter"
	"github.com/go-babylon/concurrent/tlocal"
)

func TestAdderSumsAcrossGoroutines(t *testing.T) {
	a := counter.NewAdder()
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			slot := tlocal.Acquire(true)
			a.Add(slot, 5)
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, int64(40), a.Sum())
}

func TestMaxerTracksMaxAndResets(t *testing.T) {
	m := counter.NewMaxer()
	slot := tlocal.Acquire(true)
	m.Update(slot, 3)
	m.Update(slot, 9)
	m.Update(slot, 5)

	v, ok := m.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(9), v)

	m.Reset()
	_, ok = m.Value()
	assert.False(t, ok, "no samples reported since reset")

	m.Update(slot, 1)
	v, ok = m.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestMinerTracksMin(t *testing.T) {
	m := counter.NewMiner()
	slot := tlocal.Acquire(true)
	m.Update(slot, 3)
	m.Update(slot, -9)
	m.Update(slot, 5)

	v, ok := m.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(-9), v)
}

func TestSummerAveragesAcrossGoroutines(t *testing.T) {
	s := counter.NewSummer()
	var g errgroup.Group
	for i := 1; i <= 4; i++ {
		i := i
		g.Go(func() error {
			slot := tlocal.Acquire(true)
			s.Add(slot, int64(i))
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	sum, num := s.Value()
	assert.Equal(t, int64(10), sum)
	assert.Equal(t, uint64(4), num)
}

func TestSamplerBucketsByLog2AndCapsReservoir(t *testing.T) {
	s := counter.NewSampler()
	slot := tlocal.Acquire(true)
	for i := 0; i < 1000; i++ {
		s.Sample(slot, 100) // log2(100) == bucket 6
	}

	found := false
	s.ForEach(func(id uint64, bucket int, samples []int64) {
		if len(samples) == 0 {
			return
		}
		found = true
		assert.LessOrEqual(t, len(samples), 16)
		for _, v := range samples {
			assert.Equal(t, int64(100), v)
		}
	})
	assert.True(t, found)
}
