package counter

import (
	"math/bits"
	"sync"
	"time"

	"github.com/go-babylon/concurrent/tlocal"
)

const (
	numBuckets     = 64 // one per possible bit position of a non-negative int64
	bucketCapacity = 16
)

// samplerCell holds one goroutine's reservoir, bucketed by log2(value), and
// its own xorshift128 RNG state for the sampling decision.
type samplerCell struct {
	mu      sync.Mutex
	seeded  bool
	rngX    uint64
	rngY    uint64
	seen    [numBuckets]uint64
	buckets [numBuckets][]int64
}

func (c *samplerCell) seedIfNeeded(id uint64) {
	if c.seeded {
		return
	}
	c.rngX = uint64(time.Now().UnixNano()) ^ (id * 0x9E3779B97F4A7C15)
	c.rngY = id*0x2545F4914F6CDD1D + 0xBF58476D1CE4E5B9
	if c.rngX == 0 && c.rngY == 0 {
		c.rngX = 0x853C49E6748FEA9B
	}
	c.seeded = true
}

// xorshift128 advances the RNG state and returns the next pseudo-random
// value. This is Marsaglia's xorshift128, the same generator the original
// sampler uses for its sampling decision.
func (c *samplerCell) xorshift128() uint64 {
	x := c.rngX
	y := c.rngY
	c.rngX = y
	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)
	c.rngY = x
	return x + y
}

func logBucket(v int64) int {
	if v <= 0 {
		return 0
	}
	b := bits.Len64(uint64(v)) - 1
	if b >= numBuckets {
		b = numBuckets - 1
	}
	return b
}

// Sampler is a per-thread bucketed reservoir sampler: values are grouped by
// log2(value) into a bucket, and each bucket keeps a fixed-size uniform
// random sample of everything ever reported to it (classic reservoir
// sampling, Algorithm R).
type Sampler struct {
	cells *tlocal.Compact[samplerCell]
}

// NewSampler constructs an empty Sampler.
func NewSampler() *Sampler {
	return &Sampler{cells: tlocal.NewCompact[samplerCell]()}
}

// Sample records one observation of v from slot's goroutine.
func (s *Sampler) Sample(slot *tlocal.Slot, v int64) {
	c := s.cells.Cell(slot)
	b := logBucket(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seedIfNeeded(slot.ID())

	n := c.seen[b]
	c.seen[b]++
	if uint64(len(c.buckets[b])) < bucketCapacity {
		c.buckets[b] = append(c.buckets[b], v)
		return
	}
	j := c.xorshift128() % (n + 1)
	if j < bucketCapacity {
		c.buckets[b][j] = v
	}
}

// ForEach calls fn once per (goroutine, bucket) pair that has at least one
// sample, passing a defensive copy of that bucket's current reservoir.
func (s *Sampler) ForEach(fn func(id uint64, bucket int, samples []int64)) {
	s.cells.ForEachAlive(func(id uint64, c *samplerCell) {
		c.mu.Lock()
		defer c.mu.Unlock()
		for b := 0; b < numBuckets; b++ {
			if len(c.buckets[b]) == 0 {
				continue
			}
			cp := append([]int64(nil), c.buckets[b]...)
			fn(id, b, cp)
		}
	})
}
