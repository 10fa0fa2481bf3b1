package counter

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/tlocal"
)

type summerCell struct {
	sum atomic.Int64
	num atomic.Uint64
}

// Summer accumulates both a running sum and a running count, letting
// callers compute an average. The original packs {sum, num} into one
// 128-bit SSE/NEON-aligned store so a single thread's update is one
// wait-free instruction; Go has no portable 128-bit atomic, so sum and num
// are two independent atomic fields here. Each field's own update is still
// atomic and torn-read-free under the Go memory model — the only thing
// lost is combining both stores into a single instruction.
type Summer struct {
	cells *tlocal.Compact[summerCell]
}

// NewSummer constructs an empty Summer.
func NewSummer() *Summer {
	return &Summer{cells: tlocal.NewCompact[summerCell]()}
}

// Add records one sample of v from slot's goroutine.
func (s *Summer) Add(slot *tlocal.Slot, v int64) {
	c := s.cells.Cell(slot)
	c.sum.Add(v)
	c.num.Add(1)
}

// Value returns the total sum and sample count across every alive cell.
func (s *Summer) Value() (sum int64, num uint64) {
	s.cells.ForEachAlive(func(_ uint64, c *summerCell) {
		sum += c.sum.Load()
		num += c.num.Load()
	})
	return
}
