// Package counter provides sharded per-thread metrics built on package
// tlocal: an adder, a max/min tracker with epoch-based reset, a sum+count
// accumulator, and a bucketed reservoir sampler.
//
// Each counter keeps one cell per acquired tlocal.Slot. Only the owning
// goroutine ever writes its own cell, so the write path needs no
// cross-goroutine synchronization beyond what makes the write visible to
// readers; aggregation (Sum/Value/ForEach) walks every alive cell.
package counter

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/tlocal"
)

// Adder accumulates a running total across many goroutines without any of
// them contending on a shared cache line.
type Adder struct {
	cells *tlocal.Compact[adderCell]
}

type adderCell struct {
	value atomic.Int64
}

// NewAdder constructs an empty Adder.
func NewAdder() *Adder {
	return &Adder{cells: tlocal.NewCompact[adderCell]()}
}

// Add adds delta to slot's cell.
func (a *Adder) Add(slot *tlocal.Slot, delta int64) {
	a.cells.Cell(slot).value.Add(delta)
}

// Sum returns the sum across every currently-alive cell.
func (a *Adder) Sum() int64 {
	var total int64
	a.cells.ForEachAlive(func(_ uint64, c *adderCell) {
		total += c.value.Load()
	})
	return total
}
