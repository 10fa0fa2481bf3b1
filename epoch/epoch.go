// Package epoch implements epoch-based reclamation bookkeeping: a global
// tick counter and a per-goroutine registry of "currently reading"
// timestamps. The low-water-mark over that registry tells a garbage
// collector (package gc) which retired objects are safe to reclaim.
package epoch

import (
	"math"
	"sync/atomic"

	"github.com/go-babylon/concurrent/tlocal"
)

// noReader is the value an entered-but-currently-outside-a-critical-section
// registration carries, so it never constrains the low-water-mark.
const noReader = math.MaxUint64

// Epoch is a tick counter paired with a registry of reader critical
// sections. The zero value is not usable; construct with New.
type Epoch struct {
	counter atomic.Uint64
	readers *tlocal.Local[atomic.Uint64]
}

// New constructs an Epoch with its tick counter at zero.
func New() *Epoch {
	e := &Epoch{}
	e.readers = tlocal.New[atomic.Uint64](tlocal.WithConstructor[atomic.Uint64](func(c *atomic.Uint64) {
		c.Store(noReader)
	}))
	return e
}

// Tick monotonically advances the global counter and returns the new value.
func (e *Epoch) Tick() uint64 {
	return e.counter.Add(1)
}

// LowWaterMark returns the minimum tick among currently-entered reader
// critical sections, or math.MaxUint64 if none are open.
func (e *Epoch) LowWaterMark() uint64 {
	lwm := uint64(noReader)
	e.readers.ForEachAlive(func(_ uint64, c *atomic.Uint64) {
		if t := c.Load(); t < lwm {
			lwm = t
		}
	})
	return lwm
}

// Guard marks one open reader critical section. Exit must be called exactly
// once to close it.
type Guard struct {
	cell *atomic.Uint64
}

// Enter opens a reader critical section for slot, stamping it with the
// epoch's current tick so that any object retired afterward cannot be
// reclaimed until this section closes. The returned Guard must be Exit'd.
func (e *Epoch) Enter(slot *tlocal.Slot) *Guard {
	cell := e.readers.Cell(slot)
	cell.Store(e.counter.Load())
	return &Guard{cell: cell}
}

// Exit closes the reader critical section, making it stop constraining the
// low-water-mark.
func (g *Guard) Exit() {
	g.cell.Store(noReader)
}
