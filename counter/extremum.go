package counter

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/tlocal"
)

type extremumCell struct {
	version atomic.Uint64
	value   atomic.Int64
}

// extremum is the shared machinery behind Maxer and Miner: each cell
// records the epoch it was last updated in (stored as epoch+1, so a
// never-updated cell's zero version is never current), and Reset bumps a
// global epoch
// so that readers can ignore any cell that hasn't reported since — rather
// than zeroing every cell eagerly, which would require touching every
// thread's cache line on every reset.
type extremum struct {
	cells *tlocal.Compact[extremumCell]
	epoch atomic.Uint64
	better func(a, b int64) bool // true if a should replace b
}

func newExtremum(better func(a, b int64) bool) extremum {
	return extremum{cells: tlocal.NewCompact[extremumCell](), better: better}
}

func (e *extremum) update(slot *tlocal.Slot, v int64) {
	c := e.cells.Cell(slot)
	ep := e.epoch.Load() + 1
	if c.version.Load() != ep {
		c.value.Store(v)
		c.version.Store(ep)
		return
	}
	if e.better(v, c.value.Load()) {
		c.value.Store(v)
	}
}

// reset starts a new epoch; cells stamped with a stale epoch are ignored by
// value() until they report again.
func (e *extremum) reset() {
	e.epoch.Add(1)
}

func (e *extremum) value() (int64, bool) {
	ep := e.epoch.Load() + 1
	var (
		result int64
		found  bool
	)
	e.cells.ForEachAlive(func(_ uint64, c *extremumCell) {
		if c.version.Load() != ep {
			return
		}
		v := c.value.Load()
		if !found || e.better(v, result) {
			result = v
			found = true
		}
	})
	return result, found
}

// Maxer tracks the maximum value reported since the last Reset, across
// every goroutine.
type Maxer struct {
	e extremum
}

// NewMaxer constructs an empty Maxer.
func NewMaxer() *Maxer {
	return &Maxer{e: newExtremum(func(a, b int64) bool { return a > b })}
}

// Update reports v from slot's goroutine.
func (m *Maxer) Update(slot *tlocal.Slot, v int64) { m.e.update(slot, v) }

// Reset starts a new epoch, causing the next Value call to ignore every
// sample reported before it.
func (m *Maxer) Reset() { m.e.reset() }

// Value returns the maximum reported since the last Reset, and whether any
// goroutine has reported at all.
func (m *Maxer) Value() (int64, bool) { return m.e.value() }

// Miner tracks the minimum value reported since the last Reset, across
// every goroutine.
type Miner struct {
	e extremum
}

// NewMiner constructs an empty Miner.
func NewMiner() *Miner {
	return &Miner{e: newExtremum(func(a, b int64) bool { return a < b })}
}

// Update reports v from slot's goroutine.
func (m *Miner) Update(slot *tlocal.Slot, v int64) { m.e.update(slot, v) }

// Reset starts a new epoch, causing the next Value call to ignore every
// sample reported before it.
func (m *Miner) Reset() { m.e.reset() }

// Value returns the minimum reported since the last Reset, and whether any
// goroutine has reported at all.
func (m *Miner) Value() (int64, bool) { return m.e.value() }
