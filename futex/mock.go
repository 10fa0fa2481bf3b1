package futex

import (
	"sync/atomic"
	"time"
)

// Mock wraps EmulatedScheduler with call counters, so tests can assert a
// container actually went through the blocking path (rather than e.g.
// spinning) without depending on timing.
type Mock struct {
	inner *EmulatedScheduler

	waits    atomic.Int64
	timeouts atomic.Int64
	wakeOnes atomic.Int64
	wakeAlls atomic.Int64
	yields   atomic.Int64
	sleeps   atomic.Int64
}

// NewMock returns a fresh Mock scheduler.
func NewMock() *Mock {
	return &Mock{inner: NewEmulated()}
}

// Wait implements Scheduler.
func (m *Mock) Wait(addr *uint32, expected uint32, timeout time.Duration) Result {
	m.waits.Add(1)
	r := m.inner.Wait(addr, expected, timeout)
	if r == TimedOut {
		m.timeouts.Add(1)
	}
	return r
}

// WakeOne implements Scheduler.
func (m *Mock) WakeOne(addr *uint32) int {
	m.wakeOnes.Add(1)
	return m.inner.WakeOne(addr)
}

// WakeAll implements Scheduler.
func (m *Mock) WakeAll(addr *uint32) int {
	m.wakeAlls.Add(1)
	return m.inner.WakeAll(addr)
}

// Yield implements Scheduler.
func (m *Mock) Yield() {
	m.yields.Add(1)
	m.inner.Yield()
}

// SleepMicros implements Scheduler.
func (m *Mock) SleepMicros(us uint32) {
	m.sleeps.Add(1)
	m.inner.SleepMicros(us)
}

// Waits returns the number of Wait calls observed so far.
func (m *Mock) Waits() int64 { return m.waits.Load() }

// Timeouts returns the number of Wait calls that returned TimedOut.
func (m *Mock) Timeouts() int64 { return m.timeouts.Load() }

// WakeOnes returns the number of WakeOne calls observed so far.
func (m *Mock) WakeOnes() int64 { return m.wakeOnes.Load() }

// WakeAlls returns the number of WakeAll calls observed so far.
func (m *Mock) WakeAlls() int64 { return m.wakeAlls.Load() }
