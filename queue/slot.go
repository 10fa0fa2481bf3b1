package queue

import (
	"sync/atomic"
	"time"

	"github.com/go-babylon/concurrent/futex"
	"github.com/go-babylon/concurrent/primitive"
)

// waiterUnit is added to a slot's futex word to register a blocked waiter;
// it lives in the high 16 bits, leaving the low 16 bits for the slot's
// version.
const waiterUnit uint32 = 1 << 16

// negWaiterUnit undoes one waiterUnit via atomic.AddUint32, which only
// takes additive deltas.
const negWaiterUnit uint32 = ^(waiterUnit - 1)

func version(w uint32) uint16  { return uint16(w) }
func waiters(w uint32) uint16  { return uint16(w >> 16) }

// pushVersion returns the version a slot at absolute sequence i must hold
// before it may be pushed into, given a ring of 2^k capacity.
func pushVersion(i uint64, k uint64) uint16 {
	return uint16(2 * (i >> k))
}

// popVersion returns the version a slot at absolute sequence i must hold
// before it may be popped from.
func popVersion(i uint64, k uint64) uint16 {
	return pushVersion(i, k) + 1
}

// slot is a single cache-line-ish cell: a value plus the futex word that
// gates access to it. The padding after futex is a best-effort separation
// between adjacent slots; since T's size isn't known until instantiation,
// this can't guarantee exact cache-line isolation for large T the way the
// teacher's fixed-size unsafe.Pointer cell could.
type slot[T any] struct {
	value T
	futex uint32
	_pad  [primitive.CacheLine]byte
}

// waitForVersion blocks the caller until s.futex's version field equals
// expected, registering as a futex waiter on the slow path.
func waitForVersion[T any](s *slot[T], expected uint16, sched futex.Scheduler, useFutexWait bool) {
	for {
		w := atomic.LoadUint32(&s.futex)
		if version(w) == expected {
			return
		}
		if !useFutexWait || sched == nil {
			time.Sleep(time.Millisecond)
			continue
		}
		w = atomic.AddUint32(&s.futex, waiterUnit)
		if version(w) != expected {
			sched.Wait(&s.futex, w, 0)
		}
		atomic.AddUint32(&s.futex, negWaiterUnit)
	}
}

// waitForVersionUntil is waitForVersion with a deadline; it returns false if
// the deadline passed without observing expected.
func waitForVersionUntil[T any](s *slot[T], expected uint16, sched futex.Scheduler, deadline time.Time) bool {
	for {
		w := atomic.LoadUint32(&s.futex)
		if version(w) == expected {
			return true
		}
		rem := time.Until(deadline)
		if rem <= 0 {
			return false
		}
		if sched == nil {
			primitive.Pause()
			continue
		}
		w = atomic.AddUint32(&s.futex, waiterUnit)
		if version(w) != expected {
			sched.Wait(&s.futex, w, rem)
		}
		atomic.AddUint32(&s.futex, negWaiterUnit)
	}
}

// publish advances a slot to newVersion with release semantics, waking any
// registered waiters if useFutexWake is set and at least one was present.
// Only the version half of the word is replaced; the waiter count is left
// for the waiters themselves to decrement.
func publish[T any](s *slot[T], newVersion uint16, sched futex.Scheduler, useFutexWake bool) {
	var old uint32
	for {
		old = atomic.LoadUint32(&s.futex)
		if atomic.CompareAndSwapUint32(&s.futex, old, old&^0xFFFF|uint32(newVersion)) {
			break
		}
	}
	if useFutexWake && sched != nil && waiters(old) != 0 {
		sched.WakeAll(&s.futex)
	}
}
