// Package retire provides an epoch-free, wall-clock retirement list: a way
// to delay a value's last reference from being dropped until enough time
// has passed that no concurrent reader could plausibly still be using it.
//
// It backs segvec's displaced block tables: growth replaces the active
// BlockTable pointer, but readers who loaded the old pointer a moment ago
// may still be walking it, so the old table is retired rather than
// released immediately.
package retire

import (
	"sync/atomic"
	"time"
)

// clockShift sets the clock bucket width: 1<<6 = 64 seconds, matching the
// original's `tv_sec >> 6`. It is loose by design — see List's doc comment.
const clockShift = 6

// clockStart anchors nowTimestamp to the monotonic clock, so wall-clock
// adjustments cannot move a timestamp.
var clockStart = time.Now()

func nowTimestamp() uint16 {
	return uint16(int64(time.Since(clockStart)/time.Second) >> clockShift)
}

// expired reports whether a head timestamped headTs is safely reclaimable
// from the perspective of a reader observing nowTs, using a wraparound-safe
// unsigned difference. The safety margin is two clock units (roughly
// 64-128s): loose enough that no reader holding a stale pointer for a
// realistic critical-section duration could still be using it.
func expired(headTs, nowTs uint16) bool {
	return nowTs-headTs > 1
}

type node[T any] struct {
	data T
	next *node[T]
}

type state[T any] struct {
	timestamp uint16
	head      *node[T]
}

// List is a singly linked chain of retired values of type T, freed in bulk
// once the whole chain has aged past the safety margin. The zero value is
// ready to use.
//
// A ~2/65536 false-negative rate on the wraparound check is accepted: a
// missed reclaim merely delays GC of the chain by another 64s window, never
// a use-after-free, since Go's own garbage collector still owns the actual
// memory — List only controls *when* the last reference is dropped.
type List[T any] struct {
	s atomic.Pointer[state[T]]
}

// Retire adds data to the list. If the current chain is already expired, it
// is discarded (its nodes become eligible for garbage collection) and a
// fresh one-node chain replaces it; otherwise data is spliced onto the head
// of the existing chain. Either way the chain's timestamp is refreshed to
// now, so a list under steady retirement traffic never expires — only an
// idle period longer than the safety margin lets GC reclaim it.
func (l *List[T]) Retire(data T) {
	for {
		old := l.s.Load()
		nowTs := nowTimestamp()

		if old == nil {
			next := &state[T]{timestamp: nowTs, head: &node[T]{data: data}}
			if l.s.CompareAndSwap(old, next) {
				return
			}
			continue
		}

		if expired(old.timestamp, nowTs) {
			next := &state[T]{timestamp: nowTs, head: &node[T]{data: data}}
			if l.s.CompareAndSwap(old, next) {
				return
			}
			continue
		}

		next := &state[T]{timestamp: nowTs, head: &node[T]{data: data, next: old.head}}
		if l.s.CompareAndSwap(old, next) {
			return
		}
	}
}

// GC drops the current chain if it has expired, returning whether it did.
// Safe to call concurrently with Retire and with other GC calls.
func (l *List[T]) GC() bool {
	old := l.s.Load()
	if old == nil || !expired(old.timestamp, nowTimestamp()) {
		return false
	}
	return l.s.CompareAndSwap(old, nil)
}

// UnsafeGC unconditionally drops the current chain. The caller must
// guarantee there is no concurrent Retire or reader in flight.
func (l *List[T]) UnsafeGC() {
	l.s.Store(nil)
}

// Len walks the current chain and counts its nodes. Intended for tests and
// diagnostics, not the hot path.
func (l *List[T]) Len() int {
	st := l.s.Load()
	if st == nil {
		return 0
	}
	n := 0
	for cur := st.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}
