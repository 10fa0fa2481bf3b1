// Package tlocal provides enumerable thread-local storage: per-goroutine
// cells that can also be iterated over as a whole, for sharded counters
// (the counter package) and similar fan-in accumulators.
//
// The original design hands each live OS thread a small reusable integer id
// and keys a segvec.Vector by it, releasing the id at thread exit. Go has
// no OS-thread identity and no portable "goroutine is exiting" hook, so
// this is redesigned around an explicit handle: call Acquire to obtain a
// *Slot, hold it for as long as you want thread affinity (typically the
// lifetime of one worker goroutine), and use it with Local to reach your
// cell. Non-leaky slots release their id back to the shared free list via
// runtime.AddCleanup when the *Slot is garbage collected — the closest
// accessible analogue to a pthread TLS destructor.
package tlocal

import (
	"runtime"
	"sync"

	"github.com/go-babylon/concurrent/segvec"
)

var (
	idMu    sync.Mutex
	freeIDs []uint64
	nextID  uint64

	aliveMu  sync.RWMutex
	aliveSet = make(map[uint64]struct{})
)

func acquireID() uint64 {
	idMu.Lock()
	var id uint64
	if n := len(freeIDs); n > 0 {
		id = freeIDs[n-1]
		freeIDs = freeIDs[:n-1]
	} else {
		id = nextID
		nextID++
	}
	idMu.Unlock()

	aliveMu.Lock()
	aliveSet[id] = struct{}{}
	aliveMu.Unlock()
	return id
}

func releaseID(id uint64) {
	aliveMu.Lock()
	delete(aliveSet, id)
	aliveMu.Unlock()

	idMu.Lock()
	freeIDs = append(freeIDs, id)
	idMu.Unlock()
}

func highWater() uint64 {
	idMu.Lock()
	defer idMu.Unlock()
	return nextID
}

func aliveIDs() []uint64 {
	aliveMu.RLock()
	defer aliveMu.RUnlock()
	ids := make([]uint64, 0, len(aliveSet))
	for id := range aliveSet {
		ids = append(ids, id)
	}
	return ids
}

// Slot is a handle to one thread-local id. Hold it for as long as you want
// affinity to the same cell across every Local[T] it's used with; every
// Local[T]'s cell for a given Slot is independent, but they all share the
// same id so a Slot acquired once can key into many different Local[T]
// instances (one per counter kind, say).
type Slot struct {
	id uint64
}

// ID returns the underlying thread-local id. Exposed for callers (e.g. the
// epoch package) that need a stable small integer, not just a cell.
func (s *Slot) ID() uint64 {
	return s.id
}

// Local is enumerable thread-local storage over T.
type Local[T any] struct {
	vec   *segvec.Vector[T]
	leaky bool
}

// Option configures a Local at construction time.
type Option[T any] func(*Local[T])

// WithLeaky sets the Local's leaky flag. Nothing in this package reads that
// flag: whether a Slot's id is leaked for the process's lifetime or released
// when the Slot is collected is decided only by the leaky argument passed to
// Acquire, since a Slot is shared by every Local it is used with.
func WithLeaky[T any](leaky bool) Option[T] {
	return func(l *Local[T]) { l.leaky = leaky }
}

// WithBlockBits forwards to segvec.WithBlockBits for the underlying vector.
func WithBlockBits[T any](bits uint) Option[T] {
	return func(l *Local[T]) { l.vec = segvec.New[T](segvec.WithBlockBits[T](bits)) }
}

// WithConstructor forwards to segvec.WithConstructor, running ctor once on
// every newly allocated cell in place of Go's zero-initialization. Useful
// when a cell's "unused" value isn't the zero value (e.g. the epoch
// package's per-goroutine tick registrations, which start out at
// UINT64_MAX rather than 0).
func WithConstructor[T any](ctor func(*T)) Option[T] {
	return func(l *Local[T]) { l.vec = segvec.New[T](segvec.WithConstructor[T](ctor)) }
}

// New constructs an empty Local.
func New[T any](opts ...Option[T]) *Local[T] {
	l := &Local[T]{vec: segvec.New[T]()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire hands out a fresh (or recycled) thread-local id as a *Slot.
func Acquire(leaky bool) *Slot {
	slot := &Slot{id: acquireID()}
	if !leaky {
		id := slot.id
		runtime.AddCleanup(slot, func(id uint64) { releaseID(id) }, id)
	}
	return slot
}

// Cell returns the address of slot's cell in this Local, allocating it if
// necessary. The returned pointer is stable for the Local's lifetime: Go
// lets the caller cache it directly, which is why (unlike the original)
// there's no separate single-entry TLS-cache layer here — the *Slot/*T
// pair the caller already holds after the first call serves that role.
func (l *Local[T]) Cell(slot *Slot) *T {
	return l.vec.Ensure(slot.id)
}

// ForEach iterates every cell up to the highest id ever allocated,
// including ones whose owning Slot has since been released (and so may
// hold stale data from a reused id).
func (l *Local[T]) ForEach(fn func(id uint64, v *T)) {
	n := highWater()
	l.vec.Snapshot().ForEachRun(n, func(base uint64, run []T) {
		for i := range run {
			fn(base+uint64(i), &run[i])
		}
	})
}

// ForEachAlive iterates only cells whose id is currently acquired by some
// live Slot.
func (l *Local[T]) ForEachAlive(fn func(id uint64, v *T)) {
	snap := l.vec.Snapshot()
	for _, id := range aliveIDs() {
		if p := snap.At(id); p != nil {
			fn(id, p)
		}
	}
}
