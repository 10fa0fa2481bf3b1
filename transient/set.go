package transient

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/swiss"
)

type setNode[T any] struct {
	table *swiss.Table[T]
	next  atomic.Pointer[setNode[T]]
}

// Set is a growable hash set: a chain of swiss.Tables, doubling capacity
// each time the tail table fills.
type Set[T any] struct {
	minBucketCount int
	hash           func(T) uint64
	equal          func(a, b T) bool
	head           atomic.Pointer[setNode[T]]
}

// NewSet constructs an empty Set with an initial table of minBucketCount
// buckets (rounded up by swiss.New).
func NewSet[T any](minBucketCount int, hash func(T) uint64, equal func(a, b T) bool) *Set[T] {
	s := &Set[T]{minBucketCount: minBucketCount, hash: hash, equal: equal}
	s.head.Store(&setNode[T]{table: swiss.New[T](minBucketCount, hash, equal)})
	return s
}

// Contains reports whether value is present anywhere in the chain.
func (s *Set[T]) Contains(value T) bool {
	for n := s.head.Load(); n != nil; n = n.next.Load() {
		if n.table.Contains(value) {
			return true
		}
	}
	return false
}

// Insert adds value if absent, returning whether it was newly inserted.
// Growth happens automatically: when the tail table is full, a new table
// with double its bucket count is appended.
func (s *Set[T]) Insert(value T) bool {
	// Find-before-insert avoids the chain accumulating duplicate entries
	// across nodes (a plain per-node Emplace can't see entries living in
	// earlier or later nodes).
	if s.Contains(value) {
		return false
	}

	n := s.head.Load()
	for {
		idx, inserted := n.table.Emplace(value)
		if inserted {
			return true
		}
		if idx >= 0 {
			return false // a concurrent Insert beat us to it
		}

		next := n.next.Load()
		if next == nil {
			candidate := &setNode[T]{table: swiss.New[T](n.table.Cap()*2, s.hash, s.equal)}
			if n.next.CompareAndSwap(nil, candidate) {
				next = candidate
			} else {
				next = n.next.Load()
			}
		}
		n = next
	}
}

// Len returns the total element count across the whole chain.
func (s *Set[T]) Len() int {
	total := 0
	for n := s.head.Load(); n != nil; n = n.next.Load() {
		total += n.table.Len()
	}
	return total
}

// ForEach calls fn once per element, across the whole chain.
func (s *Set[T]) ForEach(fn func(T)) {
	for n := s.head.Load(); n != nil; n = n.next.Load() {
		n.table.ForEach(fn)
	}
}

// Clear discards every entry, resetting to a single table of
// minBucketCount buckets. Not safe to call concurrently with anything.
func (s *Set[T]) Clear() {
	s.head.Store(&setNode[T]{table: swiss.New[T](s.minBucketCount, s.hash, s.equal)})
}

// Rehash reconstitutes the whole chain into a single table sized to hold
// max(current size, minBucketCount). Not safe to call concurrently with
// anything.
func (s *Set[T]) Rehash(minBucketCount int) {
	size := s.Len()
	cap := minBucketCount
	if size > cap {
		cap = size
	}
	nt := swiss.New[T](cap, s.hash, s.equal)
	s.ForEach(func(v T) { nt.Emplace(v) })
	s.head.Store(&setNode[T]{table: nt})
}

// Reserve is an alias for Rehash: both reconstitute to a single table.
func (s *Set[T]) Reserve(minBucketCount int) {
	s.Rehash(minBucketCount)
}

// Swap exchanges the entire contents of s and other. Not safe to call
// concurrently with anything.
func (s *Set[T]) Swap(other *Set[T]) {
	sHead, oHead := s.head.Load(), other.head.Load()
	s.head.Store(oHead)
	other.head.Store(sHead)
}
