package transient

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/swiss"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

type mapNode[K comparable, V any] struct {
	table *swiss.Table[entry[K, V]]
	next  atomic.Pointer[mapNode[K, V]]
}

// Map is a growable hash map: a chain of swiss.Tables keyed by K, doubling
// capacity each time the tail table fills. Entries are keyed on K alone —
// the swiss.Table underneath never sees two entries with the same key as
// distinct, regardless of V.
type Map[K comparable, V any] struct {
	minBucketCount int
	hashKey        func(K) uint64
	equalKey       func(a, b K) bool
	head           atomic.Pointer[mapNode[K, V]]
}

// NewMap constructs an empty Map with an initial table of minBucketCount
// buckets (rounded up by swiss.New).
func NewMap[K comparable, V any](minBucketCount int, hashKey func(K) uint64, equalKey func(a, b K) bool) *Map[K, V] {
	m := &Map[K, V]{minBucketCount: minBucketCount, hashKey: hashKey, equalKey: equalKey}
	m.head.Store(&mapNode[K, V]{table: m.newTable(minBucketCount)})
	return m
}

func (m *Map[K, V]) newTable(bucketCount int) *swiss.Table[entry[K, V]] {
	hash := func(e entry[K, V]) uint64 { return m.hashKey(e.key) }
	equal := func(a, b entry[K, V]) bool { return m.equalKey(a.key, b.key) }
	return swiss.New[entry[K, V]](bucketCount, hash, equal)
}

// Get looks up key across the whole chain.
func (m *Map[K, V]) Get(key K) (V, bool) {
	probe := entry[K, V]{key: key}
	for n := m.head.Load(); n != nil; n = n.next.Load() {
		if idx, ok := n.table.Find(probe); ok {
			return n.table.At(idx).value, true
		}
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present anywhere in the chain.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Emplace inserts (key, value) if key is absent, returning the existing
// value and false if key was already present. Growth happens automatically
// when the tail table fills.
func (m *Map[K, V]) Emplace(key K, value V) (V, bool) {
	if existing, ok := m.Get(key); ok {
		return existing, false
	}

	probe := entry[K, V]{key: key, value: value}
	n := m.head.Load()
	for {
		idx, inserted := n.table.Emplace(probe)
		if inserted {
			return value, true
		}
		if idx >= 0 {
			return n.table.At(idx).value, false // a concurrent Emplace beat us to it
		}

		next := n.next.Load()
		if next == nil {
			candidate := &mapNode[K, V]{table: m.newTable(n.table.Cap() * 2)}
			if n.next.CompareAndSwap(nil, candidate) {
				next = candidate
			} else {
				next = n.next.Load()
			}
		}
		n = next
	}
}

// Len returns the total entry count across the whole chain.
func (m *Map[K, V]) Len() int {
	total := 0
	for n := m.head.Load(); n != nil; n = n.next.Load() {
		total += n.table.Len()
	}
	return total
}

// ForEach calls fn once per (key, value) pair, across the whole chain.
func (m *Map[K, V]) ForEach(fn func(K, V)) {
	for n := m.head.Load(); n != nil; n = n.next.Load() {
		n.table.ForEach(func(e entry[K, V]) { fn(e.key, e.value) })
	}
}

// Clear discards every entry, resetting to a single table of
// minBucketCount buckets. Not safe to call concurrently with anything.
func (m *Map[K, V]) Clear() {
	m.head.Store(&mapNode[K, V]{table: m.newTable(m.minBucketCount)})
}

// Rehash reconstitutes the whole chain into a single table sized to hold
// max(current size, minBucketCount). Not safe to call concurrently with
// anything.
func (m *Map[K, V]) Rehash(minBucketCount int) {
	size := m.Len()
	cap := minBucketCount
	if size > cap {
		cap = size
	}
	nt := m.newTable(cap)
	m.ForEach(func(k K, v V) { nt.Emplace(entry[K, V]{key: k, value: v}) })
	m.head.Store(&mapNode[K, V]{table: nt})
}

// Reserve is an alias for Rehash: both reconstitute to a single table.
func (m *Map[K, V]) Reserve(minBucketCount int) {
	m.Rehash(minBucketCount)
}

// Swap exchanges the entire contents of m and other. Not safe to call
// concurrently with anything.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	mHead, oHead := m.head.Load(), other.head.Load()
	m.head.Store(oHead)
	other.head.Store(mHead)
}
