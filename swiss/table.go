package swiss

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/primitive"
)

// Table is a fixed-capacity concurrent Swiss table over values of type T.
// Construct with New, or use Empty for a zero-allocation sentinel that
// always reports full.
type Table[T any] struct {
	control    control
	slots      []T
	bucketMask uint64
	size       atomic.Int64

	hash  func(T) uint64
	equal func(a, b T) bool
}

// New constructs a Table with at least bucketCount buckets (rounded up to
// the next power of two, minimum 16). hash and equal operate on whatever a
// caller considers a value's identity — for a plain set that's the whole
// value; for a {key,value} map (see package transient) it's the key.
func New[T any](bucketCount int, hash func(T) uint64, equal func(a, b T) bool) *Table[T] {
	n := int(primitive.Next2(uintptr(bucketCount)))
	if n < groupSize {
		n = groupSize
	}
	return &Table[T]{
		control:    newControl(n + groupSize), // +groupSize for the tail mirror region
		slots:      make([]T, n),
		bucketMask: uint64(n - 1),
		hash:       hash,
		equal:      equal,
	}
}

var dummyControl = func() control {
	c := make(control, 2*groupSize)
	for i := range c {
		c[i].Store(uint32(controlDummy))
	}
	return c
}()

// Empty returns a Table with no backing storage at all: every Emplace call
// fails immediately (as if full) and every Find call reports not-found,
// without allocating. This is the Go analogue of the original's
// default-constructed table pointing at a static block of DUMMY bytes.
func Empty[T any](hash func(T) uint64, equal func(a, b T) bool) *Table[T] {
	return &Table[T]{
		control:    dummyControl,
		slots:      nil,
		bucketMask: groupSize - 1,
		hash:       hash,
		equal:      equal,
	}
}

// At returns the value stored at idx, as returned by Find or Emplace.
func (t *Table[T]) At(idx int) T {
	return t.slots[idx]
}

// Cap returns the table's fixed bucket count.
func (t *Table[T]) Cap() int {
	return len(t.slots)
}

// Len returns the number of constructed entries.
func (t *Table[T]) Len() int {
	return int(t.size.Load())
}

func (t *Table[T]) mirror(idx uint64, fp uint8) {
	if idx < groupSize-1 {
		mirrorIdx := uint64(len(t.slots)) + idx
		if mirrorIdx < uint64(len(t.control)) {
			t.control[mirrorIdx].Store(uint32(fp))
		}
	}
}

// Find looks up value's identity (per the table's equal/hash funcs) and
// returns its slot index, or ok=false if absent.
//
// base walks the control array at byte granularity — hash>>7 lands on any
// offset in [0, bucketMask], not just 16-aligned ones — and each round reads
// the 16 raw control bytes starting at base, which may run past the real
// bucket range into the tail mirror region allocated for exactly this
// purpose (see mirror). The matching slot for a hit at raw position
// base+offset is the wrapped index (base+offset)&bucketMask.
func (t *Table[T]) Find(value T) (idx int, ok bool) {
	if len(t.slots) == 0 {
		return -1, false
	}
	h := t.hash(value)
	fp := uint8(h & 0x7F) // fingerprint: low 7 bits, high bit always clear
	base := (h >> 7) & t.bucketMask

	for step := uint64(0); step <= t.bucketMask; step += groupSize {
		grp := loadGroup(t.control, base)

		it := groupIterator{mask: grp.matchByte(fp)}
		for {
			bit, more := it.next()
			if !more {
				break
			}
			i := int((base + uint64(bit)) & t.bucketMask)
			if t.equal(t.slots[i], value) {
				return i, true
			}
		}
		if grp.matchEmpty() != 0 {
			return -1, false
		}

		base = (base + step + groupSize) & t.bucketMask
	}
	return -1, false
}

// Contains reports whether value's identity is already present.
func (t *Table[T]) Contains(value T) bool {
	_, ok := t.Find(value)
	return ok
}

// Emplace inserts value if its identity is absent. It returns the slot
// index and true on insertion, the existing slot index and false if
// already present, or -1,false if the table is full.
//
// Like Find, probing is byte-granular (see Find's doc comment). The CAS
// that claims a slot always targets the wrapped index (base+offset)&
// bucketMask — the real, canonical control byte — never the raw probe
// position, which may be a mirror copy.
func (t *Table[T]) Emplace(value T) (idx int, inserted bool) {
	if len(t.slots) == 0 {
		return -1, false
	}
	h := t.hash(value)
	fp := uint8(h & 0x7F)
	base := (h >> 7) & t.bucketMask

	for step := uint64(0); step <= t.bucketMask; step += groupSize {
	retryGroup:
		grp := loadGroup(t.control, base)

		fpIt := groupIterator{mask: grp.matchByte(fp)}
		for {
			bit, more := fpIt.next()
			if !more {
				break
			}
			i := int((base + uint64(bit)) & t.bucketMask)
			if t.equal(t.slots[i], value) {
				return i, false
			}
		}

		emptyIt := groupIterator{mask: grp.matchEmpty()}
		for {
			bit, more := emptyIt.next()
			if !more {
				break
			}
			slotIdx := (base + uint64(bit)) & t.bucketMask
			if !t.control[slotIdx].CompareAndSwap(uint32(controlEmpty), uint32(controlBusy)) {
				switch uint8(t.control[slotIdx].Load()) {
				case controlDummy:
					return -1, false
				case controlBusy:
					primitive.Pause()
					goto retryGroup
				default:
					// A fingerprint landed here concurrently; recheck this
					// group from scratch in case it's our own key.
					goto retryGroup
				}
			}
			t.slots[slotIdx] = value
			t.control[slotIdx].Store(uint32(fp))
			t.mirror(slotIdx, fp)
			t.size.Add(1)
			return int(slotIdx), true
		}

		// No empty slot in this group (every bit was either a fingerprint or
		// BUSY): the group is full, probe the next one.
		base = (base + step + groupSize) & t.bucketMask
	}
	return -1, false
}

// ForEach calls fn once for every constructed value, in bucket order. Unlike
// Find/Emplace this scans group-aligned (every group boundary is a multiple
// of groupSize), since it only needs to visit each canonical control byte
// once — the mirror region past len(t.slots) is deliberately not visited
// here, it exists only to backstop Find/Emplace's raw, non-aligned reads.
// Not safe to call concurrently with Clear, Rehash, Reserve, or Swap.
func (t *Table[T]) ForEach(fn func(T)) {
	for base := uint64(0); base < uint64(len(t.slots)); base += groupSize {
		grp := loadGroup(t.control, base)
		it := groupIterator{mask: grp.matchNonEmpty()}
		for {
			bit, more := it.next()
			if !more {
				break
			}
			fn(t.slots[base+uint64(bit)])
		}
	}
}

func (t *Table[T]) replaceWith(nt *Table[T]) {
	t.control = nt.control
	t.slots = nt.slots
	t.bucketMask = nt.bucketMask
	t.size.Store(nt.size.Load())
}

// Clear discards all entries, keeping the current capacity. Not safe to
// call concurrently with anything.
func (t *Table[T]) Clear() {
	t.replaceWith(New[T](len(t.slots), t.hash, t.equal))
}

// Rehash rebuilds the table at newBucketCount, re-emplacing every current
// entry. Not safe to call concurrently with anything.
func (t *Table[T]) Rehash(newBucketCount int) {
	nt := New[T](newBucketCount, t.hash, t.equal)
	t.ForEach(func(v T) { nt.Emplace(v) })
	t.replaceWith(nt)
}

// Reserve grows the table to at least minBucketCount if it isn't already
// that large. Not safe to call concurrently with anything.
func (t *Table[T]) Reserve(minBucketCount int) {
	if minBucketCount <= len(t.slots) {
		return
	}
	t.Rehash(minBucketCount)
}

// Swap exchanges the entire contents of t and other. Not safe to call
// concurrently with anything.
func (t *Table[T]) Swap(other *Table[T]) {
	t.control, other.control = other.control, t.control
	t.slots, other.slots = other.slots, t.slots
	t.bucketMask, other.bucketMask = other.bucketMask, t.bucketMask

	tSize, oSize := t.size.Load(), other.size.Load()
	t.size.Store(oSize)
	other.size.Store(tSize)
}
