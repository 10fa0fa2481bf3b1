// Package segvec provides a lock-free, growable segmented vector: once an
// element's address has been handed to a caller, that address stays valid
// for the vector's entire lifetime, even as the vector grows. Growth only
// ever replaces the block-table indirection, never an existing block.
//
// This backs tlocal's per-thread-id element storage (component E).
package segvec

import (
	"sync/atomic"

	"github.com/go-babylon/concurrent/primitive"
	"github.com/go-babylon/concurrent/retire"
)

const defaultBlockBits = 10 // 1024 elements per block

// block is a fixed-size, individually allocated run of elements.
type block[T any] = []T

type blockTable[T any] struct {
	blocks []block[T]
}

// Vector is a concurrent segmented vector over T. The zero value is not
// usable; construct with New.
type Vector[T any] struct {
	blockBits uint
	blockMask uint64
	blockSize int
	ctor      func(*T)

	table   atomic.Pointer[blockTable[T]]
	retired retire.List[*blockTable[T]]
}

// Option configures a Vector at construction time.
type Option[T any] func(*Vector[T])

// WithBlockBits sets log2(block size); the default is 10 (1024 elements per
// block).
func WithBlockBits[T any](bits uint) Option[T] {
	return func(v *Vector[T]) { v.blockBits = bits }
}

// WithConstructor installs a per-cell constructor invoked once on every
// newly allocated element, in place of Go's ordinary zero-initialization.
func WithConstructor[T any](ctor func(*T)) Option[T] {
	return func(v *Vector[T]) { v.ctor = ctor }
}

// New constructs an empty Vector.
func New[T any](opts ...Option[T]) *Vector[T] {
	v := &Vector[T]{blockBits: defaultBlockBits}
	for _, opt := range opts {
		opt(v)
	}
	v.blockSize = 1 << v.blockBits
	v.blockMask = uint64(v.blockSize - 1)
	return v
}

func (v *Vector[T]) allocBlock() block[T] {
	b := make(block[T], v.blockSize)
	if v.ctor != nil {
		for i := range b {
			v.ctor(&b[i])
		}
	}
	return b
}

// Ensure returns the address of element i, growing the vector if
// necessary. The returned pointer remains valid for the vector's lifetime.
func (v *Vector[T]) Ensure(i uint64) *T {
	blockIdx := int(i >> v.blockBits)
	for {
		tbl := v.table.Load()
		if tbl != nil && blockIdx < len(tbl.blocks) && tbl.blocks[blockIdx] != nil {
			return &tbl.blocks[blockIdx][i&v.blockMask]
		}
		v.grow(tbl, blockIdx+1)
	}
}

// Reserve ensures storage exists for indices [0, size) without returning
// any particular address.
func (v *Vector[T]) Reserve(size uint64) {
	if size == 0 {
		return
	}
	v.Ensure(size - 1)
}

// grow installs a block table with at least minBlocks blocks, all
// allocated. If another goroutine wins the race, the loser's freshly
// allocated blocks are simply dropped (never installed, so never leaked
// into any reader's view) and the caller retries against the winner.
func (v *Vector[T]) grow(old *blockTable[T], minBlocks int) {
	newSize := minBlocks
	if old != nil && len(old.blocks) > newSize {
		newSize = len(old.blocks)
	}
	newSize = int(primitive.Next2(uintptr(newSize)))

	newBlocks := make([]block[T], newSize)
	if old != nil {
		copy(newBlocks, old.blocks)
	}
	for j := range newBlocks {
		if newBlocks[j] == nil {
			newBlocks[j] = v.allocBlock()
		}
	}

	next := &blockTable[T]{blocks: newBlocks}
	if v.table.CompareAndSwap(old, next) {
		if old != nil {
			v.retired.Retire(old)
		}
	}
	// CAS failure: another goroutine already grew the table. The blocks we
	// just allocated above are unreferenced and become ordinary garbage;
	// the caller's Ensure loop will reload and either find the winner
	// already big enough or grow again from it.
}

// Size returns a best-effort reading of the vector's current capacity: the
// number of blocks currently installed times the block size. Concurrent
// growth can make this stale the instant it's read, same as the original's
// size(), which is documented as an approximation for exactly that reason.
func (v *Vector[T]) Size() int {
	tbl := v.table.Load()
	if tbl == nil {
		return 0
	}
	return len(tbl.blocks) * v.blockSize
}

// BlockSize returns the fixed number of elements per block.
func (v *Vector[T]) BlockSize() int {
	return v.blockSize
}

// GC reclaims any block table retired long enough ago that no reader could
// plausibly still hold a reference to it.
func (v *Vector[T]) GC() bool {
	return v.retired.GC()
}

// UnsafeGC unconditionally drops any retired block table. The caller must
// guarantee no concurrent reader is in flight.
func (v *Vector[T]) UnsafeGC() {
	v.retired.UnsafeGC()
}

// Snapshot captures the currently-installed block table for random access
// and contiguous-run iteration. It is valid as long as the caller performs
// no allocation-triggering operation (Ensure/Reserve past the captured
// table's size) on the vector.
type Snapshot[T any] struct {
	blockBits uint
	blockMask uint64
	blockSize int
	table     *blockTable[T]
}

// Snapshot returns a Snapshot of the vector's current state.
func (v *Vector[T]) Snapshot() Snapshot[T] {
	return Snapshot[T]{
		blockBits: v.blockBits,
		blockMask: v.blockMask,
		blockSize: v.blockSize,
		table:     v.table.Load(),
	}
}

// At returns the address of element i, or nil if it has never been
// Ensure'd.
func (s Snapshot[T]) At(i uint64) *T {
	blockIdx := int(i >> s.blockBits)
	if s.table == nil || blockIdx >= len(s.table.blocks) || s.table.blocks[blockIdx] == nil {
		return nil
	}
	return &s.table.blocks[blockIdx][i&s.blockMask]
}

// ForEachRun iterates indices [0, n) once per contiguous underlying block
// run, stopping early if it reaches a block that was never allocated.
func (s Snapshot[T]) ForEachRun(n uint64, fn func(base uint64, run []T)) {
	var i uint64
	for i < n {
		blockIdx := int(i >> s.blockBits)
		if s.table == nil || blockIdx >= len(s.table.blocks) || s.table.blocks[blockIdx] == nil {
			return
		}
		blk := s.table.blocks[blockIdx]
		start := i & s.blockMask
		end := uint64(s.blockSize)
		if remaining := n - i; end-start > remaining {
			end = start + remaining
		}
		fn(i, blk[start:end])
		i += end - start
	}
}
