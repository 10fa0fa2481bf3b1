package tlocal

import "github.com/go-babylon/concurrent/segvec"

// compactBlockBits is deliberately small: Compact is meant for many
// small per-thread cells (the sharded counters in package counter), where a
// full 1024-element default block would waste memory for short-lived
// thread populations.
//
// The original CompactEnumerableThreadLocal packs several distinct
// instances' per-thread cells into one physical cache line, keyed off a
// shared allocate_id()/NUM_PER_CACHELINE scheme. That trick only works
// because C++ can place arbitrary byte-sized fields at computed offsets
// inside one struct; Go's type system gives no portable way to interleave
// the storage of several differently-typed Local[T] instances into a
// single cache line without unsafe pointer arithmetic nobody else in this
// module resorts to. Compact settles for the cheaper half of the
// original's benefit instead: a small block size so a sparsely-populated
// counter doesn't pay for a block sized for the common, heavily-threaded
// case. It shares no storage with any other Compact instance.
const compactBlockBits = 6 // 64 elements per block

// Compact is a smaller-block-size Local, for per-thread cells expected to
// be numerous but individually tiny (see package counter). It does not
// share cache lines across distinct Compact instances — see the
// compactBlockBits comment for why.
type Compact[T any] struct {
	Local[T]
}

// NewCompact constructs an empty Compact.
func NewCompact[T any](opts ...Option[T]) *Compact[T] {
	l := &Local[T]{vec: segvec.New[T](segvec.WithBlockBits[T](compactBlockBits))}
	for _, opt := range opts {
		opt(l)
	}
	return &Compact[T]{Local: *l}
}
