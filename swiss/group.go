package swiss

import (
	"math/bits"
	"sync/atomic"
)

const groupSize = 16

// Control byte states. A byte with its high bit clear is a 7-bit hash
// fingerprint for a constructed, visible value.
const (
	controlEmpty uint8 = 0x80
	controlBusy  uint8 = 0x81
	controlDummy uint8 = 0x82
)

// control is one table's control-byte array. Go has no atomic byte type, so
// each byte gets its own atomic.Uint32 — wasteful of memory relative to the
// original's packed-byte array, but it keeps every control-byte
// transition (the table's only synchronization point) genuinely atomic
// without resorting to unsafe bit-packing tricks.
type control []atomic.Uint32

func newControl(n int) control {
	c := make(control, n)
	for i := range c {
		c[i].Store(uint32(controlEmpty))
	}
	return c
}

// group is a scalar-loaded snapshot of 16 consecutive control bytes, the
// unit every probe round matches against.
type group struct {
	bytes [groupSize]uint8
}

func loadGroup(c control, base uint64) group {
	var g group
	for j := 0; j < groupSize; j++ {
		g.bytes[j] = uint8(c[base+uint64(j)].Load())
	}
	return g
}

func (g group) matchByte(b uint8) uint16 {
	var mask uint16
	for j := 0; j < groupSize; j++ {
		if g.bytes[j] == b {
			mask |= 1 << uint(j)
		}
	}
	return mask
}

func (g group) matchEmpty() uint16 {
	return g.matchByte(controlEmpty)
}

// matchNonEmpty returns a bit per slot that holds a constructed value
// (i.e. a fingerprint byte, high bit clear) — EMPTY/BUSY/DUMMY never match.
func (g group) matchNonEmpty() uint16 {
	var mask uint16
	for j := 0; j < groupSize; j++ {
		if g.bytes[j]&0x80 == 0 {
			mask |= 1 << uint(j)
		}
	}
	return mask
}

// groupIterator pops the lowest set bit of a match mask on each call,
// mirroring the SIMD path's "iterate set bits" idiom.
type groupIterator struct {
	mask uint16
}

func (it *groupIterator) next() (int, bool) {
	if it.mask == 0 {
		return 0, false
	}
	idx := bits.TrailingZeros16(it.mask)
	it.mask &^= 1 << uint(idx)
	return idx, true
}
