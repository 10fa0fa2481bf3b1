// Package swiss provides a fixed-capacity concurrent hash table: open
// addressing with a 16-byte-wide probe window, insert-and-lookup only (no
// deletion, no automatic resize), safe for any number of concurrent
// Emplace/Find callers.
//
// Real Swiss tables probe with a single SIMD compare-equal instruction per
// 16-byte window (x86 _mm_cmpeq_epi8/_mm_movemask_epi8, ARM NEON). Go
// exposes no portable access to either without assembly or cgo, so this
// implementation takes the scalar fallback the original design explicitly
// sanctions: Group/GroupIterator scan 16 control bytes one at a time and
// hand back a bitmask identical in shape to what the SIMD path would
// produce, so the probing algorithm above them is unchanged.
//
// Probing is byte-granular, not group-aligned: a probe's starting offset is
// hash>>7 masked to the bucket count, which lands on any byte position, and
// each round reads 16 raw control bytes starting there — not the 16 bytes
// of some enclosing 16-aligned group. That window can run past the real
// bucket range, which is exactly why every table allocates bucketCount+16
// control bytes and mirrors the fingerprint written at canonical index
// i<15 into index bucketCount+i (see Table.mirror): a probe window that
// starts near the end of the bucket range reads into that mirrored tail
// and sees the same bytes it would have seen by wrapping around to index 0.
package swiss
