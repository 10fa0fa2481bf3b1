// Package transient provides growable hash containers built as a singly
// linked chain of fixed-capacity swiss.Table instances: each table is
// immutable in size, but when one fills up, a new table (twice the bucket
// count of the one before it) is appended to the tail and CAS'd in. The
// chain only ever grows at the tail; no node is freed except when the
// whole container is discarded.
package transient
