package queue

import (
	"sync/atomic"
	"time"

	"github.com/go-babylon/concurrent/futex"
	"github.com/go-babylon/concurrent/primitive"
)

// Queue is a bounded, slot-versioned multi-producer multi-consumer ring
// queue. The zero value is not usable; construct with New.
type Queue[T any] struct {
	slots []slot[T]
	mask  uint64
	k     uint64

	_pad0 [primitive.FalseShare]byte
	// nextPush is the sequence number the next producer will claim.
	nextPush atomic.Uint64
	_pad1    [primitive.FalseShare]byte
	// nextPop is the sequence number the next consumer will claim.
	nextPop atomic.Uint64
	_pad2   [primitive.FalseShare]byte

	sched        futex.Scheduler
	useFutexWait bool
	useFutexWake bool
}

type config struct {
	scheduler    futex.Scheduler
	useFutexWait bool
	useFutexWake bool
}

// Option configures a Queue at construction time.
type Option func(*config)

// WithScheduler overrides the futex.Scheduler a queue blocks on. The default
// is futex.Default().
func WithScheduler(s futex.Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

// WithFutexWait(false) disables the futex_wait slow path, falling back to a
// sleep-spin loop. Mirrors the queue's USE_FUTEX_WAIT template parameter.
func WithFutexWait(enabled bool) Option {
	return func(c *config) { c.useFutexWait = enabled }
}

// WithFutexWake(false) disables futex_wake_all on publish. Mirrors
// USE_FUTEX_WAKE.
func WithFutexWake(enabled bool) Option {
	return func(c *config) { c.useFutexWake = enabled }
}

// New constructs a Queue whose capacity is minCapacity rounded up to the
// next power of two.
func New[T any](minCapacity int, opts ...Option) *Queue[T] {
	cfg := config{
		scheduler:    futex.Default(),
		useFutexWait: true,
		useFutexWake: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cap := int(primitive.Next2(uintptr(minCapacity)))
	if cap < 1 {
		cap = 1
	}

	return &Queue[T]{
		slots:        make([]slot[T], cap),
		mask:         uint64(cap - 1),
		k:            uint64(primitive.Log2(uintptr(cap))),
		sched:        cfg.scheduler,
		useFutexWait: cfg.useFutexWait,
		useFutexWake: cfg.useFutexWake,
	}
}

// Capacity returns the queue's fixed capacity.
func (q *Queue[T]) Capacity() int {
	return len(q.slots)
}

// Size returns a best-effort element count; concurrent pushes/pops may make
// this stale the instant it's returned.
func (q *Queue[T]) Size() int {
	push := q.nextPush.Load()
	pop := q.nextPop.Load()
	d := int64(push - pop)
	if d < 0 {
		d = 0
	}
	if cap := int64(len(q.slots)); d > cap {
		d = cap
	}
	return int(d)
}

// Push blocks until a slot is available and stores value into it.
func (q *Queue[T]) Push(value T) {
	i := q.nextPush.Add(1) - 1
	s := &q.slots[i&q.mask]
	expected := pushVersion(i, q.k)
	waitForVersion(s, expected, q.sched, q.useFutexWait)
	s.value = value
	publish(s, expected+1, q.sched, q.useFutexWake)
}

// Pop blocks until a value is available and returns it.
func (q *Queue[T]) Pop() T {
	i := q.nextPop.Add(1) - 1
	s := &q.slots[i&q.mask]
	expected := popVersion(i, q.k)
	waitForVersion(s, expected, q.sched, q.useFutexWait)
	v := s.value
	var zero T
	s.value = zero
	publish(s, expected+1, q.sched, q.useFutexWake)
	return v
}

// TryPush stores value without blocking, returning false if the queue is
// currently full.
func (q *Queue[T]) TryPush(value T) bool {
	for {
		i := q.nextPush.Load()
		s := &q.slots[i&q.mask]
		expected := pushVersion(i, q.k)
		w := atomic.LoadUint32(&s.futex)
		diff := int16(version(w) - expected)
		switch {
		case diff == 0:
			if q.nextPush.CompareAndSwap(i, i+1) {
				s.value = value
				publish(s, expected+1, q.sched, q.useFutexWake)
				return true
			}
		case diff < 0:
			return false
		}
		// diff > 0: our loaded i is stale, reload.
	}
}

// TryPop removes a value without blocking, returning ok=false if the queue
// is currently empty.
func (q *Queue[T]) TryPop() (value T, ok bool) {
	for {
		i := q.nextPop.Load()
		s := &q.slots[i&q.mask]
		expected := popVersion(i, q.k)
		w := atomic.LoadUint32(&s.futex)
		diff := int16(version(w) - expected)
		switch {
		case diff == 0:
			if q.nextPop.CompareAndSwap(i, i+1) {
				v := s.value
				var zero T
				s.value = zero
				publish(s, expected+1, q.sched, q.useFutexWake)
				return v, true
			}
		case diff < 0:
			return value, false
		}
	}
}

// PushN blocks until every slot in the claimed range is available, pushing
// each value of values in order.
func (q *Queue[T]) PushN(values []T) {
	n := uint64(len(values))
	if n == 0 {
		return
	}
	base := q.nextPush.Add(n) - n
	for j, v := range values {
		i := base + uint64(j)
		s := &q.slots[i&q.mask]
		expected := pushVersion(i, q.k)
		waitForVersion(s, expected, q.sched, q.useFutexWait)
		s.value = v
	}
	for j := range values {
		i := base + uint64(j)
		s := &q.slots[i&q.mask]
		publish(s, pushVersion(i, q.k)+1, q.sched, q.useFutexWake)
	}
}

// PopN blocks until n values are available, then returns them in order.
func (q *Queue[T]) PopN(n int) []T {
	if n <= 0 {
		return nil
	}
	un := uint64(n)
	base := q.nextPop.Add(un) - un
	out := make([]T, n)
	for j := 0; j < n; j++ {
		i := base + uint64(j)
		s := &q.slots[i&q.mask]
		expected := popVersion(i, q.k)
		waitForVersion(s, expected, q.sched, q.useFutexWait)
		out[j] = s.value
		var zero T
		s.value = zero
	}
	for j := 0; j < n; j++ {
		i := base + uint64(j)
		s := &q.slots[i&q.mask]
		publish(s, popVersion(i, q.k)+1, q.sched, q.useFutexWake)
	}
	return out
}

// TryPushN pushes as many of values as are immediately available, in order,
// stopping at the first full slot. It returns the number actually pushed.
func (q *Queue[T]) TryPushN(values []T) int {
	for i, v := range values {
		if !q.TryPush(v) {
			return i
		}
	}
	return len(values)
}

// TryPopN pops up to n values without blocking, stopping at the first empty
// slot. It returns fewer than n values if the queue runs dry.
func (q *Queue[T]) TryPopN(n int) []T {
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// PushNCompensating pushes values one at a time; whenever a push would
// block, it synchronously invokes reverseTryPop (expected to attempt a
// single pop, e.g. from this same queue) to make room instead of waiting.
// If reverseTryPop itself cannot make progress, this spins and retries —
// that swallowed failure is an intentional, preserved liveness contract:
// if both directions are stalled this call never returns.
func (q *Queue[T]) PushNCompensating(values []T, reverseTryPop func() bool) {
	for _, v := range values {
		for !q.TryPush(v) {
			if !reverseTryPop() {
				q.sched.Yield()
			}
		}
	}
}

// PopNCompensating pops n values, one at a time; whenever a pop would
// block, it synchronously invokes reversePush (expected to attempt a single
// push, e.g. into this same queue) to make progress instead of waiting. See
// PushNCompensating for the swallowed-failure liveness contract.
func (q *Queue[T]) PopNCompensating(n int, reversePush func() bool) []T {
	out := make([]T, 0, n)
	for len(out) < n {
		v, ok := q.TryPop()
		if !ok {
			if !reversePush() {
				q.sched.Yield()
			}
			continue
		}
		out = append(out, v)
	}
	return out
}

// TryPopNExclusivelyUntil is a single-consumer operation: it waits on the
// last slot of the desired range until deadline, then performs a
// non-concurrent drain of whatever is ready. Callers must guarantee no
// other consumer is concurrently popping.
func (q *Queue[T]) TryPopNExclusivelyUntil(n int, deadline time.Time) []T {
	if n <= 0 {
		return nil
	}
	base := q.nextPop.Load()
	last := base + uint64(n) - 1
	s := &q.slots[last&q.mask]
	expected := popVersion(last, q.k)
	waitForVersionUntil(s, expected, q.sched, deadline)
	return q.TryPopN(n)
}

// ReserveAndClear discards all current contents and reallocates at
// minCapacity (rounded up to the next power of two). Not safe to call
// concurrently with any other operation on this queue.
func (q *Queue[T]) ReserveAndClear(minCapacity int) {
	cap := int(primitive.Next2(uintptr(minCapacity)))
	if cap < 1 {
		cap = 1
	}
	q.slots = make([]slot[T], cap)
	q.mask = uint64(cap - 1)
	q.k = uint64(primitive.Log2(uintptr(cap)))
	q.nextPush.Store(0)
	q.nextPop.Store(0)
}

// Clear discards all current contents, keeping the existing capacity. Not
// safe to call concurrently with any other operation on this queue.
func (q *Queue[T]) Clear() {
	q.ReserveAndClear(len(q.slots))
}

// Swap exchanges the entire internal state of q and other. Not safe to call
// concurrently with any other operation on either queue.
func (q *Queue[T]) Swap(other *Queue[T]) {
	q.slots, other.slots = other.slots, q.slots
	q.mask, other.mask = other.mask, q.mask
	q.k, other.k = other.k, q.k

	qPush, oPush := q.nextPush.Load(), other.nextPush.Load()
	q.nextPush.Store(oPush)
	other.nextPush.Store(qPush)

	qPop, oPop := q.nextPop.Load(), other.nextPop.Load()
	q.nextPop.Store(oPop)
	other.nextPop.Store(qPop)
}
