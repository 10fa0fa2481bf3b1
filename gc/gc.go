// Package gc implements epoch-based reclamation's deferred-reclaim half: a
// bounded queue of retire tasks drained by a dedicated background goroutine,
// which reclaims each task only once the epoch's low-water-mark has caught
// up to it.
package gc

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-babylon/concurrent/epoch"
	"github.com/go-babylon/concurrent/queue"
)

// ErrAlreadyStarted is returned by Start if the collector's background
// goroutine is already running.
var ErrAlreadyStarted = errors.New("gc: already started")

const (
	minBackoff     = 1000 * time.Microsecond
	maxBackoff     = 100 * time.Millisecond
	backoffStep    = 10 * time.Microsecond
	reclaimPerTick = 100 // below this many reclaims per round, backoff grows
)

const stopSentinel = math.MaxUint64

type reclaimTask[R any] struct {
	reclaimer   R
	lowestEpoch uint64
}

// Collector is a GarbageCollector<R>: a bounded queue of retire tasks plus a
// dedicated reclaiming goroutine, gated by an Epoch low-water-mark. The zero
// value is not usable; construct with New.
type Collector[R any] struct {
	epoch *epoch.Epoch
	q     *queue.Queue[reclaimTask[R]]
	run   func(R)
	log   zerolog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// Option configures a Collector at construction time.
type Option[R any] func(*Collector[R])

// WithQueueCapacity sets the retire queue's minimum capacity (rounded up to
// a power of two, as with any queue.Queue). The default is 1024.
func WithQueueCapacity[R any](minCapacity int) Option[R] {
	return func(c *Collector[R]) { c.q = queue.New[reclaimTask[R]](minCapacity) }
}

// WithLogger installs a zerolog.Logger for lifecycle and backoff events. The
// default is zerolog.Nop(), i.e. silent.
func WithLogger[R any](logger zerolog.Logger) Option[R] {
	return func(c *Collector[R]) { c.log = logger }
}

// New constructs a Collector. R is the reclaimer type: run is invoked once
// per retired value, in place of the original's "invoke the stored
// closure" — R need not itself be a function, which lets callers retire
// plain values (e.g. *swiss.Table) alongside a single shared teardown
// routine.
func New[R any](run func(R), opts ...Option[R]) *Collector[R] {
	c := &Collector[R]{
		epoch: epoch.New(),
		q:     queue.New[reclaimTask[R]](1024),
		run:   run,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Epoch returns the collector's underlying Epoch registry.
func (c *Collector[R]) Epoch() *epoch.Epoch {
	return c.epoch
}

// Retire queues r for reclamation once the epoch's low-water-mark reaches
// epoch.Tick()'s current value. Blocks (providing backpressure) if the
// retire queue is momentarily full.
func (c *Collector[R]) Retire(r R) {
	c.RetireAt(r, c.epoch.Tick())
}

// RetireAt queues r for reclamation once the epoch's low-water-mark reaches
// lowestEpoch. Blocks if the retire queue is momentarily full.
func (c *Collector[R]) RetireAt(r R, lowestEpoch uint64) {
	c.q.Push(reclaimTask[R]{reclaimer: r, lowestEpoch: lowestEpoch})
}

// Start launches the background reclaiming goroutine. Calling Start twice
// without an intervening Stop returns ErrAlreadyStarted.
func (c *Collector[R]) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	c.done = make(chan struct{})
	go c.keepReclaiming(c.done)
	return nil
}

// Stop pushes the sentinel task and joins the background goroutine. Tasks
// still sitting in the queue past shutdown are the caller's responsibility
// to drain, matching the original's documented contract.
func (c *Collector[R]) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	done := c.done
	c.mu.Unlock()

	var zero R
	c.q.Push(reclaimTask[R]{reclaimer: zero, lowestEpoch: stopSentinel})
	<-done
}

func (c *Collector[R]) keepReclaiming(done chan struct{}) {
	defer close(done)

	batch := c.q.Capacity()
	if batch > 1024 {
		batch = 1024
	}
	backoff := minBackoff

	var buf []reclaimTask[R]
	index := 0
	running := true

	c.log.Debug().Int("batch", batch).Msg("gc: reclaim loop started")

	for running {
		if index == len(buf) {
			buf, running = c.consume(batch)
			index = 0
		}

		reclaimed := c.reclaimFrom(buf, index)
		index += reclaimed

		switch {
		case reclaimed < reclaimPerTick:
			backoff += backoffStep
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			time.Sleep(backoff)
		case reclaimed >= batch:
			backoff /= 2
			if backoff < minBackoff {
				backoff = minBackoff
			}
		}
	}

	c.log.Debug().Msg("gc: reclaim loop stopped")
}

// consume drains up to batch tasks, returning them and whether the loop
// should keep running (false once the stop sentinel is observed).
func (c *Collector[R]) consume(batch int) ([]reclaimTask[R], bool) {
	tasks := c.q.TryPopN(batch)
	for i, t := range tasks {
		if t.lowestEpoch == stopSentinel {
			return tasks[:i], false
		}
	}
	return tasks, true
}

// reclaimFrom invokes run for every task starting at index whose
// lowestEpoch has already been passed by the low-water-mark, stopping at
// the first one that hasn't.
func (c *Collector[R]) reclaimFrom(tasks []reclaimTask[R], index int) int {
	lwm := c.epoch.LowWaterMark()
	reclaimed := 0
	for ; index < len(tasks); index++ {
		if tasks[index].lowestEpoch > lwm {
			break
		}
		c.run(tasks[index].reclaimer)
		reclaimed++
	}
	return reclaimed
}
