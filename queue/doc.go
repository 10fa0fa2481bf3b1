// Package queue provides a slot-versioned bounded multi-producer
// multi-consumer ring queue.
//
// Every slot carries its own futex word: the low 16 bits are a version that
// tracks which lap of the ring the slot is on, the high 16 bits count
// blocked waiters. A slot at absolute sequence i is ready to push when its
// version equals 2*(i>>k) and ready to pop when it equals 2*(i>>k)+1, where
// the ring capacity is 2^k. This is Dmitry Vyukov's bounded MPMC queue
// design (www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue)
// extended with per-slot blocking (via the futex package) and batch
// push/pop.
//
// Queue is not growable in place: ReserveAndClear discards all contents and
// reallocates at a new capacity.
package queue
