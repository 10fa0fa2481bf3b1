//go:build linux

package futex

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// LinuxScheduler backs Scheduler with the real FUTEX_WAIT/FUTEX_WAKE
// syscalls. It needs no create()/destroy() step: any *uint32 the caller
// owns is already a valid futex word to the kernel.
type LinuxScheduler struct{}

// NewLinux returns a Scheduler backed by the kernel futex syscall.
func NewLinux() *LinuxScheduler {
	return &LinuxScheduler{}
}

func defaultScheduler() Scheduler {
	return NewLinux()
}

// Wait implements Scheduler.
func (l *LinuxScheduler) Wait(addr *uint32, expected uint32, timeout time.Duration) Result {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, err := unix.Futex(addr, unix.FUTEX_WAIT, expected, ts, nil, 0)
	switch err {
	case nil:
		return Awoken
	case unix.EAGAIN:
		return ValueChanged
	case unix.ETIMEDOUT:
		return TimedOut
	case unix.EINTR:
		// Treat a signal interruption as a spurious wake; callers loop
		// on their own expected-value check regardless.
		return Awoken
	default:
		return Awoken
	}
}

// WakeOne implements Scheduler.
func (l *LinuxScheduler) WakeOne(addr *uint32) int {
	n, _ := unix.Futex(addr, unix.FUTEX_WAKE, 1, nil, nil, 0)
	return int(n)
}

// WakeAll implements Scheduler.
func (l *LinuxScheduler) WakeAll(addr *uint32) int {
	n, _ := unix.Futex(addr, unix.FUTEX_WAKE, 1<<30, nil, nil, 0)
	return int(n)
}

// Yield implements Scheduler.
func (l *LinuxScheduler) Yield() {
	runtime.Gosched()
}

// SleepMicros implements Scheduler.
func (l *LinuxScheduler) SleepMicros(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
