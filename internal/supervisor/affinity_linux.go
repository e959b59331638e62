//go:build linux

package supervisor

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fifoPriority is the SCHED_FIFO priority a thread is given; reader runs
// slightly higher than matcher (the contract: "reader at the higher priority").
const (
	readerFIFOPriority  = 80
	matcherFIFOPriority = 70
)

// PinCurrentThread locks the calling goroutine to its OS thread, pins
// that thread to core, and — best-effort — raises it to SCHED_FIFO at
// priority. Affinity and RT scheduling are optional per the error
// taxonomy: failures are logged by the caller and execution continues
// on the default scheduler.
func PinCurrentThread(core, priority int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: %w", err)
	}

	if err := setFIFOScheduling(priority); err != nil {
		return fmt.Errorf("rt scheduling: %w", err)
	}
	return nil
}

// schedParam mirrors struct sched_param from <sched.h>: a single int,
// the priority.
type schedParam struct {
	Priority int32
}

const schedFIFO = 1

// setFIFOScheduling raises the calling thread to SCHED_FIFO via a raw
// syscall: golang.org/x/sys/unix does not wrap sched_setscheduler
// directly, so this goes through unix.Syscall with the policy's native
// syscall number, the same pattern the package uses internally for
// calls it doesn't wrap.
func setFIFOScheduling(priority int) error {
	param := schedParam{Priority: int32(priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, uintptr(schedFIFO), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errno
	}
	return nil
}
