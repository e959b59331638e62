//go:build !linux

package supervisor

import "runtime"

const (
	readerFIFOPriority  = 80
	matcherFIFOPriority = 70
)

// PinCurrentThread is a no-op off Linux beyond locking the goroutine to
// its OS thread: CPU affinity and SCHED_FIFO are Linux-specific and are
// optional per the error taxonomy.
func PinCurrentThread(core, priority int) error {
	runtime.LockOSThread()
	return nil
}
