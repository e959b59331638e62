//go:build !linux

package shm

// Open falls back to a process-local heap-backed region on non-Linux
// hosts: there is no cross-process IPC, but the same header layout and
// ring protocol are exercised, which is what matters for development
// and tests off Linux.
func Open(name string) (*Region, error) {
	return newRegion(make([]byte, int(headerSize)), nil)
}

// Unlink is a no-op off Linux; there is no backing file to remove.
func Unlink(name string) error { return nil }
