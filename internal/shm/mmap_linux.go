//go:build linux

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Open creates (or attaches to) the named shared-memory region backing
// the operations ring and header. On Linux this is a file under
// /dev/shm, which is what a POSIX shm_open implementation ultimately
// resolves to, mapped with MAP_SHARED so every attaching process sees
// the same pages (the wire contract: a named, shared, memory-mapped region).
func Open(name string) (*Region, error) {
	path := "/dev/shm" + name
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	size := int(headerSize)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, fmt.Errorf("shm: ftruncate %s: %w", path, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return newRegion(data, func(b []byte) error { return unix.Munmap(b) })
}

// Unlink removes the named region so a fresh Open starts from a
// zeroed header. Called by the supervisor during teardown.
func Unlink(name string) error {
	path := "/dev/shm" + name
	if err := unix.Unlink(path); err != nil {
		return fmt.Errorf("shm: unlink %s: %w", path, err)
	}
	return nil
}
