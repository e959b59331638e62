// Package shm implements the operations ring and shared header (C8): a
// fixed-layout, host-endian region mapped into a named shared-memory
// segment, published to an external reader process.
package shm

import (
	"sync/atomic"

	"github.com/nullhash/draizer/internal/domain"
)

// PushOperation appends op to the ring, dropping the oldest slot on
// overflow ("advance tail with release, drop-oldest"). Only the
// matcher loop calls this.
func PushOperation(h *domain.SharedHeader, op domain.ShmOperation) {
	tail := atomic.LoadUint32(&h.Tail)
	head := atomic.LoadUint32(&h.Head)
	nextHead := (head + 1) % domain.OpsRingCapacity
	if nextHead == tail {
		atomic.StoreUint32(&h.Tail, (tail+1)%domain.OpsRingCapacity)
	}
	h.Ops[head] = op
	atomic.StoreUint32(&h.Head, nextHead)
	atomic.AddUint64(&h.TotalOperations, 1)
}

// PopOperations copies up to len(out) unread operations into out and
// advances Tail, returning how many were copied. The external reader
// uses the same protocol (acquire-load tail and head, copy, release-
// store the new tail) from the other side of the shared-memory
// boundary.
func PopOperations(h *domain.SharedHeader, out []domain.ShmOperation) int {
	tail := atomic.LoadUint32(&h.Tail)
	head := atomic.LoadUint32(&h.Head)

	n := 0
	for tail != head && n < len(out) {
		out[n] = h.Ops[tail]
		tail = (tail + 1) % domain.OpsRingCapacity
		n++
	}
	atomic.StoreUint32(&h.Tail, tail)
	return n
}

// Count returns the current number of unread operations in the ring.
func Count(h *domain.SharedHeader) uint32 {
	head := atomic.LoadUint32(&h.Head)
	tail := atomic.LoadUint32(&h.Tail)
	return (head - tail + domain.OpsRingCapacity) % domain.OpsRingCapacity
}
