package shm

import (
	"fmt"
	"unsafe"

	"github.com/nullhash/draizer/internal/domain"
)

// Region owns a mapped SharedHeader and the means to release it. Header
// points into the mapped bytes — both views of the same memory, no
// copy.
type Region struct {
	Header *domain.SharedHeader
	raw    []byte
	closer func([]byte) error
}

// headerSize is sizeof(domain.SharedHeader): the exact size of the
// shared-memory region.
const headerSize = unsafe.Sizeof(domain.SharedHeader{})

func newRegion(raw []byte, closer func([]byte) error) (*Region, error) {
	if uintptr(len(raw)) < headerSize {
		return nil, fmt.Errorf("shm: mapped region too small: got %d bytes, need %d", len(raw), headerSize)
	}
	h := (*domain.SharedHeader)(unsafe.Pointer(&raw[0]))
	return &Region{Header: h, raw: raw, closer: closer}, nil
}

// Close unmaps (or frees) the underlying region.
func (r *Region) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer(r.raw)
}
