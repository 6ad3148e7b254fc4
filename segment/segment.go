package segment

import (
	"unsafe"

	"github.com/pkg/errors"
)

// ErrExhausted ...
var ErrExhausted = errors.New("segment: address space exhausted")

// Segment models a contiguous region of address space that can only
// grow, the way sbrk moves the program break. Grow claims delta more
// bytes at the end of the region and returns the address one past the
// last claimed byte. A failed Grow leaves the region unchanged.
type Segment interface {
	Grow(delta uintptr) (uintptr, error)
}

// Memory is a segment backed by an ordinary byte slice. The whole
// reservation is allocated up front so addresses stay stable; the OS
// commits its pages lazily, so a large reservation is cheap until
// written to.
type Memory struct {
	buf     []byte
	claimed uintptr
}

var _ Segment = &Memory{}

// NewMemory ...
func NewMemory(reserve uintptr) *Memory {
	return &Memory{buf: make([]byte, reserve)}
}

// Grow ...
func (m *Memory) Grow(delta uintptr) (uintptr, error) {
	if m.claimed+delta > uintptr(len(m.buf)) {
		return 0, errors.WithStack(ErrExhausted)
	}
	m.claimed += delta
	return m.base() + m.claimed, nil
}

// Claimed ...
func (m *Memory) Claimed() uintptr {
	return m.claimed
}

func (m *Memory) base() uintptr {
	if len(m.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.buf[0]))
}
