//go:build linux

package segment

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap is a segment backed by an anonymous mapping. The whole
// reservation is mapped PROT_NONE up front so the region never moves;
// Grow commits pages forward with mprotect. Touching bytes past the
// claimed end faults, which the slice backed Memory segment cannot
// give you.
type Mmap struct {
	buf     []byte
	claimed uintptr
}

var _ Segment = &Mmap{}

// NewMmap reserves capacity for a region of up to reserve bytes,
// rounded up to whole pages.
func NewMmap(reserve uintptr) (*Mmap, error) {
	reserve = alignUp(reserve, uintptr(unix.Getpagesize()))
	buf, err := unix.Mmap(-1, 0, int(reserve), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "segment: reserving address space")
	}
	return &Mmap{buf: buf}, nil
}

// Grow ...
func (m *Mmap) Grow(delta uintptr) (uintptr, error) {
	if m.claimed+delta > uintptr(len(m.buf)) {
		return 0, errors.WithStack(ErrExhausted)
	}

	pageSize := uintptr(unix.Getpagesize())
	committed := alignUp(m.claimed, pageSize)
	needed := alignUp(m.claimed+delta, pageSize)
	if needed > committed {
		if err := unix.Mprotect(m.buf[committed:needed], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, errors.Wrap(err, "segment: committing pages")
		}
	}

	m.claimed += delta
	return uintptr(unsafe.Pointer(&m.buf[0])) + m.claimed, nil
}

// Claimed ...
func (m *Mmap) Claimed() uintptr {
	return m.claimed
}

// Close unmaps the reservation. Every pointer handed out by a heap on
// top of this segment is invalid afterwards.
func (m *Mmap) Close() error {
	return errors.Wrap(unix.Munmap(m.buf), "segment: unmapping")
}
