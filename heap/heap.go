package heap

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/tunght/brkheap/segment"
)

// Heap manages one contiguous region claimed from a segment. It keeps
// an address ordered, singly linked list of block headers inside the
// region itself, anchored by a zero size dummy head that never belongs
// to a caller. Free space is not tracked: gaps between blocks are
// rediscovered by the placement scan.
//
// A Heap is not safe for concurrent use. Callers needing that must
// serialize all operations behind a single lock.
type Heap struct {
	seg   segment.Segment
	start uintptr
	end   uintptr
}

// New ...
func New(seg segment.Segment) *Heap {
	return &Heap{seg: seg}
}

// initialized reports whether the heap has claimed its region. start
// never changes once set and end only grows.
func (h *Heap) initialized() bool {
	return h.start != 0
}

// init claims the dummy head plus the first block in a single grow
// call, so first use costs one segment request instead of two.
func (h *Heap) init(firstBlockSize uintptr) error {
	total := headerSize + firstBlockSize
	end, err := h.seg.Grow(total)
	if err != nil {
		return errors.Wrapf(ErrInit, "grow %d bytes: %s", total, err)
	}
	h.start = end - total
	h.end = end
	writeHeader(h.start, 0, nil)
	return nil
}

// expandToFit grows the segment when a block of blockSize bytes
// starting at blockStart would run past the claimed region. No-op when
// the block already fits.
func (h *Heap) expandToFit(blockStart, blockSize uintptr) error {
	blockEnd := blockStart + blockSize
	if blockEnd <= h.end {
		return nil
	}
	end, err := h.seg.Grow(blockEnd - h.end)
	if err != nil {
		return errors.Wrapf(ErrNoSpace, "grow %d bytes: %s", blockEnd-h.end, err)
	}
	h.end = end
	return nil
}

// Allocate reserves size bytes and returns a pointer to the data
// region. Size zero is legal and reserves a header with no usable
// bytes. Placement is first fit over the implicit gaps; a trailing
// placement grows the backing segment first.
func (h *Heap) Allocate(size uintptr) (unsafe.Pointer, error) {
	if size > ^uintptr(0)-headerSize {
		return nil, errors.Wrapf(ErrInvalidSize, "%d bytes overflows", size)
	}
	blockSize := headerSize + size

	justInitialized := false
	if !h.initialized() {
		if err := h.init(blockSize); err != nil {
			return nil, err
		}
		justInitialized = true
	}

	open, err := h.findOpening(blockSize)
	if err != nil {
		return nil, err
	}
	if open.next == nil && !justInitialized {
		if err := h.expandToFit(open.addr, blockSize); err != nil {
			return nil, err
		}
	}

	b := writeHeader(open.addr, size, open.next)
	open.prev.setNext(b)
	return b.data(), nil
}

// Resize changes the data size of the block at ptr. The same pointer
// comes back when the block can grow or shrink in place; otherwise the
// data moves to a fresh block and the old one is released. On a
// non-nil error the old pointer is still valid and its data untouched.
//
// A nil ptr behaves as Allocate; size zero behaves as Release and
// returns nil.
func (h *Heap) Resize(ptr unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.Allocate(size)
	}
	if size == 0 {
		h.Release(ptr)
		return nil, nil
	}
	if size > ^uintptr(0)-headerSize {
		return nil, errors.Wrapf(ErrInvalidSize, "%d bytes overflows", size)
	}

	res := h.findBlock(headerForData(ptr))
	switch res.state {
	case lookupNotFound:
		return nil, errors.WithStack(ErrBadPointer)
	case lookupCorrupted:
		return nil, errors.WithStack(ErrCorrupted)
	}
	block := res.block

	if h.canExpand(block, size) {
		block.dataSize = size
		return block.data(), nil
	}

	fresh, err := h.Allocate(size)
	if err != nil {
		return nil, err
	}
	n := block.dataSize
	if size < n {
		n = size
	}
	copy(unsafe.Slice((*byte)(fresh), n), unsafe.Slice((*byte)(ptr), n))
	h.Release(ptr)
	return fresh, nil
}

// canExpand reports whether the block can change its data size in
// place. The last block may grow the segment to fit; any other block
// must keep its new end at or before the successor header. A refused
// grow just makes the block ineligible: the copy path can still place
// it in an earlier gap, and reports exhaustion itself when none fits.
func (h *Heap) canExpand(block *blockHeader, size uintptr) bool {
	next := block.nextHeader()
	if next == nil {
		return h.expandToFit(block.addr(), headerSize+size) == nil
	}
	return block.addr()+headerSize+size <= next.addr()
}

// AllocateZeroed reserves count*elemSize bytes and zeroes them. Zero
// count or element size is an invalid request, as is a product that
// overflows.
func (h *Heap) AllocateZeroed(count, elemSize uintptr) (unsafe.Pointer, error) {
	if count == 0 || elemSize == 0 {
		return nil, errors.WithStack(ErrInvalidSize)
	}
	total := count * elemSize
	if total/elemSize != count {
		return nil, errors.Wrapf(ErrInvalidSize, "%d elements of %d bytes overflows", count, elemSize)
	}

	p, err := h.Allocate(total)
	if err != nil {
		return nil, err
	}
	data := unsafe.Slice((*byte)(p), total)
	for i := range data {
		data[i] = 0
	}
	return p, nil
}

// Release returns the block at ptr to the pool of implicit gaps. It is
// a silent no-op for nil, for an uninitialized heap, for the dummy
// head, for pointers the heap never handed out, and when the list is
// corrupted: a bad release must never break live blocks.
func (h *Heap) Release(ptr unsafe.Pointer) {
	if ptr == nil || !h.initialized() {
		return
	}
	target := headerForData(ptr)
	if target == h.start {
		return
	}
	res := h.findBlock(target)
	if res.state != lookupFound {
		return
	}
	res.prev.setNext(res.block.nextHeader())
}
