// Package brkheap is a drop-in replacement for the C allocation triad
// plus calloc, built on raw address space growth instead of an
// existing allocator. The root package exposes the familiar surface
// over one process-wide heap; package heap holds the allocator itself
// and package segment the growth primitive underneath it.
//
// Like the interface it replaces, this surface reports failure by
// returning nil and is not safe for concurrent use without an external
// lock.
package brkheap

import (
	"unsafe"

	"github.com/tunght/brkheap/heap"
	"github.com/tunght/brkheap/segment"
)

// defaultReserve bounds the process-wide heap. The backing slice is
// committed lazily by the OS, so the reservation costs address space,
// not memory.
const defaultReserve = 1 << 30

var std = heap.New(segment.NewMemory(defaultReserve))

// Malloc ...
func Malloc(size uintptr) unsafe.Pointer {
	p, err := std.Allocate(size)
	if err != nil {
		return nil
	}
	return p
}

// Calloc ...
func Calloc(count, elemSize uintptr) unsafe.Pointer {
	p, err := std.AllocateZeroed(count, elemSize)
	if err != nil {
		return nil
	}
	return p
}

// Realloc returns nil both when the resize failed (the old pointer is
// then still valid) and when size is zero (the old pointer was freed).
// Callers that need to tell these apart should use heap.Heap directly.
func Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	q, err := std.Resize(p, size)
	if err != nil {
		return nil
	}
	return q
}

// Free ...
func Free(p unsafe.Pointer) {
	std.Release(p)
}
