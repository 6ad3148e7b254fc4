package heap

import "unsafe"

// headerMagic tags every live header so a traversal can tell a genuine
// header from arbitrary memory. Advisory only: a stale tag left behind
// by a released block still passes.
const headerMagic uint32 = 0xDEADC0DE

// blockHeader sits immediately before every user data region. next
// holds the address of the successor header in address order, 0 when
// the block is the last one.
type blockHeader struct {
	dataSize uintptr
	magic    uint32
	next     uintptr
}

const headerSize = unsafe.Sizeof(blockHeader{})

func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr))
}

// headerForData returns the address of the header preceding a data
// pointer. Both directions of the conversion live here so the
// arithmetic never gets inlined at call sites.
func headerForData(p unsafe.Pointer) uintptr {
	return uintptr(p) - headerSize
}

func (b *blockHeader) addr() uintptr {
	return uintptr(unsafe.Pointer(b))
}

// data returns the first byte after the header.
func (b *blockHeader) data() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + headerSize)
}

// blockSize is the full footprint of the block: header plus data.
func (b *blockHeader) blockSize() uintptr {
	return headerSize + b.dataSize
}

func (b *blockHeader) nextHeader() *blockHeader {
	if b.next == 0 {
		return nil
	}
	return headerAt(b.next)
}

func (b *blockHeader) setNext(next *blockHeader) {
	if next == nil {
		b.next = 0
		return
	}
	b.next = next.addr()
}

// writeHeader stamps a fresh header at addr. Linking it into the list
// is the caller's job.
func writeHeader(addr uintptr, dataSize uintptr, next *blockHeader) *blockHeader {
	b := headerAt(addr)
	b.dataSize = dataSize
	b.magic = headerMagic
	b.setNext(next)
	return b
}
