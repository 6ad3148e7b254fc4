package heap

import "github.com/pkg/errors"

// opening is a placement candidate: the address where a new block can
// go, the header it follows, and the successor header. next is nil for
// the trailing gap at heap end.
type opening struct {
	addr uintptr
	prev *blockHeader
	next *blockHeader
}

type lookupState int

const (
	lookupFound lookupState = iota
	lookupNotFound
	lookupCorrupted
)

// lookupResult carries the outcome of a block lookup. A missing block
// and a corrupted list are different failures and callers must treat
// them differently.
type lookupResult struct {
	state lookupState
	block *blockHeader
	prev  *blockHeader
}

// validHeader reports whether a header reference can be trusted. nil
// is vacuously valid so list walks can terminate on it. The check is
// bounds plus tag, nothing stronger.
func (h *Heap) validHeader(b *blockHeader) bool {
	if b == nil {
		return true
	}
	a := b.addr()
	if a < h.start || a > h.end-headerSize {
		return false
	}
	return b.magic == headerMagic
}

// findOpening runs the first fit scan from the dummy head: the lowest
// addressed gap that can hold blockSize bytes wins. The trailing gap
// always qualifies; growing the segment to cover it is the caller's
// job.
func (h *Heap) findOpening(blockSize uintptr) (opening, error) {
	cur := headerAt(h.start)
	for {
		curEnd := cur.addr() + cur.blockSize()
		next := cur.nextHeader()
		if next == nil {
			return opening{addr: curEnd, prev: cur}, nil
		}
		if next.addr()-curEnd >= blockSize {
			return opening{addr: curEnd, prev: cur, next: next}, nil
		}
		cur = next
		if !h.validHeader(cur) {
			return opening{}, errors.WithStack(ErrCorrupted)
		}
	}
}

// findBlock walks the list from the dummy head looking for the header
// at target.
func (h *Heap) findBlock(target uintptr) lookupResult {
	var prev *blockHeader
	cur := headerAt(h.start)
	for cur != nil {
		if cur.addr() == target {
			return lookupResult{state: lookupFound, block: cur, prev: prev}
		}
		prev = cur
		cur = cur.nextHeader()
		if !h.validHeader(cur) {
			return lookupResult{state: lookupCorrupted}
		}
	}
	return lookupResult{state: lookupNotFound}
}
