package heap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOpeningFirstFit(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.Allocate(30)
	require.NoError(t, err)
	_, err = h.Allocate(10)
	require.NoError(t, err)
	c, err := h.Allocate(40)
	require.NoError(t, err)
	_, err = h.Allocate(10)
	require.NoError(t, err)

	h.Release(a)
	h.Release(c)

	// Two gaps now exist: headerSize+30 bytes at a, headerSize+40 at c.
	// The lowest addressed gap that fits must win.
	p, err := h.Allocate(25)
	require.NoError(t, err)
	assert.Equal(t, uintptr(a), uintptr(p))

	q, err := h.Allocate(35)
	require.NoError(t, err)
	assert.Equal(t, uintptr(c), uintptr(q))
}

func TestFindOpeningSkipsSmallGaps(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.Allocate(8)
	require.NoError(t, err)
	_, err = h.Allocate(16)
	require.NoError(t, err)
	end := h.end

	h.Release(a)

	// The gap at a holds headerSize+8 bytes, too small for this
	// request, so placement falls through to the trailing gap.
	p, err := h.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, end+headerSize, uintptr(p))
	assert.True(t, h.end > end)
}

func TestFindOpeningExactFit(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	_, err = h.Allocate(8)
	require.NoError(t, err)

	h.Release(a)

	p, err := h.Allocate(32)
	require.NoError(t, err)
	assert.Equal(t, uintptr(a), uintptr(p))
}

func TestFindBlockOutcomes(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.Allocate(16)
	require.NoError(t, err)
	b, err := h.Allocate(16)
	require.NoError(t, err)

	res := h.findBlock(headerForData(b))
	assert.Equal(t, lookupFound, res.state)
	assert.Equal(t, headerForData(b), res.block.addr())
	assert.Equal(t, headerForData(a), res.prev.addr())

	res = h.findBlock(h.start)
	assert.Equal(t, lookupFound, res.state)
	assert.Nil(t, res.prev)

	res = h.findBlock(uintptr(a) + 4)
	assert.Equal(t, lookupNotFound, res.state)

	hdr := headerAt(headerForData(a))
	hdr.magic = 0xBADBAD
	res = h.findBlock(headerForData(b))
	assert.Equal(t, lookupCorrupted, res.state)
}

func TestValidHeader(t *testing.T) {
	h := newTestHeap(1 << 20)

	a, err := h.Allocate(64)
	require.NoError(t, err)

	assert.True(t, h.validHeader(nil))
	assert.True(t, h.validHeader(headerAt(h.start)))
	assert.True(t, h.validHeader(headerAt(headerForData(a))))

	// Below the heap start and past the last possible header slot.
	assert.False(t, h.validHeader(headerAt(h.start-headerSize)))
	assert.False(t, h.validHeader(headerAt(h.end-headerSize+1)))

	// In bounds but without the tag.
	assert.False(t, h.validHeader(headerAt(uintptr(a))))

	// A stale looking tag inside a data region still passes: the check
	// is advisory, not cryptographic.
	stale := writeHeader(uintptr(a), 4, nil)
	assert.True(t, h.validHeader(stale))
}

func TestFindOpeningCorrupted(t *testing.T) {
	h := newTestHeap(1 << 20)

	_, err := h.Allocate(16)
	require.NoError(t, err)
	b, err := h.Allocate(16)
	require.NoError(t, err)
	_, err = h.Allocate(16)
	require.NoError(t, err)

	headerAt(headerForData(b)).magic = 0

	_, err = h.findOpening(headerSize + 8)
	assert.ErrorIs(t, err, ErrCorrupted)
}

// headerConversionsBuf pins the test buffer on the Go heap: a
// stack-allocated buffer would move with the goroutine stack and
// invalidate the raw addresses the test compares.
var headerConversionsBuf []byte

func TestHeaderConversions(t *testing.T) {
	headerConversionsBuf = make([]byte, 4*headerSize)
	addr := uintptr(unsafe.Pointer(&headerConversionsBuf[0]))

	b := writeHeader(addr, 16, nil)
	assert.Equal(t, addr, b.addr())
	assert.Equal(t, addr+headerSize, uintptr(b.data()))
	assert.Equal(t, addr, headerForData(b.data()))
	assert.Equal(t, headerSize+16, b.blockSize())
	assert.Equal(t, headerMagic, b.magic)
	assert.Nil(t, b.nextHeader())

	next := writeHeader(addr+2*headerSize, 0, nil)
	b.setNext(next)
	assert.Equal(t, next.addr(), b.next)
	assert.Equal(t, next, b.nextHeader())

	b.setNext(nil)
	assert.Equal(t, uintptr(0), b.next)
}
