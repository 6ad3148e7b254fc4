package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
)

// Statistics summarizes the live layout of the heap. Gaps are found by
// the same linear scan placement uses; nothing here is tracked state.
type Statistics struct {
	HeapBytes        int
	BlockCount       int
	AllocationBytes  int
	UnusedRangeCount int
	UnusedBytes      int
}

// region is one element of the heap map: a live block (header
// included) or a gap, offset bytes from the heap start.
type region struct {
	offset uintptr
	size   uintptr
	free   bool
}

func (h *Heap) regions() ([]region, error) {
	if !h.initialized() {
		return nil, nil
	}

	var result []region
	cur := headerAt(h.start)
	for {
		curEnd := cur.addr() + cur.blockSize()
		if cur.addr() != h.start {
			result = append(result, region{offset: cur.addr() - h.start, size: cur.blockSize()})
		}

		next := cur.nextHeader()
		gapEnd := h.end
		if next != nil {
			gapEnd = next.addr()
		}
		if gapEnd > curEnd {
			result = append(result, region{offset: curEnd - h.start, size: gapEnd - curEnd, free: true})
		}

		if next == nil {
			return result, nil
		}
		cur = next
		if !h.validHeader(cur) {
			return nil, errors.WithStack(ErrCorrupted)
		}
	}
}

func aggregate(regions []region, heapBytes uintptr) Statistics {
	stats := Statistics{HeapBytes: int(heapBytes)}
	for _, r := range regions {
		if r.free {
			stats.UnusedRangeCount++
			stats.UnusedBytes += int(r.size)
		} else {
			stats.BlockCount++
			stats.AllocationBytes += int(r.size)
		}
	}
	return stats
}

// Statistics ...
func (h *Heap) Statistics() (Statistics, error) {
	regions, err := h.regions()
	if err != nil {
		return Statistics{}, err
	}
	return aggregate(regions, h.end-h.start), nil
}

// BuildHeapMapString renders the current block and gap layout as JSON.
// Debugging surface only: nothing in the allocation contract depends
// on it.
func (h *Heap) BuildHeapMapString() (string, error) {
	regions, err := h.regions()
	if err != nil {
		return "", err
	}
	stats := aggregate(regions, h.end-h.start)

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("TotalBytes").Int(stats.HeapBytes)
	obj.Name("UnusedBytes").Int(stats.UnusedBytes)
	obj.Name("Allocations").Int(stats.BlockCount)
	obj.Name("UnusedRanges").Int(stats.UnusedRangeCount)

	blocks := obj.Name("Blocks").Array()
	for _, r := range regions {
		if r.free {
			continue
		}
		o := blocks.Object()
		o.Name("Offset").Int(int(r.offset))
		o.Name("Size").Int(int(r.size))
		o.End()
	}
	blocks.End()

	gaps := obj.Name("Gaps").Array()
	for _, r := range regions {
		if !r.free {
			continue
		}
		o := gaps.Object()
		o.Name("Offset").Int(int(r.offset))
		o.Name("Size").Int(int(r.size))
		o.End()
	}
	gaps.End()

	obj.End()
	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "heap: building heap map")
	}
	return string(writer.Bytes()), nil
}
