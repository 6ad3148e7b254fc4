package heap

import "github.com/pkg/errors"

var (
	// ErrInit indicates the very first region growth failed. The heap
	// stays uninitialized and a later allocation may retry.
	ErrInit = errors.New("heap: initialization failed")

	// ErrNoSpace indicates the backing segment refused to grow after the
	// heap was already initialized.
	ErrNoSpace = errors.New("heap: backing region exhausted")

	// ErrCorrupted indicates a header failed its bounds or tag check
	// during traversal.
	ErrCorrupted = errors.New("heap: corrupted header detected")

	// ErrBadPointer indicates a pointer that belongs to no live block.
	ErrBadPointer = errors.New("heap: unknown block pointer")

	// ErrInvalidSize indicates a zero or overflowing allocation size.
	ErrInvalidSize = errors.New("heap: invalid allocation size")
)
