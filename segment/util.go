package segment

import "golang.org/x/exp/constraints"

// alignUp rounds value up to a multiple of alignment. alignment must
// be a power of two.
func alignUp[T constraints.Unsigned](value, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}
