package buffer

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned when a ring is created with capacity <= 0.
var ErrInvalidCapacity = errors.New("buffer: ring capacity must be > 0")

// Sample is the set of element types a Ring can hold.
type Sample interface {
	~int | ~int16 | ~int32 | ~int64 | ~float32 | ~float64 | ~complex64 | ~complex128
}

// Ring is a fixed-capacity, overwrite-on-write circular buffer.
//
// Push overwrites the slot at the write cursor and advances it, so the
// buffer always holds the last Cap() pushed values. Ring is not safe for
// concurrent use.
type Ring[T Sample] struct {
	data   []T
	cursor int
}

// NewRing returns a zero-filled ring holding capacity samples.
func NewRing[T Sample](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	return &Ring[T]{data: make([]T, capacity)}, nil
}

// Cap returns the number of slots.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Cursor returns the physical slot the next Push writes to.
func (r *Ring[T]) Cursor() int {
	return r.cursor
}

// Push writes v at the cursor and advances the cursor by one.
func (r *Ring[T]) Push(v T) {
	r.data[r.cursor] = v
	r.cursor++
	if r.cursor == len(r.data) {
		r.cursor = 0
	}
}

// ExtendZero pushes n zero values. It reports false and leaves the ring
// untouched when n exceeds the capacity.
func (r *Ring[T]) ExtendZero(n int) bool {
	if n < 0 || n > len(r.data) {
		return false
	}

	var zero T
	for range n {
		r.Push(zero)
	}

	return true
}

// At returns the sample at age position i. i may be any integer; it is
// reduced modulo Cap().
func (r *Ring[T]) At(i int) T {
	return r.data[r.slot(i)]
}

// Set overwrites the sample at age position i.
func (r *Ring[T]) Set(i int, v T) {
	r.data[r.slot(i)] = v
}

// Add accumulates v into the sample at age position i.
func (r *Ring[T]) Add(i int, v T) {
	r.data[r.slot(i)] += v
}

// CopyTo writes the ring contents, oldest first, into dst and returns the
// number of samples copied.
func (r *Ring[T]) CopyTo(dst []T) int {
	n := copy(dst, r.data[r.cursor:])
	if n < len(dst) {
		n += copy(dst[n:], r.data[:r.cursor])
	}

	return n
}

// Reset zeroes every slot and rewinds the cursor.
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.cursor = 0
}

func (r *Ring[T]) slot(i int) int {
	size := len(r.data)

	i %= size
	if i < 0 {
		i += size
	}

	i += r.cursor
	if i >= size {
		i -= size
	}

	return i
}
