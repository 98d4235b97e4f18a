package containers

// Ring is a fixed-size circular sequence with a cursor. Unlike a queue
// nothing is ever enqueued or dequeued: the elements are allocated once and
// the cursor walks over them forever.
type Ring[T any] struct {
	data   []T
	size   int
	cursor int
}

// Create a new Ring over the given elements. The cursor starts before the
// first element, so the first Advance returns data[0].
func NewRing[T any](data []T) *Ring[T] {
	return &Ring[T]{
		data:   data,
		size:   len(data),
		cursor: len(data) - 1,
	}
}

// Advance moves the cursor to (cursor+1) mod size and returns that element.
func (r *Ring[T]) Advance() T {
	r.cursor = (r.cursor + 1) % r.size
	return r.data[r.cursor]
}

// Current returns the element under the cursor without moving it.
func (r *Ring[T]) Current() T {
	return r.data[r.cursor]
}

// Index returns the cursor position.
func (r *Ring[T]) Index() int {
	return r.cursor
}

func (r *Ring[T]) Len() int {
	return r.size
}

// At returns the i-th element, independent of the cursor.
func (r *Ring[T]) At(i int) T {
	return r.data[i]
}

// Each calls fn for every element in storage order.
func (r *Ring[T]) Each(fn func(i int, v T)) {
	for i, v := range r.data {
		fn(i, v)
	}
}
