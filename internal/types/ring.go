package types

// Ring is a fixed-capacity bounded buffer with oldest-first eviction.
// It replaces the ad hoc slice truncation the conversational history and
// sentiment history would otherwise do. Not safe for concurrent use; owners
// serialize access per session.
type Ring[T any] struct {
	items []T
	cap   int
}

// NewRing creates a ring with the given capacity. Capacity below 1 is
// clamped to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{cap: capacity}
}

// Push appends an item, evicting the oldest when full.
func (r *Ring[T]) Push(item T) {
	if len(r.items) == r.cap {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = item
		return
	}
	r.items = append(r.items, item)
}

// Items returns the buffered items oldest-first. The returned slice is a
// copy; mutating it does not affect the ring.
func (r *Ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent item, if any.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	return r.items[len(r.items)-1], true
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int { return len(r.items) }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return r.cap }
