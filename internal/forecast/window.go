package forecast

// window is a fixed-capacity FIFO over values of any type. Push appends and
// evicts the oldest entry once the capacity is exceeded. Reads hand out
// copies so callers cannot mutate the buffered contents.
type window[T any] struct {
	cap   int
	items []T
}

func newWindow[T any](capacity int) *window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &window[T]{cap: capacity, items: make([]T, 0, capacity)}
}

func (w *window[T]) Push(v T) {
	w.items = append(w.items, v)
	if len(w.items) > w.cap {
		copy(w.items, w.items[1:])
		w.items = w.items[:len(w.items)-1]
	}
}

func (w *window[T]) Len() int { return len(w.items) }

// All returns the buffered entries oldest first.
func (w *window[T]) All() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Recent returns up to k of the newest entries, oldest first.
func (w *window[T]) Recent(k int) []T {
	if k <= 0 || len(w.items) == 0 {
		return nil
	}
	if k > len(w.items) {
		k = len(w.items)
	}
	out := make([]T, k)
	copy(out, w.items[len(w.items)-k:])
	return out
}

// Last returns the newest entry, if any.
func (w *window[T]) Last() (T, bool) {
	var zero T
	if len(w.items) == 0 {
		return zero, false
	}
	return w.items[len(w.items)-1], true
}
