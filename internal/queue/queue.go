package queue

import "sync"

// Queue is an insertion-ordered FIFO buffer. It carries no capacity bound of its
// own; the dispatchers bound how much they drain per batch. Safe for use from
// multiple goroutines.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends an item at the tail. It never fails.
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Dequeue removes and returns the oldest item. The second return value is false
// when the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued items. Administrative reset only, not used on the hot path.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// TakeBatch removes up to limit items from the head and returns them in enqueue
// order. Items enqueued after the batch is taken stay queued for the next one.
func (q *Queue[T]) TakeBatch(limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := limit
	if n > len(q.items) {
		n = len(q.items)
	}
	if n <= 0 {
		return nil
	}
	batch := make([]T, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch
}
