// Package batch provides a bounded accumulate-then-flush buffer used to group
// per-game events before handing them downstream.
package batch

import "sync"

// FlushFunc receives a full batch. The slice is owned by the callee.
type FlushFunc[T any] func(items []T)

// Buffer accumulates items and flushes them as a group once capacity is
// reached. Flush drains stragglers at end of run. Safe for concurrent use.
type Buffer[T any] struct {
	mu       sync.Mutex
	capacity int
	items    []T
	flush    FlushFunc[T]
}

// NewBuffer creates a buffer that auto-flushes every capacity items. A
// capacity below 1 is treated as 1 (every push flushes immediately).
func NewBuffer[T any](capacity int, flush FlushFunc[T]) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		capacity: capacity,
		items:    make([]T, 0, capacity),
		flush:    flush,
	}
}

// Push appends an item, flushing the batch if it reaches capacity.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	var full []T
	if len(b.items) >= b.capacity {
		full = b.items
		b.items = make([]T, 0, b.capacity)
	}
	b.mu.Unlock()

	if full != nil && b.flush != nil {
		b.flush(full)
	}
}

// Flush drains any buffered items regardless of capacity.
func (b *Buffer[T]) Flush() {
	b.mu.Lock()
	pending := b.items
	b.items = make([]T, 0, b.capacity)
	b.mu.Unlock()

	if len(pending) > 0 && b.flush != nil {
		b.flush(pending)
	}
}

// Len reports the number of items currently buffered.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
