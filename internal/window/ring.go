// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package window provides a bounded FIFO used for per-unit sample and score
// histories. Pushing into a full ring evicts the oldest entry.
package window

// Ring is a fixed-capacity FIFO. The zero value is unusable; use New.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// New creates a ring holding at most capacity entries. Capacities below 1
// are raised to 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// At returns the i-th entry, oldest first. It panics when i is out of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("window: index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the newest entry and false when the ring is empty.
func (r *Ring[T]) Last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.size - 1), true
}

// Tail returns a copy of the newest n entries, oldest first.
func (r *Ring[T]) Tail(n int) []T {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.size - n + i)
	}
	return out
}

// Values returns a copy of every entry, oldest first.
func (r *Ring[T]) Values() []T {
	return r.Tail(r.size)
}
