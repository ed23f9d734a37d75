// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"code.hybscloud.com/atomix"
)

// Ring is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's read position, and vice versa,
// reducing cross-core cache line traffic.
//
// Positions are monotonic 64-bit counters; the cell for position p is
// p % (capacity+1). Capacity is exact: a Ring of capacity n holds at most n
// elements. A Ring of capacity 0 is permanently both empty and full.
//
// Push and Emplace are producer-only. Pop, PopInto and Peek are
// consumer-only. Both sides are wait-free.
//
// Memory: O(capacity) with no per-slot overhead
type Ring[T any] struct {
	_          noCopy
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	capacity   uint64
	size       uint64 // capacity + 1
	release    func([]T)
}

// NewRing creates a new Ring holding up to capacity elements.
//
// Panics if capacity < 0.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		panic("lfkit: capacity must be >= 0")
	}

	n := uint64(capacity)
	return &Ring[T]{
		buffer:   make([]T, n+1),
		capacity: n,
		size:     n + 1,
	}
}

// NewRingBuffer creates a Ring over a caller-supplied buffer.
//
// The Ring uses len(buf) cells and holds len(buf)-1 elements; an empty or
// single-cell buffer yields a Ring of capacity 0. The buffer is cleared on
// entry. release, if non-nil, receives the buffer back when the Ring is
// closed, even when buf is nil.
func NewRingBuffer[T any](buf []T, release func([]T)) *Ring[T] {
	clear(buf)
	n := uint64(0)
	if len(buf) > 0 {
		n = uint64(len(buf) - 1)
	}
	return &Ring[T]{
		buffer:   buf,
		capacity: n,
		size:     n + 1,
		release:  release,
	}
}

// Push copies *elem into the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *Ring[T]) Push(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.capacity {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.capacity {
			return ErrWouldBlock
		}
	}

	q.buffer[tail%q.size] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Emplace constructs an element in place (producer only).
//
// init receives the free cell, which holds the zero value, and fills it.
// The element becomes visible to the consumer after init returns. Returns
// the published cell, which the producer must not touch afterwards, or
// ErrWouldBlock if the queue is full.
func (q *Ring[T]) Emplace(init func(*T)) (*T, error) {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.capacity {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.capacity {
			return nil, ErrWouldBlock
		}
	}

	cell := &q.buffer[tail%q.size]
	if init != nil {
		init(cell)
	}
	q.tail.StoreRelease(tail + 1)
	return cell, nil
}

// Pop removes and returns the front element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Ring[T]) Pop() (T, error) {
	var elem T
	err := q.PopInto(&elem)
	return elem, err
}

// PopInto moves the front element into dst (consumer only).
// A nil dst discards the element. Returns ErrWouldBlock if the queue is
// empty, in which case dst is left untouched.
func (q *Ring[T]) PopInto(dst *T) error {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return ErrWouldBlock
		}
	}

	cell := &q.buffer[head%q.size]
	if dst != nil {
		*dst = *cell
	}
	var zero T
	*cell = zero
	q.head.StoreRelease(head + 1)
	return nil
}

// Peek returns the front element without removing it (consumer only).
// Returns nil if the queue is empty. The pointer is valid until the next
// Pop or PopInto.
func (q *Ring[T]) Peek() *T {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return nil
		}
	}
	return &q.buffer[head%q.size]
}

// Len returns the number of queued elements.
// With concurrent access the result is a snapshot.
func (q *Ring[T]) Len() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	n := tail - head
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Empty reports whether the queue holds no elements.
func (q *Ring[T]) Empty() bool {
	return q.Len() == 0
}

// Full reports whether the queue holds capacity elements.
func (q *Ring[T]) Full() bool {
	return uint64(q.Len()) >= q.capacity
}

// Cap returns the queue capacity.
func (q *Ring[T]) Cap() int {
	return int(q.capacity)
}

// Move transfers the buffer and contents to a new Ring and leaves q as an
// empty Ring of capacity 0. Must not run concurrently with any other
// operation on q.
func (q *Ring[T]) Move() *Ring[T] {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	m := &Ring[T]{
		buffer:     q.buffer,
		capacity:   q.capacity,
		size:       q.size,
		release:    q.release,
		cachedTail: tail,
		cachedHead: head,
	}
	m.head.StoreRelaxed(head)
	m.tail.StoreRelease(tail)
	q.reset()
	return m
}

// Close drops any remaining elements and hands the buffer to the release
// function, if one was supplied. Close is idempotent and must not run
// concurrently with any other operation on q.
func (q *Ring[T]) Close() {
	if q.buffer == nil && q.release == nil {
		return
	}
	var zero T
	for head, tail := q.head.LoadAcquire(), q.tail.LoadAcquire(); head < tail; head++ {
		q.buffer[head%q.size] = zero
	}
	buf, release := q.buffer, q.release
	q.reset()
	if release != nil {
		release(buf)
	}
}

func (q *Ring[T]) reset() {
	q.buffer = nil
	q.capacity = 0
	q.size = 1
	q.release = nil
	q.cachedHead = 0
	q.cachedTail = 0
	q.head.StoreRelaxed(0)
	q.tail.StoreRelease(0)
}
