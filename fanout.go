// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Fanout is a CAS-based single-producer multi-consumer bounded queue.
//
// The single producer writes sequentially. Consumers use CAS on the shared
// read position to claim slots. Each slot carries an occupancy flag: the
// producer sets it after writing the element, and the claiming consumer
// clears it after moving the element out. The producer treats the queue as
// full while the slot after its write position is still occupied, so a
// Fanout of capacity n uses n+1 slots and holds at most n elements.
//
// Push and Emplace are producer-only and wait-free. Pop, PopInto and Clear
// are safe for any number of consumers and lock-free.
//
// Memory: capacity+1 slots, one cache line per slot
type Fanout[T any] struct {
	_        noCopy
	_        pad
	begin    atomix.Uint64 // Consumers CAS here
	_        pad
	end      atomix.Uint64 // Producer writes here
	_        pad
	buffer   []fanoutSlot[T]
	capacity uint64
	size     uint64 // capacity + 1
}

type fanoutSlot[T any] struct {
	full atomix.Bool
	data T
	_    padShort // Pad to cache line
}

// NewFanout creates a new Fanout holding up to capacity elements.
//
// Panics if capacity < 1.
func NewFanout[T any](capacity int) *Fanout[T] {
	if capacity < 1 {
		panic("lfkit: capacity must be >= 1")
	}

	n := uint64(capacity)
	return &Fanout[T]{
		buffer:   make([]fanoutSlot[T], n+1),
		capacity: n,
		size:     n + 1,
	}
}

// Push copies *elem into the queue (single producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *Fanout[T]) Push(elem *T) error {
	end := q.end.LoadRelaxed()
	if q.buffer[(end+1)%q.size].full.LoadAcquire() {
		return ErrWouldBlock
	}

	slot := &q.buffer[end%q.size]
	if DebugEnabled {
		assert(!slot.full.LoadAcquire(), "fanout: write slot still occupied")
	}
	slot.data = *elem
	slot.full.StoreRelease(true)
	q.end.StoreRelease(end + 1)
	return nil
}

// Emplace constructs an element in place (single producer only).
//
// init receives the free slot, which holds the zero value, and fills it.
// The element becomes visible to consumers after init returns. Returns
// ErrWouldBlock if the queue is full.
func (q *Fanout[T]) Emplace(init func(*T)) error {
	end := q.end.LoadRelaxed()
	if q.buffer[(end+1)%q.size].full.LoadAcquire() {
		return ErrWouldBlock
	}

	slot := &q.buffer[end%q.size]
	if DebugEnabled {
		assert(!slot.full.LoadAcquire(), "fanout: write slot still occupied")
	}
	if init != nil {
		init(&slot.data)
	}
	slot.full.StoreRelease(true)
	q.end.StoreRelease(end + 1)
	return nil
}

// Pop removes and returns the front element (multiple consumers safe).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Fanout[T]) Pop() (T, error) {
	var elem T
	err := q.PopInto(&elem)
	return elem, err
}

// PopInto moves the front element into dst (multiple consumers safe).
// A nil dst discards the element. Returns ErrWouldBlock if the queue is
// empty, in which case dst is left untouched.
func (q *Fanout[T]) PopInto(dst *T) error {
	sw := spin.Wait{}
	for {
		begin := q.begin.LoadAcquire()
		if begin >= q.end.LoadAcquire() {
			return ErrWouldBlock
		}
		if q.begin.CompareAndSwapAcqRel(begin, begin+1) {
			q.take(begin, dst)
			return nil
		}
		sw.Once()
	}
}

// take moves the element at a claimed position out and frees its slot.
// The flag was published before end advanced past pos, so it is set.
func (q *Fanout[T]) take(pos uint64, dst *T) {
	slot := &q.buffer[pos%q.size]
	if DebugEnabled {
		assert(slot.full.LoadAcquire(), "fanout: claimed slot not published")
	}
	if dst != nil {
		*dst = slot.data
	}
	var zero T
	slot.data = zero
	slot.full.StoreRelease(false)
}

// Clear pops and discards every element currently visible and returns how
// many were removed (multiple consumers safe).
func (q *Fanout[T]) Clear() int {
	n := 0
	for q.PopInto(nil) == nil {
		n++
	}
	return n
}

// Len returns the number of queued elements.
// With concurrent access the result is a snapshot.
func (q *Fanout[T]) Len() int {
	begin := q.begin.LoadAcquire()
	end := q.end.LoadAcquire()
	if end <= begin {
		return 0
	}
	n := end - begin
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Empty reports whether no element is available to consumers.
func (q *Fanout[T]) Empty() bool {
	return q.Len() == 0
}

// Full reports whether the queue holds capacity elements.
func (q *Fanout[T]) Full() bool {
	return uint64(q.Len()) >= q.capacity
}

// Cap returns the queue capacity.
func (q *Fanout[T]) Cap() int {
	return int(q.capacity)
}
