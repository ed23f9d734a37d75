// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

// Queue is the combined producer-consumer interface for a bounded FIFO queue.
//
// Queue provides non-blocking Push and Pop operations. Both operations
// return ErrWouldBlock when they cannot proceed (queue full or empty).
//
// Len, Empty and Full are advisory snapshots: with a concurrent producer or
// consumer they may be stale by the time the caller acts on them. Push and
// Pop never rely on them.
//
// Example:
//
//	q := lfkit.NewRing[int](1024)
//
//	// Push
//	val := 42
//	if err := q.Push(&val); err != nil {
//	    // Handle full queue
//	}
//
//	// Pop
//	elem, err := q.Pop()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Sizer
	Empty() bool
	Full() bool
}

// Producer is the interface for pushing elements.
//
// The element is passed by pointer to avoid copying large structs. The queue
// stores a copy of the pointed-to value, so the original can be modified
// after Push returns.
type Producer[T any] interface {
	// Push adds an element to the queue (non-blocking).
	// Returns nil on success, ErrWouldBlock if the queue is full.
	//
	// Every queue in this package admits a single producer goroutine.
	Push(elem *T) error
}

// Consumer is the interface for popping elements.
//
// The element is moved out of the queue's internal buffer and the slot is
// cleared, so the queue keeps no reference to popped values.
type Consumer[T any] interface {
	// Pop removes and returns the front element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// Thread safety depends on queue type:
	//   - Ring: single consumer only
	//   - Fanout: multiple consumers safe
	Pop() (T, error)

	// PopInto removes the front element and moves it into dst.
	// A nil dst discards the element.
	PopInto(dst *T) error
}

// Sizer reports occupancy and capacity.
type Sizer interface {
	Len() int
	Cap() int
}
