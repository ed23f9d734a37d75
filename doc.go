// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfkit provides lock-free building blocks for low-latency
// pipelines: two bounded FIFO queues and an object pool.
//
//   - Ring: Single-Producer Single-Consumer queue (wait-free)
//   - Fanout: Single-Producer Multi-Consumer queue (lock-free consumers)
//   - Pool: object pool over a lock-free free list and a chunked allocator
//
// # Quick Start
//
// Direct constructors:
//
//	q := lfkit.NewRing[Event](1024)
//	w := lfkit.NewFanout[Task](4096)
//	p := lfkit.NewPool[Buffer](256)
//
// Builder API selects the queue from the consumer constraint:
//
//	q := lfkit.Build[Event](lfkit.New(1024).SingleConsumer())  // → Ring
//	q := lfkit.Build[Event](lfkit.New(1024))                   // → Fanout
//
// # Basic Usage
//
// Both queues share the same interface for pushing and popping:
//
//	q := lfkit.NewRing[int](1024)
//
//	// Push (non-blocking)
//	value := 42
//	err := q.Push(&value)
//	if lfkit.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Pop (non-blocking)
//	elem, err := q.Pop()
//	if lfkit.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// Emplace constructs the element directly in the queue's cell:
//
//	q.Emplace(func(e *Event) {
//	    e.ID = id
//	    e.Payload = append(e.Payload[:0], data...)
//	})
//
// # Common Patterns
//
// Pipeline Stage (Ring):
//
//	q := lfkit.NewRing[Data](1024)
//
//	go func() { // Producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Push(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Pop()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Work Distribution (Fanout):
//
//	q := lfkit.NewFanout[Task](1024)
//
//	// Multiple consumers (workers)
//	for range numWorkers {
//	    go func() {
//	        for {
//	            task, err := q.Pop()
//	            if err == nil {
//	                task.Execute()
//	            }
//	        }
//	    }()
//	}
//
// Object Reuse (Pool):
//
//	p := lfkit.NewPool[Frame](64)
//
//	h, err := p.Create(func(f *Frame) { f.Seq = seq })
//	if err != nil {
//	    return err
//	}
//	send(h.Value())
//	p.Destroy(h)
//
//	// Or let the pool clean up on every exit path
//	err = p.Scoped(nil, func(f *Frame) error {
//	    return decode(f, packet)
//	})
//
// # Capacity and Length
//
// Capacity is exact. A queue of capacity n holds at most n elements; it
// keeps n+1 cells internally so that full and empty are distinguishable
// without a shared counter.
//
//	q := lfkit.NewRing[int](3)  // Push succeeds 3 times, then ErrWouldBlock
//
// A Ring of capacity 0 is valid and permanently both empty and full. A
// Fanout requires capacity >= 1.
//
// Len, Empty and Full are snapshots. With concurrent producers and
// consumers they are advisory only.
//
// # Pools and Allocators
//
// A Pool draws nodes from an [Allocator] in bulk and keeps every node until
// Close. Deallocated nodes go onto a lock-free stack whose head carries a
// version counter, so a node popped and pushed back between another
// goroutine's read and CAS cannot corrupt the list.
//
// The default allocator is a [ChunkAllocator] with [GrowDoubleTotal].
// [FixedAllocator] serves a single preallocated block and makes the pool
// fail with [ErrExhausted] once it is used up:
//
//	p := lfkit.NewPool[Conn](0, lfkit.WithAllocator[Conn](lfkit.NewFixedAllocator[Conn](128)))
//
// Handles are checked on return: the zero Handle, a handle from another
// pool and a second return of the same handle each yield their own error.
// Each handle carries the generation of the issue it came from, so a copy
// kept past its return is rejected with [ErrDoubleFree] even after the
// node has gone to a new owner.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Push(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfkit.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfkit.IsWouldBlock(err)  // true if queue full/empty
//	lfkit.IsSemantic(err)    // true if control flow signal
//	lfkit.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// Pool errors are plain sentinels for use with errors.Is.
//
// # Thread Safety
//
//   - Ring: one producer goroutine, one consumer goroutine
//   - Fanout: one producer goroutine, multiple consumer goroutines
//   - Pool: any number of goroutines, except Close
//
// Violating these constraints (e.g., two producers on a Ring) causes
// undefined behavior including data corruption and races.
//
// # Debug Builds
//
// Building with -tags lfkit_debug turns on internal invariant checks. A
// Pool closed with outstanding nodes panics instead of returning
// [ErrLeak].
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through acquire-release atomics on separate variables. The
// queues protect plain element cells with such atomics, so the detector may
// report false positives. Tests incompatible with race detection are
// excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lfkit
