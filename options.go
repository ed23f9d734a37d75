// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

// Options configures queue creation and algorithm selection.
type Options struct {
	// Consumer constraint (determines queue type)
	singleConsumer bool

	// Exact capacity, no rounding
	capacity int
}

// Builder creates queues with fluent configuration.
//
// Every queue in this package admits exactly one producer goroutine. The
// builder selects the algorithm from the declared consumer constraint.
//
// Example:
//
//	// Ring (one producer, one consumer)
//	q := lfkit.BuildRing[Event](lfkit.New(1024).SingleConsumer())
//
//	// Fanout (one producer, many consumers)
//	q := lfkit.BuildFanout[Task](lfkit.New(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity is exact: a queue built with capacity 3 accepts exactly three
// elements before Push returns ErrWouldBlock.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("lfkit: capacity must be >= 1")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleConsumer declares that only one goroutine will pop.
// Selects the wait-free Ring.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleConsumer → Ring (wait-free SPSC)
//	default        → Fanout (lock-free SPMC)
//
// For concrete return types, use BuildRing[T](b) or BuildFanout[T](b).
func Build[T any](b *Builder) Queue[T] {
	if b.opts.singleConsumer {
		return NewRing[T](b.opts.capacity)
	}
	return NewFanout[T](b.opts.capacity)
}

// BuildRing creates a Ring with compile-time type safety.
// Panics if builder is not configured with SingleConsumer().
func BuildRing[T any](b *Builder) *Ring[T] {
	if !b.opts.singleConsumer {
		panic("lfkit: BuildRing requires SingleConsumer()")
	}
	return NewRing[T](b.opts.capacity)
}

// BuildFanout creates a Fanout with compile-time type safety.
// Panics if builder is configured with SingleConsumer().
func BuildFanout[T any](b *Builder) *Fanout[T] {
	if b.opts.singleConsumer {
		panic("lfkit: BuildFanout requires no SingleConsumer()")
	}
	return NewFanout[T](b.opts.capacity)
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// noCopy marks a type that must not be copied after first use.
// go vet's copylocks check reports copies of structs containing it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
