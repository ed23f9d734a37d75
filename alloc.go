// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Allocator supplies pool nodes in bulk.
//
// Allocate returns n fresh nodes, or nil when it cannot. Nodes are never
// handed out twice. Implementations must be safe for concurrent use.
type Allocator[T any] interface {
	Allocate(n int) []Node[T]
}

// Releaser is implemented by allocators that can drop their storage en
// masse. Pool.Close calls Release once all nodes have been returned.
type Releaser interface {
	Release()
}

// retainer is implemented by allocators that keep every node they hand out
// reachable until Release, so a pool need not track their blocks.
type retainer interface {
	retainsNodes()
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc[T any] func(n int) []Node[T]

// Allocate calls f(n).
func (f AllocatorFunc[T]) Allocate(n int) []Node[T] {
	return f(n)
}

// GrowthPolicy decides the size of the next chunk of a ChunkAllocator.
type GrowthPolicy uint8

const (
	// GrowDoubleTotal sizes each new chunk at twice the nodes reserved so
	// far, and never smaller than the previous chunk.
	GrowDoubleTotal GrowthPolicy = iota

	// GrowDoubleLast doubles the previous chunk size.
	GrowDoubleLast

	// GrowConstant keeps every chunk at the base size.
	GrowConstant
)

// String returns the policy name as used in configuration.
func (g GrowthPolicy) String() string {
	switch g {
	case GrowDoubleTotal:
		return "double-total"
	case GrowDoubleLast:
		return "double-last"
	case GrowConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// ParseGrowthPolicy parses a policy name produced by GrowthPolicy.String.
func ParseGrowthPolicy(s string) (GrowthPolicy, bool) {
	switch s {
	case "double-total", "":
		return GrowDoubleTotal, true
	case "double-last":
		return GrowDoubleLast, true
	case "constant":
		return GrowConstant, true
	default:
		return 0, false
	}
}

func (g GrowthPolicy) next(base, total, last int) int {
	if last == 0 {
		return base
	}
	switch g {
	case GrowDoubleTotal:
		return max(last, 2*total)
	case GrowDoubleLast:
		return 2 * last
	default:
		return base
	}
}

// ChunkAllocator carves nodes out of progressively allocated chunks.
//
// Requests bump an atomic cursor in the current chunk. When the chunk
// cannot satisfy a request, a new chunk sized by the growth policy is
// installed with a single CAS; losers of the race retry against the
// winner's chunk. Chunks are never freed individually, so node addresses
// stay stable until Release.
//
// ChunkAllocator is safe for concurrent use and lock-free.
type ChunkAllocator[T any] struct {
	_       pad
	current atomic.Pointer[chunk[T]]
	_       pad
	base    int
	limit   int // 0: unbounded
	policy  GrowthPolicy
}

type chunk[T any] struct {
	used  atomix.Uint64
	nodes []Node[T]
	total int       // nodes in this and all previous chunks
	prev  *chunk[T] // keeps earlier chunks reachable
}

// NewChunkAllocator creates a chunk allocator whose first chunk holds
// chunkSize nodes.
//
// Panics if chunkSize < 1.
func NewChunkAllocator[T any](chunkSize int, policy GrowthPolicy) *ChunkAllocator[T] {
	if chunkSize < 1 {
		panic("lfkit: chunk size must be >= 1")
	}
	return &ChunkAllocator[T]{base: chunkSize, policy: policy}
}

// Limit caps the total number of nodes the allocator will ever reserve.
// Zero means unbounded. Must be set before first use.
func (a *ChunkAllocator[T]) Limit(nodes int) *ChunkAllocator[T] {
	a.limit = nodes
	return a
}

// Allocate returns n nodes, or nil when n < 1 or the node limit would be
// exceeded.
func (a *ChunkAllocator[T]) Allocate(n int) []Node[T] {
	if n < 1 {
		return nil
	}
	want := uint64(n)
	sw := spin.Wait{}
	for {
		c := a.current.Load()
		if c != nil && c.used.LoadAcquire()+want <= uint64(len(c.nodes)) {
			end := c.used.AddAcqRel(want)
			if end <= uint64(len(c.nodes)) {
				return c.nodes[end-want : end : end]
			}
		}

		nc := a.grow(c, n)
		if nc == nil {
			if a.current.Load() != c {
				continue
			}
			return nil
		}
		if a.current.CompareAndSwap(c, nc) {
			return nc.nodes[:n:n]
		}
		sw.Once()
	}
}

// grow builds the successor of c with its first n nodes already reserved.
func (a *ChunkAllocator[T]) grow(c *chunk[T], n int) *chunk[T] {
	total, last := 0, 0
	if c != nil {
		total, last = c.total, len(c.nodes)
	}
	size := max(a.policy.next(a.base, total, last), n)
	if a.limit > 0 {
		if total+n > a.limit {
			return nil
		}
		size = min(size, a.limit-total)
	}
	nc := &chunk[T]{
		nodes: make([]Node[T], size),
		total: total + size,
		prev:  c,
	}
	nc.used.StoreRelaxed(uint64(n))
	return nc
}

// Reserved returns the number of nodes in all chunks so far.
func (a *ChunkAllocator[T]) Reserved() int {
	if c := a.current.Load(); c != nil {
		return c.total
	}
	return 0
}

// Chunks returns the number of chunks allocated so far.
func (a *ChunkAllocator[T]) Chunks() int {
	n := 0
	for c := a.current.Load(); c != nil; c = c.prev {
		n++
	}
	return n
}

func (a *ChunkAllocator[T]) retainsNodes() {}

// Release drops every chunk. Nodes handed out earlier must no longer be in
// use. The allocator may be reused afterwards.
func (a *ChunkAllocator[T]) Release() {
	a.current.Store(nil)
}

// FixedAllocator hands out nodes from a single preallocated block and
// fails once the block is used up.
type FixedAllocator[T any] struct {
	_     pad
	used  atomix.Uint64
	_     pad
	nodes []Node[T]
}

// NewFixedAllocator creates an allocator backed by one block of n nodes.
//
// Panics if n < 0.
func NewFixedAllocator[T any](n int) *FixedAllocator[T] {
	if n < 0 {
		panic("lfkit: fixed allocator size must be >= 0")
	}
	return &FixedAllocator[T]{nodes: make([]Node[T], n)}
}

// Allocate returns n nodes, or nil when fewer than n remain.
func (a *FixedAllocator[T]) Allocate(n int) []Node[T] {
	if n < 1 {
		return nil
	}
	want := uint64(n)
	sw := spin.Wait{}
	for {
		used := a.used.LoadAcquire()
		if used+want > uint64(len(a.nodes)) {
			return nil
		}
		if a.used.CompareAndSwapAcqRel(used, used+want) {
			return a.nodes[used : used+want : used+want]
		}
		sw.Once()
	}
}

// Remaining returns the number of nodes not yet handed out.
func (a *FixedAllocator[T]) Remaining() int {
	return len(a.nodes) - int(a.used.LoadAcquire())
}

func (a *FixedAllocator[T]) retainsNodes() {}

// Release drops the block. Later calls to Allocate return nil.
func (a *FixedAllocator[T]) Release() {
	a.nodes = nil
	a.used.StoreRelaxed(0)
}
