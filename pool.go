// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"fmt"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// DefaultChunkSize is the first chunk size of a pool's default allocator
// when the pool is created with no initial nodes.
const DefaultChunkSize = 64

// Pool is a lock-free object pool.
//
// Free nodes sit on a lock-free stack. Allocate pops one, falling back to
// the allocator when the stack is empty; Deallocate pushes the node back.
// Every node handed out by the allocator stays owned by the pool until
// Close, so node addresses and Handle values remain stable.
//
// All methods except Close are safe for concurrent use. Allocate and
// Deallocate are lock-free.
//
// AllocatedSize and FreeSize are advisory under concurrency, but always
// satisfy 0 <= FreeSize <= AllocatedSize.
type Pool[T any] struct {
	_         noCopy
	free      freeList[T]
	allocated atomix.Int64
	_         pad
	freeCount atomix.Int64
	_         pad
	closed    atomix.Bool
	blocks    atomic.Pointer[block[T]]
	alloc     Allocator[T]
	retained  bool // alloc keeps its nodes reachable itself
}

// block retains one allocator result for the lifetime of the pool when the
// allocator does not.
type block[T any] struct {
	nodes []Node[T]
	next  *block[T]
}

type poolConfig[T any] struct {
	alloc     Allocator[T]
	chunkSize int
	growth    GrowthPolicy
	limit     int
}

// PoolOption configures a Pool.
type PoolOption[T any] func(*poolConfig[T])

// WithAllocator makes the pool draw nodes from a.
// Chunk options are ignored when an allocator is supplied.
func WithAllocator[T any](a Allocator[T]) PoolOption[T] {
	return func(c *poolConfig[T]) {
		c.alloc = a
	}
}

// WithChunks configures the default ChunkAllocator.
func WithChunks[T any](chunkSize int, growth GrowthPolicy) PoolOption[T] {
	return func(c *poolConfig[T]) {
		c.chunkSize = chunkSize
		c.growth = growth
	}
}

// WithLimit caps the number of nodes the default allocator may reserve.
func WithLimit[T any](nodes int) PoolOption[T] {
	return func(c *poolConfig[T]) {
		c.limit = nodes
	}
}

// NewPool creates a pool and pre-warms it with initialAllocSize free nodes.
//
// Without WithAllocator the pool uses a ChunkAllocator whose first chunk
// holds max(initialAllocSize, DefaultChunkSize) nodes. Pre-warming stops
// early if the allocator runs out.
//
// Panics if initialAllocSize < 0.
func NewPool[T any](initialAllocSize int, opts ...PoolOption[T]) *Pool[T] {
	if initialAllocSize < 0 {
		panic("lfkit: initial size must be >= 0")
	}
	cfg := poolConfig[T]{chunkSize: max(initialAllocSize, DefaultChunkSize)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.alloc == nil {
		cfg.alloc = NewChunkAllocator[T](cfg.chunkSize, cfg.growth).Limit(cfg.limit)
	}

	_, retained := cfg.alloc.(retainer)
	p := &Pool[T]{alloc: cfg.alloc, retained: retained}
	p.prewarm(initialAllocSize)
	return p
}

func (p *Pool[T]) prewarm(n int) {
	if n == 0 {
		return
	}
	nodes := p.adopt(n)
	if nodes == nil {
		// Allocator cannot serve the whole batch; take what it can.
		for ; n > 0; n-- {
			one := p.adopt(1)
			if one == nil {
				return
			}
			p.release(&one[0])
		}
		return
	}
	for i := range nodes {
		p.release(&nodes[i])
	}
}

// adopt requests n nodes from the allocator, takes ownership of them and
// counts them as allocated.
func (p *Pool[T]) adopt(n int) []Node[T] {
	nodes := p.alloc.Allocate(n)
	if len(nodes) == 0 {
		return nil
	}
	for i := range nodes {
		if DebugEnabled {
			assert(nodes[i].owner == nil, "allocator returned a node owned by a pool")
		}
		nodes[i].owner = p
	}

	if !p.retained {
		b := &block[T]{nodes: nodes}
		sw := spin.Wait{}
		for {
			b.next = p.blocks.Load()
			if p.blocks.CompareAndSwap(b.next, b) {
				break
			}
			sw.Once()
		}
	}
	p.allocated.AddAcqRel(int64(len(nodes)))
	return nodes
}

// release puts a free node on the free list. The free count is raised
// before the push and lowered after a pop, so it never exceeds the number
// of nodes actually on the list plus in flight.
func (p *Pool[T]) release(n *Node[T]) {
	if DebugEnabled {
		assert(n.state.LoadAcquire()&nodeIssued == 0, "released node is still issued")
	}
	p.freeCount.AddAcqRel(1)
	p.free.push(n)
}

// Allocate takes a node from the pool.
//
// The value of a reused node holds whatever its previous user left in it;
// use Create for a freshly initialized value. Returns ErrExhausted when the
// free list is empty and the allocator cannot supply a node, or ErrClosed
// after Close.
func (p *Pool[T]) Allocate() (Handle[T], error) {
	if p.closed.LoadAcquire() {
		return Handle[T]{}, ErrClosed
	}
	if n := p.free.pop(); n != nil {
		p.freeCount.AddAcqRel(-1)
		return p.issue(n), nil
	}
	nodes := p.adopt(1)
	if nodes == nil {
		return Handle[T]{}, ErrExhausted
	}
	return p.issue(&nodes[0]), nil
}

func (p *Pool[T]) issue(n *Node[T]) Handle[T] {
	state := n.state.LoadAcquire()
	if DebugEnabled {
		assert(state&nodeIssued == 0, "free list yielded an issued node")
	}
	gen := state >> 1
	n.state.StoreRelease(issuedState(gen))
	return Handle[T]{node: n, gen: gen}
}

// Deallocate returns a node to the pool without touching its value.
//
// Returns ErrInvalidHandle for the zero Handle, ErrForeignHandle for a
// handle issued by another pool, and ErrDoubleFree when the handle was
// already returned, including when its node has since been reissued.
func (p *Pool[T]) Deallocate(h Handle[T]) error {
	if err := p.retire(h); err != nil {
		return err
	}
	p.release(h.node)
	return nil
}

func (p *Pool[T]) check(h Handle[T]) error {
	if h.node == nil {
		return ErrInvalidHandle
	}
	if h.node.owner != p {
		return ErrForeignHandle
	}
	return nil
}

// retire moves the node from h's issue to the next generation's free
// state. Exactly one caller per issue succeeds; the node then belongs to
// that caller until it is pushed onto the free list.
func (p *Pool[T]) retire(h Handle[T]) error {
	if err := p.check(h); err != nil {
		return err
	}
	if !h.node.state.CompareAndSwapAcqRel(issuedState(h.gen), freeState(h.gen+1)) {
		return ErrDoubleFree
	}
	return nil
}

// Create allocates a node, resets its value to the zero value and passes
// it to init, if non-nil.
func (p *Pool[T]) Create(init func(*T)) (Handle[T], error) {
	h, err := p.Allocate()
	if err != nil {
		return Handle[T]{}, err
	}
	v := h.Value()
	var zero T
	*v = zero
	if init != nil {
		init(v)
	}
	return h, nil
}

// Destroy resets the value to the zero value and returns the node to the
// pool. Destroying the zero Handle is a no-op. A stale handle yields
// ErrDoubleFree and leaves the node's current value untouched.
func (p *Pool[T]) Destroy(h Handle[T]) error {
	if !h.Valid() {
		return nil
	}
	if err := p.retire(h); err != nil {
		return err
	}
	var zero T
	h.node.value = zero
	p.release(h.node)
	return nil
}

// CreateUnique is Create returning a scope-owning Unique.
func (p *Pool[T]) CreateUnique(init func(*T)) (*Unique[T], error) {
	h, err := p.Create(init)
	if err != nil {
		return nil, err
	}
	return &Unique[T]{h: h, pool: p}, nil
}

// Scoped creates a value, runs fn on it and destroys it on every exit
// path, including a panic in fn. An error from fn takes precedence over
// an error from the destroy step.
func (p *Pool[T]) Scoped(init func(*T), fn func(*T) error) (err error) {
	u, err := p.CreateUnique(init)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := u.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(u.Value())
}

// AllocatedSize returns the number of nodes the pool has obtained from its
// allocator.
func (p *Pool[T]) AllocatedSize() int {
	return int(p.allocated.Load())
}

// FreeSize returns the number of nodes currently free.
func (p *Pool[T]) FreeSize() int {
	return int(p.freeCount.Load())
}

// InUse returns AllocatedSize minus FreeSize.
func (p *Pool[T]) InUse() int {
	return p.AllocatedSize() - p.FreeSize()
}

// Len returns InUse, so a Pool satisfies Sizer.
func (p *Pool[T]) Len() int { return p.InUse() }

// Cap returns AllocatedSize.
func (p *Pool[T]) Cap() int { return p.AllocatedSize() }

// Close tears the pool down and releases the allocator's storage.
//
// Every node must have been returned first. Otherwise Close wraps
// ErrLeak with the counts and leaves the pool intact; debug builds panic
// instead. Close is idempotent and must not run concurrently with other
// methods. Allocate returns ErrClosed afterwards.
func (p *Pool[T]) Close() error {
	if p.closed.LoadAcquire() {
		return nil
	}
	allocated, free := p.allocated.Load(), p.freeCount.Load()
	if allocated != free {
		assert(false, "pool closed with outstanding nodes")
		return fmt.Errorf("%w: allocated=%d free=%d", ErrLeak, allocated, free)
	}

	p.closed.StoreRelease(true)
	p.free.reset()
	p.blocks.Store(nil)
	p.allocated.StoreRelaxed(0)
	p.freeCount.StoreRelaxed(0)
	if r, ok := p.alloc.(Releaser); ok {
		r.Release()
	}
	return nil
}
