// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import "code.hybscloud.com/atomix"

// A node's state word packs a generation counter above an issued bit. The
// generation advances on every return, so a handle from an earlier issue
// can never match the state of a later one.
const nodeIssued uint64 = 1

func issuedState(gen uint64) uint64 { return gen<<1 | nodeIssued }
func freeState(gen uint64) uint64   { return gen << 1 }

// Node is a pool storage cell: one value plus the free-list link.
//
// Nodes are produced in bulk by an Allocator and owned by a Pool from then
// on. Callers never touch a Node directly; they hold a Handle.
type Node[T any] struct {
	value T
	next  atomix.Uint64 // free-list link (node address)
	state atomix.Uint64 // generation<<1 | issued
	owner *Pool[T]
}

// Handle refers to a node issued by a Pool.
//
// The zero Handle is invalid. Handles are comparable; two handles are equal
// when they refer to the same issue of the same node. A handle kept past
// its return is stale: the pool rejects it with ErrDoubleFree even after
// the node has been issued again.
type Handle[T any] struct {
	node *Node[T]
	gen  uint64
}

// Valid reports whether h refers to a node.
func (h Handle[T]) Valid() bool {
	return h.node != nil
}

// Value returns a pointer to the node's value, or nil for the zero Handle.
// The pointer must not be used after the handle is returned to its pool.
func (h Handle[T]) Value() *T {
	if h.node == nil {
		return nil
	}
	return &h.node.value
}

// Unique is a scope-owning handle: Release destroys the value and returns
// its node to the pool. A Unique is not safe for concurrent use.
type Unique[T any] struct {
	h    Handle[T]
	pool *Pool[T]
}

// Value returns the owned value, or nil once released or detached.
func (u *Unique[T]) Value() *T {
	return u.h.Value()
}

// Handle returns the owned handle without giving up ownership.
func (u *Unique[T]) Handle() Handle[T] {
	return u.h
}

// Release destroys the owned value. Release is idempotent.
func (u *Unique[T]) Release() error {
	if !u.h.Valid() {
		return nil
	}
	h := u.h
	u.h = Handle[T]{}
	return u.pool.Destroy(h)
}

// Detach gives up ownership and returns the handle. The caller becomes
// responsible for destroying it; later Release calls do nothing.
func (u *Unique[T]) Detach() Handle[T] {
	h := u.h
	u.h = Handle[T]{}
	return h
}
