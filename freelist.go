// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// freeList is a lock-free LIFO stack of pool nodes.
//
// The head is a 128-bit word: lo holds the address of the top node, hi a
// version counter bumped on every successful push and pop. A pop that read
// a stale top fails its CAS even when the same node was popped and pushed
// back in between (ABA).
//
// Addresses stored in the list do not keep nodes alive; the owning pool
// retains every node block until it is closed.
type freeList[T any] struct {
	_    pad
	head atomix.Uint128 // lo=node address, hi=version
	_    pad
}

func (l *freeList[T]) push(n *Node[T]) {
	addr := nodeAddr(n)
	sw := spin.Wait{}
	for {
		top, ver := l.head.LoadAcquire()
		n.next.StoreRelaxed(top)
		if l.head.CompareAndSwapAcqRel(top, ver, addr, ver+1) {
			return
		}
		sw.Once()
	}
}

func (l *freeList[T]) pop() *Node[T] {
	sw := spin.Wait{}
	for {
		top, ver := l.head.LoadAcquire()
		if top == 0 {
			return nil
		}
		n := nodeAt[T](top)
		next := n.next.LoadRelaxed()
		if l.head.CompareAndSwapAcqRel(top, ver, next, ver+1) {
			n.next.StoreRelaxed(0)
			return n
		}
		sw.Once()
	}
}

// reset empties the list. Not safe with concurrent push or pop.
func (l *freeList[T]) reset() {
	_, ver := l.head.LoadAcquire()
	l.head.StoreRelaxed(0, ver+1)
}

func nodeAddr[T any](n *Node[T]) uint64 {
	return uint64(uintptr(unsafe.Pointer(n)))
}

func nodeAt[T any](addr uint64) *Node[T] {
	// Valid only while the owning pool retains the node's block.
	return *(**Node[T])(unsafe.Pointer(&addr))
}
