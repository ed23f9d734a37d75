// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Push/Emplace: the queue is full (backpressure)
// For Pop/PopInto: the queue is empty (no data available)
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry the operation later (with backoff or yield) rather than propagating
// the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Push(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if lfkit.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// Pool errors.
var (
	// ErrExhausted is returned when the pool's bulk allocator cannot
	// provide another node.
	ErrExhausted = errors.New("lfkit: pool exhausted")

	// ErrInvalidHandle is returned for the zero Handle.
	ErrInvalidHandle = errors.New("lfkit: invalid handle")

	// ErrForeignHandle is returned when a handle is given back to a pool
	// that did not issue it.
	ErrForeignHandle = errors.New("lfkit: handle issued by another pool")

	// ErrDoubleFree is returned when a handle is given back twice.
	ErrDoubleFree = errors.New("lfkit: handle already released")

	// ErrLeak is returned by Pool.Close while issued nodes are outstanding.
	ErrLeak = errors.New("lfkit: pool has outstanding nodes")

	// ErrClosed is returned when allocating from a closed pool.
	ErrClosed = errors.New("lfkit: pool closed")
)

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
