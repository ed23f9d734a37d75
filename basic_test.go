// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/lfkit"
)

// =============================================================================
// Ring - Basic Operations
// =============================================================================

// TestRingBasic tests basic Ring (Single Producer, Single Consumer) operations.
// Ring provides wait-free operations for both push and pop.
func TestRingBasic(t *testing.T) {
	q := lfkit.NewRing[int](3)

	if q.Cap() != 3 {
		t.Fatalf("Cap: got %d, want 3", q.Cap())
	}

	// Push to capacity
	for i := range 3 {
		v := i + 100
		if err := q.Push(&v); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}

	// Full queue returns ErrWouldBlock
	v := 999
	if err := q.Push(&v); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Push on full: got %v, want ErrWouldBlock", err)
	}
	if !q.Full() {
		t.Fatalf("Full: got false, want true")
	}

	// Pop in FIFO order
	for i := range 3 {
		val, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Pop(%d): got %d, want %d", i, val, i+100)
		}
	}

	// Empty queue returns ErrWouldBlock
	if _, err := q.Pop(); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}
	if !q.Empty() {
		t.Fatalf("Empty: got false, want true")
	}
}

// TestRingCapacityTwoScenario walks a capacity-2 ring through fill, drain
// and wrap-around.
func TestRingCapacityTwoScenario(t *testing.T) {
	q := lfkit.NewRing[int](2)

	for _, v := range []int{1, 2} {
		if err := q.Push(&v); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
	three := 3
	if err := q.Push(&three); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Push(3) on full: got %v, want ErrWouldBlock", err)
	}
	if got := q.Len(); got != 2 {
		t.Fatalf("Len: got %d, want 2", got)
	}

	if v, err := q.Pop(); err != nil || v != 1 {
		t.Fatalf("Pop: got (%d, %v), want (1, nil)", v, err)
	}
	if err := q.Push(&three); err != nil {
		t.Fatalf("Push(3) after pop: %v", err)
	}
	for _, want := range []int{2, 3} {
		if v, err := q.Pop(); err != nil || v != want {
			t.Fatalf("Pop: got (%d, %v), want (%d, nil)", v, err, want)
		}
	}
	if _, err := q.Pop(); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestRingZeroCapacity verifies that a capacity-0 ring is permanently
// both empty and full.
func TestRingZeroCapacity(t *testing.T) {
	q := lfkit.NewRing[int](0)

	if !q.Empty() || !q.Full() {
		t.Fatalf("Empty/Full: got %v/%v, want true/true", q.Empty(), q.Full())
	}
	v := 1
	if err := q.Push(&v); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Push: got %v, want ErrWouldBlock", err)
	}
	if _, err := q.Emplace(nil); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Emplace: got %v, want ErrWouldBlock", err)
	}
	if _, err := q.Pop(); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Pop: got %v, want ErrWouldBlock", err)
	}
	if q.Peek() != nil {
		t.Fatalf("Peek: got non-nil, want nil")
	}
}

// TestRingWrapAround cycles many more elements than the capacity through
// the ring to exercise index wrap-around.
func TestRingWrapAround(t *testing.T) {
	q := lfkit.NewRing[int](5)

	next := 0
	want := 0
	for round := range 100 {
		n := round%5 + 1
		for range n {
			v := next
			if err := q.Push(&v); err != nil {
				t.Fatalf("round %d: Push(%d): %v", round, v, err)
			}
			next++
		}
		for range n {
			v, err := q.Pop()
			if err != nil {
				t.Fatalf("round %d: Pop: %v", round, err)
			}
			if v != want {
				t.Fatalf("round %d: Pop: got %d, want %d", round, v, want)
			}
			want++
		}
	}
}

// TestRingEmplacePeek tests in-place construction and non-destructive reads.
func TestRingEmplacePeek(t *testing.T) {
	type event struct {
		id   int
		tags []string
	}
	q := lfkit.NewRing[event](2)

	cell, err := q.Emplace(func(e *event) {
		if e.id != 0 || e.tags != nil {
			t.Errorf("Emplace: cell not zeroed: %+v", *e)
		}
		e.id = 7
		e.tags = append(e.tags, "a")
	})
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	if cell.id != 7 {
		t.Fatalf("Emplace cell: got id %d, want 7", cell.id)
	}

	p := q.Peek()
	if p == nil || p.id != 7 || len(p.tags) != 1 {
		t.Fatalf("Peek: got %+v, want id 7 with one tag", p)
	}
	if q.Len() != 1 {
		t.Fatalf("Len after Peek: got %d, want 1", q.Len())
	}

	var out event
	if err := q.PopInto(&out); err != nil {
		t.Fatalf("PopInto: %v", err)
	}
	if out.id != 7 || out.tags[0] != "a" {
		t.Fatalf("PopInto: got %+v", out)
	}

	// The vacated cell is cleared; the next Emplace into it sees zero.
	for range 2 {
		if _, err := q.Emplace(func(e *event) {
			if e.tags != nil {
				t.Errorf("Emplace: stale tags %v", e.tags)
			}
		}); err != nil {
			t.Fatalf("Emplace: %v", err)
		}
		if err := q.PopInto(nil); err != nil {
			t.Fatalf("PopInto(nil): %v", err)
		}
	}
}

// TestRingPopIntoEmpty verifies dst is untouched when the ring is empty.
func TestRingPopIntoEmpty(t *testing.T) {
	q := lfkit.NewRing[int](1)
	dst := 42
	if err := q.PopInto(&dst); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("PopInto: got %v, want ErrWouldBlock", err)
	}
	if dst != 42 {
		t.Fatalf("dst: got %d, want 42", dst)
	}
}

// TestRingMove transfers contents and leaves the source empty.
func TestRingMove(t *testing.T) {
	src := lfkit.NewRing[int](4)
	for i := range 3 {
		v := i
		src.Push(&v)
	}
	src.Pop() // advance head so the moved ring starts mid-buffer

	dst := src.Move()

	if src.Cap() != 0 || !src.Empty() {
		t.Fatalf("source after Move: Cap=%d Empty=%v, want 0/true", src.Cap(), src.Empty())
	}
	v := 9
	if err := src.Push(&v); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("source Push after Move: got %v, want ErrWouldBlock", err)
	}

	if dst.Cap() != 4 || dst.Len() != 2 {
		t.Fatalf("moved ring: Cap=%d Len=%d, want 4/2", dst.Cap(), dst.Len())
	}
	for _, v := range []int{5, 6} {
		if err := dst.Push(&v); err != nil {
			t.Fatalf("moved ring Push(%d): %v", v, err)
		}
	}
	for _, want := range []int{1, 2, 5, 6} {
		got, err := dst.Pop()
		if err != nil || got != want {
			t.Fatalf("moved ring Pop: got (%d, %v), want (%d, nil)", got, err, want)
		}
	}
}

// TestRingBufferRelease tests caller-supplied storage and the release hook.
func TestRingBufferRelease(t *testing.T) {
	buf := make([]*int, 4)
	junk := 1
	buf[2] = &junk

	var released []*int
	calls := 0
	q := lfkit.NewRingBuffer(buf, func(b []*int) {
		released = b
		calls++
	})

	if q.Cap() != 3 {
		t.Fatalf("Cap: got %d, want 3", q.Cap())
	}
	if buf[2] != nil {
		t.Fatalf("NewRingBuffer did not clear the buffer")
	}

	for range 3 {
		x := 5
		p := &x
		if err := q.Push(&p); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	q.Close()
	q.Close()

	if calls != 1 {
		t.Fatalf("release calls: got %d, want 1", calls)
	}
	if len(released) != 4 {
		t.Fatalf("released buffer: got len %d, want 4", len(released))
	}
	for i, p := range released {
		if p != nil {
			t.Fatalf("released[%d]: element not dropped", i)
		}
	}
	if q.Cap() != 0 {
		t.Fatalf("Cap after Close: got %d, want 0", q.Cap())
	}
}

// TestRingBufferNilRelease verifies that a nil buffer still reaches the
// release hook, exactly once.
func TestRingBufferNilRelease(t *testing.T) {
	calls := 0
	q := lfkit.NewRingBuffer[int](nil, func(b []int) {
		if b != nil {
			t.Errorf("release: got %v, want nil buffer", b)
		}
		calls++
	})
	if q.Cap() != 0 {
		t.Fatalf("Cap: got %d, want 0", q.Cap())
	}
	q.Close()
	q.Close()
	if calls != 1 {
		t.Fatalf("release calls: got %d, want 1", calls)
	}
}

// TestRingBufferTiny verifies that empty and single-cell buffers give a
// capacity-0 ring.
func TestRingBufferTiny(t *testing.T) {
	for _, n := range []int{0, 1} {
		q := lfkit.NewRingBuffer(make([]int, n), nil)
		if q.Cap() != 0 {
			t.Fatalf("len %d: Cap: got %d, want 0", n, q.Cap())
		}
		v := 1
		if err := q.Push(&v); !errors.Is(err, lfkit.ErrWouldBlock) {
			t.Fatalf("len %d: Push: got %v, want ErrWouldBlock", n, err)
		}
		q.Close()
	}
}

// TestRingNegativeCapacityPanics tests the constructor guard.
func TestRingNegativeCapacityPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("NewRing(-1): expected panic")
		}
	}()
	lfkit.NewRing[int](-1)
}

// =============================================================================
// Fanout - Basic Operations
// =============================================================================

// TestFanoutBasic tests basic Fanout (Single Producer, Multiple Consumer) operations.
// Fanout provides wait-free push and lock-free pop.
func TestFanoutBasic(t *testing.T) {
	q := lfkit.NewFanout[int](3)

	if q.Cap() != 3 {
		t.Fatalf("Cap: got %d, want 3", q.Cap())
	}

	for i := range 3 {
		v := i + 100
		if err := q.Push(&v); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}

	v := 999
	if err := q.Push(&v); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Push on full: got %v, want ErrWouldBlock", err)
	}
	if !q.Full() || q.Len() != 3 {
		t.Fatalf("Full/Len: got %v/%d, want true/3", q.Full(), q.Len())
	}

	for i := range 3 {
		val, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Pop(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Pop(); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestFanoutCapacityOne tests the smallest fanout queue.
func TestFanoutCapacityOne(t *testing.T) {
	q := lfkit.NewFanout[string](1)

	for round := range 10 {
		s := "x"
		if err := q.Push(&s); err != nil {
			t.Fatalf("round %d: Push: %v", round, err)
		}
		if err := q.Push(&s); !errors.Is(err, lfkit.ErrWouldBlock) {
			t.Fatalf("round %d: second Push: got %v, want ErrWouldBlock", round, err)
		}
		var out string
		if err := q.PopInto(&out); err != nil || out != "x" {
			t.Fatalf("round %d: PopInto: got (%q, %v)", round, out, err)
		}
	}
}

// TestFanoutEmplaceClear tests in-place construction and Clear.
func TestFanoutEmplaceClear(t *testing.T) {
	q := lfkit.NewFanout[[]byte](4)

	for i := range 4 {
		err := q.Emplace(func(b *[]byte) {
			if *b != nil {
				t.Errorf("Emplace(%d): slot not zeroed", i)
			}
			*b = []byte{byte(i)}
		})
		if err != nil {
			t.Fatalf("Emplace(%d): %v", i, err)
		}
	}
	if err := q.Emplace(nil); !errors.Is(err, lfkit.ErrWouldBlock) {
		t.Fatalf("Emplace on full: got %v, want ErrWouldBlock", err)
	}

	b, err := q.Pop()
	if err != nil || b[0] != 0 {
		t.Fatalf("Pop: got (%v, %v), want ([0], nil)", b, err)
	}

	if n := q.Clear(); n != 3 {
		t.Fatalf("Clear: got %d, want 3", n)
	}
	if !q.Empty() {
		t.Fatalf("Empty after Clear: got false")
	}
	if n := q.Clear(); n != 0 {
		t.Fatalf("Clear on empty: got %d, want 0", n)
	}

	// Cleared slots are reusable
	for i := range 4 {
		if err := q.Emplace(func(b *[]byte) {
			if *b != nil {
				t.Errorf("Emplace after Clear(%d): slot not zeroed", i)
			}
		}); err != nil {
			t.Fatalf("Emplace after Clear(%d): %v", i, err)
		}
	}
}

// TestFanoutZeroCapacityPanics tests the constructor guard.
func TestFanoutZeroCapacityPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("NewFanout(0): expected panic")
		}
	}()
	lfkit.NewFanout[int](0)
}

// =============================================================================
// Builder
// =============================================================================

func TestBuilderSelection(t *testing.T) {
	q := lfkit.Build[int](lfkit.New(8).SingleConsumer())
	if _, ok := q.(*lfkit.Ring[int]); !ok {
		t.Fatalf("Build with SingleConsumer: got %T, want *Ring[int]", q)
	}
	if q.Cap() != 8 {
		t.Fatalf("Cap: got %d, want 8", q.Cap())
	}

	q = lfkit.Build[int](lfkit.New(8))
	if _, ok := q.(*lfkit.Fanout[int]); !ok {
		t.Fatalf("Build default: got %T, want *Fanout[int]", q)
	}

	if r := lfkit.BuildRing[int](lfkit.New(4).SingleConsumer()); r.Cap() != 4 {
		t.Fatalf("BuildRing Cap: got %d, want 4", r.Cap())
	}
	if f := lfkit.BuildFanout[int](lfkit.New(4)); f.Cap() != 4 {
		t.Fatalf("BuildFanout Cap: got %d, want 4", f.Cap())
	}
}

func TestBuilderPanics(t *testing.T) {
	cases := []struct {
		name string
		fn   func()
	}{
		{"New(0)", func() { lfkit.New(0) }},
		{"BuildRing without SingleConsumer", func() { lfkit.BuildRing[int](lfkit.New(4)) }},
		{"BuildFanout with SingleConsumer", func() { lfkit.BuildFanout[int](lfkit.New(4).SingleConsumer()) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("%s: expected panic", tc.name)
				}
			}()
			tc.fn()
		})
	}
}

// =============================================================================
// Error Classification
// =============================================================================

func TestErrorClassification(t *testing.T) {
	if !lfkit.IsWouldBlock(lfkit.ErrWouldBlock) {
		t.Fatal("IsWouldBlock(ErrWouldBlock): got false")
	}
	if !lfkit.IsNonFailure(nil) || !lfkit.IsNonFailure(lfkit.ErrWouldBlock) {
		t.Fatal("IsNonFailure: nil and ErrWouldBlock must be non-failures")
	}
	if lfkit.IsNonFailure(lfkit.ErrExhausted) {
		t.Fatal("IsNonFailure(ErrExhausted): got true")
	}
	if lfkit.IsWouldBlock(lfkit.ErrDoubleFree) {
		t.Fatal("IsWouldBlock(ErrDoubleFree): got true")
	}
}
