// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/eapache/queue"
	"go.uber.org/zap"

	"code.hybscloud.com/lfkit"
)

// runRing drives one producer and one consumer through a Ring. The producer
// records every pushed value in a FIFO oracle; once both sides finish, the
// consumer's sequence must match the oracle element for element.
func runRing(ctx context.Context, r *Runner, log *zap.Logger) (ScenarioResult, error) {
	items := int64(r.cfg.Run.Items)
	q := lfkit.NewRing[uint64](r.cfg.Ring.Capacity)
	defer q.Close()
	defer r.track("ring", q)()

	var (
		res      ScenarioResult
		pushed   atomix.Int64
		popped   atomix.Int64
		oracle   = queue.New()
		received = make([]uint64, 0, items)
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		r.pin(log, 0)

		var blocked int64
		defer func() { res.PushBlocked = blocked }()
		seq := newSequence(uint64(items))
		backoff := iox.Backoff{}
		for i := int64(0); i < items; i++ {
			v := seq.next()
			for q.Push(&v) != nil {
				blocked++
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
			}
			backoff.Reset()
			oracle.Add(v)
			pushed.Add(1)
		}
	}()

	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		r.pin(log, 1)

		var blocked int64
		defer func() { res.PopBlocked = blocked }()
		backoff := iox.Backoff{}
		for int64(len(received)) < items {
			v, err := q.Pop()
			if err != nil {
				blocked++
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
				continue
			}
			backoff.Reset()
			received = append(received, v)
			popped.Add(1)
		}
	}()
	wg.Wait()

	res.Pushed = pushed.Load()
	res.Popped = popped.Load()
	for i, got := range received {
		if oracle.Length() == 0 {
			return res, fmt.Errorf("%w: popped %d with nothing pushed at index %d", ErrDuplicate, got, i)
		}
		if want := oracle.Remove().(uint64); got != want {
			return res, fmt.Errorf("%w: index %d got %d want %d", ErrOrder, i, got, want)
		}
	}
	if n := oracle.Length(); n != 0 && ctx.Err() == nil {
		return res, fmt.Errorf("%w: %d pushed elements never popped", ErrLost, n)
	}
	if res.Popped < items {
		return res, incomplete(ctx, res.Popped, items)
	}
	return res, nil
}

// sequence is a reproducible pseudo-random value stream.
type sequence struct {
	state uint64
}

func newSequence(seed uint64) *sequence {
	return &sequence{state: seed | 1}
}

// xorshift64*
func (s *sequence) next() uint64 {
	s.state ^= s.state >> 12
	s.state ^= s.state << 25
	s.state ^= s.state >> 27
	return s.state * 2685821657736338717
}
