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
	"go.uber.org/zap"

	"code.hybscloud.com/lfkit"
)

// runFanout drives one producer and Fanout.Consumers consumers through a
// Fanout. Every value in [0, items) must be claimed by exactly one consumer,
// and each consumer must see its own values in increasing order.
func runFanout(ctx context.Context, r *Runner, log *zap.Logger) (ScenarioResult, error) {
	items := int64(r.cfg.Run.Items)
	consumers := r.cfg.Fanout.Consumers
	q := lfkit.NewFanout[int64](r.cfg.Fanout.Capacity)
	defer r.track("fanout", q)()

	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	var (
		res        ScenarioResult
		pushed     atomix.Int64
		popped     atomix.Int64
		popBlocked atomix.Int64
		seen       = make([]atomix.Int32, items)
		perWorker  = make([]int64, consumers)
		errs       = make([]error, consumers)
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		r.pin(log, 0)

		backoff := iox.Backoff{}
		for i := int64(0); i < items; i++ {
			for q.Push(&i) != nil {
				res.PushBlocked++
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
			}
			backoff.Reset()
			pushed.Add(1)
		}
	}()

	for c := range consumers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			r.pin(log, id+1)

			last := int64(-1)
			backoff := iox.Backoff{}
			for popped.Load() < items {
				v, err := q.Pop()
				if err != nil {
					popBlocked.Add(1)
					if ctx.Err() != nil {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				popped.Add(1)
				perWorker[id]++

				if v < 0 || v >= items {
					errs[id] = fmt.Errorf("%w: consumer %d popped %d outside [0, %d)", ErrCorrupt, id, v, items)
					abort(errs[id])
					return
				}
				if seen[v].Add(1) != 1 {
					errs[id] = fmt.Errorf("%w: value %d", ErrDuplicate, v)
					abort(errs[id])
					return
				}
				if v <= last {
					errs[id] = fmt.Errorf("%w: consumer %d popped %d after %d", ErrOrder, id, v, last)
					abort(errs[id])
					return
				}
				last = v
			}
		}(c)
	}
	wg.Wait()

	res.Pushed = pushed.Load()
	res.Popped = popped.Load()
	res.PopBlocked = popBlocked.Load()
	res.PerConsumer = perWorker
	for _, err := range errs {
		if err != nil {
			return res, err
		}
	}
	if res.Popped < items {
		return res, incomplete(ctx, res.Popped, items)
	}
	for v := range seen {
		if seen[v].Load() == 0 {
			return res, fmt.Errorf("%w: value %d", ErrLost, v)
		}
	}
	if n := q.Clear(); n != 0 {
		return res, fmt.Errorf("%w: %d values left in the queue", ErrDuplicate, n)
	}
	return res, nil
}
