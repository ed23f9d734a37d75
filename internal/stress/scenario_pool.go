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

type message struct {
	id    uint64
	check uint64
}

func checksum(id uint64) uint64 {
	return id*0x9e3779b97f4a7c15 ^ 0xa5a5a5a5a5a5a5a5
}

// runPool runs Pool.Workers creator/destroyer pairs against one shared Pool.
// Each creator builds messages in pooled nodes and hands the handles to its
// destroyer through a Ring; the destroyer verifies and returns them. When
// every pair is done the pool must have no node in use and must close.
func runPool(ctx context.Context, r *Runner, log *zap.Logger) (ScenarioResult, error) {
	items := int64(r.cfg.Run.Items)
	workers := r.cfg.Pool.Workers

	alloc := lfkit.NewChunkAllocator[message](r.cfg.Pool.Chunk, r.cfg.Growth())
	pool := lfkit.NewPool[message](r.cfg.Pool.Initial, lfkit.WithAllocator[message](alloc))
	defer r.trackPool("pool", pool)()

	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	var (
		res         ScenarioResult
		pushed      atomix.Int64
		popped      atomix.Int64
		pushBlocked atomix.Int64
		popBlocked  atomix.Int64
		errs        = make([]error, 2*workers)
		wg          sync.WaitGroup
	)
	fail := func(slot int, err error) {
		errs[slot] = err
		abort(err)
	}
	discard := func(h lfkit.Handle[message], where string) {
		destroyLogged(pool, h, log, where)
	}

	for w := range workers {
		share := items / int64(workers)
		if int64(w) < items%int64(workers) {
			share++
		}
		base := uint64(w) << 40
		handoff := lfkit.NewRing[lfkit.Handle[message]](r.cfg.Ring.Capacity)
		untrack := r.track(fmt.Sprintf("pool-handoff-%d", w), handoff)
		created := make(chan struct{})

		wg.Add(2)
		go func() {
			defer wg.Done()
			defer close(created)
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			r.pin(log, 2*w)

			backoff := iox.Backoff{}
			for i := int64(0); i < share && ctx.Err() == nil; i++ {
				id := base + uint64(i)
				h, err := pool.Create(func(m *message) {
					m.id = id
					m.check = checksum(id)
				})
				if err != nil {
					fail(2*w, fmt.Errorf("create: %w", err))
					return
				}
				for handoff.Push(&h) != nil {
					pushBlocked.Add(1)
					if ctx.Err() != nil {
						discard(h, "abort")
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
				pushed.Add(1)
			}
		}()

		go func() {
			defer wg.Done()
			defer untrack()
			defer handoff.Close()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			r.pin(log, 2*w+1)

			// Return whatever is still queued if the run stops early.
			defer func() {
				<-created
				var h lfkit.Handle[message]
				for handoff.PopInto(&h) == nil {
					discard(h, "drain")
				}
			}()

			next := base
			backoff := iox.Backoff{}
			for n := int64(0); n < share; {
				h, err := handoff.Pop()
				if err != nil {
					popBlocked.Add(1)
					if ctx.Err() != nil {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()

				m := h.Value()
				if m.id != next || m.check != checksum(m.id) {
					fail(2*w+1, fmt.Errorf("%w: got id=%d check=%#x, want id=%d", ErrCorrupt, m.id, m.check, next))
					discard(h, "corrupt")
					return
				}
				if err := pool.Destroy(h); err != nil {
					fail(2*w+1, fmt.Errorf("destroy: %w", err))
					return
				}
				next++
				n++
				popped.Add(1)
			}
		}()
	}
	wg.Wait()

	res.Pushed = pushed.Load()
	res.Popped = popped.Load()
	res.PushBlocked = pushBlocked.Load()
	res.PopBlocked = popBlocked.Load()
	res.Pool = &PoolStats{
		Allocated: pool.AllocatedSize(),
		Free:      pool.FreeSize(),
		Chunks:    alloc.Chunks(),
		Reserved:  alloc.Reserved(),
	}
	log.Debug("pool settled",
		zap.Int("allocated", res.Pool.Allocated),
		zap.Int("free", res.Pool.Free),
		zap.Int("chunks", res.Pool.Chunks),
	)

	for _, err := range errs {
		if err != nil {
			return res, err
		}
	}
	if err := pool.Close(); err != nil {
		return res, err
	}
	if res.Popped < items {
		return res, incomplete(ctx, res.Popped, items)
	}
	return res, nil
}

// destroyLogged returns h to p on a cleanup path, where the scenario is
// already stopping and the error has no caller to go to.
func destroyLogged[T any](p *lfkit.Pool[T], h lfkit.Handle[T], log *zap.Logger, where string) {
	if err := p.Destroy(h); err != nil {
		log.Warn("pool destroy failed", zap.String("path", where), zap.Error(err))
	}
}
