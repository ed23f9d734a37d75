// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress runs the ring, fanout and pool workloads behind lfstress
// and checks their delivery and accounting guarantees under contention.
//
// Each scenario pushes a fixed number of items through the structure under
// test and fails with a wrapped sentinel error when an item is lost,
// delivered twice, reordered (ring only) or leaked (pool only). The whole
// run is bounded by the configured duration; cancellation is observed at
// every would-block retry.
package stress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"code.hybscloud.com/lfkit"
	"code.hybscloud.com/lfkit/internal/config"
	"code.hybscloud.com/lfkit/internal/logging"
	"code.hybscloud.com/lfkit/metrics"
)

var (
	// ErrOrder reports a ring element observed out of FIFO order.
	ErrOrder = errors.New("stress: element out of order")
	// ErrDuplicate reports an element delivered more than once.
	ErrDuplicate = errors.New("stress: element delivered twice")
	// ErrLost reports an element that was pushed but never delivered.
	ErrLost = errors.New("stress: element lost")
	// ErrCorrupt reports a pooled value that changed while in flight.
	ErrCorrupt = errors.New("stress: pooled value corrupted")
	// ErrIncomplete reports a scenario stopped by the deadline or by
	// cancellation before all items were delivered.
	ErrIncomplete = errors.New("stress: scenario incomplete")
)

type scenarioFunc func(ctx context.Context, r *Runner, log *zap.Logger) (ScenarioResult, error)

var scenarios = map[string]scenarioFunc{
	config.ScenarioRing:   runRing,
	config.ScenarioFanout: runFanout,
	config.ScenarioPool:   runPool,
}

// Runner executes the scenarios selected by a configuration.
type Runner struct {
	cfg       config.Config
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option configures a Runner.
type Option func(*Runner)

// WithCollector registers every queue and pool a scenario creates with c
// for the lifetime of that scenario.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Runner) {
		r.collector = c
	}
}

// NewRunner creates a runner for cfg. A nil logger discards output.
func NewRunner(cfg config.Config, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the configured scenarios in order and stops at the first
// failure. The report is returned in both cases and covers the scenarios
// that ran.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, err
	}
	if r.cfg.Run.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Run.Duration)
		defer cancel()
	}

	monitor := newResourceMonitor()
	report := Report{Started: time.Now(), Items: r.cfg.Run.Items}

	var runErr error
	for _, name := range r.cfg.Run.Scenarios {
		fn, ok := scenarios[name]
		if !ok {
			runErr = fmt.Errorf("%w: unknown scenario %q", config.ErrInvalid, name)
			break
		}
		log := logging.Scenario(r.logger, name)
		log.Info("scenario started", zap.Int("items", r.cfg.Run.Items))

		start := time.Now()
		res, err := fn(ctx, r, log)
		res.Name = name
		res.Elapsed = time.Since(start)
		if secs := res.Elapsed.Seconds(); secs > 0 {
			res.Throughput = float64(res.Popped) / secs
		}
		if err != nil {
			res.Error = err.Error()
		}
		report.Scenarios = append(report.Scenarios, res)

		if err != nil {
			log.Error("scenario failed", zap.Error(err), zap.Int64("popped", res.Popped))
			runErr = fmt.Errorf("scenario %s: %w", name, err)
			break
		}
		log.Info("scenario finished",
			zap.Duration("elapsed", res.Elapsed),
			zap.Float64("items_per_sec", res.Throughput),
			zap.Int64("push_would_block", res.PushBlocked),
			zap.Int64("pop_would_block", res.PopBlocked),
		)
	}

	res, err := monitor.sample()
	if err != nil {
		r.logger.Warn("resource sampling failed", zap.Error(err))
	}
	report.Resources = res
	report.Elapsed = time.Since(report.Started)
	return report, runErr
}

func (r *Runner) track(name string, q lfkit.Sizer) func() {
	if r.collector == nil {
		return func() {}
	}
	r.collector.AddQueue(name, q)
	return func() { r.collector.Remove(name) }
}

func (r *Runner) trackPool(name string, p metrics.PoolSizer) func() {
	if r.collector == nil {
		return func() {}
	}
	r.collector.AddPool(name, p)
	return func() { r.collector.Remove(name) }
}

// incomplete wraps ctx's error once a scenario gives up early.
func incomplete(ctx context.Context, done, want int64) error {
	return fmt.Errorf("%w: %d of %d items: %w", ErrIncomplete, done, want, context.Cause(ctx))
}
