// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import "go.uber.org/zap"

// pin applies Run.PinThreads to the calling goroutine's locked thread.
// Failures are logged and the scenario continues unpinned.
func (r *Runner) pin(log *zap.Logger, cpu int) {
	if !r.cfg.Run.PinThreads {
		return
	}
	if err := pinCurrentThread(cpu); err != nil {
		log.Warn("thread pinning failed", zap.Int("cpu", cpu), zap.Error(err))
	}
}
