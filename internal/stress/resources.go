// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// Resources is the process footprint at the end of a run.
type Resources struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	VMSBytes   uint64  `json:"vms_bytes"`
	CPUSeconds float64 `json:"cpu_seconds"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	HeapBytes  uint64  `json:"heap_bytes"`
	NumGC      uint32  `json:"num_gc"`
}

type resourceMonitor struct {
	proc     *process.Process
	startCPU float64
	err      error
}

func newResourceMonitor() *resourceMonitor {
	m := &resourceMonitor{}
	m.proc, m.err = process.NewProcess(int32(os.Getpid()))
	if m.err == nil {
		if t, err := m.proc.Times(); err == nil {
			m.startCPU = t.Total()
		}
	}
	return m
}

// sample reads the current footprint. CPU time is relative to the
// monitor's creation. Runtime figures are always filled in; the error
// collects whatever the OS could not report.
func (m *resourceMonitor) sample() (Resources, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	res := Resources{
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
	}
	if m.err != nil {
		return res, fmt.Errorf("failed to open process: %w", m.err)
	}

	var errs []error
	if mem, err := m.proc.MemoryInfo(); err == nil {
		res.RSSBytes = mem.RSS
		res.VMSBytes = mem.VMS
	} else {
		errs = append(errs, fmt.Errorf("memory info: %w", err))
	}
	if t, err := m.proc.Times(); err == nil {
		res.CPUSeconds = t.Total() - m.startCPU
	} else {
		errs = append(errs, fmt.Errorf("cpu times: %w", err))
	}
	if n, err := m.proc.NumThreads(); err == nil {
		res.Threads = n
	} else {
		errs = append(errs, fmt.Errorf("threads: %w", err))
	}
	return res, errors.Join(errs...)
}
