// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"fmt"
	"io"
	"os"
	"time"

	gojson "github.com/goccy/go-json"
)

// Report summarizes one Runner.Run.
type Report struct {
	Started   time.Time        `json:"started"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
	Items     int              `json:"items"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Resources Resources        `json:"resources"`
}

// ScenarioResult holds the counters of one scenario.
type ScenarioResult struct {
	Name        string        `json:"name"`
	Pushed      int64         `json:"pushed"`
	Popped      int64         `json:"popped"`
	PushBlocked int64         `json:"push_would_block"`
	PopBlocked  int64         `json:"pop_would_block"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Throughput  float64       `json:"items_per_sec"`
	PerConsumer []int64       `json:"per_consumer,omitempty"`
	Pool        *PoolStats    `json:"pool,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// PoolStats is the pool state sampled after the pool scenario's workers
// have stopped.
type PoolStats struct {
	Allocated int `json:"allocated"`
	Free      int `json:"free"`
	Chunks    int `json:"chunks"`
	Reserved  int `json:"reserved"`
}

// Failed reports whether any scenario ended with an error.
func (r Report) Failed() bool {
	for _, s := range r.Scenarios {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// WriteJSON encodes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	data, err := gojson.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path, or to stdout when path is empty or
// "-".
func (r Report) WriteFile(path string) error {
	if path == "" || path == "-" {
		return r.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadReport decodes a report written by WriteJSON.
func ReadReport(rd io.Reader) (Report, error) {
	var r Report
	if err := gojson.NewDecoder(rd).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}
