// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"code.hybscloud.com/lfkit"
	"code.hybscloud.com/lfkit/internal/config"
	"code.hybscloud.com/lfkit/internal/stress"
	"code.hybscloud.com/lfkit/metrics"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lfstress v"+version)
	assert.Contains(t, out, "Go version: go")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lfstress.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestRun(t *testing.T) {
	if lfkit.RaceEnabled {
		t.Skip("skip: lock-free containers trigger race detector false positives")
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lfstress.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("fanout:\n  consumers: 2\n"), 0o644))
	reportPath := filepath.Join(dir, "report.json")

	_, err := execute(t, "run",
		"--config", cfgPath,
		"--scenarios", "ring,fanout",
		"--items", "5000",
		"--ring-capacity", "4",
		"--fanout-capacity", "4",
		"--log-level", "error",
		"--report", reportPath,
	)
	require.NoError(t, err)

	f, err := os.Open(reportPath)
	require.NoError(t, err)
	defer f.Close()
	report, err := stress.ReadReport(f)
	require.NoError(t, err)

	require.Len(t, report.Scenarios, 2)
	assert.Equal(t, "ring", report.Scenarios[0].Name)
	assert.Equal(t, "fanout", report.Scenarios[1].Name)
	assert.Len(t, report.Scenarios[1].PerConsumer, 2)
	assert.EqualValues(t, 5000, report.Scenarios[1].Popped)
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "run", "--items", "0", "--report", filepath.Join(t.TempDir(), "r.json"))
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "run", "--log-encoding", "xml", "--report", filepath.Join(t.TempDir(), "r.json"))
	assert.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	collector := metrics.NewCollector()
	collector.AddQueue("probe", lfkit.NewRing[int](16))

	shutdown, err := serveMetrics("127.0.0.1:0", collector, zap.New(core))
	require.NoError(t, err)
	defer shutdown()

	entries := logs.FilterMessage("serving metrics").All()
	require.Len(t, entries, 1)
	addr, ok := entries[0].ContextMap()["addr"].(string)
	require.True(t, ok)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `lfkit_queue_capacity{queue="probe"} 16`)
	assert.Contains(t, string(body), "go_goroutines")
}
