// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfstress exercises the lfkit ring, fanout and pool under
// contention and writes a JSON report of the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"code.hybscloud.com/lfkit/internal/config"
	"code.hybscloud.com/lfkit/internal/logging"
	"code.hybscloud.com/lfkit/internal/stress"
	"code.hybscloud.com/lfkit/metrics"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lfstress",
		Short:         "Stress the lfkit lock-free queues and pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lfstress v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newRunCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured stress scenarios",
		Long: `Run pushes run.items elements through each selected scenario and
verifies delivery: the ring must preserve FIFO order, the fanout must
deliver every element exactly once, and the pool must account for every
node when it closes. The command fails if any check fails or the
deadline passes first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Config{
				Level:    cfg.Log.Level,
				Encoding: cfg.Log.Encoding,
			})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector()
			if cfg.Metrics.Addr != "" {
				shutdown, err := serveMetrics(cfg.Metrics.Addr, collector, logger)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			logger.Info("stress run starting",
				zap.Strings("scenarios", cfg.Run.Scenarios),
				zap.Int("items", cfg.Run.Items),
				zap.Duration("duration", cfg.Run.Duration),
				zap.Bool("pin_threads", cfg.Run.PinThreads),
			)

			report, runErr := stress.NewRunner(cfg, logger, stress.WithCollector(collector)).Run(ctx)
			if err := report.WriteFile(cfg.Report.Path); err != nil {
				logger.Error("failed to write report", zap.Error(err))
				if runErr == nil {
					runErr = err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lfstress configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "lfstress.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

// serveMetrics exposes collector and the Go runtime collectors on
// addr/metrics. The returned function stops the server.
func serveMetrics(addr string, collector *metrics.Collector, logger *zap.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}, nil
}
