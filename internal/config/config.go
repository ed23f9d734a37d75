// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the lfstress configuration.
//
// Values are resolved in this order, highest first: command-line flags that
// were set explicitly, LFSTRESS_* environment variables, the YAML file, and
// the defaults from Default. Nested keys map to environment variables by
// replacing dots with underscores: ring.capacity is LFSTRESS_RING_CAPACITY.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"code.hybscloud.com/lfkit"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LFSTRESS"

// Scenario names accepted in run.scenarios.
const (
	ScenarioRing   = "ring"
	ScenarioFanout = "fanout"
	ScenarioPool   = "pool"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete stress harness configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Ring    RingConfig    `mapstructure:"ring" yaml:"ring"`
	Fanout  FanoutConfig  `mapstructure:"fanout" yaml:"fanout"`
	Pool    PoolConfig    `mapstructure:"pool" yaml:"pool"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// RingConfig sizes the SPSC scenario.
type RingConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// FanoutConfig sizes the SPMC scenario.
type FanoutConfig struct {
	Capacity  int `mapstructure:"capacity" yaml:"capacity"`
	Consumers int `mapstructure:"consumers" yaml:"consumers"`
}

// PoolConfig sizes the pool churn scenario.
type PoolConfig struct {
	Initial int    `mapstructure:"initial" yaml:"initial"`
	Workers int    `mapstructure:"workers" yaml:"workers"`
	Chunk   int    `mapstructure:"chunk" yaml:"chunk"`
	Growth  string `mapstructure:"growth" yaml:"growth"`
}

// RunConfig controls which scenarios run and for how long.
type RunConfig struct {
	Scenarios  []string      `mapstructure:"scenarios" yaml:"scenarios"`
	Items      int           `mapstructure:"items" yaml:"items"`
	Duration   time.Duration `mapstructure:"duration" yaml:"duration"`
	PinThreads bool          `mapstructure:"pin_threads" yaml:"pin_threads"`
}

// MarshalYAML writes Duration in its string form so the file reads back
// through Load unchanged.
func (r RunConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Scenarios  []string `yaml:"scenarios"`
		Items      int      `yaml:"items"`
		Duration   string   `yaml:"duration"`
		PinThreads bool     `yaml:"pin_threads"`
	}{r.Scenarios, r.Items, r.Duration.String(), r.PinThreads}, nil
}

// MetricsConfig enables the Prometheus endpoint when Addr is non-empty.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// ReportConfig sets where the JSON run report is written. Empty or "-"
// means stdout.
type ReportConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Encoding: "console"},
		Ring:   RingConfig{Capacity: 1024},
		Fanout: FanoutConfig{Capacity: 1024, Consumers: 4},
		Pool: PoolConfig{
			Initial: 256,
			Workers: 4,
			Chunk:   lfkit.DefaultChunkSize,
			Growth:  lfkit.GrowDoubleTotal.String(),
		},
		Run: RunConfig{
			Scenarios: []string{ScenarioRing, ScenarioFanout, ScenarioPool},
			Items:     1_000_000,
			Duration:  time.Minute,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("ring.capacity", d.Ring.Capacity)
	v.SetDefault("fanout.capacity", d.Fanout.Capacity)
	v.SetDefault("fanout.consumers", d.Fanout.Consumers)
	v.SetDefault("pool.initial", d.Pool.Initial)
	v.SetDefault("pool.workers", d.Pool.Workers)
	v.SetDefault("pool.chunk", d.Pool.Chunk)
	v.SetDefault("pool.growth", d.Pool.Growth)
	v.SetDefault("run.scenarios", d.Run.Scenarios)
	v.SetDefault("run.items", d.Run.Items)
	v.SetDefault("run.duration", d.Run.Duration)
	v.SetDefault("run.pin_threads", d.Run.PinThreads)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("report.path", d.Report.Path)
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-encoding":     "log.encoding",
	"ring-capacity":    "ring.capacity",
	"fanout-capacity":  "fanout.capacity",
	"fanout-consumers": "fanout.consumers",
	"pool-initial":     "pool.initial",
	"pool-workers":     "pool.workers",
	"pool-chunk":       "pool.chunk",
	"pool-growth":      "pool.growth",
	"scenarios":        "run.scenarios",
	"items":            "run.items",
	"duration":         "run.duration",
	"pin-threads":      "run.pin_threads",
	"metrics-addr":     "metrics.addr",
	"report":           "report.path",
}

// RegisterFlags defines one flag per configuration key on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	fs.String("log-encoding", d.Log.Encoding, "Log encoding (console, json)")
	fs.Int("ring-capacity", d.Ring.Capacity, "Ring scenario queue capacity")
	fs.Int("fanout-capacity", d.Fanout.Capacity, "Fanout scenario queue capacity")
	fs.Int("fanout-consumers", d.Fanout.Consumers, "Fanout scenario consumer goroutines")
	fs.Int("pool-initial", d.Pool.Initial, "Pool scenario pre-warmed nodes")
	fs.Int("pool-workers", d.Pool.Workers, "Pool scenario worker goroutines")
	fs.Int("pool-chunk", d.Pool.Chunk, "Pool scenario first chunk size")
	fs.String("pool-growth", d.Pool.Growth, "Pool chunk growth (double-total, double-last, constant)")
	fs.StringSlice("scenarios", d.Run.Scenarios, "Scenarios to run")
	fs.Int("items", d.Run.Items, "Items pushed per scenario")
	fs.Duration("duration", d.Run.Duration, "Deadline for the whole run")
	fs.Bool("pin-threads", d.Run.PinThreads, "Pin producer and consumer threads to CPUs (linux)")
	fs.String("metrics-addr", d.Metrics.Addr, "Serve Prometheus metrics on this address")
	fs.String("report", d.Report.Path, "Write the JSON report to this file (- for stdout)")
}

// Load resolves the configuration from defaults, the optional YAML file at
// path, the environment and the flags in fs (which may be nil).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Ring.Capacity >= 1, "ring.capacity must be >= 1, got %d", c.Ring.Capacity)
	check(c.Fanout.Capacity >= 1, "fanout.capacity must be >= 1, got %d", c.Fanout.Capacity)
	check(c.Fanout.Consumers >= 1, "fanout.consumers must be >= 1, got %d", c.Fanout.Consumers)
	check(c.Pool.Initial >= 0, "pool.initial must be >= 0, got %d", c.Pool.Initial)
	check(c.Pool.Workers >= 1, "pool.workers must be >= 1, got %d", c.Pool.Workers)
	check(c.Pool.Chunk >= 1, "pool.chunk must be >= 1, got %d", c.Pool.Chunk)
	_, ok := lfkit.ParseGrowthPolicy(c.Pool.Growth)
	check(ok, "pool.growth %q is not a growth policy", c.Pool.Growth)
	check(c.Run.Items >= 1, "run.items must be >= 1, got %d", c.Run.Items)
	check(c.Run.Duration >= 0, "run.duration must be >= 0, got %v", c.Run.Duration)
	check(len(c.Run.Scenarios) > 0, "run.scenarios is empty")
	for _, s := range c.Run.Scenarios {
		check(slices.Contains([]string{ScenarioRing, ScenarioFanout, ScenarioPool}, s),
			"unknown scenario %q", s)
	}
	return errors.Join(errs...)
}

// Growth returns the parsed pool growth policy. Valid after Validate.
func (c Config) Growth() lfkit.GrowthPolicy {
	g, _ := lfkit.ParseGrowthPolicy(c.Pool.Growth)
	return g
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
