package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"digital.vasic.agentprobe/pkg/env"
)

// Environment variables read by Load. The first three are the
// stack contract shared with the application's own tooling.
const (
	EnvBackendPort    = "BACKEND_PORT"
	EnvUnifiedBaseURL = "UNIFIED_BASE_URL"
	EnvWorkerIndex    = "TEST_WORKER_INDEX"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindDuration
)

type envBinding struct {
	Env  string
	Key  string
	Kind valueKind
}

var envBindings = []envBinding{
	{EnvBackendPort, "backend.port", kindInt},
	{EnvUnifiedBaseURL, "proxy.base_url", kindString},
	{EnvWorkerIndex, "worker.index", kindInt},
	{"AGENTPROBE_BACKEND_HOST", "backend.host", kindString},
	{"AGENTPROBE_BACKEND_TOKEN", "backend.token", kindString},
	{"AGENTPROBE_PARALLEL", "worker.parallel", kindInt},
	{"AGENTPROBE_RESULTS_DIR", "run.results_dir", kindString},
	{"AGENTPROBE_TIMEOUT", "run.timeout", kindDuration},
	{"AGENTPROBE_HEADLESS", "browser.headless", kindBool},
	{"AGENTPROBE_BROWSER_BIN", "browser.bin", kindString},
	{"AGENTPROBE_MONITOR_ADDR", "monitor.addr", kindString},
	{"AGENTPROBE_LOG_LEVEL", "log.level", kindString},
}

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// ConfigPath is an optional YAML file. A missing file is not an
	// error unless Required is set.
	ConfigPath string
	Required   bool
	// EnvFile is an optional .env file; its values rank below the
	// process environment.
	EnvFile string
	// Env supplies variables. Defaults to a fresh env.DefaultLoader.
	Env env.Loader
	// FlagOverrides are highest-priority values keyed by dotted
	// config key.
	FlagOverrides map[string]any
}

// Load returns the effective configuration after applying
// precedence: defaults < config file < env < flags.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := mergeConfigFile(v, opts.ConfigPath, opts.Required); err != nil {
		return Config{}, err
	}

	loader := opts.Env
	if loader == nil {
		loader = env.NewLoader()
	}
	if opts.EnvFile != "" {
		if err := loader.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnvOverrides(v, loader); err != nil {
		return Config{}, err
	}
	for k, val := range opts.FlagOverrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("backend.host", def.Backend.Host)
	v.SetDefault("backend.port", def.Backend.Port)
	v.SetDefault("backend.health_path", def.Backend.HealthPath)
	v.SetDefault("backend.websocket_path", def.Backend.WebSocketPath)
	v.SetDefault("backend.token", def.Backend.Token)

	v.SetDefault("proxy.base_url", def.Proxy.BaseURL)
	v.SetDefault("proxy.dashboard_path", def.Proxy.DashboardPath)
	v.SetDefault("proxy.chat_path", def.Proxy.ChatPath)

	v.SetDefault("worker.index", def.Worker.Index)
	v.SetDefault("worker.parallel", def.Worker.Parallel)

	v.SetDefault("readiness.max_attempts", def.Readiness.MaxAttempts)
	v.SetDefault("readiness.interval", def.Readiness.Interval)
	v.SetDefault("readiness.request_timeout", def.Readiness.RequestTimeout)

	v.SetDefault("run.results_dir", def.Run.ResultsDir)
	v.SetDefault("run.timeout", def.Run.Timeout)
	v.SetDefault("run.stale_threshold", def.Run.StaleThreshold)
	v.SetDefault("run.definitions", def.Run.Definitions)
	v.SetDefault("run.only", def.Run.Only)
	v.SetDefault("run.verbose", def.Run.Verbose)

	v.SetDefault("browser.headless", def.Browser.Headless)
	v.SetDefault("browser.bin", def.Browser.Bin)
	v.SetDefault("browser.timeout", def.Browser.Timeout)
	v.SetDefault("browser.slow_motion", def.Browser.SlowMotion)

	v.SetDefault("monitor.addr", def.Monitor.Addr)
	v.SetDefault("log.level", def.Log.Level)
}

func mergeConfigFile(v *viper.Viper, path string, required bool) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(v *viper.Viper, loader env.Loader) error {
	for _, b := range envBindings {
		raw := strings.TrimSpace(loader.Get(b.Env))
		if raw == "" {
			continue
		}
		parsed, err := parseValue(raw, b.Kind)
		if err != nil {
			return fmt.Errorf("env %s: %w", b.Env, err)
		}
		v.Set(b.Key, parsed)
	}
	return nil
}

func parseValue(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return b, nil
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("expected duration, got %q", raw)
		}
		return d, nil
	default:
		return raw, nil
	}
}
