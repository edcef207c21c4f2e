// Package config resolves the suite's runtime settings. Precedence:
// defaults < YAML config file < .env file < process environment <
// CLI flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Config is the effective configuration for a suite run.
type Config struct {
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
	Proxy     ProxyConfig     `yaml:"proxy" mapstructure:"proxy"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Readiness ReadinessConfig `yaml:"readiness" mapstructure:"readiness"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// BackendConfig locates the backend API service.
type BackendConfig struct {
	Host          string `yaml:"host" mapstructure:"host"`
	Port          int    `yaml:"port" mapstructure:"port"`
	HealthPath    string `yaml:"health_path" mapstructure:"health_path"`
	WebSocketPath string `yaml:"websocket_path" mapstructure:"websocket_path"`
	Token         string `yaml:"token" mapstructure:"token"`
}

// ProxyConfig locates the unified reverse proxy fronting the
// dashboard and chat frontend.
type ProxyConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	DashboardPath string `yaml:"dashboard_path" mapstructure:"dashboard_path"`
	ChatPath      string `yaml:"chat_path" mapstructure:"chat_path"`
}

// WorkerConfig identifies this process among parallel workers.
type WorkerConfig struct {
	Index    int `yaml:"index" mapstructure:"index"`
	Parallel int `yaml:"parallel" mapstructure:"parallel"`
}

// ReadinessConfig tunes the startup gate.
type ReadinessConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// RunConfig controls scenario execution and output.
type RunConfig struct {
	ResultsDir     string        `yaml:"results_dir" mapstructure:"results_dir"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StaleThreshold time.Duration `yaml:"stale_threshold" mapstructure:"stale_threshold"`
	Definitions    string        `yaml:"definitions" mapstructure:"definitions"`
	Only           []string      `yaml:"only" mapstructure:"only"`
	Verbose        bool          `yaml:"verbose" mapstructure:"verbose"`
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	Headless   bool          `yaml:"headless" mapstructure:"headless"`
	Bin        string        `yaml:"bin" mapstructure:"bin"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SlowMotion time.Duration `yaml:"slow_motion" mapstructure:"slow_motion"`
}

// MonitorConfig enables the live event server when Addr is set.
type MonitorConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults for a local stack.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Host:          "localhost",
			Port:          8000,
			HealthPath:    "/health",
			WebSocketPath: "/ws",
		},
		Proxy: ProxyConfig{
			BaseURL:       "http://localhost:8080",
			DashboardPath: "/",
			ChatPath:      "/chat",
		},
		Worker: WorkerConfig{Index: 0, Parallel: 1},
		Readiness: ReadinessConfig{
			MaxAttempts:    30,
			Interval:       time.Second,
			RequestTimeout: 2 * time.Second,
		},
		Run: RunConfig{
			ResultsDir:     "results",
			Timeout:        2 * time.Minute,
			StaleThreshold: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// BackendURL is http://<host>:<port>.
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://%s:%d", c.Backend.Host, c.Backend.Port)
}

// WebSocketURL is ws://<host>:<port><websocket_path>.
func (c Config) WebSocketURL() string {
	path := c.Backend.WebSocketPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s:%d%s", c.Backend.Host, c.Backend.Port, path)
}

// Target converts the config into the stack description scenarios
// receive.
func (c Config) Target() scenario.Target {
	return scenario.Target{
		BackendURL:    c.BackendURL(),
		ProxyURL:      strings.TrimRight(c.Proxy.BaseURL, "/"),
		WebSocketURL:  c.WebSocketURL(),
		HealthPath:    c.Backend.HealthPath,
		DashboardPath: c.Proxy.DashboardPath,
		ChatPath:      c.Proxy.ChatPath,
	}
}

// ScenarioConfig builds the per-scenario runtime config.
func (c Config) ScenarioConfig(id scenario.ID) *scenario.Config {
	sc := scenario.NewConfig(id)
	sc.ResultsDir = c.Run.ResultsDir
	sc.Timeout = c.Run.Timeout
	sc.StaleThreshold = c.Run.StaleThreshold
	sc.Verbose = c.Run.Verbose
	sc.Target = c.Target()
	sc.WorkerIndex = c.Worker.Index
	return sc
}
