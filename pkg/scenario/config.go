package scenario

import (
	"strings"
	"time"
)

// Target describes the running stack a scenario talks to. All
// workers share one externally managed backend.
type Target struct {
	// BackendURL is the base URL of the backend API service.
	BackendURL string `json:"backend_url" yaml:"backend_url"`

	// ProxyURL is the base URL of the unified reverse proxy that
	// fronts the dashboard, the chat frontend and the API.
	ProxyURL string `json:"proxy_url" yaml:"proxy_url"`

	// WebSocketURL is the backend event stream endpoint.
	WebSocketURL string `json:"websocket_url" yaml:"websocket_url"`

	// HealthPath is the liveness path polled by the readiness
	// gate.
	HealthPath string `json:"health_path" yaml:"health_path"`

	// DashboardPath is the dashboard route under ProxyURL.
	DashboardPath string `json:"dashboard_path" yaml:"dashboard_path"`

	// ChatPath is the chat frontend route under ProxyURL.
	ChatPath string `json:"chat_path" yaml:"chat_path"`
}

// DashboardURL joins ProxyURL and DashboardPath.
func (t Target) DashboardURL() string {
	return joinURL(t.ProxyURL, t.DashboardPath)
}

// ChatURL joins ProxyURL and ChatPath.
func (t Target) ChatURL() string {
	return joinURL(t.ProxyURL, t.ChatPath)
}

// ProxyPath joins ProxyURL with an arbitrary route.
func (t Target) ProxyPath(path string) string {
	return joinURL(t.ProxyURL, path)
}

func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" || path == "/" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Config holds runtime configuration for one scenario execution.
type Config struct {
	// ScenarioID identifies which scenario this config is for.
	ScenarioID ID `json:"scenario_id"`

	// ResultsDir is where result JSON and reports are written.
	ResultsDir string `json:"results_dir"`

	// LogsDir is where log files are written.
	LogsDir string `json:"logs_dir"`

	// Timeout is the hard upper bound on Execute. Zero means the
	// runner default.
	Timeout time.Duration `json:"timeout"`

	// StaleThreshold cancels a scenario that reports no progress
	// for this long. Zero means the runner default.
	StaleThreshold time.Duration `json:"stale_threshold"`

	// Verbose enables debug logging.
	Verbose bool `json:"verbose"`

	// Target is the stack under test.
	Target Target `json:"target"`

	// WorkerIndex identifies the worker slot executing the
	// scenario. Used to keep seeded fixture names disjoint.
	WorkerIndex int `json:"worker_index"`

	// Environment holds extra key-value settings.
	Environment map[string]string `json:"environment"`

	// Dependencies maps upstream scenario IDs to the results
	// directory they wrote.
	Dependencies map[ID]string `json:"dependencies"`

	// Assertions are extra checks curated in a definition file.
	// They run after the scenario's own assertions.
	Assertions []AssertionDef `json:"assertions,omitempty"`
}

// NewConfig creates a Config with defaults for a local stack.
func NewConfig(id ID) *Config {
	return &Config{
		ScenarioID: id,
		ResultsDir: "results",
		LogsDir:    "logs",
		Timeout:    2 * time.Minute,
		Target: Target{
			BackendURL:    "http://localhost:8000",
			ProxyURL:      "http://localhost:8080",
			WebSocketURL:  "ws://localhost:8000/ws",
			HealthPath:    "/health",
			DashboardPath: "/",
			ChatPath:      "/chat",
		},
		Environment:  make(map[string]string),
		Dependencies: make(map[ID]string),
	}
}

// GetEnv returns an environment value from the config, or the
// fallback if not set.
func (c *Config) GetEnv(key, fallback string) string {
	if c.Environment == nil {
		return fallback
	}
	if v, ok := c.Environment[key]; ok {
		return v
	}
	return fallback
}
