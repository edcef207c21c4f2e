package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for semantic errors and reports
// all of them at once.
func Validate(cfg Config) error {
	var errs []string

	if cfg.Backend.Port < 1 || cfg.Backend.Port > 65535 {
		errs = append(errs, fmt.Sprintf("backend.port %d out of range 1-65535", cfg.Backend.Port))
	}
	if strings.TrimSpace(cfg.Backend.Host) == "" {
		errs = append(errs, "backend.host must not be empty")
	}
	if u, err := url.Parse(cfg.Proxy.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("proxy.base_url %q must be an absolute http(s) URL", cfg.Proxy.BaseURL))
	}
	if cfg.Worker.Index < 0 {
		errs = append(errs, "worker.index cannot be negative")
	}
	if cfg.Worker.Parallel < 1 {
		errs = append(errs, "worker.parallel must be >= 1")
	}
	if cfg.Readiness.MaxAttempts < 1 {
		errs = append(errs, "readiness.max_attempts must be >= 1")
	}
	if cfg.Readiness.Interval <= 0 {
		errs = append(errs, "readiness.interval must be > 0")
	}
	if cfg.Run.Timeout <= 0 {
		errs = append(errs, "run.timeout must be > 0")
	}
	if cfg.Run.ResultsDir == "" {
		errs = append(errs, "run.results_dir must not be empty")
	}
	if !oneOf(strings.ToLower(cfg.Log.Level), "debug", "info", "warn", "error") {
		errs = append(errs, "log.level must be one of debug|info|warn|error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
