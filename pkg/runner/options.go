package runner

import (
	"time"

	"digital.vasic.agentprobe/pkg/metrics"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/scenario"
)

// RunnerOption configures a DefaultRunner.
type RunnerOption func(*DefaultRunner)

// WithRegistry sets the scenario registry used by the runner.
func WithRegistry(reg registry.Registry) RunnerOption {
	return func(r *DefaultRunner) {
		r.registry = reg
	}
}

// WithLogger sets the logger used by the runner. Scenarios that
// accept a logger receive the same one.
func WithLogger(logger scenario.Logger) RunnerOption {
	return func(r *DefaultRunner) {
		r.logger = logger
	}
}

// WithAssertionEngine sets the engine handed to scenarios.
func WithAssertionEngine(e scenario.AssertionEngine) RunnerOption {
	return func(r *DefaultRunner) {
		r.engine = e
	}
}

// WithEventSink sets where lifecycle events are published.
func WithEventSink(sink EventSink) RunnerOption {
	return func(r *DefaultRunner) {
		r.events = sink
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.ScenarioMetrics) RunnerOption {
	return func(r *DefaultRunner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTimeout sets the default execution timeout for
// scenarios that do not specify their own.
func WithTimeout(timeout time.Duration) RunnerOption {
	return func(r *DefaultRunner) {
		r.timeout = timeout
	}
}

// WithStaleThreshold sets the default liveness threshold.
// Zero disables stuck detection.
func WithStaleThreshold(d time.Duration) RunnerOption {
	return func(r *DefaultRunner) {
		r.staleThreshold = d
	}
}

// WithResultsDir sets the base directory where scenario
// results are written.
func WithResultsDir(dir string) RunnerOption {
	return func(r *DefaultRunner) {
		r.resultsDir = dir
	}
}

// WithPreHook adds a pre-execution hook to the runner.
func WithPreHook(h Hook) RunnerOption {
	return func(r *DefaultRunner) {
		r.preHooks = append(r.preHooks, h)
	}
}

// WithPostHook adds a post-execution hook to the runner.
func WithPostHook(h Hook) RunnerOption {
	return func(r *DefaultRunner) {
		r.postHooks = append(r.postHooks, h)
	}
}
