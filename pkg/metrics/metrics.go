// Package metrics records suite execution counters and exposes
// them in the Prometheus text format.
package metrics

import "time"

// ScenarioMetrics defines the interface for recording scenario
// metrics.
type ScenarioMetrics interface {
	// RecordExecution records a finished scenario.
	RecordExecution(scenarioID, status string, duration time.Duration)
	// RecordAssertion records an assertion evaluation.
	RecordAssertion(scenarioID, assertionType string, passed bool)
	// IncrementRunTotal increments the total run counter.
	IncrementRunTotal()
	// SetActiveScenarios sets the gauge of running scenarios.
	SetActiveScenarios(count int)
}

// NoopMetrics is a no-op implementation of ScenarioMetrics
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordExecution(_, _ string, _ time.Duration) {}
func (NoopMetrics) RecordAssertion(_, _ string, _ bool)          {}
func (NoopMetrics) IncrementRunTotal()                           {}
func (NoopMetrics) SetActiveScenarios(_ int)                     {}
