package scenario

import "time"

// Status values for scenario outcomes.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusPassed   = "passed"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusTimedOut = "timed_out"
	StatusStuck    = "stuck"
	StatusError    = "error"
)

// Result is the complete outcome of a scenario execution.
type Result struct {
	ScenarioID   ID                     `json:"scenario_id"`
	ScenarioName string                 `json:"scenario_name"`
	Category     string                 `json:"category,omitempty"`
	Status       string                 `json:"status"`
	WorkerIndex  int                    `json:"worker_index"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	Duration     time.Duration          `json:"duration"`
	Assertions   []AssertionResult      `json:"assertions"`
	Metrics      map[string]MetricValue `json:"metrics"`
	Outputs      map[string]string      `json:"outputs"`
	Artifacts    []string               `json:"artifacts,omitempty"`
	Logs         LogPaths               `json:"logs"`
	Error        string                 `json:"error,omitempty"`
}

// AssertionResult is the outcome of a single assertion.
type AssertionResult struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
}

// MetricValue is a named measurement with its unit.
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// LogPaths holds file paths for logs written during execution.
type LogPaths struct {
	ScenarioLog  string `json:"scenario_log"`
	BrowserLog   string `json:"browser_log,omitempty"`
	APIRequests  string `json:"api_requests,omitempty"`
	APIResponses string `json:"api_responses,omitempty"`
}

// AllPassed reports whether every assertion passed.
func (r *Result) AllPassed() bool {
	for _, a := range r.Assertions {
		if !a.Passed {
			return false
		}
	}
	return true
}

// FailedAssertions returns the assertions that did not pass.
func (r *Result) FailedAssertions() []AssertionResult {
	var out []AssertionResult
	for _, a := range r.Assertions {
		if !a.Passed {
			out = append(out, a)
		}
	}
	return out
}

// IsFinal reports whether the status is terminal.
func (r *Result) IsFinal() bool {
	switch r.Status {
	case StatusPassed, StatusFailed, StatusSkipped,
		StatusTimedOut, StatusStuck, StatusError:
		return true
	}
	return false
}

// Metric records a named metric on the result, allocating the map
// on first use.
func (r *Result) Metric(name string, value float64, unit string) {
	if r.Metrics == nil {
		r.Metrics = make(map[string]MetricValue)
	}
	r.Metrics[name] = MetricValue{Name: name, Value: value, Unit: unit}
}
