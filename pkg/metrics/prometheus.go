package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const namespace = "agentprobe"

type execKey struct{ scenario, status string }

type assertKey struct{ scenario, assertion, result string }

type durationStat struct {
	count int
	sum   time.Duration
}

// PrometheusMetrics implements ScenarioMetrics with in-memory
// counters and renders them in the Prometheus text exposition
// format. It is safe for concurrent use by parallel workers.
type PrometheusMetrics struct {
	mu         sync.RWMutex
	executions map[execKey]int
	assertions map[assertKey]int
	durations  map[string]durationStat
	runTotal   int
	active     int
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		executions: make(map[execKey]int),
		assertions: make(map[assertKey]int),
		durations:  make(map[string]durationStat),
	}
}

func (m *PrometheusMetrics) RecordExecution(scenarioID, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[execKey{scenarioID, status}]++
	d := m.durations[scenarioID]
	d.count++
	d.sum += duration
	m.durations[scenarioID] = d
}

func (m *PrometheusMetrics) RecordAssertion(scenarioID, assertionType string, passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertions[assertKey{scenarioID, assertionType, result}]++
}

func (m *PrometheusMetrics) IncrementRunTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runTotal++
}

func (m *PrometheusMetrics) SetActiveScenarios(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}

// ExecutionCount returns the count for a scenario+status combination.
func (m *PrometheusMetrics) ExecutionCount(scenarioID, status string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.executions[execKey{scenarioID, status}]
}

// AssertionCount returns how often an assertion type passed or
// failed for a scenario.
func (m *PrometheusMetrics) AssertionCount(scenarioID, assertionType string, passed bool) int {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assertions[assertKey{scenarioID, assertionType, result}]
}

// RunTotal returns the total number of runs.
func (m *PrometheusMetrics) RunTotal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runTotal
}

// ActiveScenarios returns the current active scenarios gauge.
func (m *PrometheusMetrics) ActiveScenarios() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// WriteTo renders all series in the Prometheus text format with
// label sets sorted for stable output.
func (m *PrometheusMetrics) WriteTo(w io.Writer) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	header(&b, "runs_total", "counter", "Suite runs started.")
	fmt.Fprintf(&b, "%s_runs_total %d\n", namespace, m.runTotal)

	header(&b, "active_scenarios", "gauge", "Scenarios currently executing.")
	fmt.Fprintf(&b, "%s_active_scenarios %d\n", namespace, m.active)

	header(&b, "scenario_executions_total", "counter", "Finished scenarios by status.")
	execs := make([]execKey, 0, len(m.executions))
	for k := range m.executions {
		execs = append(execs, k)
	}
	sort.Slice(execs, func(i, j int) bool {
		if execs[i].scenario != execs[j].scenario {
			return execs[i].scenario < execs[j].scenario
		}
		return execs[i].status < execs[j].status
	})
	for _, k := range execs {
		fmt.Fprintf(&b, "%s_scenario_executions_total{scenario=%q,status=%q} %d\n",
			namespace, k.scenario, k.status, m.executions[k])
	}

	header(&b, "assertions_total", "counter", "Evaluated assertions by result.")
	asserts := make([]assertKey, 0, len(m.assertions))
	for k := range m.assertions {
		asserts = append(asserts, k)
	}
	sort.Slice(asserts, func(i, j int) bool {
		a, c := asserts[i], asserts[j]
		if a.scenario != c.scenario {
			return a.scenario < c.scenario
		}
		if a.assertion != c.assertion {
			return a.assertion < c.assertion
		}
		return a.result < c.result
	})
	for _, k := range asserts {
		fmt.Fprintf(&b, "%s_assertions_total{scenario=%q,type=%q,result=%q} %d\n",
			namespace, k.scenario, k.assertion, k.result, m.assertions[k])
	}

	header(&b, "scenario_duration_seconds", "summary", "Scenario wall time.")
	ids := make([]string, 0, len(m.durations))
	for id := range m.durations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := m.durations[id]
		fmt.Fprintf(&b, "%s_scenario_duration_seconds_sum{scenario=%q} %g\n",
			namespace, id, d.sum.Seconds())
		fmt.Fprintf(&b, "%s_scenario_duration_seconds_count{scenario=%q} %d\n",
			namespace, id, d.count)
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func header(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s_%s %s\n", namespace, name, help)
	fmt.Fprintf(b, "# TYPE %s_%s %s\n", namespace, name, kind)
}

// Handler serves the exposition at any path.
func (m *PrometheusMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = m.WriteTo(w)
	})
}
