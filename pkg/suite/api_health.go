package suite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"digital.vasic.agentprobe/pkg/readiness"
	"digital.vasic.agentprobe/pkg/scenario"
)

// APIHealth probes the backend liveness path once through the
// readiness gate and once through the API client, recording the
// round-trip latency.
type APIHealth struct {
	scenario.BaseScenario
	deps Deps
}

// NewAPIHealth creates the api-health scenario.
func NewAPIHealth(deps Deps) *APIHealth {
	return &APIHealth{
		BaseScenario: scenario.NewBaseScenario(
			IDAPIHealth,
			"API health",
			"Backend health endpoint answers 2xx",
			scenario.CategoryAPI,
			nil,
		),
		deps: deps.withDefaults(),
	}
}

func (s *APIHealth) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("backend")
}

func (s *APIHealth) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	target := s.Target()

	opts := []readiness.Option{
		readiness.WithHealthPath(target.HealthPath),
		readiness.WithLogger(s.deps.Logger),
	}
	if s.deps.HTTPClient != nil {
		opts = append(opts, readiness.WithHTTPClient(s.deps.HTTPClient))
	}
	gate := readiness.New(target.BackendURL, 1, opts...)

	probeErr := gate.Probe(ctx)
	if probeErr != nil {
		s.LogError("readiness probe failed", "url", gate.URL(), "error", probeErr)
	}
	s.ReportProgress("probed", map[string]any{"url": gate.URL()})

	api := s.deps.apiClient(target.BackendURL)
	reqStart := time.Now()
	code, err := api.Health(ctx, target.HealthPath)
	latency := time.Since(reqStart)
	if err != nil {
		return s.CreateResult(
			scenario.StatusFailed, start, nil, nil,
			map[string]string{"health_url": gate.URL()},
			fmt.Sprintf("health request failed: %v", err),
		), nil
	}

	values := map[string]any{
		"ready":      probeErr == nil,
		"status":     code,
		"latency_ms": latency.Milliseconds(),
	}
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "equals", Target: "ready", Value: true},
		scenario.AssertionDef{Type: "status_2xx", Target: "status"},
	), values)

	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		map[string]string{
			"health_url": gate.URL(),
			"status":     strconv.Itoa(code),
		},
		"",
	)
	result.Metric("latency_ms", millis(latency), "ms")
	return result, nil
}
