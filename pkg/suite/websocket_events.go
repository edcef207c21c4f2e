package suite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"digital.vasic.agentprobe/pkg/fixture"
	"digital.vasic.agentprobe/pkg/scenario"
	"digital.vasic.agentprobe/pkg/wsprobe"
)

// WebSocketEvents subscribes to the backend event stream, creates an
// agent over the API and expects at least one JSON event frame.
type WebSocketEvents struct {
	scenario.BaseScenario
	deps     Deps
	seeder   *fixture.Seeder
	listener *wsprobe.Listener
}

// NewWebSocketEvents creates the websocket-events scenario.
func NewWebSocketEvents(deps Deps) *WebSocketEvents {
	return &WebSocketEvents{
		BaseScenario: scenario.NewBaseScenario(
			IDWebSocketEvents,
			"WebSocket events",
			"Creating an agent produces an event on the backend WebSocket",
			scenario.CategoryWebSocket,
			[]scenario.ID{IDAPIHealth},
		),
		deps: deps.withDefaults(),
	}
}

func (s *WebSocketEvents) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("backend", "websocket")
}

func (s *WebSocketEvents) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	target := s.Target()

	opts := []wsprobe.Option{wsprobe.WithLogger(s.deps.Logger)}
	if s.deps.Token != "" {
		opts = append(opts, wsprobe.WithHeader(http.Header{
			"Authorization": []string{"Bearer " + s.deps.Token},
		}))
	}
	listener, err := wsprobe.Dial(ctx, target.WebSocketURL, opts...)
	if err != nil {
		return s.CreateResult(
			scenario.StatusFailed, start, nil, nil,
			map[string]string{"websocket_url": target.WebSocketURL},
			err.Error(),
		), nil
	}
	s.listener = listener
	s.ReportProgress("subscribed", map[string]any{"url": target.WebSocketURL})

	api := s.deps.apiClient(target.BackendURL)
	s.seeder = fixture.NewSeeder(api, s.WorkerIndex(), s.deps.Logger)
	triggered := time.Now()
	agent, err := s.seeder.SeedAgent(ctx, "e2e-ws")
	if err != nil {
		return s.CreateResult(
			scenario.StatusFailed, start, nil, nil,
			map[string]string{"websocket_url": target.WebSocketURL},
			fmt.Sprintf("trigger event: %v", err),
		), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.deps.SettleTimeout)
	defer cancel()
	first, waitErr := listener.WaitForCount(waitCtx, 1)
	if waitErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var firstLatency time.Duration
	if len(first) > 0 {
		firstLatency = first[0].ReceivedAt.Sub(triggered)
		if firstLatency < 0 {
			firstLatency = 0
		}
	}
	s.ReportProgress("events received", map[string]any{"count": listener.Count()})

	events := listener.Events()
	types := make([]string, 0, len(events))
	for _, e := range events {
		if e.Type != "" {
			types = append(types, e.Type)
		}
	}

	values := map[string]any{
		"event_count": len(events),
		"event_types": types,
		"agent_id":    agent.ID,
	}
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "min_count", Target: "event_count", Value: 1},
	), values)

	errMsg := ""
	if waitErr != nil {
		errMsg = fmt.Sprintf("no event within %s: %v", s.deps.SettleTimeout, waitErr)
	}
	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		map[string]string{
			"websocket_url":  target.WebSocketURL,
			"agent_id":       agent.ID,
			"event_count":    strconv.Itoa(len(events)),
			"non_json_count": strconv.Itoa(listener.Dropped()),
		},
		errMsg,
	)
	result.Metric("event_count", float64(len(events)), "count")
	if len(first) > 0 {
		result.Metric("first_event_ms", millis(firstLatency), "ms")
	}
	return result, nil
}

// Cleanup closes the subscription and deletes the seeded agent.
func (s *WebSocketEvents) Cleanup(ctx context.Context) error {
	var errs []error
	if s.listener != nil {
		errs = append(errs, s.listener.Close())
		s.listener = nil
	}
	if s.seeder != nil {
		errs = append(errs, s.seeder.Cleanup(ctx))
		s.seeder = nil
	}
	errs = append(errs, s.BaseScenario.Cleanup(ctx))
	return errors.Join(errs...)
}
