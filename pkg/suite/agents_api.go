package suite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"digital.vasic.agentprobe/pkg/fixture"
	"digital.vasic.agentprobe/pkg/httpclient"
	"digital.vasic.agentprobe/pkg/scenario"
)

// AgentsAPICreate creates an agent with POST /api/agents and checks
// the record and the listing. The agent is deleted in Cleanup.
type AgentsAPICreate struct {
	scenario.BaseScenario
	deps   Deps
	seeder *fixture.Seeder
}

// NewAgentsAPICreate creates the agents-api-create scenario.
func NewAgentsAPICreate(deps Deps) *AgentsAPICreate {
	return &AgentsAPICreate{
		BaseScenario: scenario.NewBaseScenario(
			IDAgentsAPICreate,
			"Create agent over HTTP",
			"POST /api/agents returns 201 and the agent is listed",
			scenario.CategoryAgents,
			[]scenario.ID{IDAPIHealth},
		),
		deps: deps.withDefaults(),
	}
}

func (s *AgentsAPICreate) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("backend")
}

func (s *AgentsAPICreate) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	api := s.deps.apiClient(s.Target().BackendURL)
	s.seeder = fixture.NewSeeder(api, s.WorkerIndex(), s.deps.Logger)

	spec := s.seeder.Spec("e2e-api")
	createStart := time.Now()
	agent, err := s.seeder.SeedSpec(ctx, spec)
	latency := time.Since(createStart)

	status := http.StatusCreated
	if err != nil {
		var se *httpclient.StatusError
		if !errors.As(err, &se) {
			return s.CreateResult(
				scenario.StatusFailed, start, nil, nil,
				map[string]string{"agent_name": spec.Name},
				err.Error(),
			), nil
		}
		status = se.StatusCode
	}
	s.ReportProgress("agent created", map[string]any{"status": status})

	listed := false
	if agent.ID != "" {
		agents, lerr := api.ListAgents(ctx)
		if lerr != nil {
			s.LogError("list agents failed", "error", lerr)
		}
		for _, a := range agents {
			if a.ID == agent.ID {
				listed = true
				break
			}
		}
	}

	values := map[string]any{
		"status":     status,
		"name":       agent.Name,
		"agent_id":   agent.ID,
		"listed":     listed,
		"latency_ms": latency.Milliseconds(),
	}
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "status_code", Target: "status", Value: http.StatusCreated},
		scenario.AssertionDef{Type: "equals", Target: "name", Value: spec.Name},
		scenario.AssertionDef{Type: "not_empty", Target: "agent_id"},
		scenario.AssertionDef{Type: "equals", Target: "listed", Value: true},
	), values)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		map[string]string{
			"agent_id":   agent.ID,
			"agent_name": spec.Name,
			"status":     fmt.Sprint(status),
		},
		errMsg,
	)
	result.Metric("create_latency_ms", millis(latency), "ms")
	return result, nil
}

// Cleanup deletes the agents this run created.
func (s *AgentsAPICreate) Cleanup(ctx context.Context) error {
	var errs []error
	if s.seeder != nil {
		errs = append(errs, s.seeder.Cleanup(ctx))
		s.seeder = nil
	}
	errs = append(errs, s.BaseScenario.Cleanup(ctx))
	return errors.Join(errs...)
}
