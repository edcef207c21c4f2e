package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/fixture"
	"digital.vasic.agentprobe/pkg/httpclient"
	"digital.vasic.agentprobe/pkg/scenario"
)

// AgentsUICreate fills the dashboard's create-agent form and waits
// for the new agent to show up in the list. The agent is looked up
// over the API afterwards so Cleanup can delete it.
type AgentsUICreate struct {
	scenario.BaseScenario
	deps   Deps
	seeder *fixture.Seeder
}

// NewAgentsUICreate creates the agents-ui-create scenario.
func NewAgentsUICreate(deps Deps) *AgentsUICreate {
	return &AgentsUICreate{
		BaseScenario: scenario.NewBaseScenario(
			IDAgentsUICreate,
			"Create agent in the dashboard",
			"Create form on the agents page adds a listed agent",
			scenario.CategoryAgents,
			[]scenario.ID{IDAPIHealth},
		),
		deps: deps.withDefaults(),
	}
}

func (s *AgentsUICreate) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("backend", "proxy")
}

func (s *AgentsUICreate) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	api := s.deps.apiClient(s.Target().BackendURL)
	s.seeder = fixture.NewSeeder(api, s.WorkerIndex(), s.deps.Logger)
	spec := s.seeder.Spec("e2e-ui")

	page, err := s.deps.NewPage(ctx)
	if err != nil {
		return s.CreateResult(
			scenario.StatusError, start, nil, nil, nil,
			fmt.Sprintf("open browser: %v", err),
		), nil
	}
	defer page.Close()

	submitted, formErr := s.submitForm(ctx, page, spec)
	if formErr != nil {
		s.LogError("create form failed", "error", formErr)
	}

	listedInUI := false
	var waited time.Duration
	if submitted {
		waitStart := time.Now()
		listErr := poll(ctx, s.deps.SettleTimeout, func(ctx context.Context) (bool, error) {
			text, err := page.Text(ctx, s.deps.Selectors.AgentList)
			if err != nil {
				return false, nil
			}
			return strings.Contains(text, spec.Name), nil
		})
		waited = time.Since(waitStart)
		listedInUI = listErr == nil
		s.ReportProgress("agent list checked", map[string]any{"listed": listedInUI})
	}

	agentID := s.trackCreated(ctx, api, spec.Name)

	values := map[string]any{
		"form_submitted": submitted,
		"listed_in_ui":   listedInUI,
		"agent_id":       agentID,
	}
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "equals", Target: "form_submitted", Value: true},
		scenario.AssertionDef{Type: "equals", Target: "listed_in_ui", Value: true},
		scenario.AssertionDef{Type: "not_empty", Target: "agent_id"},
	), values)

	errMsg := ""
	if formErr != nil {
		errMsg = formErr.Error()
	}
	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		map[string]string{
			"agent_name": spec.Name,
			"agent_id":   agentID,
		},
		errMsg,
	)
	result.Metric("list_wait_ms", millis(waited), "ms")
	captureFailure(ctx, &s.BaseScenario, page, result)
	return result, nil
}

// submitForm opens the agents page, opens the create form, fills it
// and submits. Optional fields missing from the form are skipped.
func (s *AgentsUICreate) submitForm(
	ctx context.Context,
	page Page,
	spec httpclient.AgentSpec,
) (bool, error) {
	sel := s.deps.Selectors
	url := agentsURL(s.Target(), sel.AgentsRoute)

	if err := page.Navigate(ctx, url); err != nil {
		return false, fmt.Errorf("open %s: %w", url, err)
	}
	if err := page.WaitVisible(ctx, sel.AgentsReady); err != nil {
		return false, fmt.Errorf("agents page: %w", err)
	}
	if err := page.ClickText(ctx, sel.CreateButton, sel.CreateButtonText); err != nil {
		return false, fmt.Errorf("open create form: %w", err)
	}
	if err := page.WaitVisible(ctx, sel.NameInput); err != nil {
		return false, fmt.Errorf("create form: %w", err)
	}
	s.ReportProgress("create form open", nil)

	if err := page.Fill(ctx, sel.NameInput, spec.Name); err != nil {
		return false, fmt.Errorf("fill name: %w", err)
	}
	optional := []struct{ selector, value string }{
		{sel.SystemInput, spec.SystemInstructions},
		{sel.TaskInput, spec.TaskInstructions},
		{sel.ModelInput, spec.Model},
	}
	for _, f := range optional {
		ok, err := page.Exists(ctx, f.selector)
		if err != nil || !ok {
			continue
		}
		if err := page.Fill(ctx, f.selector, f.value); err != nil {
			return false, fmt.Errorf("fill %s: %w", f.selector, err)
		}
	}

	if err := page.Click(ctx, sel.SubmitButton); err != nil {
		return false, fmt.Errorf("submit: %w", err)
	}
	if err := page.WaitStable(ctx); err != nil {
		s.LogDebug("page not stable after submit", "error", err)
	}
	return true, nil
}

// trackCreated finds the agent by name and hands it to the seeder
// for cleanup. It returns the agent id or "".
func (s *AgentsUICreate) trackCreated(
	ctx context.Context,
	api *httpclient.APIClient,
	name string,
) string {
	agents, err := api.ListAgents(ctx)
	if err != nil {
		s.LogError("list agents failed", "error", err)
		return ""
	}
	for _, a := range agents {
		if a.Name == name {
			s.seeder.Track(a)
			return a.ID
		}
	}
	return ""
}

// Cleanup deletes the agent created through the form.
func (s *AgentsUICreate) Cleanup(ctx context.Context) error {
	var errs []error
	if s.seeder != nil {
		errs = append(errs, s.seeder.Cleanup(ctx))
		s.seeder = nil
	}
	errs = append(errs, s.BaseScenario.Cleanup(ctx))
	return errors.Join(errs...)
}
