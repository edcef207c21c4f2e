package suite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Navigation loads the dashboard root, the agents page and the chat
// frontend through the unified proxy and waits for each landmark.
type Navigation struct {
	scenario.BaseScenario
	deps Deps
}

// NewNavigation creates the navigation scenario.
func NewNavigation(deps Deps) *Navigation {
	return &Navigation{
		BaseScenario: scenario.NewBaseScenario(
			IDNavigation,
			"Navigation",
			"Dashboard, agents page and chat load through the proxy",
			scenario.CategoryNavigation,
			[]scenario.ID{IDAPIHealth},
		),
		deps: deps.withDefaults(),
	}
}

func (s *Navigation) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("proxy")
}

type route struct {
	name     string
	url      string
	landmark string
}

func (s *Navigation) routes() []route {
	t := s.Target()
	sel := s.deps.Selectors
	return []route{
		{name: "dashboard", url: t.DashboardURL(), landmark: sel.DashboardReady},
		{name: "agents", url: agentsURL(t, sel.AgentsRoute), landmark: sel.AgentsReady},
		{name: "chat", url: t.ChatURL(), landmark: sel.ChatReady},
	}
}

func (s *Navigation) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	page, err := s.deps.NewPage(ctx)
	if err != nil {
		return s.CreateResult(
			scenario.StatusError, start, nil, nil, nil,
			fmt.Sprintf("open browser: %v", err),
		), nil
	}
	defer page.Close()

	routes := s.routes()
	outputs := make(map[string]string, len(routes))
	values := make(map[string]any, len(routes)+3)
	loaded := 0
	var failed, artifacts []string
	for _, r := range routes {
		routeStart := time.Now()
		err := page.Navigate(ctx, r.url)
		if err == nil {
			err = page.WaitVisible(ctx, r.landmark)
		}
		elapsed := time.Since(routeStart)
		if err != nil {
			failed = append(failed, r.name)
			outputs[r.name] = "error: " + err.Error()
			s.LogError("route failed", "route", r.name, "url", r.url, "error", err)
			if shot := s.ArtifactPath(r.name + "-failure.png"); page.Screenshot(ctx, shot) == nil {
				artifacts = append(artifacts, shot)
			}
		} else {
			loaded++
			outputs[r.name] = r.url
			if final, err := page.CurrentURL(ctx); err == nil && final != "" {
				values[r.name+"_url"] = final
			}
		}
		s.ReportProgress("route visited", map[string]any{
			"route": r.name, "ms": elapsed.Milliseconds(),
		})
	}

	values["routes_loaded"] = loaded
	values["failed_routes"] = failed
	values["screenshots"] = artifacts
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "exact_count", Target: "routes_loaded", Value: len(routes)},
	), values)

	errMsg := ""
	if len(failed) > 0 {
		errMsg = "routes failed: " + strings.Join(failed, ", ")
	}
	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		outputs, errMsg,
	)
	result.Artifacts = artifacts
	result.Metric("routes_loaded", float64(loaded), "count")
	return result, nil
}
