package suite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"digital.vasic.agentprobe/internal/fakestack"
	"digital.vasic.agentprobe/pkg/assertion"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/runner"
	"digital.vasic.agentprobe/pkg/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake page ---

// fakePage scripts a browser against the fake stack: submitting the
// create form stores an agent and the agent list shows stored names.
type fakePage struct {
	stack *fakestack.Stack
	sel   Selectors

	mu      sync.Mutex
	visited []string
	filled  map[string]string
	clicked []string
	missing map[string]bool
	navErr  error
	shots   []string
	closed  bool
}

func newFakePage(stack *fakestack.Stack, missing ...string) *fakePage {
	p := &fakePage{
		stack:   stack,
		sel:     DefaultSelectors(),
		filled:  make(map[string]string),
		missing: make(map[string]bool),
	}
	for _, m := range missing {
		p.missing[m] = true
	}
	return p
}

func (p *fakePage) factory() PageFactory {
	return func(context.Context) (Page, error) { return p, nil }
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	return p.navErr
}

func (p *fakePage) WaitStable(context.Context) error { return nil }

func (p *fakePage) WaitVisible(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[selector] {
		return fmt.Errorf("element %q not visible", selector)
	}
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	p.clicked = append(p.clicked, selector)
	fields := map[string]any{
		"name":                p.filled[p.sel.NameInput],
		"system_instructions": p.filled[p.sel.SystemInput],
		"task_instructions":   p.filled[p.sel.TaskInput],
		"model":               p.filled[p.sel.ModelInput],
	}
	p.mu.Unlock()

	if selector == p.sel.SubmitButton && p.stack != nil {
		p.stack.CreateAgent(fields)
	}
	return nil
}

func (p *fakePage) ClickText(_ context.Context, selector, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) Fill(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filled[selector] = text
	return nil
}

func (p *fakePage) Text(context.Context, string) (string, error) {
	if p.stack == nil {
		return "", nil
	}
	return strings.Join(p.stack.AgentNames(), "\n"), nil
}

func (p *fakePage) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.missing[selector], nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	p.shots = append(p.shots, path)
	p.mu.Unlock()
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.visited) == 0 {
		return "", nil
	}
	return p.visited[len(p.visited)-1], nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// --- helpers ---

func stackConfig(t *testing.T, id scenario.ID, stack *fakestack.Stack) *scenario.Config {
	t.Helper()
	cfg := scenario.NewConfig(id)
	cfg.ResultsDir = t.TempDir()
	cfg.LogsDir = t.TempDir()
	cfg.Target.BackendURL = stack.URL()
	cfg.Target.ProxyURL = stack.URL()
	cfg.Target.WebSocketURL = stack.WebSocketURL()
	return cfg
}

type configurable interface {
	scenario.Scenario
	SetAssertionEngine(scenario.AssertionEngine)
}

func execute(t *testing.T, s configurable, stack *fakestack.Stack) *scenario.Result {
	t.Helper()
	require.NoError(t, s.Configure(stackConfig(t, s.ID(), stack)))
	s.SetAssertionEngine(assertion.NewEngine())
	require.NoError(t, s.Validate(context.Background()))

	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func assertionByTarget(r *scenario.Result, target string) (scenario.AssertionResult, bool) {
	for _, a := range r.Assertions {
		if a.Target == target {
			return a, true
		}
	}
	return scenario.AssertionResult{}, false
}

// --- api-health ---

func TestAPIHealth_Passes(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()

	result := execute(t, NewAPIHealth(Deps{}), stack)
	assert.Equal(t, scenario.StatusPassed, result.Status)
	assert.Equal(t, "200", result.Outputs["status"])
	assert.Equal(t, stack.URL()+"/health", result.Outputs["health_url"])
	assert.Contains(t, result.Metrics, "latency_ms")
	assert.Len(t, result.Assertions, 2)
}

func TestAPIHealth_Unhealthy(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	stack.SetHealthy(false)

	result := execute(t, NewAPIHealth(Deps{}), stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)

	ready, ok := assertionByTarget(result, "ready")
	require.True(t, ok)
	assert.False(t, ready.Passed)
	status, ok := assertionByTarget(result, "status")
	require.True(t, ok)
	assert.False(t, status.Passed)
}

func TestAPIHealth_Unreachable(t *testing.T) {
	stack := fakestack.New()
	s := NewAPIHealth(Deps{})
	require.NoError(t, s.Configure(stackConfig(t, s.ID(), stack)))
	stack.Close()

	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "health request failed")
}

func TestAPIHealth_ValidateRequiresBackend(t *testing.T) {
	s := NewAPIHealth(Deps{})
	cfg := scenario.NewConfig(s.ID())
	cfg.ResultsDir = t.TempDir()
	cfg.LogsDir = t.TempDir()
	cfg.Target.BackendURL = ""
	require.NoError(t, s.Configure(cfg))

	err := s.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend url not set")
}

// --- agents-api-create ---

func TestAgentsAPICreate_CreatesListsAndCleansUp(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()

	s := NewAgentsAPICreate(Deps{})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
	assert.Equal(t, "201", result.Outputs["status"])
	assert.NotEmpty(t, result.Outputs["agent_id"])
	assert.True(t, strings.HasPrefix(result.Outputs["agent_name"], "e2e-api-w0-"))
	assert.Contains(t, result.Metrics, "create_latency_ms")
	assert.Equal(t, 1, stack.Creates())

	require.NoError(t, s.Cleanup(context.Background()))
	assert.Equal(t, 1, stack.Deletes())
	assert.Empty(t, stack.Agents())
}

func TestAgentsAPICreate_NameCarriesWorkerIndex(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()

	s := NewAgentsAPICreate(Deps{})
	cfg := stackConfig(t, s.ID(), stack)
	cfg.WorkerIndex = 3
	require.NoError(t, s.Configure(cfg))
	s.SetAssertionEngine(assertion.NewEngine())

	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Outputs["agent_name"], "-w3-")
	require.NoError(t, s.Cleanup(context.Background()))
}

func TestAgentsAPICreate_RejectedCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewAgentsAPICreate(Deps{})
	cfg := scenario.NewConfig(s.ID())
	cfg.ResultsDir = t.TempDir()
	cfg.LogsDir = t.TempDir()
	cfg.Target.BackendURL = srv.URL
	require.NoError(t, s.Configure(cfg))
	s.SetAssertionEngine(assertion.NewEngine())

	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Equal(t, "500", result.Outputs["status"])

	status, ok := assertionByTarget(result, "status")
	require.True(t, ok)
	assert.False(t, status.Passed)
	require.NoError(t, s.Cleanup(context.Background()))
}

// --- navigation ---

func TestNavigation_LoadsAllRoutes(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack)

	result := execute(t, NewNavigation(Deps{NewPage: page.factory()}), stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
	assert.Equal(t, []string{
		stack.URL() + "/",
		stack.URL() + "/agents",
		stack.URL() + "/chat",
	}, page.visited)
	assert.Equal(t, 3.0, result.Metrics["routes_loaded"].Value)
	assert.True(t, page.closed)
	assert.Empty(t, result.Artifacts)
}

func TestNavigation_MissingLandmark(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack, DefaultSelectors().ChatReady)

	result := execute(t, NewNavigation(Deps{NewPage: page.factory()}), stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Equal(t, "routes failed: chat", result.Error)
	assert.Contains(t, result.Outputs["chat"], "not visible")
	require.Len(t, result.Artifacts, 1)
	assert.FileExists(t, result.Artifacts[0])
}

func TestNavigation_URLPathAssertions(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack)

	s := NewNavigation(Deps{NewPage: page.factory()})
	cfg := stackConfig(t, s.ID(), stack)
	cfg.Assertions = []scenario.AssertionDef{
		{Type: "url_path", Target: "agents_url", Value: "/agents"},
		{Type: "url_path", Target: "chat_url", Value: "/login"},
		{Type: "files_exist", Target: "screenshots", Value: 0},
	}
	require.NoError(t, s.Configure(cfg))
	s.SetAssertionEngine(assertion.NewEngine())
	result, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scenario.StatusFailed, result.Status)
	agents, ok := assertionByTarget(result, "agents_url")
	require.True(t, ok)
	assert.True(t, agents.Passed, agents.Message)
	chat, ok := assertionByTarget(result, "chat_url")
	require.True(t, ok)
	assert.False(t, chat.Passed)
	shots, ok := assertionByTarget(result, "screenshots")
	require.True(t, ok)
	assert.True(t, shots.Passed, shots.Message)
}

func TestNavigation_CustomSelectors(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack, DefaultSelectors().DashboardReady)

	deps := Deps{
		NewPage:   page.factory(),
		Selectors: Selectors{DashboardReady: "#dashboard"},
	}
	result := execute(t, NewNavigation(deps), stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
}

func TestNavigation_BrowserUnavailable(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	deps := Deps{NewPage: func(context.Context) (Page, error) {
		return nil, errors.New("chrome not found")
	}}

	result := execute(t, NewNavigation(deps), stack)
	assert.Equal(t, scenario.StatusError, result.Status)
	assert.Contains(t, result.Error, "chrome not found")
}

// --- agents-ui-create ---

func TestAgentsUICreate_SubmitsFormAndSeesAgent(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack)

	s := NewAgentsUICreate(Deps{NewPage: page.factory()})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)

	sel := DefaultSelectors()
	name := result.Outputs["agent_name"]
	assert.True(t, strings.HasPrefix(name, "e2e-ui-w0-"))
	assert.Equal(t, name, page.filled[sel.NameInput])
	assert.NotEmpty(t, page.filled[sel.SystemInput])
	assert.NotEmpty(t, page.filled[sel.TaskInput])
	assert.NotEmpty(t, page.filled[sel.ModelInput])
	assert.Contains(t, page.clicked, sel.SubmitButton)
	assert.Equal(t, []string{stack.URL() + "/agents"}, page.visited)
	assert.NotEmpty(t, result.Outputs["agent_id"])

	require.NoError(t, s.Cleanup(context.Background()))
	assert.Empty(t, stack.Agents())
}

func TestAgentsUICreate_SkipsMissingOptionalFields(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	sel := DefaultSelectors()
	page := newFakePage(stack, sel.SystemInput, sel.TaskInput, sel.ModelInput)

	s := NewAgentsUICreate(Deps{NewPage: page.factory()})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
	assert.NotContains(t, page.filled, sel.ModelInput)
	require.NoError(t, s.Cleanup(context.Background()))
}

func TestAgentsUICreate_FormNotFound(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack, DefaultSelectors().NameInput)

	s := NewAgentsUICreate(Deps{NewPage: page.factory()})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "create form")
	assert.Zero(t, stack.Creates())

	submitted, ok := assertionByTarget(result, "form_submitted")
	require.True(t, ok)
	assert.False(t, submitted.Passed)
	require.Len(t, result.Artifacts, 1)
	assert.FileExists(t, result.Artifacts[0])
	require.NoError(t, s.Cleanup(context.Background()))
}

func TestAgentsUICreate_AgentNeverListed(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(nil)

	s := NewAgentsUICreate(Deps{
		NewPage:       page.factory(),
		SettleTimeout: 300 * time.Millisecond,
	})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)

	listed, ok := assertionByTarget(result, "listed_in_ui")
	require.True(t, ok)
	assert.False(t, listed.Passed)
	require.NoError(t, s.Cleanup(context.Background()))
}

// --- websocket-events ---

func TestWebSocketEvents_ReceivesAgentEvent(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()

	s := NewWebSocketEvents(Deps{SettleTimeout: 5 * time.Second})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
	assert.Equal(t, "1", result.Outputs["event_count"])
	assert.Equal(t, "0", result.Outputs["non_json_count"])
	assert.Contains(t, result.Metrics, "first_event_ms")

	require.NoError(t, s.Cleanup(context.Background()))
	assert.Empty(t, stack.Agents())
	assert.Eventually(t, func() bool { return stack.Clients() == 0 },
		2*time.Second, 20*time.Millisecond)
}

func TestWebSocketEvents_NoEventFails(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	stack.SetSilentWebSocket(true)

	s := NewWebSocketEvents(Deps{SettleTimeout: 300 * time.Millisecond})
	result := execute(t, s, stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "no event within")
	assert.NotContains(t, result.Metrics, "first_event_ms")
	require.NoError(t, s.Cleanup(context.Background()))
}

func TestWebSocketEvents_DialFailure(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()

	s := NewWebSocketEvents(Deps{})
	cfg := stackConfig(t, s.ID(), stack)
	cfg.Target.WebSocketURL = strings.TrimSuffix(stack.WebSocketURL(), "/ws") + "/nope"
	require.NoError(t, s.Configure(cfg))

	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "dial")
	assert.Zero(t, stack.Creates())
	require.NoError(t, s.Cleanup(context.Background()))
}

// --- chat-open ---

func TestChatOpen_FindsInput(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack)

	result := execute(t, NewChatOpen(Deps{NewPage: page.factory()}), stack)
	assert.Equal(t, scenario.StatusPassed, result.Status, result.Error)
	assert.Equal(t, []string{stack.URL() + "/chat"}, page.visited)
	assert.Contains(t, result.Metrics, "load_ms")
}

func TestChatOpen_MissingInput(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack, DefaultSelectors().ChatInput)

	result := execute(t, NewChatOpen(Deps{NewPage: page.factory()}), stack)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	require.Len(t, result.Artifacts, 1)
}

func TestChatOpen_NotServedSkips(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	stack.SetChatServed(false)

	opened := false
	deps := Deps{NewPage: func(context.Context) (Page, error) {
		opened = true
		return newFakePage(stack), nil
	}}
	result := execute(t, NewChatOpen(deps), stack)
	assert.Equal(t, scenario.StatusSkipped, result.Status)
	assert.Equal(t, "chat frontend not served", result.Error)
	assert.False(t, opened)
}

// --- registration and full run ---

func TestRegister(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, Register(reg, Deps{}))
	assert.Equal(t, 6, reg.Count())
	require.NoError(t, reg.ValidateDependencies())

	ordered, err := reg.GetDependencyOrder()
	require.NoError(t, err)
	pos := make(map[scenario.ID]int, len(ordered))
	for i, s := range ordered {
		pos[s.ID()] = i
	}
	for _, id := range []scenario.ID{IDAgentsAPICreate, IDNavigation, IDAgentsUICreate, IDWebSocketEvents} {
		assert.Less(t, pos[IDAPIHealth], pos[id], id)
	}

	err = Register(reg, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register api-health")
}

func TestSelectorsMerge(t *testing.T) {
	got := Selectors{ChatInput: "#message"}.merge(DefaultSelectors())
	assert.Equal(t, "#message", got.ChatInput)
	assert.Equal(t, DefaultSelectors().SubmitButton, got.SubmitButton)
}

func TestSuite_RunAllAgainstFakeStack(t *testing.T) {
	stack := fakestack.New()
	defer stack.Close()
	page := newFakePage(stack)

	reg := registry.NewRegistry()
	require.NoError(t, Register(reg, Deps{
		NewPage:       page.factory(),
		SettleTimeout: 5 * time.Second,
	}))
	r := runner.NewRunner(
		runner.WithRegistry(reg),
		runner.WithAssertionEngine(assertion.NewEngine()),
		runner.WithResultsDir(t.TempDir()),
	)

	cfg := stackConfig(t, "", stack)
	results, err := r.RunAll(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, res := range results {
		assert.Equal(t, scenario.StatusPassed, res.Status, "%s: %s", res.ScenarioID, res.Error)
	}
	assert.Empty(t, stack.Agents(), "cleanup removes seeded agents")
}
