package scenario

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	infos  []string
	errors []string
	closed bool
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(string, ...any)        {}
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Debug(string, ...any)       {}
func (l *recordingLogger) Close() error {
	l.closed = true
	return nil
}

type passEngine struct{}

func (passEngine) Evaluate(d AssertionDef, v any) AssertionResult {
	return AssertionResult{Type: d.Type, Target: d.Target, Actual: v, Passed: true}
}

func (e passEngine) EvaluateAll(defs []AssertionDef, values map[string]any) []AssertionResult {
	out := make([]AssertionResult, 0, len(defs))
	for _, d := range defs {
		out = append(out, e.Evaluate(d, values[d.Target]))
	}
	return out
}

func configured(t *testing.T, id ID) (*BaseScenario, *Config) {
	t.Helper()
	b := NewBaseScenario(id, "Name", "desc", CategoryAPI, nil)
	cfg := NewConfig(id)
	cfg.ResultsDir = filepath.Join(t.TempDir(), "results")
	cfg.LogsDir = filepath.Join(cfg.ResultsDir, "logs")
	require.NoError(t, b.Configure(cfg))
	return &b, cfg
}

func TestNewBaseScenario_Identity(t *testing.T) {
	b := NewBaseScenario(
		"agents-api-create", "Create agent", "desc",
		CategoryAgents, []ID{"api-health"},
	)
	assert.Equal(t, ID("agents-api-create"), b.ID())
	assert.Equal(t, "Create agent", b.Name())
	assert.Equal(t, "desc", b.Description())
	assert.Equal(t, CategoryAgents, b.Category())
	assert.Equal(t, []ID{"api-health"}, b.Dependencies())
}

func TestNewBaseScenario_NilDeps(t *testing.T) {
	b := NewBaseScenario("x", "x", "", CategoryAPI, nil)
	assert.NotNil(t, b.Dependencies())
	assert.Empty(t, b.Dependencies())
}

func TestBaseScenario_Configure_CreatesDirs(t *testing.T) {
	b, _ := configured(t, "dirs")

	_, err := os.Stat(b.ResultsDir())
	assert.NoError(t, err)
	_, err = os.Stat(b.LogsDir())
	assert.NoError(t, err)
}

func TestBaseScenario_Configure_Nil(t *testing.T) {
	b := NewBaseScenario("nil", "nil", "", CategoryAPI, nil)
	err := b.Configure(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be nil")
}

func TestBaseScenario_Validate(t *testing.T) {
	b := NewBaseScenario("v", "v", "", CategoryAPI, nil)
	err := b.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	cb, _ := configured(t, "v2")
	assert.NoError(t, cb.Validate(context.Background()))
}

func TestBaseScenario_RequireTarget(t *testing.T) {
	b, cfg := configured(t, "target")
	assert.NoError(t, b.RequireTarget("backend", "proxy", "websocket"))

	cfg.Target.WebSocketURL = " "
	err := b.RequireTarget("websocket")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket url not set")

	assert.Error(t, b.RequireTarget("nope"))
}

func TestBaseScenario_DefaultDirsWithoutConfig(t *testing.T) {
	b := NewBaseScenario("d", "d", "", CategoryAPI, nil)
	assert.Equal(t, "results", b.ResultsDir())
	assert.Equal(t, "logs", b.LogsDir())
	assert.Equal(t, 0, b.WorkerIndex())
	assert.Equal(t, Target{}, b.Target())
	assert.Equal(t, "fb", b.GetEnv("K", "fb"))
}

func TestBaseScenario_WriteJSONResultAndReport(t *testing.T) {
	b, _ := configured(t, "write")
	res := b.CreateResult(
		StatusFailed, time.Now().Add(-time.Second),
		[]AssertionResult{
			{Target: "status", Passed: true, Message: "ok"},
			{Target: "body", Passed: false, Message: "missing name"},
		},
		nil, map[string]string{"k": "v"}, "boom",
	)
	res.Artifacts = []string{b.ArtifactPath("page.png")}

	require.NoError(t, b.WriteJSONResult(res))
	require.NoError(t, b.WriteMarkdownReport(res))

	data, err := os.ReadFile(filepath.Join(b.ResultsDir(), "result.json"))
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ID("write"), decoded.ScenarioID)
	assert.Equal(t, StatusFailed, decoded.Status)

	md, err := os.ReadFile(filepath.Join(b.ResultsDir(), "report.md"))
	require.NoError(t, err)
	text := string(md)
	assert.Contains(t, text, "[PASS] status: ok")
	assert.Contains(t, text, "[FAIL] body: missing name")
	assert.Contains(t, text, "page.png")
	assert.True(t, strings.Contains(text, "boom"))
}

func TestBaseScenario_ReadDependencyResult(t *testing.T) {
	up, cfg := configured(t, "upstream")
	require.NoError(t, up.WriteJSONResult(
		up.CreateResult(StatusPassed, time.Now(), nil, nil,
			map[string]string{"agent_id": "a-1"}, ""),
	))

	down := NewBaseScenario("downstream", "d", "", CategoryAgents, []ID{"upstream"})
	dcfg := *cfg
	dcfg.ScenarioID = "downstream"
	dcfg.Dependencies = map[ID]string{"upstream": cfg.ResultsDir}
	require.NoError(t, down.Configure(&dcfg))

	res, err := down.ReadDependencyResult("upstream")
	require.NoError(t, err)
	assert.Equal(t, "a-1", res.Outputs["agent_id"])

	_, err = down.ReadDependencyResult("missing")
	assert.Error(t, err)
}

func TestBaseScenario_EvaluateAssertions(t *testing.T) {
	b, _ := configured(t, "eval")
	defs := []AssertionDef{{Type: "not_empty", Target: "name"}}

	noEngine := b.EvaluateAssertions(defs, map[string]any{"name": "x"})
	require.Len(t, noEngine, 1)
	assert.False(t, noEngine[0].Passed)
	assert.Contains(t, noEngine[0].Message, "no assertion engine")

	b.SetAssertionEngine(passEngine{})
	withEngine := b.EvaluateAssertions(defs, map[string]any{"name": "x"})
	require.Len(t, withEngine, 1)
	assert.True(t, withEngine[0].Passed)
}

func TestBaseScenario_AssertionsAppendsConfigExtras(t *testing.T) {
	var bare BaseScenario
	assert.Equal(t, []AssertionDef{{Type: "a"}}, bare.Assertions(AssertionDef{Type: "a"}))

	b, cfg := configured(t, "extras")
	cfg.Assertions = []AssertionDef{{Type: "max_latency", Target: "latency_ms", Value: 500}}
	got := b.Assertions(AssertionDef{Type: "status_2xx", Target: "status"})
	require.Len(t, got, 2)
	assert.Equal(t, "status_2xx", got[0].Type)
	assert.Equal(t, "max_latency", got[1].Type)
}

func TestBaseScenario_CreateResult(t *testing.T) {
	b, cfg := configured(t, "create")
	cfg.WorkerIndex = 3
	start := time.Now().Add(-50 * time.Millisecond)

	res := b.CreateResult(StatusPassed, start, nil, nil, nil, "")
	assert.Equal(t, ID("create"), res.ScenarioID)
	assert.Equal(t, CategoryAPI, res.Category)
	assert.Equal(t, 3, res.WorkerIndex)
	assert.GreaterOrEqual(t, res.Duration, 50*time.Millisecond)
	assert.Equal(t, filepath.Join(b.LogsDir(), "scenario.log"), res.Logs.ScenarioLog)
}

func TestBaseScenario_LoggingAndCleanup(t *testing.T) {
	b, _ := configured(t, "log")
	l := &recordingLogger{}
	b.SetLogger(l)

	b.LogInfo("hello")
	b.LogError("bad")
	require.NoError(t, b.Cleanup(context.Background()))

	assert.Equal(t, []string{"hello"}, l.infos)
	assert.Equal(t, []string{"bad"}, l.errors)
	assert.True(t, l.closed)
}

func TestBaseScenario_ReportProgress(t *testing.T) {
	b, _ := configured(t, "progress")
	b.ReportProgress("no reporter attached", nil)

	p := NewProgressReporter()
	defer p.Close()
	b.SetProgressReporter(p)
	b.ReportProgress("navigated", map[string]any{"route": "/"})

	select {
	case u := <-p.Channel():
		assert.Equal(t, "navigated", u.Message)
	case <-time.After(time.Second):
		t.Fatal("expected progress update")
	}
}

func TestStatusFromAssertions(t *testing.T) {
	assert.Equal(t, StatusPassed, StatusFromAssertions(nil))
	assert.Equal(t, StatusPassed, StatusFromAssertions(
		[]AssertionResult{{Passed: true}},
	))
	assert.Equal(t, StatusFailed, StatusFromAssertions(
		[]AssertionResult{{Passed: true}, {Passed: false}},
	))
}
