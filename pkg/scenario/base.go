package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BaseScenario carries identity, configuration and the common
// result plumbing. Embed it and implement Execute.
type BaseScenario struct {
	id           ID
	name         string
	description  string
	category     string
	dependencies []ID
	config       *Config
	logger       Logger
	assertions   AssertionEngine
	progress     *ProgressReporter
}

// NewBaseScenario creates a BaseScenario. Logger, assertion engine
// and progress reporter are attached later through setters.
func NewBaseScenario(
	id ID,
	name, description, category string,
	deps []ID,
) BaseScenario {
	if deps == nil {
		deps = []ID{}
	}
	return BaseScenario{
		id:           id,
		name:         name,
		description:  description,
		category:     category,
		dependencies: deps,
	}
}

func (b *BaseScenario) ID() ID              { return b.id }
func (b *BaseScenario) Name() string        { return b.name }
func (b *BaseScenario) Description() string { return b.description }
func (b *BaseScenario) Category() string    { return b.category }
func (b *BaseScenario) Dependencies() []ID  { return b.dependencies }

// Config returns the runtime configuration, or nil before
// Configure.
func (b *BaseScenario) Config() *Config { return b.config }

// Target returns the configured stack, or the zero Target.
func (b *BaseScenario) Target() Target {
	if b.config == nil {
		return Target{}
	}
	return b.config.Target
}

// WorkerIndex returns the worker slot from the config.
func (b *BaseScenario) WorkerIndex() int {
	if b.config == nil {
		return 0
	}
	return b.config.WorkerIndex
}

// SetLogger sets the logger used by this scenario.
func (b *BaseScenario) SetLogger(l Logger) { b.logger = l }

// SetAssertionEngine sets the assertion engine.
func (b *BaseScenario) SetAssertionEngine(e AssertionEngine) {
	b.assertions = e
}

// SetProgressReporter is called by the runner before Execute.
func (b *BaseScenario) SetProgressReporter(p *ProgressReporter) {
	b.progress = p
}

// ReportProgress forwards a heartbeat to the runner's liveness
// monitor when one is attached.
func (b *BaseScenario) ReportProgress(msg string, data map[string]any) {
	if b.progress != nil {
		b.progress.ReportProgress(msg, data)
	}
}

// Configure stores the config and creates output directories.
func (b *BaseScenario) Configure(config *Config) error {
	if config == nil {
		return fmt.Errorf("config must not be nil")
	}
	b.config = config

	for _, dir := range []string{b.ResultsDir(), b.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks that Configure ran. Embedders call it first and
// then add their own checks.
func (b *BaseScenario) Validate(_ context.Context) error {
	if b.config == nil {
		return fmt.Errorf("scenario %s: not configured", b.id)
	}
	return nil
}

// RequireTarget fails validation when any of the named target
// fields is empty. Valid names: backend, proxy, websocket.
func (b *BaseScenario) RequireTarget(fields ...string) error {
	t := b.Target()
	for _, f := range fields {
		var v string
		switch f {
		case "backend":
			v = t.BackendURL
		case "proxy":
			v = t.ProxyURL
		case "websocket":
			v = t.WebSocketURL
		default:
			return fmt.Errorf("unknown target field %q", f)
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("scenario %s: %s url not set", b.id, f)
		}
	}
	return nil
}

// Cleanup closes the logger if one is attached.
func (b *BaseScenario) Cleanup(_ context.Context) error {
	if b.logger != nil {
		return b.logger.Close()
	}
	return nil
}

// ResultsDir is the per-scenario results directory.
func (b *BaseScenario) ResultsDir() string {
	if b.config == nil {
		return "results"
	}
	return filepath.Join(b.config.ResultsDir, string(b.id))
}

// LogsDir is the per-scenario logs directory.
func (b *BaseScenario) LogsDir() string {
	if b.config == nil {
		return "logs"
	}
	return filepath.Join(b.config.LogsDir, string(b.id))
}

// ArtifactPath returns a path inside the results directory for a
// screenshot or captured payload.
func (b *BaseScenario) ArtifactPath(name string) string {
	return filepath.Join(b.ResultsDir(), name)
}

// GetEnv reads an environment value from the config.
func (b *BaseScenario) GetEnv(key, fallback string) string {
	if b.config == nil {
		return fallback
	}
	return b.config.GetEnv(key, fallback)
}

// WriteJSONResult writes result.json to the results directory.
func (b *BaseScenario) WriteJSONResult(r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	path := filepath.Join(b.ResultsDir(), "result.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", path, err)
	}
	return nil
}

// WriteMarkdownReport writes report.md to the results directory.
func (b *BaseScenario) WriteMarkdownReport(r *Result) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.ScenarioName)
	fmt.Fprintf(&sb, "**ID**: %s\n", r.ScenarioID)
	fmt.Fprintf(&sb, "**Status**: %s\n", r.Status)
	fmt.Fprintf(&sb, "**Worker**: %d\n", r.WorkerIndex)
	fmt.Fprintf(&sb, "**Duration**: %s\n\n", r.Duration)
	sb.WriteString("## Assertions\n\n")
	for _, a := range r.Assertions {
		mark := "PASS"
		if !a.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", mark, a.Target, a.Message)
	}
	if len(r.Artifacts) > 0 {
		sb.WriteString("\n## Artifacts\n\n")
		for _, p := range r.Artifacts {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "\n## Error\n\n```\n%s\n```\n", r.Error)
	}

	path := filepath.Join(b.ResultsDir(), "report.md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// ReadDependencyResult loads result.json written by an upstream
// scenario.
func (b *BaseScenario) ReadDependencyResult(depID ID) (*Result, error) {
	if b.config == nil {
		return nil, fmt.Errorf("not configured")
	}
	dir, ok := b.config.Dependencies[depID]
	if !ok {
		return nil, fmt.Errorf(
			"dependency %s: path not found in config", depID,
		)
	}
	path := filepath.Join(dir, string(depID), "result.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dependency result %s: %w", path, err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf(
			"unmarshal dependency result %s: %w", path, err,
		)
	}
	return &result, nil
}

// Assertions returns defaults followed by any extra assertions
// from the config.
func (b *BaseScenario) Assertions(defaults ...AssertionDef) []AssertionDef {
	out := append([]AssertionDef(nil), defaults...)
	if b.config != nil {
		out = append(out, b.config.Assertions...)
	}
	return out
}

// EvaluateAssertions runs defs against values. Without an engine
// every assertion fails with an explanatory message.
func (b *BaseScenario) EvaluateAssertions(
	defs []AssertionDef,
	values map[string]any,
) []AssertionResult {
	if b.assertions == nil {
		results := make([]AssertionResult, len(defs))
		for i, d := range defs {
			results[i] = AssertionResult{
				Type:    d.Type,
				Target:  d.Target,
				Message: "no assertion engine configured",
			}
		}
		return results
	}
	return b.assertions.EvaluateAll(defs, values)
}

// CreateResult builds a Result stamped with this scenario's
// identity, the worker index and log paths.
func (b *BaseScenario) CreateResult(
	status string,
	start time.Time,
	assertions []AssertionResult,
	metrics map[string]MetricValue,
	outputs map[string]string,
	errMsg string,
) *Result {
	end := time.Now()
	return &Result{
		ScenarioID:   b.id,
		ScenarioName: b.name,
		Category:     b.category,
		Status:       status,
		WorkerIndex:  b.WorkerIndex(),
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		Assertions:   assertions,
		Metrics:      metrics,
		Outputs:      outputs,
		Logs: LogPaths{
			ScenarioLog:  filepath.Join(b.LogsDir(), "scenario.log"),
			APIRequests:  filepath.Join(b.LogsDir(), "api_requests.log"),
			APIResponses: filepath.Join(b.LogsDir(), "api_responses.log"),
		},
		Error: errMsg,
	}
}

// StatusFromAssertions returns passed when all assertions passed
// and failed otherwise.
func StatusFromAssertions(results []AssertionResult) string {
	for _, a := range results {
		if !a.Passed {
			return StatusFailed
		}
	}
	return StatusPassed
}

func (b *BaseScenario) LogInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, append([]any{"scenario_id", b.id}, args...)...)
	}
}

func (b *BaseScenario) LogError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"scenario_id", b.id}, args...)...)
	}
}

func (b *BaseScenario) LogDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, append([]any{"scenario_id", b.id}, args...)...)
	}
}
