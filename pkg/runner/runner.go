// Package runner provides the scenario execution engine. It
// supports single, sequential, and parallel execution modes
// with configurable timeouts, liveness detection and lifecycle
// hooks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"digital.vasic.agentprobe/pkg/metrics"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/scenario"
)

// Runner defines the interface for scenario execution.
type Runner interface {
	// Run executes a single scenario by ID.
	Run(
		ctx context.Context,
		id scenario.ID,
		config *scenario.Config,
	) (*scenario.Result, error)

	// RunAll executes all scenarios in dependency order.
	RunAll(
		ctx context.Context,
		config *scenario.Config,
	) ([]*scenario.Result, error)

	// RunSequence executes the given scenarios in order,
	// checking that dependencies have been met.
	RunSequence(
		ctx context.Context,
		ids []scenario.ID,
		config *scenario.Config,
	) ([]*scenario.Result, error)

	// RunParallel executes scenarios on at most maxWorkers
	// worker slots. Dependencies still run first.
	RunParallel(
		ctx context.Context,
		ids []scenario.ID,
		config *scenario.Config,
		maxWorkers int,
	) ([]*scenario.Result, error)
}

// EventSink receives lifecycle events. monitor.EventCollector
// satisfies it.
type EventSink interface {
	EmitStarted(id scenario.ID, name string)
	EmitResult(r *scenario.Result)
}

// Hook is a function invoked before or after scenario
// execution. It receives the scenario and its config.
type Hook func(
	ctx context.Context,
	s scenario.Scenario,
	cfg *scenario.Config,
) error

// DefaultRunner is the standard Runner implementation.
type DefaultRunner struct {
	registry       registry.Registry
	logger         scenario.Logger
	engine         scenario.AssertionEngine
	events         EventSink
	metrics        metrics.ScenarioMetrics
	timeout        time.Duration
	staleThreshold time.Duration
	resultsDir     string
	preHooks       []Hook
	postHooks      []Hook
	active         atomic.Int64
}

// NewRunner creates a DefaultRunner with the supplied options.
func NewRunner(opts ...RunnerOption) *DefaultRunner {
	r := &DefaultRunner{
		registry: registry.NewRegistry(),
		metrics:  metrics.NoopMetrics{},
		timeout:  2 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a single scenario by ID.
func (r *DefaultRunner) Run(
	ctx context.Context,
	id scenario.ID,
	config *scenario.Config,
) (*scenario.Result, error) {
	s, err := r.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get scenario: %w", err,
		)
	}
	r.metrics.IncrementRunTotal()
	cfg := *config
	cfg.ScenarioID = id
	cfg.Assertions = append([]scenario.AssertionDef(nil), config.Assertions...)
	return r.executeScenario(ctx, s, &cfg), nil
}

// RunAll executes all scenarios in dependency order. A scenario
// whose dependency did not pass is skipped. Passed results
// directories are propagated to downstream dependents.
func (r *DefaultRunner) RunAll(
	ctx context.Context,
	config *scenario.Config,
) ([]*scenario.Result, error) {
	ordered, err := r.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get dependency order: %w", err,
		)
	}
	r.metrics.IncrementRunTotal()
	return r.runOrdered(ctx, ordered, config), nil
}

func (r *DefaultRunner) runOrdered(
	ctx context.Context,
	ordered []scenario.Scenario,
	config *scenario.Config,
) []*scenario.Result {
	results := make([]*scenario.Result, 0, len(ordered))
	deps := newDepTracker()

	for _, s := range ordered {
		cfg := r.scenarioConfig(config, s.ID(), deps.passedDirs())
		result := r.executeOrSkip(ctx, s, cfg, deps)
		results = append(results, result)
		deps.record(result, cfg.ResultsDir)
	}
	return results
}

// RunSequence executes scenarios in the given order. A
// dependency that is not part of the sequence before its
// dependent is an error; one that ran but did not pass skips
// the dependent.
func (r *DefaultRunner) RunSequence(
	ctx context.Context,
	ids []scenario.ID,
	config *scenario.Config,
) ([]*scenario.Result, error) {
	var results []*scenario.Result
	deps := newDepTracker()
	r.metrics.IncrementRunTotal()

	for _, id := range ids {
		s, err := r.registry.Get(id)
		if err != nil {
			return results, fmt.Errorf(
				"failed to get scenario %s: %w", id, err,
			)
		}

		for _, dep := range s.Dependencies() {
			if !deps.ran(dep) {
				return results, fmt.Errorf(
					"scenario %s has unmet dependency: %s",
					id, dep,
				)
			}
		}

		cfg := r.scenarioConfig(config, id, deps.passedDirs())
		result := r.executeOrSkip(ctx, s, cfg, deps)
		results = append(results, result)
		deps.record(result, cfg.ResultsDir)
	}

	return results, nil
}

// RunParallel executes the given scenarios, plus anything they
// depend on, on at most maxWorkers worker slots.
func (r *DefaultRunner) RunParallel(
	ctx context.Context,
	ids []scenario.ID,
	config *scenario.Config,
	maxWorkers int,
) ([]*scenario.Result, error) {
	r.metrics.IncrementRunTotal()
	return runParallel(ctx, r, ids, config, maxWorkers)
}

// scenarioConfig derives a per-scenario config from the shared
// one. Results directories are always per scenario.
func (r *DefaultRunner) scenarioConfig(
	base *scenario.Config,
	id scenario.ID,
	deps map[scenario.ID]string,
) *scenario.Config {
	cfg := *base
	cfg.ScenarioID = id
	cfg.ResultsDir = ""
	cfg.LogsDir = ""
	cfg.Dependencies = deps
	if base.Environment != nil {
		cfg.Environment = make(map[string]string, len(base.Environment))
		for k, v := range base.Environment {
			cfg.Environment[k] = v
		}
	}
	cfg.Assertions = append([]scenario.AssertionDef(nil), base.Assertions...)
	return &cfg
}

// executeOrSkip skips a scenario whose dependency did not pass
// and otherwise executes it.
func (r *DefaultRunner) executeOrSkip(
	ctx context.Context,
	s scenario.Scenario,
	cfg *scenario.Config,
	deps *depTracker,
) *scenario.Result {
	if dep, failed := deps.firstFailed(s.Dependencies()); failed {
		return r.skip(s, cfg, fmt.Sprintf(
			"dependency %s did not pass", dep,
		))
	}
	return r.executeScenario(ctx, s, cfg)
}

func (r *DefaultRunner) skip(
	s scenario.Scenario,
	cfg *scenario.Config,
	reason string,
) *scenario.Result {
	now := time.Now()
	result := &scenario.Result{
		ScenarioID:   s.ID(),
		ScenarioName: s.Name(),
		Category:     s.Category(),
		Status:       scenario.StatusSkipped,
		WorkerIndex:  cfg.WorkerIndex,
		StartTime:    now,
		EndTime:      now,
		Error:        reason,
	}
	r.logEvent("scenario_skipped", map[string]any{
		"scenario_id": s.ID(),
		"reason":      reason,
	})
	r.finish(result)
	return result
}

// executeScenario runs a single scenario through its full
// lifecycle: setup dir -> definition -> pre-hooks -> configure ->
// validate -> execute with timeout and liveness -> evaluate
// assertions -> post-hooks -> cleanup. Scenario failures become
// statuses, never Go errors.
func (r *DefaultRunner) executeScenario(
	ctx context.Context,
	s scenario.Scenario,
	config *scenario.Config,
) *scenario.Result {
	result := &scenario.Result{
		ScenarioID:   s.ID(),
		ScenarioName: s.Name(),
		Category:     s.Category(),
		Status:       scenario.StatusRunning,
		WorkerIndex:  config.WorkerIndex,
		StartTime:    time.Now(),
		Metrics:      make(map[string]scenario.MetricValue),
		Outputs:      make(map[string]string),
	}

	// Setup results directory.
	if err := r.setupResultsDir(config); err != nil {
		result.Status = scenario.StatusError
		result.Error = fmt.Sprintf(
			"failed to setup results directory: %v", err,
		)
		r.finish(result)
		return result
	}

	result.Logs = scenario.LogPaths{
		ScenarioLog:  filepath.Join(config.LogsDir, "scenario.log"),
		APIRequests:  filepath.Join(config.LogsDir, "api_requests.log"),
		APIResponses: filepath.Join(config.LogsDir, "api_responses.log"),
	}

	// Curated definition: disabled scenarios are skipped and
	// extra assertions are appended.
	if def, err := r.registry.GetDefinition(s.ID()); err == nil {
		if !def.IsEnabled() {
			result.Status = scenario.StatusSkipped
			result.Error = "disabled by definition"
			r.finish(result)
			return result
		}
		config.Assertions = append(config.Assertions, def.Assertions...)
	}

	r.logEvent("scenario_started", map[string]any{
		"scenario_id":   s.ID(),
		"scenario_name": s.Name(),
		"worker_index":  config.WorkerIndex,
	})
	if r.events != nil {
		r.events.EmitStarted(s.ID(), s.Name())
	}
	r.metrics.SetActiveScenarios(int(r.active.Add(1)))
	defer func() {
		r.metrics.SetActiveScenarios(int(r.active.Add(-1)))
	}()

	// Pre-hooks.
	for _, hook := range r.preHooks {
		if err := hook(ctx, s, config); err != nil {
			result.Status = scenario.StatusError
			result.Error = fmt.Sprintf(
				"pre-hook failed: %v", err,
			)
			r.finish(result)
			return result
		}
	}

	r.inject(s)

	// Configure.
	if err := s.Configure(config); err != nil {
		result.Status = scenario.StatusError
		result.Error = fmt.Sprintf(
			"configuration failed: %v", err,
		)
		r.logEvent("scenario_error", map[string]any{
			"scenario_id": s.ID(),
			"error":       result.Error,
		})
		r.finish(result)
		return result
	}

	// Validate.
	if err := s.Validate(ctx); err != nil {
		result.Status = scenario.StatusSkipped
		result.Error = fmt.Sprintf(
			"validation failed: %v", err,
		)
		r.logEvent("scenario_skipped", map[string]any{
			"scenario_id": s.ID(),
			"reason":      result.Error,
		})
		r.cleanup(ctx, s)
		r.finish(result)
		return result
	}

	// Progress-based liveness detection for scenarios that
	// report progress.
	var progress *scenario.ProgressReporter
	type progressAware interface {
		SetProgressReporter(*scenario.ProgressReporter)
	}
	if pa, ok := s.(progressAware); ok {
		progress = scenario.NewProgressReporter()
		pa.SetProgressReporter(progress)
		defer progress.Close()
	}

	staleThreshold := config.StaleThreshold
	if staleThreshold == 0 {
		staleThreshold = r.staleThreshold
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = r.timeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stopLiveness, stuckCh := startLivenessMonitor(
		progress, staleThreshold, cancel,
		r.logger, s.ID(),
	)
	defer stopLiveness()

	execResult, execErr := s.Execute(execCtx)

	// Stop before post-processing to prevent false stuck
	// detection.
	stopLiveness()

	wasStuck := false
	if stuckCh != nil {
		select {
		case <-stuckCh:
			wasStuck = true
		default:
		}
	}

	switch {
	case wasStuck:
		result.Status = scenario.StatusStuck
		result.Error = fmt.Sprintf(
			"scenario stuck: no progress reported "+
				"within %v", staleThreshold,
		)
		if progress != nil {
			if last := progress.LastUpdate(); last != nil {
				result.Error += fmt.Sprintf(" (last: %s)", last.Message)
			}
		}
		r.logEvent("scenario_stuck", map[string]any{
			"scenario_id":             s.ID(),
			"stale_threshold_seconds": staleThreshold.Seconds(),
		})
		mergeExecResult(result, execResult)
		r.cleanup(ctx, s)
		r.finish(result)
		return result

	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Status = scenario.StatusTimedOut
		result.Error = "scenario execution timed out"
		r.logEvent("scenario_timeout", map[string]any{
			"scenario_id":     s.ID(),
			"timeout_seconds": timeout.Seconds(),
		})
		mergeExecResult(result, execResult)
		r.cleanup(ctx, s)
		r.finish(result)
		return result

	case execErr != nil:
		result.Status = scenario.StatusError
		result.Error = fmt.Sprintf(
			"execution failed: %v", execErr,
		)
		r.logEvent("scenario_error", map[string]any{
			"scenario_id": s.ID(),
			"error":       result.Error,
		})
		mergeExecResult(result, execResult)
		r.cleanup(ctx, s)
		r.finish(result)
		return result
	}

	mergeExecResult(result, execResult)

	// Status comes from the assertions unless the scenario reported
	// itself skipped (an optional frontend is not deployed) or
	// failed before it had anything to assert.
	result.Status = scenario.StatusFromAssertions(result.Assertions)
	if execResult != nil {
		switch execResult.Status {
		case scenario.StatusSkipped, scenario.StatusFailed, scenario.StatusError:
			result.Status = execResult.Status
		}
		if execResult.Error != "" {
			result.Error = execResult.Error
		}
	}

	// Post-hooks.
	for _, hook := range r.postHooks {
		if err := hook(ctx, s, config); err != nil {
			r.logEvent("post_hook_warning", map[string]any{
				"scenario_id": s.ID(),
				"warning":     err.Error(),
			})
		}
	}

	r.cleanup(ctx, s)
	r.finish(result)
	return result
}

// inject hands the runner's logger and assertion engine to
// scenarios that accept them.
func (r *DefaultRunner) inject(s scenario.Scenario) {
	if r.logger != nil {
		if la, ok := s.(interface{ SetLogger(scenario.Logger) }); ok {
			la.SetLogger(sharedLogger{r.logger})
		}
	}
	if r.engine != nil {
		if ea, ok := s.(interface {
			SetAssertionEngine(scenario.AssertionEngine)
		}); ok {
			ea.SetAssertionEngine(r.engine)
		}
	}
}

// sharedLogger keeps scenario Cleanup from closing the runner's
// logger.
type sharedLogger struct{ scenario.Logger }

func (sharedLogger) Close() error { return nil }

func mergeExecResult(result, exec *scenario.Result) {
	if exec == nil {
		return
	}
	result.Assertions = exec.Assertions
	if exec.Metrics != nil {
		result.Metrics = exec.Metrics
	}
	if exec.Outputs != nil {
		result.Outputs = exec.Outputs
	}
	result.Artifacts = exec.Artifacts
	if exec.Logs.BrowserLog != "" {
		result.Logs.BrowserLog = exec.Logs.BrowserLog
	}
}

func (r *DefaultRunner) cleanup(ctx context.Context, s scenario.Scenario) {
	// Cleanup must run even when the run context is cancelled.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.Cleanup(cctx); err != nil {
		r.logEvent("cleanup_warning", map[string]any{
			"scenario_id": s.ID(),
			"warning":     err.Error(),
		})
	}
}

// finish stamps timing and reports the result to the sinks.
func (r *DefaultRunner) finish(result *scenario.Result) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	r.metrics.RecordExecution(
		string(result.ScenarioID), result.Status, result.Duration,
	)
	for _, a := range result.Assertions {
		r.metrics.RecordAssertion(string(result.ScenarioID), a.Type, a.Passed)
	}
	if r.events != nil {
		r.events.EmitResult(result)
	}

	if result.Status == scenario.StatusSkipped {
		return
	}
	r.logEvent("scenario_completed", map[string]any{
		"scenario_id":      result.ScenarioID,
		"status":           result.Status,
		"duration_seconds": result.Duration.Seconds(),
	})
}

// setupResultsDir creates the results directory structure:
// <base>/<scenario>/<yyyy>/<mm>/<dd>/<timestamp>/{logs,results,artifacts}.
func (r *DefaultRunner) setupResultsDir(
	config *scenario.Config,
) error {
	if config.ResultsDir == "" {
		now := time.Now()
		baseDir := r.resultsDir
		if baseDir == "" {
			baseDir = "results"
		}

		config.ResultsDir = filepath.Join(
			baseDir,
			string(config.ScenarioID),
			now.Format("2006"),
			now.Format("01"),
			now.Format("02"),
			fmt.Sprintf("%s_w%d", now.Format("20060102_150405"), config.WorkerIndex),
		)
	}

	config.LogsDir = filepath.Join(
		config.ResultsDir, "logs",
	)

	for _, dir := range []string{
		config.LogsDir,
		filepath.Join(config.ResultsDir, "results"),
		filepath.Join(config.ResultsDir, "artifacts"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// logEvent emits a structured log entry if a logger is
// configured.
func (r *DefaultRunner) logEvent(
	event string,
	data map[string]any,
) {
	if r.logger == nil {
		return
	}

	parts := make([]any, 0, len(data)*2)
	for k, v := range data {
		parts = append(parts, k, v)
	}
	r.logger.Info(event, parts...)
}
