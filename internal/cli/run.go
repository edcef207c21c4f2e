package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/assertion"
	"digital.vasic.agentprobe/pkg/browser"
	"digital.vasic.agentprobe/pkg/config"
	"digital.vasic.agentprobe/pkg/infra"
	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/metrics"
	"digital.vasic.agentprobe/pkg/monitor"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/report"
	"digital.vasic.agentprobe/pkg/runner"
	"digital.vasic.agentprobe/pkg/scenario"
	"digital.vasic.agentprobe/pkg/suite"
)

// HistoryFile is the JSON Lines run history kept in the results
// directory.
const HistoryFile = "history.jsonl"

var (
	flagOnly        []string
	flagParallel    int
	flagDefinitions string
	flagResultsDir  string
	flagMonitorAddr string
	flagTimeout     time.Duration
	flagHeadless    bool
	flagBrowserBin  string
	flagRunJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run the end-to-end suite",
	Long: `Run the built-in scenarios against the configured stack. Scenario
IDs given as arguments (or --only) restrict the run to those scenarios
and what they depend on. Definition files (--definitions) add
assertions to built-in scenarios or disable them, and may declare
composite assertion types built from existing ones.

Each scenario writes its logs and artifacts under the results
directory. A master summary and a history line per scenario are
written at the end.

Exit code 0 means every scenario passed or was skipped; 1 means at
least one failed; 2 means the stack never became ready.`,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&flagOnly, "only", nil, "scenario IDs to run (comma-separated)")
	f.IntVarP(&flagParallel, "parallel", "p", 1, "worker slots for parallel execution")
	f.StringVar(&flagDefinitions, "definitions", "", "YAML/JSON definition file or directory")
	f.StringVar(&flagResultsDir, "results-dir", "", "results directory")
	f.StringVar(&flagMonitorAddr, "monitor-addr", "", "serve live events, dashboard and metrics on this address")
	f.DurationVar(&flagTimeout, "timeout", 0, "per-scenario timeout")
	f.BoolVar(&flagHeadless, "headless", true, "run Chrome headless")
	f.StringVar(&flagBrowserBin, "browser-bin", "", "Chrome binary")
	f.BoolVar(&flagRunJSON, "json", false, "print the master summary as JSON")
}

func runOverrides(cmd *cobra.Command, args []string) map[string]any {
	o := make(map[string]any)
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	only := append(append([]string(nil), flagOnly...), args...)
	if len(only) > 0 {
		o["run.only"] = only
	}
	if changed("parallel") {
		o["worker.parallel"] = flagParallel
	}
	if changed("definitions") {
		o["run.definitions"] = flagDefinitions
	}
	if changed("results-dir") {
		o["run.results_dir"] = flagResultsDir
	}
	if changed("monitor-addr") {
		o["monitor.addr"] = flagMonitorAddr
	}
	if changed("timeout") {
		o["run.timeout"] = flagTimeout
	}
	if changed("headless") {
		o["browser.headless"] = flagHeadless
	}
	if changed("browser-bin") {
		o["browser.bin"] = flagBrowserBin
	}
	return o
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig(cmd, runOverrides(cmd, args))
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	fileLog, err := logging.NewJSONLogger(logging.LoggerConfig{
		OutputPath: filepath.Join(cfg.Run.ResultsDir, "runs", runID+".log"),
		Level:      logging.ParseLevel(cfg.Log.Level),
		Fields: map[string]any{
			"run_id": runID,
			"worker": cfg.Worker.Index,
		},
	})
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	logger := newConsoleLogger(cmd, cfg, loader, fileLog)
	defer logger.Close()

	cleanup := infra.NewCleanup(logger)
	ctx, stop := infra.HandleSignals(cmd.Context(), cleanup, logger)
	defer stop()

	gate := backendGate(cfg, logger)
	stack := infra.NewSharedBackend(map[string]infra.Waiter{
		infra.ServiceBackend: gate,
	}, cleanup, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), infra.SignalCleanupTimeout)
		defer cancel()
		_ = stack.Shutdown(sctx)
	}()

	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}

	engine := assertion.NewEngine()
	if cfg.Run.Definitions != "" {
		if err := registry.LoadComposites(engine, cfg.Run.Definitions); err != nil {
			return fmt.Errorf("loading composites: %w", err)
		}
	}

	collector := monitor.NewEventCollector()
	prom := metrics.NewPrometheusMetrics()
	if cfg.Monitor.Addr != "" {
		srv := monitor.NewWebSocketServer(cfg.Monitor.Addr, collector, monitor.NewDashboardData(runID))
		srv.SetMetricsHandler(prom.Handler())
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("monitor server stopped", logging.ErrorField(err))
			}
		}()
		cleanup.Add("monitor", srv.Stop)
		logger.Info("monitor listening", logging.StringField("addr", cfg.Monitor.Addr))
	}

	r := runner.NewRunner(
		runner.WithRegistry(reg),
		runner.WithLogger(logging.KV(logger)),
		runner.WithAssertionEngine(engine),
		runner.WithEventSink(collector),
		runner.WithMetrics(prom),
		runner.WithTimeout(cfg.Run.Timeout),
		runner.WithStaleThreshold(cfg.Run.StaleThreshold),
		runner.WithResultsDir(cfg.Run.ResultsDir),
		runner.WithPreHook(runner.ReadinessHook(gate)),
	)

	if err := stack.EnsureRunning(ctx, infra.ServiceBackend); err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer stack.Release(context.WithoutCancel(ctx), infra.ServiceBackend)

	results, err := execute(ctx, r, reg, cfg)
	if err != nil {
		return err
	}

	summary := report.BuildMasterSummary(results)
	summary.RunID = runID
	summaryPath, err := report.SaveMasterSummary(summary, cfg.Run.ResultsDir)
	if err != nil {
		logger.Error("saving summary", logging.ErrorField(err))
	}
	historyPath := filepath.Join(cfg.Run.ResultsDir, HistoryFile)
	for _, res := range results {
		if err := report.AppendToHistory(historyPath, runID, res); err != nil {
			logger.Warn("appending history", logging.ErrorField(err))
			break
		}
	}

	out := stdout(cmd)
	if flagRunJSON {
		if err := outputJSON(out, summary); err != nil {
			return err
		}
	} else {
		printSummary(cmd, summary)
		if summaryPath != "" {
			fmt.Fprintf(out, "\nsummary: %s\n", summaryPath)
		}
	}

	logger.Info("run finished",
		logging.StringField("run_id", runID),
		logging.IntField("passed", summary.PassedScenarios),
		logging.IntField("failed", summary.FailedScenarios),
		logging.IntField("skipped", summary.SkippedScenarios),
	)
	if !summary.Passed() {
		return &ExitError{
			Code: 1,
			Err:  fmt.Errorf("%d of %d scenarios failed", summary.FailedScenarios, summary.TotalScenarios),
		}
	}
	return nil
}

// buildRegistry registers the built-in suite and any definitions.
func buildRegistry(cfg config.Config, logger logging.Logger) (registry.Registry, error) {
	reg := registry.NewRegistry()
	deps := suite.Deps{
		Logger: logger,
		Token:  cfg.Backend.Token,
		Browser: browser.Config{
			Headless:   cfg.Browser.Headless,
			Bin:        cfg.Browser.Bin,
			Timeout:    cfg.Browser.Timeout,
			SlowMotion: cfg.Browser.SlowMotion,
			Logger:     logger,
		},
	}
	if err := suite.Register(reg, deps); err != nil {
		return nil, err
	}
	if cfg.Run.Definitions != "" {
		if err := registry.LoadDefinitions(reg, cfg.Run.Definitions); err != nil {
			return nil, fmt.Errorf("loading definitions: %w", err)
		}
	}
	if err := reg.ValidateDependencies(); err != nil {
		return nil, err
	}
	return reg, nil
}

// execute picks the run mode from the config.
func execute(ctx context.Context, r *runner.DefaultRunner, reg registry.Registry, cfg config.Config) ([]*scenario.Result, error) {
	base := cfg.ScenarioConfig("")
	ids := make([]scenario.ID, 0, len(cfg.Run.Only))
	for _, id := range cfg.Run.Only {
		ids = append(ids, scenario.ID(id))
	}

	if cfg.Worker.Parallel > 1 {
		return r.RunParallel(ctx, ids, base, cfg.Worker.Parallel)
	}
	if len(ids) == 0 {
		return r.RunAll(ctx, base)
	}
	selected, err := reg.Select(ids)
	if err != nil {
		return nil, err
	}
	ordered := make([]scenario.ID, 0, len(selected))
	for _, s := range selected {
		ordered = append(ordered, s.ID())
	}
	return r.RunSequence(ctx, ordered, base)
}

func printSummary(cmd *cobra.Command, s *report.MasterSummary) {
	out := stdout(cmd)
	rows := make([][]string, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		note := truncate(sc.Error, 60)
		rows = append(rows, []string{
			string(sc.ScenarioID),
			strconv.Itoa(sc.WorkerIndex),
			sc.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d/%d", sc.AssertionsPassed, sc.AssertionsTotal),
			note,
			statusBadge(out, sc.Status),
		})
	}
	outputTable(out, []string{"SCENARIO", "WORKER", "DURATION", "ASSERTIONS", "NOTE", "STATUS"}, rows)
	fmt.Fprintf(out, "\n%d passed, %d failed, %d skipped (%.0f%% pass rate) in %s\n",
		s.PassedScenarios, s.FailedScenarios, s.SkippedScenarios,
		s.PassRate*100, s.TotalDuration.Round(time.Millisecond))
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
