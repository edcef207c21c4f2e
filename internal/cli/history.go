package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/report"
)

var (
	flagHistoryLimit    int
	flagHistoryScenario string
	flagHistoryJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scenario outcomes",
	Long: `Print the most recent entries of the run history kept in the
results directory, oldest first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	addHistoryFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

func addHistoryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&flagHistoryLimit, "limit", "n", 20, "entries to show (0 for all)")
	f.StringVar(&flagHistoryScenario, "scenario", "", "only this scenario ID")
	f.StringVar(&flagResultsDir, "results-dir", "", "results directory")
	f.BoolVar(&flagHistoryJSON, "json", false, "JSON output")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	extra := map[string]any{}
	if cmd.Flags().Changed("results-dir") {
		extra["run.results_dir"] = flagResultsDir
	}
	cfg, _, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}

	limit := flagHistoryLimit
	if flagHistoryScenario != "" {
		limit = 0
	}
	entries, err := report.ReadHistory(filepath.Join(cfg.Run.ResultsDir, HistoryFile), limit)
	if err != nil {
		return err
	}
	if flagHistoryScenario != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.ScenarioID == flagHistoryScenario {
				kept = append(kept, e)
			}
		}
		entries = kept
		if flagHistoryLimit > 0 && len(entries) > flagHistoryLimit {
			entries = entries[len(entries)-flagHistoryLimit:]
		}
	}

	out := stdout(cmd)
	if flagHistoryJSON {
		if entries == nil {
			entries = []report.HistoricalEntry{}
		}
		return outputJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no history")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		runID := e.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			runID,
			e.ScenarioID,
			strconv.Itoa(e.WorkerIndex),
			e.Duration,
			fmt.Sprintf("%d/%d", e.AssertionsPassed, e.AssertionsTotal),
			statusBadge(out, e.Status),
		})
	}
	outputTable(out, []string{"TIME", "RUN", "SCENARIO", "WORKER", "DURATION", "ASSERTIONS", "STATUS"}, rows)
	return nil
}
