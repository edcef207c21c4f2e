package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Overridable in tests.
var jsonMarshalIndent = json.MarshalIndent

// MasterSummary represents an aggregated summary of one run.
type MasterSummary struct {
	ID               string            `json:"id"`
	RunID            string            `json:"run_id,omitempty"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Scenarios        []ScenarioSummary `json:"scenarios"`
	TotalScenarios   int               `json:"total_scenarios"`
	PassedScenarios  int               `json:"passed_scenarios"`
	FailedScenarios  int               `json:"failed_scenarios"`
	SkippedScenarios int               `json:"skipped_scenarios"`
	TotalDuration    time.Duration     `json:"total_duration"`
	PassRate         float64           `json:"pass_rate"`
}

// ScenarioSummary represents a summary of a single scenario.
type ScenarioSummary struct {
	ScenarioID       scenario.ID   `json:"scenario_id"`
	ScenarioName     string        `json:"scenario_name"`
	Category         string        `json:"category,omitempty"`
	Status           string        `json:"status"`
	WorkerIndex      int           `json:"worker_index"`
	Duration         time.Duration `json:"duration"`
	AssertionsPassed int           `json:"assertions_passed"`
	AssertionsTotal  int           `json:"assertions_total"`
	ResultsPath      string        `json:"results_path,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// Passed reports whether no scenario failed. Skipped scenarios
// do not fail a run.
func (s *MasterSummary) Passed() bool {
	return s.FailedScenarios == 0
}

// BuildMasterSummary creates a master summary from scenario
// results. The pass rate excludes skipped scenarios.
func BuildMasterSummary(
	results []*scenario.Result,
) *MasterSummary {
	now := time.Now()
	summary := &MasterSummary{
		ID:          fmt.Sprintf("summary_%s", now.Format("20060102_150405")),
		GeneratedAt: now,
		Scenarios:   make([]ScenarioSummary, 0, len(results)),
	}

	for _, r := range results {
		summary.Scenarios = append(summary.Scenarios, ScenarioSummary{
			ScenarioID:       r.ScenarioID,
			ScenarioName:     r.ScenarioName,
			Category:         r.Category,
			Status:           r.Status,
			WorkerIndex:      r.WorkerIndex,
			Duration:         r.Duration,
			AssertionsPassed: countPassed(r.Assertions),
			AssertionsTotal:  len(r.Assertions),
			ResultsPath:      resultsPath(r),
			Error:            r.Error,
		})
		summary.TotalScenarios++
		summary.TotalDuration += r.Duration

		switch r.Status {
		case scenario.StatusPassed:
			summary.PassedScenarios++
		case scenario.StatusSkipped:
			summary.SkippedScenarios++
		default:
			summary.FailedScenarios++
		}
	}

	if ran := summary.TotalScenarios - summary.SkippedScenarios; ran > 0 {
		summary.PassRate = float64(summary.PassedScenarios) / float64(ran)
	}

	return summary
}

// resultsPath recovers the scenario's results directory from its
// log path (<dir>/logs/scenario.log).
func resultsPath(r *scenario.Result) string {
	if r.Logs.ScenarioLog == "" {
		return ""
	}
	return filepath.Dir(filepath.Dir(r.Logs.ScenarioLog))
}

// SaveMasterSummary saves the master summary to both JSON and
// Markdown files in the given output directory and points
// latest_summary.{json,md} at them. It returns the JSON path.
func SaveMasterSummary(
	summary *MasterSummary,
	outputDir string,
) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	ts := summary.GeneratedAt.Format("20060102_150405")

	jsonPath := filepath.Join(
		outputDir,
		fmt.Sprintf("master_summary_%s.json", ts),
	)
	jsonData, err := jsonMarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return "", fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(
		outputDir,
		fmt.Sprintf("master_summary_%s.md", ts),
	)
	if err := os.WriteFile(
		mdPath, []byte(generateSummaryMarkdown(summary)), 0o644,
	); err != nil {
		return "", fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")

	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)

	return jsonPath, nil
}

func generateSummaryMarkdown(summary *MasterSummary) string {
	var sb strings.Builder

	sb.WriteString("# agentprobe run summary\n\n")
	fmt.Fprintf(&sb, "**Summary ID:** %s\n\n", summary.ID)
	if summary.RunID != "" {
		fmt.Fprintf(&sb, "**Run ID:** %s\n\n", summary.RunID)
	}
	fmt.Fprintf(&sb, "**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339))

	sb.WriteString("## Scenarios\n\n")
	sb.WriteString("| Scenario | Status | Worker | Duration | Assertions |\n")
	sb.WriteString("|----------|--------|--------|----------|------------|\n")
	for _, s := range summary.Scenarios {
		fmt.Fprintf(&sb, "| %s | %s | %d | %v | %d/%d |\n",
			s.ScenarioName, strings.ToUpper(s.Status), s.WorkerIndex,
			s.Duration, s.AssertionsPassed, s.AssertionsTotal)
	}

	var failures []ScenarioSummary
	for _, s := range summary.Scenarios {
		if s.Error != "" {
			failures = append(failures, s)
		}
	}
	if len(failures) > 0 {
		sb.WriteString("\n## Problems\n\n")
		for _, s := range failures {
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", s.ScenarioID, s.Status, s.Error)
		}
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Total | %d |\n", summary.TotalScenarios)
	fmt.Fprintf(&sb, "| Passed | %d |\n", summary.PassedScenarios)
	fmt.Fprintf(&sb, "| Failed | %d |\n", summary.FailedScenarios)
	fmt.Fprintf(&sb, "| Skipped | %d |\n", summary.SkippedScenarios)
	fmt.Fprintf(&sb, "| Pass Rate | %.0f%% |\n", summary.PassRate*100)
	fmt.Fprintf(&sb, "| Total Duration | %v |\n", summary.TotalDuration)

	return sb.String()
}
