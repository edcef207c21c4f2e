package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// MarkdownReporter renders scenario results as Markdown.
type MarkdownReporter struct {
	outputDir string
}

// NewMarkdownReporter creates a new Markdown reporter.
func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	return &MarkdownReporter{outputDir: outputDir}
}

// GenerateReport creates a Markdown report for a single
// scenario result.
func (r *MarkdownReporter) GenerateReport(
	result *scenario.Result,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteReport(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReport writes a Markdown report to w.
func (r *MarkdownReporter) WriteReport(
	w io.Writer,
	result *scenario.Result,
) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", result.ScenarioName)
	fmt.Fprintf(&sb, "| Field | Value |\n|-------|-------|\n")
	fmt.Fprintf(&sb, "| ID | %s |\n", result.ScenarioID)
	if result.Category != "" {
		fmt.Fprintf(&sb, "| Category | %s |\n", result.Category)
	}
	fmt.Fprintf(&sb, "| Status | %s |\n", strings.ToUpper(result.Status))
	fmt.Fprintf(&sb, "| Worker | %d |\n", result.WorkerIndex)
	fmt.Fprintf(&sb, "| Duration | %v |\n", result.Duration)
	if !result.EndTime.IsZero() {
		fmt.Fprintf(&sb, "| Finished | %s |\n", result.EndTime.Format(time.RFC3339))
	}

	if len(result.Assertions) > 0 {
		fmt.Fprintf(&sb, "\n## Assertions (%d/%d)\n\n",
			countPassed(result.Assertions), len(result.Assertions))
		for _, a := range result.Assertions {
			mark := "x"
			if !a.Passed {
				mark = " "
			}
			fmt.Fprintf(&sb, "- [%s] `%s` on `%s`: %s\n", mark, a.Type, a.Target, a.Message)
		}
	}

	if len(result.Metrics) > 0 {
		sb.WriteString("\n## Metrics\n\n| Metric | Value |\n|--------|-------|\n")
		for _, name := range sortedKeys(result.Metrics) {
			m := result.Metrics[name]
			fmt.Fprintf(&sb, "| %s | %.2f %s |\n", name, m.Value, m.Unit)
		}
	}

	if len(result.Outputs) > 0 {
		sb.WriteString("\n## Outputs\n\n")
		for _, k := range sortedKeys(result.Outputs) {
			fmt.Fprintf(&sb, "- %s: `%s`\n", k, result.Outputs[k])
		}
	}

	if len(result.Artifacts) > 0 {
		sb.WriteString("\n## Artifacts\n\n")
		for _, p := range result.Artifacts {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}

	if result.Error != "" {
		fmt.Fprintf(&sb, "\n## Error\n\n```\n%s\n```\n", result.Error)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// GenerateMasterSummary renders the summary table for a run.
func (r *MarkdownReporter) GenerateMasterSummary(
	results []*scenario.Result,
) ([]byte, error) {
	return []byte(generateSummaryMarkdown(BuildMasterSummary(results))), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
