package report

import (
	"encoding/json"
	"io"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Overridable in tests.
var (
	jsonReportMarshal       = json.Marshal
	jsonReportMarshalIndent = json.MarshalIndent
)

// JSONReporter generates JSON reports from scenario results.
type JSONReporter struct {
	outputDir string
	pretty    bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(
	outputDir string,
	pretty bool,
) *JSONReporter {
	return &JSONReporter{
		outputDir: outputDir,
		pretty:    pretty,
	}
}

func (r *JSONReporter) marshal(v any) ([]byte, error) {
	if r.pretty {
		return jsonReportMarshalIndent(v, "", "  ")
	}
	return jsonReportMarshal(v)
}

// GenerateReport creates a JSON report for a single scenario
// result.
func (r *JSONReporter) GenerateReport(
	result *scenario.Result,
) ([]byte, error) {
	return r.marshal(result)
}

// jsonMasterSummary is the JSON structure for a master summary.
type jsonMasterSummary struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	TotalScenarios int                `json:"total_scenarios"`
	Passed         int                `json:"passed"`
	Failed         int                `json:"failed"`
	Skipped        int                `json:"skipped"`
	TotalDuration  time.Duration      `json:"total_duration"`
	Results        []*scenario.Result `json:"results"`
}

// GenerateMasterSummary creates a JSON summary of all scenario
// results. Anything neither passed nor skipped counts as
// failed.
func (r *JSONReporter) GenerateMasterSummary(
	results []*scenario.Result,
) ([]byte, error) {
	summary := jsonMasterSummary{
		GeneratedAt:    time.Now(),
		TotalScenarios: len(results),
		Results:        results,
	}

	for _, res := range results {
		switch res.Status {
		case scenario.StatusPassed:
			summary.Passed++
		case scenario.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.TotalDuration += res.Duration
	}

	return r.marshal(summary)
}

// WriteReport writes a JSON report to the specified writer.
func (r *JSONReporter) WriteReport(
	w io.Writer,
	result *scenario.Result,
) error {
	data, err := r.GenerateReport(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
