// Package report provides report generation for scenario
// results: per-scenario JSON and Markdown, a master summary for
// a run and an append-only run history.
package report

import (
	"io"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Reporter defines the interface for generating scenario
// reports.
type Reporter interface {
	// GenerateReport creates a report for a single scenario
	// result.
	GenerateReport(result *scenario.Result) ([]byte, error)

	// GenerateMasterSummary creates a summary of all scenario
	// results.
	GenerateMasterSummary(
		results []*scenario.Result,
	) ([]byte, error)

	// WriteReport writes a report to the specified writer.
	WriteReport(w io.Writer, result *scenario.Result) error
}

func countPassed(assertions []scenario.AssertionResult) int {
	n := 0
	for _, a := range assertions {
		if a.Passed {
			n++
		}
	}
	return n
}
