package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"digital.vasic.agentprobe/pkg/scenario"
)

// outputTable prints a tab-aligned table.
func outputTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusBadge colours a status for w. Plain text when w is not a
// terminal.
func statusBadge(w io.Writer, status string) string {
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().Bold(true)
	switch status {
	case scenario.StatusPassed:
		style = style.Foreground(lipgloss.Color("2"))
	case scenario.StatusFailed, scenario.StatusError, scenario.StatusTimedOut, scenario.StatusStuck:
		style = style.Foreground(lipgloss.Color("1"))
	case scenario.StatusSkipped:
		style = style.Foreground(lipgloss.Color("3"))
	default:
		return status
	}
	return style.Render(status)
}
