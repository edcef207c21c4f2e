package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/scenario"
)

var flagListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios in run order",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	addListFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagListJSON, "json", false, "JSON output")
	cmd.Flags().StringVar(&flagDefinitions, "definitions", "", "YAML/JSON definition file or directory")
}

type listEntry struct {
	ID           scenario.ID   `json:"id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Description  string        `json:"description"`
	Dependencies []scenario.ID `json:"dependencies"`
	Enabled      bool          `json:"enabled"`
	Assertions   int           `json:"extra_assertions"`
}

func runList(cmd *cobra.Command, _ []string) error {
	extra := map[string]any{}
	if cmd.Flags().Changed("definitions") {
		extra["run.definitions"] = flagDefinitions
	}
	cfg, _, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg, logging.NullLogger{})
	if err != nil {
		return err
	}
	ordered, err := reg.GetDependencyOrder()
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(ordered))
	for _, s := range ordered {
		e := listEntry{
			ID:           s.ID(),
			Name:         s.Name(),
			Category:     s.Category(),
			Description:  s.Description(),
			Dependencies: s.Dependencies(),
			Enabled:      true,
		}
		if def, err := reg.GetDefinition(s.ID()); err == nil {
			e.Enabled = def.IsEnabled()
			e.Assertions = len(def.Assertions)
		}
		entries = append(entries, e)
	}

	out := stdout(cmd)
	if flagListJSON {
		return outputJSON(out, entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		deps := make([]string, 0, len(e.Dependencies))
		for _, d := range e.Dependencies {
			deps = append(deps, string(d))
		}
		depCol := strings.Join(deps, ",")
		if depCol == "" {
			depCol = "-"
		}
		state := "enabled"
		if !e.Enabled {
			state = "disabled"
		}
		rows = append(rows, []string{string(e.ID), e.Category, depCol, state, e.Description})
	}
	outputTable(out, []string{"ID", "CATEGORY", "DEPENDS ON", "STATE", "DESCRIPTION"}, rows)
	return nil
}
