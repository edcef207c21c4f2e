package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/scenario"
	"digital.vasic.agentprobe/pkg/suite"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check scenario definition files",
	Long: `Validate YAML or JSON definition files without running anything.
Dependencies may name built-in scenarios.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// builtinIDs lists the IDs of the built-in suite.
func builtinIDs() []scenario.ID {
	all := suite.Scenarios(suite.Deps{Logger: logging.NullLogger{}})
	ids := make([]scenario.ID, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID())
	}
	return ids
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := stdout(cmd)
	known := builtinIDs()
	bad := 0
	for _, path := range args {
		errs := registry.ValidateDefinitionFile(path, known...)
		if len(errs) == 0 {
			fmt.Fprintf(out, "%s: ok\n", path)
			continue
		}
		bad++
		for _, e := range errs {
			fmt.Fprintf(out, "%s: %s\n", path, e.Error())
		}
	}
	if bad > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d files invalid", bad, len(args))}
	}
	return nil
}
