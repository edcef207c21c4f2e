package registry

import (
	"fmt"

	"digital.vasic.agentprobe/pkg/assertion"
	"digital.vasic.agentprobe/pkg/scenario"
)

// ValidationError represents an issue found in a definition file.
type ValidationError struct {
	Field   string
	Message string
	Index   int // -1 if not applicable
}

func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("scenarios[%d].%s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDefinitionFile checks a definition file and returns all
// errors found. Dependencies may point at IDs in the file or at
// any of the known IDs (typically the built-in suite).
func ValidateDefinitionFile(path string, known ...scenario.ID) []ValidationError {
	file, err := ReadDefinitionFile(path)
	if err != nil {
		return []ValidationError{{Field: "file", Message: err.Error(), Index: -1}}
	}
	return validateDefinitions(file, known)
}

func validateDefinitions(file *DefinitionFile, known []scenario.ID) []ValidationError {
	var errs []ValidationError

	if file.Version == "" {
		errs = append(errs, ValidationError{
			Field: "version", Message: "version is required", Index: -1,
		})
	}

	ids := make(map[scenario.ID]bool, len(file.Scenarios)+len(known))
	for _, id := range known {
		ids[id] = true
	}
	seen := make(map[scenario.ID]bool, len(file.Scenarios))
	for i, def := range file.Scenarios {
		switch {
		case def.ID == "":
			errs = append(errs, ValidationError{
				Field: "id", Message: "scenario ID is required", Index: i,
			})
		case seen[def.ID]:
			errs = append(errs, ValidationError{
				Field: "id", Message: fmt.Sprintf("duplicate ID: %s", def.ID), Index: i,
			})
		default:
			seen[def.ID] = true
			ids[def.ID] = true
		}
	}

	engine := assertion.NewEngine()
	for i, c := range file.Composites {
		if err := assertion.RegisterComposite(engine, c); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("composites[%d]", i),
				Message: err.Error(),
				Index:   -1,
			})
		}
	}
	for i, def := range file.Scenarios {
		for _, dep := range def.Dependencies {
			if !ids[dep] {
				errs = append(errs, ValidationError{
					Field:   "dependencies",
					Message: fmt.Sprintf("unknown dependency: %s", dep),
					Index:   i,
				})
			}
		}
		for j, a := range def.Assertions {
			if !engine.HasEvaluator(a.Type) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("assertions[%d].type", j),
					Message: fmt.Sprintf("unknown assertion type: %s", a.Type),
					Index:   i,
				})
			}
			if a.Target == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("assertions[%d].target", j),
					Message: "target is required",
					Index:   i,
				})
			}
		}
	}

	return errs
}
