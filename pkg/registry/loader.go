package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"digital.vasic.agentprobe/pkg/assertion"
	"digital.vasic.agentprobe/pkg/scenario"
)

// DefinitionFile is the on-disk structure for a set of scenario
// definitions (YAML or JSON).
type DefinitionFile struct {
	Version   string                `json:"version" yaml:"version"`
	Name      string                `json:"name" yaml:"name"`
	Scenarios []scenario.Definition `json:"scenarios" yaml:"scenarios"`
	// Composites declare assertion types usable by any scenario
	// assertion once loaded into an engine.
	Composites []assertion.CompositeDef `json:"composites,omitempty" yaml:"composites,omitempty"`
	Metadata  map[string]any        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ReadDefinitionFile decodes a definition file. The format is
// picked by extension: .json is JSON, anything else is YAML.
// Shorthand checks are expanded into assertions.
func ReadDefinitionFile(path string) (*DefinitionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to read definitions file %s: %w",
			path, err,
		)
	}

	file, err := decodeDefinitions(data, path)
	if err != nil {
		return nil, err
	}
	for i := range file.Scenarios {
		if err := expandChecks(&file.Scenarios[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return file, nil
}

func decodeDefinitions(data []byte, source string) (*DefinitionFile, error) {
	var file DefinitionFile
	var err error
	if strings.EqualFold(filepath.Ext(source), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse definitions from %s: %w",
			source, err,
		)
	}
	return &file, nil
}

// expandChecks turns "type:target=value" strings into assertion
// definitions appended after the explicit ones.
func expandChecks(def *scenario.Definition) error {
	for _, c := range def.Checks {
		a, err := assertion.ParseShorthand(c)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", def.ID, err)
		}
		def.Assertions = append(def.Assertions, a)
	}
	def.Checks = nil
	return nil
}

// LoadDefinitionsFromFile reads a definition file and registers
// each definition into the given registry.
func LoadDefinitionsFromFile(
	reg Registry,
	path string,
) error {
	file, err := ReadDefinitionFile(path)
	if err != nil {
		return err
	}

	for i := range file.Scenarios {
		def := &file.Scenarios[i]
		if def.ID == "" {
			return fmt.Errorf(
				"scenario at index %d in %s has no ID", i, path,
			)
		}
		if err := reg.RegisterDefinition(def); err != nil {
			return fmt.Errorf(
				"definition %s from %s: %w",
				def.ID, path, err,
			)
		}
	}

	return nil
}

// LoadDefinitionsFromDir loads all .json and .yaml/.yml
// definition files from a directory. It does not recurse into
// subdirectories.
func LoadDefinitionsFromDir(
	reg Registry,
	dir string,
) error {
	paths, err := dirDefinitionFiles(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := LoadDefinitionsFromFile(reg, p); err != nil {
			return fmt.Errorf(
				"failed to load %s: %w", p, err,
			)
		}
	}
	return nil
}

// LoadDefinitions loads a single file or every definition file
// in a directory.
func LoadDefinitions(reg Registry, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat definitions %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDefinitionsFromDir(reg, path)
	}
	return LoadDefinitionsFromFile(reg, path)
}

// LoadComposites registers the composite assertion types declared
// in a definition file, or in every file of a directory, on
// engine. Composites may build on ones declared earlier in the
// same load.
func LoadComposites(engine assertion.Engine, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat definitions %s: %w", path, err)
	}
	paths := []string{path}
	if info.IsDir() {
		if paths, err = dirDefinitionFiles(path); err != nil {
			return err
		}
	}
	for _, p := range paths {
		file, err := ReadDefinitionFile(p)
		if err != nil {
			return err
		}
		for _, c := range file.Composites {
			if err := assertion.RegisterComposite(engine, c); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}
	}
	return nil
}

func dirDefinitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to read directory %s: %w", dir, err,
		)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
