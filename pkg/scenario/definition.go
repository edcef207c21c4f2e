package scenario

// Definition describes a scenario declaratively so that suites can
// be curated from YAML or JSON files without touching Go code.
// Field tags cover both encodings.
type Definition struct {
	ID                ID             `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Description       string         `json:"description" yaml:"description"`
	Category          string         `json:"category" yaml:"category"`
	Dependencies      []ID           `json:"dependencies" yaml:"dependencies"`
	EstimatedDuration string         `json:"estimated_duration" yaml:"estimated_duration"`
	Routes            []string       `json:"routes,omitempty" yaml:"routes,omitempty"`
	Assertions        []AssertionDef `json:"assertions" yaml:"assertions"`
	Checks            []string       `json:"checks,omitempty" yaml:"checks,omitempty"`
	Metrics           []string       `json:"metrics" yaml:"metrics"`
	Enabled           *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the definition is switched on. Missing
// means enabled.
func (d *Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// AssertionDef defines a single assertion to evaluate against
// scenario outputs or metrics.
type AssertionDef struct {
	// Type is the evaluator name (e.g. "status_2xx", "contains",
	// "min_count", "event_type_seen").
	Type string `json:"type" yaml:"type"`

	// Target is the output or metric name to check.
	Target string `json:"target" yaml:"target"`

	// Value is the expected value for single-value assertions.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Values holds expected values for multi-value assertions.
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`

	// Message is shown on failure.
	Message string `json:"message" yaml:"message"`
}
