package assertion

import (
	"fmt"
	"sort"
	"sync"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Engine defines the interface for assertion evaluation engines.
type Engine interface {
	// Evaluate checks a single assertion against the given
	// value.
	Evaluate(assertion Definition, value any) Result

	// EvaluateAll checks multiple assertions against a map of
	// named values. Each assertion's Target field is used as
	// the key into the values map.
	EvaluateAll(
		assertions []Definition,
		values map[string]any,
	) []Result

	// Register adds a custom evaluator for the given assertion
	// type. Returns an error if the type is already registered.
	Register(assertionType string, evaluator Evaluator) error

	// HasEvaluator reports whether assertionType is registered.
	HasEvaluator(assertionType string) bool
}

var _ scenario.AssertionEngine = (*DefaultEngine)(nil)

// DefaultEngine is the standard Engine implementation. It is
// safe for concurrent use and plugs straight into
// scenario.BaseScenario.SetAssertionEngine.
type DefaultEngine struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewEngine creates a DefaultEngine with the built-in evaluators
// pre-registered.
func NewEngine() *DefaultEngine {
	e := &DefaultEngine{
		evaluators: make(map[string]Evaluator),
	}
	e.registerDefaults()
	return e
}

func (e *DefaultEngine) registerDefaults() {
	e.evaluators["not_empty"] = evaluateNotEmpty
	e.evaluators["equals"] = evaluateEquals
	e.evaluators["contains"] = evaluateContains
	e.evaluators["contains_any"] = evaluateContainsAny
	e.evaluators["regex"] = evaluateRegex
	e.evaluators["status_2xx"] = evaluateStatus2xx
	e.evaluators["status_code"] = evaluateStatusCode
	e.evaluators["min_count"] = evaluateMinCount
	e.evaluators["exact_count"] = evaluateExactCount
	e.evaluators["max_latency"] = evaluateMaxLatency
	e.evaluators["json_has_key"] = evaluateJSONHasKey
	e.evaluators["event_type_seen"] = evaluateEventTypeSeen
	e.evaluators["no_duplicates"] = evaluateNoDuplicates
	e.evaluators["all_pass"] = evaluateAllPass
	e.evaluators["files_exist"] = evaluateFilesExist
	e.evaluators["url_path"] = evaluateURLPath
}

// Register adds a custom evaluator for the given assertion type.
// Returns an error if the type is already registered.
func (e *DefaultEngine) Register(
	assertionType string,
	evaluator Evaluator,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.evaluators[assertionType]; exists {
		return fmt.Errorf(
			"assertion type already registered: %s",
			assertionType,
		)
	}

	e.evaluators[assertionType] = evaluator
	return nil
}

// Evaluate runs a single assertion against the provided value.
func (e *DefaultEngine) Evaluate(
	assertion Definition,
	value any,
) Result {
	e.mu.RLock()
	evaluator, exists := e.evaluators[assertion.Type]
	e.mu.RUnlock()

	if !exists {
		return Result{
			Type:   assertion.Type,
			Target: assertion.Target,
			Passed: false,
			Message: fmt.Sprintf(
				"unknown assertion type: %s",
				assertion.Type,
			),
		}
	}

	passed, message := evaluator(assertion, value)
	if !passed && assertion.Message != "" {
		message = assertion.Message + ": " + message
	}

	return Result{
		Type:     assertion.Type,
		Target:   assertion.Target,
		Expected: expected(assertion),
		Actual:   value,
		Passed:   passed,
		Message:  message,
	}
}

func expected(a Definition) any {
	if a.Value == nil && len(a.Values) > 0 {
		return a.Values
	}
	return a.Value
}

// EvaluateAll runs multiple assertions against a map of named
// values. Each assertion's Target field is used as the key into
// the values map. If a target is missing, the assertion fails.
func (e *DefaultEngine) EvaluateAll(
	assertions []Definition,
	values map[string]any,
) []Result {
	results := make([]Result, 0, len(assertions))

	for _, a := range assertions {
		value, exists := values[a.Target]
		if !exists {
			results = append(results, Result{
				Type:     a.Type,
				Target:   a.Target,
				Expected: expected(a),
				Passed:   false,
				Message: fmt.Sprintf(
					"target not found: %s", a.Target,
				),
			})
			continue
		}

		results = append(results, e.Evaluate(a, value))
	}

	return results
}

// HasEvaluator returns true if the given assertion type has a
// registered evaluator.
func (e *DefaultEngine) HasEvaluator(
	assertionType string,
) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.evaluators[assertionType]
	return exists
}

// Types returns the registered assertion types, sorted.
func (e *DefaultEngine) Types() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.evaluators))
	for t := range e.evaluators {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
