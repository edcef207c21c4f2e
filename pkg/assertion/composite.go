package assertion

import (
	"errors"
	"fmt"
	"strings"
)

// Composite modes.
const (
	ModeAll = "all"
	ModeAny = "any"
)

// CompositeDef declares a named check built from other assertion
// types, e.g. a "healthy_status" made of status_2xx and
// max_latency. Every sub-assertion sees the value of the target
// the composite is applied to; sub-assertion targets are ignored.
type CompositeDef struct {
	Name       string       `json:"name" yaml:"name"`
	Mode       string       `json:"mode,omitempty" yaml:"mode,omitempty"`
	Assertions []Definition `json:"assertions" yaml:"assertions"`
}

func (d CompositeDef) mode() string {
	if d.Mode == "" {
		return ModeAll
	}
	return strings.ToLower(d.Mode)
}

// Check reports structural problems with d against the types
// engine already knows.
func (d CompositeDef) Check(engine Engine) error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("composite name is required"))
	} else if engine.HasEvaluator(d.Name) {
		errs = append(errs, fmt.Errorf("composite %s: type already registered", d.Name))
	}
	if m := d.mode(); m != ModeAll && m != ModeAny {
		errs = append(errs, fmt.Errorf("composite %s: mode must be all or any, got %q", d.Name, d.Mode))
	}
	if len(d.Assertions) == 0 {
		errs = append(errs, fmt.Errorf("composite %s: no assertions", d.Name))
	}
	for _, a := range d.Assertions {
		if a.Type == d.Name {
			errs = append(errs, fmt.Errorf("composite %s: refers to itself", d.Name))
		} else if !engine.HasEvaluator(a.Type) {
			errs = append(errs, fmt.Errorf("composite %s: unknown assertion type: %s", d.Name, a.Type))
		}
	}
	return errors.Join(errs...)
}

// RegisterComposite checks d and registers it on engine under
// d.Name.
func RegisterComposite(engine Engine, d CompositeDef) error {
	if err := d.Check(engine); err != nil {
		return err
	}
	subs := append([]Definition(nil), d.Assertions...)
	if d.mode() == ModeAny {
		return engine.Register(d.Name, CompositeAnyPass(engine, subs))
	}
	return engine.Register(d.Name, CompositeAllPass(engine, subs))
}

// AllPassComposite evaluates assertions against values and fails
// on the first failing one.
func AllPassComposite(engine Engine, assertions []Definition, values map[string]any) Result {
	results := engine.EvaluateAll(assertions, values)
	for _, r := range results {
		if !r.Passed {
			return Result{
				Type:    ModeAll + "_pass",
				Message: fmt.Sprintf("%s failed: %s", describe(r), r.Message),
			}
		}
	}
	return Result{
		Type:    ModeAll + "_pass",
		Passed:  true,
		Message: fmt.Sprintf("all %d assertions passed", len(results)),
	}
}

// AnyPassComposite passes when at least one assertion passes.
func AnyPassComposite(engine Engine, assertions []Definition, values map[string]any) Result {
	results := engine.EvaluateAll(assertions, values)
	failed := make([]string, 0, len(results))
	for _, r := range results {
		if r.Passed {
			return Result{
				Type:    ModeAny + "_pass",
				Passed:  true,
				Message: fmt.Sprintf("%s passed", describe(r)),
			}
		}
		failed = append(failed, r.Type)
	}
	return Result{
		Type:    ModeAny + "_pass",
		Message: fmt.Sprintf("none of %d assertions passed (%s)", len(results), strings.Join(failed, ", ")),
	}
}

// CompositeAllPass returns an Evaluator that applies subs to one
// value and requires all of them to pass.
func CompositeAllPass(engine Engine, subs []Definition) Evaluator {
	return func(_ Definition, value any) (bool, string) {
		r := AllPassComposite(engine, subs, sameValue(subs, value))
		return r.Passed, r.Message
	}
}

// CompositeAnyPass returns an Evaluator that applies subs to one
// value and requires one of them to pass.
func CompositeAnyPass(engine Engine, subs []Definition) Evaluator {
	return func(_ Definition, value any) (bool, string) {
		r := AnyPassComposite(engine, subs, sameValue(subs, value))
		return r.Passed, r.Message
	}
}

func describe(r Result) string {
	if r.Target == "" {
		return r.Type
	}
	return r.Type + " on " + r.Target
}

func sameValue(subs []Definition, value any) map[string]any {
	values := make(map[string]any, len(subs))
	for _, a := range subs {
		values[a.Target] = value
	}
	return values
}
