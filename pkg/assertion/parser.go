package assertion

import (
	"fmt"
	"strings"
)

// ParseAssertionString parses a compact assertion string of the
// form "type:value" into its components. If no colon is present
// the entire string is treated as the type and value is nil.
func ParseAssertionString(s string) (assertionType string, value any) {
	parts := strings.SplitN(s, ":", 2)
	assertionType = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		value = strings.TrimSpace(parts[1])
	}
	return
}

// ParseShorthand expands "type:target" or "type:target=value" into
// a Definition. Values stay strings; evaluators convert as needed.
//
//	"status_2xx:status"          -> {Type: status_2xx, Target: status}
//	"status_code:status=201"     -> {..., Value: "201"}
//	"event_type_seen:events=agent_created"
func ParseShorthand(s string) (Definition, error) {
	typ, rest := ParseAssertionString(s)
	if typ == "" {
		return Definition{}, fmt.Errorf("assertion %q: missing type", s)
	}
	target, _ := rest.(string)
	if target == "" {
		return Definition{}, fmt.Errorf("assertion %q: missing target", s)
	}
	d := Definition{Type: typ, Target: target}
	if t, v, ok := strings.Cut(target, "="); ok {
		d.Target = strings.TrimSpace(t)
		d.Value = strings.TrimSpace(v)
	}
	return d, nil
}
