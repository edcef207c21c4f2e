package assertion

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// evaluateNotEmpty checks that a value is non-nil and non-empty.
func evaluateNotEmpty(
	_ Definition,
	value any,
) (bool, string) {
	if value == nil {
		return false, "value is nil"
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return false, "string is empty"
		}
	case []any:
		if len(v) == 0 {
			return false, "array is empty"
		}
	case []string:
		if len(v) == 0 {
			return false, "array is empty"
		}
	case map[string]any:
		if len(v) == 0 {
			return false, "map is empty"
		}
	}

	return true, "value is not empty"
}

// evaluateEquals compares the value to the expected one. Numbers
// compare numerically so a YAML "201" matches an int 201.
func evaluateEquals(
	assertion Definition,
	value any,
) (bool, string) {
	if a, ok := toFloat64(value); ok {
		if b, ok := toFloat64(assertion.Value); ok {
			if a == b {
				return true, fmt.Sprintf("%v == %v", value, assertion.Value)
			}
			return false, fmt.Sprintf("%v != %v", value, assertion.Value)
		}
	}
	if a, ok := value.(bool); ok {
		if b, err := strconv.ParseBool(fmt.Sprint(assertion.Value)); err == nil {
			if a == b {
				return true, fmt.Sprintf("%t == %t", a, b)
			}
			return false, fmt.Sprintf("%t != %t", a, b)
		}
	}

	actual, want := fmt.Sprint(value), fmt.Sprint(assertion.Value)
	if actual == want {
		return true, fmt.Sprintf("equals '%s'", want)
	}
	return false, fmt.Sprintf("'%s' != '%s'", actual, want)
}

// evaluateContains checks that a string value contains the
// expected substring (case-insensitive).
func evaluateContains(
	assertion Definition,
	value any,
) (bool, string) {
	str, ok := value.(string)
	if !ok {
		return false, "value is not a string"
	}

	expected, ok := assertion.Value.(string)
	if !ok {
		return false, "expected value is not a string"
	}

	if strings.Contains(
		strings.ToLower(str),
		strings.ToLower(expected),
	) {
		return true, fmt.Sprintf("contains '%s'", expected)
	}

	return false, fmt.Sprintf(
		"does not contain '%s'", expected,
	)
}

// evaluateContainsAny checks that a string value contains at
// least one of the expected substrings.
func evaluateContainsAny(
	assertion Definition,
	value any,
) (bool, string) {
	str, ok := value.(string)
	if !ok {
		return false, "value is not a string"
	}

	lower := strings.ToLower(str)
	values := expectedStrings(assertion)

	for _, expected := range values {
		if strings.Contains(lower, strings.ToLower(expected)) {
			return true, fmt.Sprintf(
				"contains '%s'", expected,
			)
		}
	}

	return false, fmt.Sprintf(
		"does not contain any of: %v", values,
	)
}

// evaluateRegex matches a string value against the expected
// pattern.
func evaluateRegex(
	assertion Definition,
	value any,
) (bool, string) {
	str, ok := value.(string)
	if !ok {
		return false, "value is not a string"
	}
	pattern, ok := assertion.Value.(string)
	if !ok {
		return false, "expected value is not a pattern"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid pattern: %v", err)
	}
	if re.MatchString(str) {
		return true, fmt.Sprintf("matches /%s/", pattern)
	}
	return false, fmt.Sprintf("does not match /%s/", pattern)
}

// evaluateStatus2xx checks that an HTTP status code is in
// [200, 300).
func evaluateStatus2xx(
	_ Definition,
	value any,
) (bool, string) {
	code, ok := toInt(value)
	if !ok {
		return false, "value is not a status code"
	}
	if code >= 200 && code < 300 {
		return true, fmt.Sprintf("status %d is 2xx", code)
	}
	return false, fmt.Sprintf("status %d is not 2xx", code)
}

// evaluateStatusCode checks an HTTP status against an exact
// expected code.
func evaluateStatusCode(
	assertion Definition,
	value any,
) (bool, string) {
	code, ok := toInt(value)
	if !ok {
		return false, "value is not a status code"
	}
	want, ok := toInt(assertion.Value)
	if !ok {
		return false, "expected value is not a number"
	}
	if code == want {
		return true, fmt.Sprintf("status %d", code)
	}
	return false, fmt.Sprintf("status %d, want %d", code, want)
}

// evaluateMinCount checks that a countable value (number, slice,
// or map) meets a minimum count.
func evaluateMinCount(
	assertion Definition,
	value any,
) (bool, string) {
	count, ok := toCount(value)
	if !ok {
		return false, "value is not countable"
	}

	minCount, ok := toInt(assertion.Value)
	if !ok {
		return false, "expected value is not a number"
	}

	if count >= minCount {
		return true, fmt.Sprintf(
			"count %d >= %d", count, minCount,
		)
	}

	return false, fmt.Sprintf(
		"count %d < %d", count, minCount,
	)
}

// evaluateExactCount checks that a countable value exactly
// matches the expected count.
func evaluateExactCount(
	assertion Definition,
	value any,
) (bool, string) {
	count, ok := toCount(value)
	if !ok {
		return false, "value is not countable"
	}

	expected, ok := toInt(assertion.Value)
	if !ok {
		return false, "expected value is not a number"
	}

	if count == expected {
		return true, fmt.Sprintf(
			"count %d == %d", count, expected,
		)
	}

	return false, fmt.Sprintf(
		"count %d != %d", count, expected,
	)
}

// evaluateMaxLatency checks that a numeric latency value does
// not exceed the specified maximum (in milliseconds).
func evaluateMaxLatency(
	assertion Definition,
	value any,
) (bool, string) {
	latency, ok := toInt64(value)
	if !ok {
		return false, "value is not a number"
	}

	maxLatency, ok := toInt64(assertion.Value)
	if !ok {
		return false, "expected value is not a number"
	}

	if latency <= maxLatency {
		return true, fmt.Sprintf(
			"latency %dms <= %dms", latency, maxLatency,
		)
	}

	return false, fmt.Sprintf(
		"latency %dms > %dms", latency, maxLatency,
	)
}

// evaluateJSONHasKey checks that a JSON document (string, bytes or
// decoded map) contains a dotted key path such as "data.agent.id".
func evaluateJSONHasKey(
	assertion Definition,
	value any,
) (bool, string) {
	path, ok := assertion.Value.(string)
	if !ok || path == "" {
		return false, "expected value is not a key path"
	}

	var doc any
	switch v := value.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return false, fmt.Sprintf("value is not JSON: %v", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &doc); err != nil {
			return false, fmt.Sprintf("value is not JSON: %v", err)
		}
	default:
		doc = v
	}

	cur := doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("key '%s' not found", path)
		}
		next, exists := m[part]
		if !exists {
			return false, fmt.Sprintf("key '%s' not found", path)
		}
		cur = next
	}
	return true, fmt.Sprintf("key '%s' present", path)
}

// evaluateEventTypeSeen checks that every expected event type
// appears among the observed events. The value may be a list of
// type names or a list of decoded event objects.
func evaluateEventTypeSeen(
	assertion Definition,
	value any,
) (bool, string) {
	seen, ok := eventTypes(value)
	if !ok {
		return false, "value is not a list of events"
	}
	want := expectedStrings(assertion)
	if len(want) == 0 {
		return false, "no expected event types"
	}

	var missing []string
	for _, w := range want {
		if !seen[w] {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf(
			"event types not seen: %s", strings.Join(missing, ", "),
		)
	}
	return true, fmt.Sprintf("saw %s", strings.Join(want, ", "))
}

func eventTypes(value any) (map[string]bool, bool) {
	seen := make(map[string]bool)
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			seen[s] = true
		}
	case []any:
		for _, item := range v {
			switch e := item.(type) {
			case string:
				seen[e] = true
			case map[string]any:
				for _, k := range []string{"event_type", "type"} {
					if s, ok := e[k].(string); ok && s != "" {
						seen[s] = true
						break
					}
				}
			}
		}
	default:
		return nil, false
	}
	return seen, true
}

// evaluateNoDuplicates checks that a slice contains no
// duplicate values (compared via fmt.Sprintf("%v")).
func evaluateNoDuplicates(
	_ Definition,
	value any,
) (bool, string) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return false, "value is not an array"
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := fmt.Sprintf("%v", item)
		if seen[key] {
			return false, fmt.Sprintf(
				"duplicate found: %s", key,
			)
		}
		seen[key] = true
	}

	return true, "no duplicates found"
}

// evaluateAllPass checks that all items in a slice of results
// have passed. Accepts []Result or []any with map entries
// containing a "passed" key.
func evaluateAllPass(
	_ Definition,
	value any,
) (bool, string) {
	results, ok := value.([]Result)
	if !ok {
		items, ok := value.([]any)
		if !ok {
			return false, "value is not an array of results"
		}
		for i, item := range items {
			if m, ok := item.(map[string]any); ok {
				if passed, exists := m["passed"]; exists {
					if p, ok := passed.(bool); ok && !p {
						return false, fmt.Sprintf(
							"item %d failed", i,
						)
					}
				}
			}
		}
		return true, "all items passed"
	}

	for _, result := range results {
		if !result.Passed {
			return false, fmt.Sprintf(
				"assertion '%s' failed: %s",
				result.Type, result.Message,
			)
		}
	}

	return true, "all assertions passed"
}

// --- helpers ---

// expectedStrings collects the expected values from Value (a
// comma-separated string or a list) or, failing that, Values.
func expectedStrings(a Definition) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch v := a.Value.(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	if len(out) == 0 {
		for _, item := range a.Values {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	return out
}

// toInt converts an any value to int. Numeric strings are
// accepted because shorthand checks carry their values as text.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

// toInt64 converts an any value to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// toFloat64 converts an any value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// toCount extracts an integer count from a value. It handles
// numbers, []any, []string and map[string]any.
func toCount(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case float64:
		return int(val), true
	case int64:
		return int(val), true
	case []any:
		return len(val), true
	case []string:
		return len(val), true
	case map[string]any:
		return len(val), true
	}
	return 0, false
}
