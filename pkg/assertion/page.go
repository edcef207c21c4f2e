package assertion

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// evaluateFilesExist checks that at least N of the listed files
// (screenshots, reports) exist and are non-empty. The value is a
// path or a list of paths; the expected value is the minimum
// count, default 1.
func evaluateFilesExist(
	assertion Definition,
	value any,
) (bool, string) {
	minCount := 1
	if n, ok := toInt(assertion.Value); ok {
		minCount = n
	}

	var paths []string
	switch v := value.(type) {
	case string:
		if v != "" {
			paths = []string{v}
		}
	case []string:
		paths = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				paths = append(paths, s)
			}
		}
	case nil:
	default:
		return false, fmt.Sprintf("value is not a path list: %T", value)
	}

	found := 0
	var missing []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || info.Size() == 0 {
			missing = append(missing, p)
			continue
		}
		found++
	}

	if found >= minCount {
		return true, fmt.Sprintf("%d files present (>= %d)", found, minCount)
	}
	msg := fmt.Sprintf("%d files present (< %d required)", found, minCount)
	if len(missing) > 0 {
		msg += "; missing: " + strings.Join(missing, ", ")
	}
	return false, msg
}

// evaluateURLPath checks that a page ended up on the expected
// path, catching redirects to login or error routes. Trailing
// slashes are ignored.
func evaluateURLPath(
	assertion Definition,
	value any,
) (bool, string) {
	raw, ok := value.(string)
	if !ok || raw == "" {
		return false, "value is not a URL"
	}
	want := fmt.Sprint(assertion.Value)
	u, err := url.Parse(raw)
	if err != nil {
		return false, fmt.Sprintf("invalid URL %q: %v", raw, err)
	}

	norm := func(p string) string {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
		return p
	}
	if norm(u.Path) == norm(want) {
		return true, fmt.Sprintf("path %s", u.Path)
	}
	return false, fmt.Sprintf("path %q, expected %q", u.Path, want)
}
