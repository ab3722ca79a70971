package grammar

import (
	"strings"
)

// quoter wraps identifiers with a dialect's quote characters.
type quoter struct {
	open  string
	close string
}

var (
	backticks = quoter{open: "`", close: "`"}
	doubles   = quoter{open: `"`, close: `"`}
	brackets  = quoter{open: "[", close: "]"}
)

func (q quoter) wrap(name string) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = q.segment(p)
		}
		return strings.Join(parts, ".")
	}
	return q.segment(name)
}

func (q quoter) segment(s string) string {
	if s == "*" {
		return s
	}
	return q.open + strings.ReplaceAll(s, q.close, q.close+q.close) + q.close
}

// columns wraps and comma-joins column names.
func (q quoter) columns(names []string) string {
	wrapped := make([]string, len(names))
	for i, n := range names {
		wrapped[i] = q.wrap(n)
	}
	return strings.Join(wrapped, ", ")
}

// quoteString renders a single-quoted SQL string literal.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteStrings renders a comma-joined list of string literals.
func quoteStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteString(v)
	}
	return strings.Join(quoted, ", ")
}
