package grammar

import (
	"sort"
	"strings"

	"github.com/ridoystarlord/schemato/schema"
)

// indexCompiler renders the parts of index statements shared by the
// dialects that create indexes with CREATE INDEX.
type indexCompiler struct {
	q quoter
}

// columnList renders ("a", "b"), appending the operator class to every
// column when one is set.
func (ic indexCompiler) columnList(idx schema.IndexDefinition) string {
	if idx.OperatorClass == "" {
		return "(" + ic.q.columns(idx.Columns) + ")"
	}
	parts := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		parts[i] = ic.q.wrap(c) + " " + idx.OperatorClass
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// with renders " WITH (k = v, ...)" with keys sorted.
func (ic indexCompiler) with(idx schema.IndexDefinition) string {
	if len(idx.With) == 0 {
		return ""
	}
	keys := make([]string, 0, len(idx.With))
	for k := range idx.With {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = " + idx.With[k]
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// createIndex renders CREATE [UNIQUE] INDEX name ON table [USING alg] (...).
func (ic indexCompiler) createIndex(table string, idx schema.IndexDefinition, using string) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Type == schema.IndexUnique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(ic.q.wrap(idx.Name))
	sb.WriteString(" ON ")
	sb.WriteString(ic.q.wrap(table))
	if using != "" {
		sb.WriteString(" USING ")
		sb.WriteString(using)
	}
	sb.WriteString(" ")
	if idx.Type == schema.IndexRaw {
		sb.WriteString("(" + idx.Expression + ")")
	} else {
		sb.WriteString(ic.columnList(idx))
	}
	sb.WriteString(ic.with(idx))
	return sb.String()
}

// validate rejects index definitions without columns or names.
func validateIndex(table string, idx schema.IndexDefinition) error {
	if idx.Type == schema.IndexRaw {
		if strings.TrimSpace(idx.Expression) == "" || idx.Name == "" {
			return invalid(table, "raw index needs an expression and a name")
		}
		return nil
	}
	if len(idx.Columns) == 0 {
		return invalid(table, "index %s has no columns", idx.Name)
	}
	return nil
}

// isAutoPrimary reports whether a primary index only restates an
// auto-increment column, which is already declared PRIMARY KEY inline.
func isAutoPrimary(idx schema.IndexDefinition, columns []*schema.Column) bool {
	if idx.Type != schema.IndexPrimary || len(idx.Columns) != 1 {
		return false
	}
	for _, c := range columns {
		if c.Name == idx.Columns[0] && c.IsAutoIncrement {
			return true
		}
	}
	return false
}

// isPrimaryName reports whether a dropped index name designates a primary
// key constraint.
func isPrimaryName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "primary" || strings.HasSuffix(lower, "_primary") || strings.HasSuffix(lower, "_pkey")
}
