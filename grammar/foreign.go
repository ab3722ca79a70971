package grammar

import (
	"strings"

	"github.com/ridoystarlord/schemato/schema"
)

// foreignKeyCompiler renders CONSTRAINT ... FOREIGN KEY clauses.
type foreignKeyCompiler struct {
	q quoter
	// action remaps a normalised action for the platform.
	action func(string) string
}

func (f foreignKeyCompiler) constraint(table string, fk *schema.ForeignKey) (string, error) {
	if len(fk.Columns) == 0 {
		return "", invalid(table, "foreign key %s has no columns", fk.Name)
	}
	if fk.ReferencedTable == "" {
		return "", invalid(table, "foreign key %s has no referenced table", fk.Name)
	}
	if len(fk.ReferencedColumns) > 0 && len(fk.ReferencedColumns) != len(fk.Columns) {
		return "", invalid(table, "foreign key %s references %d columns with %d", fk.Name, len(fk.ReferencedColumns), len(fk.Columns))
	}

	var sb strings.Builder
	if fk.Name != "" {
		sb.WriteString("CONSTRAINT ")
		sb.WriteString(f.q.wrap(fk.Name))
		sb.WriteString(" ")
	}
	sb.WriteString("FOREIGN KEY (")
	sb.WriteString(f.q.columns(fk.Columns))
	sb.WriteString(") REFERENCES ")
	sb.WriteString(f.q.wrap(fk.ReferencedTable))
	if len(fk.ReferencedColumns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(f.q.columns(fk.ReferencedColumns))
		sb.WriteString(")")
	}
	sb.WriteString(" ON DELETE ")
	sb.WriteString(f.remap(fk.DeleteAction))
	sb.WriteString(" ON UPDATE ")
	sb.WriteString(f.remap(fk.UpdateAction))
	return sb.String(), nil
}

func (f foreignKeyCompiler) remap(action string) string {
	action = schema.NormalizeAction(action)
	if f.action != nil {
		return f.action(action)
	}
	return action
}

// restrictAsNoAction maps RESTRICT onto NO ACTION for platforms without
// RESTRICT.
func restrictAsNoAction(action string) string {
	if action == schema.ActionRestrict {
		return schema.ActionNoAction
	}
	return action
}
