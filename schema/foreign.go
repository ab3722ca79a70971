package schema

import "strings"

// Referential actions.
const (
	ActionCascade  = "CASCADE"
	ActionSetNull  = "SET NULL"
	ActionRestrict = "RESTRICT"
	ActionNoAction = "NO ACTION"
)

// ForeignKey is one referential constraint. Actions default to RESTRICT and
// are stored upper case.
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	DeleteAction      string
	UpdateAction      string
}

func newForeignKey(name string, columns []string) *ForeignKey {
	return &ForeignKey{
		Name:         name,
		Columns:      append([]string(nil), columns...),
		DeleteAction: ActionRestrict,
		UpdateAction: ActionRestrict,
	}
}

// References sets the referenced columns.
func (f *ForeignKey) References(columns ...string) *ForeignKey {
	f.ReferencedColumns = append([]string(nil), columns...)
	return f
}

// On sets the referenced table.
func (f *ForeignKey) On(table string) *ForeignKey {
	f.ReferencedTable = table
	return f
}

// OnDelete sets the ON DELETE action.
func (f *ForeignKey) OnDelete(action string) *ForeignKey {
	f.DeleteAction = NormalizeAction(action)
	return f
}

// OnUpdate sets the ON UPDATE action.
func (f *ForeignKey) OnUpdate(action string) *ForeignKey {
	f.UpdateAction = NormalizeAction(action)
	return f
}

func (f *ForeignKey) CascadeOnDelete() *ForeignKey  { return f.OnDelete(ActionCascade) }
func (f *ForeignKey) RestrictOnDelete() *ForeignKey { return f.OnDelete(ActionRestrict) }
func (f *ForeignKey) NullOnDelete() *ForeignKey     { return f.OnDelete(ActionSetNull) }
func (f *ForeignKey) NoActionOnDelete() *ForeignKey { return f.OnDelete(ActionNoAction) }
func (f *ForeignKey) CascadeOnUpdate() *ForeignKey  { return f.OnUpdate(ActionCascade) }
func (f *ForeignKey) RestrictOnUpdate() *ForeignKey { return f.OnUpdate(ActionRestrict) }

// Named overrides the generated constraint name.
func (f *ForeignKey) Named(name string) *ForeignKey {
	f.Name = name
	return f
}

// Clone returns a deep copy.
func (f *ForeignKey) Clone() *ForeignKey {
	cp := *f
	cp.Columns = append([]string(nil), f.Columns...)
	cp.ReferencedColumns = append([]string(nil), f.ReferencedColumns...)
	return &cp
}

// NormalizeAction upper-cases an action and collapses inner whitespace, so
// "set  null" becomes "SET NULL". An empty action becomes RESTRICT.
func NormalizeAction(action string) string {
	action = strings.Join(strings.Fields(strings.ToUpper(action)), " ")
	if action == "" {
		return ActionRestrict
	}
	return action
}
