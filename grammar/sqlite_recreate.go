package grammar

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// liveTable is the introspected state of a SQLite table.
type liveTable struct {
	columns       []database.ColumnInfo
	indexes       []database.IndexInfo
	foreignKeys   []database.ForeignKeyInfo
	checks        []checkConstraint
	autoIncrement bool
}

func (g *SQLite) inspect(ctx context.Context, table string) (*liveTable, error) {
	columns, err := g.intro.IntrospectColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, invalid(table, "table does not exist")
	}
	indexes, err := g.intro.IntrospectIndexes(ctx, table)
	if err != nil {
		return nil, err
	}
	fks, err := g.intro.IntrospectForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	ddl, err := g.intro.TableSQL(ctx, table)
	if err != nil {
		return nil, err
	}
	checks, err := parseChecks(ddl)
	if err != nil {
		return nil, invalid(table, "cannot read CHECK constraints: %v", err)
	}
	return &liveTable{
		columns:       columns,
		indexes:       indexes,
		foreignKeys:   fks,
		checks:        checks,
		autoIncrement: strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT"),
	}, nil
}

// primaryKey returns the live primary key columns in key order.
func (t *liveTable) primaryKey() []database.ColumnInfo {
	var pk []database.ColumnInfo
	for _, c := range t.columns {
		if c.IsPrimaryKey {
			pk = append(pk, c)
		}
	}
	sort.SliceStable(pk, func(i, j int) bool { return pk[i].PrimaryKeyPosition < pk[j].PrimaryKeyPosition })
	return pk
}

// isRowidAlias reports whether info is the AUTOINCREMENT primary key.
func (t *liveTable) isRowidAlias(info database.ColumnInfo) bool {
	pk := t.primaryKey()
	return t.autoIncrement && len(pk) == 1 && pk[0].Name == info.Name && info.Type == "INTEGER"
}

// columnFromInfo rebuilds a column definition from its live metadata. The
// declared type and default are carried verbatim. Without keepPrimary the
// rowid alias becomes a plain NOT NULL INTEGER.
func (t *liveTable) columnFromInfo(info database.ColumnInfo, keepPrimary bool) *schema.Column {
	rowid := t.isRowidAlias(info)
	if rowid && keepPrimary {
		return &schema.Column{Name: info.Name, Type: schema.BigInt, IsAutoIncrement: true}
	}
	col := &schema.Column{Name: info.Name, Type: schema.Raw, RawType: info.Type, IsNullable: info.Nullable && !rowid}
	if info.Default != nil {
		col.HasDefault = true
		col.DefaultValue = schema.Expression(*info.Default)
	}
	return col
}

// recreation is the plan for rebuilding one table.
type recreation struct {
	table string
	final string
	temp  string

	renames   map[string]string
	dropped   map[string]bool
	changed   map[string]*schema.Column
	dropIdx   map[string]bool
	dropFKs   map[string]bool
	usedIdx   map[string]bool
	usedFKs   map[string]bool
	primaryDr bool

	blueprint  *schema.Blueprint
	checks     checkClauses
	copyFrom   []string
	copyTo     []string
	postCreate statements
}

func newRecreation(bp *schema.Blueprint, temp string) *recreation {
	r := &recreation{
		table:   bp.Table(),
		final:   bp.Table(),
		temp:    temp,
		renames: map[string]string{},
		dropped: map[string]bool{},
		changed: map[string]*schema.Column{},
		dropIdx: map[string]bool{},
		dropFKs: map[string]bool{},
		usedIdx: map[string]bool{},
		usedFKs: map[string]bool{},
	}
	if to, ok := bp.RenamedTo(); ok {
		r.final = to
	}
	for _, rn := range bp.Renames() {
		r.renames[rn.From] = rn.To
	}
	for _, c := range bp.DroppedColumns() {
		r.dropped[c] = true
	}
	for _, c := range bp.ChangedColumns() {
		r.changed[c.Name] = c
	}
	for _, n := range bp.DroppedIndexes() {
		if isPrimaryName(n) {
			r.primaryDr = true
			r.usedIdx[n] = true
			continue
		}
		r.dropIdx[n] = true
	}
	for _, n := range bp.DroppedForeigns() {
		r.dropFKs[n] = true
	}
	return r
}

// rename maps a live column name to its name in the rebuilt table.
func (r *recreation) rename(name string) string {
	if to, ok := r.renames[name]; ok {
		return to
	}
	return name
}

func (r *recreation) touchesDropped(columns []string) bool {
	for _, c := range columns {
		if r.dropped[c] {
			return true
		}
	}
	return false
}

func (r *recreation) mapColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.rename(c)
	}
	return out
}

// validate rejects drops, renames and changes naming unknown columns.
func (r *recreation) validate(live *liveTable, bp *schema.Blueprint) error {
	known := make(map[string]bool, len(live.columns))
	for _, c := range live.columns {
		known[c.Name] = true
	}
	for _, c := range bp.DroppedColumns() {
		if !known[c] {
			return invalid(r.table, "cannot drop unknown column %s", c)
		}
	}
	for _, rn := range bp.Renames() {
		if !known[rn.From] {
			return invalid(r.table, "cannot rename unknown column %s", rn.From)
		}
		if r.dropped[rn.From] {
			return invalid(r.table, "column %s is both renamed and dropped", rn.From)
		}
	}
	for name := range r.changed {
		if !known[name] && !known[r.reverse(name)] {
			return invalid(r.table, "cannot modify unknown column %s", name)
		}
	}
	final := map[string]bool{}
	for _, c := range live.columns {
		if !r.dropped[c.Name] {
			final[r.rename(c.Name)] = true
		}
	}
	for _, c := range bp.AddedColumns() {
		if final[c.Name] {
			return invalid(r.table, "column %s already exists", c.Name)
		}
	}
	return nil
}

// reverse maps a post-rename name back to its live name.
func (r *recreation) reverse(name string) string {
	for from, to := range r.renames {
		if to == name {
			return from
		}
	}
	return name
}

// synthesize fills the temp blueprint and the transfer column lists.
func (r *recreation) synthesize(live *liveTable, bp *schema.Blueprint) error {
	r.blueprint = schema.NewBlueprint(r.temp)

	for _, info := range live.columns {
		if r.dropped[info.Name] {
			continue
		}
		name := r.rename(info.Name)
		var col *schema.Column
		if c, ok := r.changed[info.Name]; ok {
			col = c.Clone()
		} else if c, ok := r.changed[name]; ok {
			col = c.Clone()
		} else {
			col = live.columnFromInfo(info, !r.primaryDr)
		}
		col.Name = name
		col.Indexes = nil
		r.blueprint.AddColumn(col)
		r.copyFrom = append(r.copyFrom, info.Name)
		r.copyTo = append(r.copyTo, name)
	}
	for _, c := range bp.AddedColumns() {
		col := c.Clone()
		col.Indexes = nil
		r.blueprint.AddColumn(col)
	}

	if err := r.primary(live, bp); err != nil {
		return err
	}
	if err := r.carryForeignKeys(live); err != nil {
		return err
	}
	for _, fk := range bp.ForeignKeys() {
		r.blueprint.AddForeignKey(fk)
	}
	return nil
}

// carryChecks renders the live CHECK constraints against the new column
// names. A column-level check stays on its column and goes with it when the
// column is dropped or replaced; any other check on a dropped column is an
// error.
func (r *recreation) carryChecks(q quoter, live *liveTable) error {
	columns := make(map[string]string, len(live.columns))
	for _, c := range live.columns {
		columns[strings.ToLower(c.Name)] = c.Name
	}
	for _, c := range live.checks {
		owner := ""
		if c.column != "" {
			var ok bool
			if owner, ok = columns[strings.ToLower(c.column)]; !ok {
				return invalid(r.table, "CHECK constraint on unknown column %s", c.column)
			}
			if r.dropped[owner] || r.changed[owner] != nil || r.changed[r.rename(owner)] != nil {
				continue
			}
		}
		for _, ref := range c.references(columns) {
			if r.dropped[ref] {
				return invalid(r.table, "cannot drop column %s used by a CHECK constraint", ref)
			}
		}
		rendered := c.render(q, r.rename, columns)
		if owner == "" {
			r.checks.table = append(r.checks.table, rendered)
			continue
		}
		if r.checks.columns == nil {
			r.checks.columns = map[string][]string{}
		}
		name := r.rename(owner)
		r.checks.columns[name] = append(r.checks.columns[name], rendered)
	}
	return nil
}

// carryIndexes renders the live secondary indexes against the final table.
func (r *recreation) carryIndexes(g *SQLite, live *liveTable) error {
	for _, info := range live.indexes {
		if info.Origin == "pk" {
			continue
		}
		generated := ""
		if info.Origin == "u" {
			generated = schema.IndexName(r.table, schema.IndexUnique, info.Columns)
		}
		if r.dropIdx[info.Name] || (generated != "" && r.dropIdx[generated]) {
			r.usedIdx[info.Name] = true
			r.usedIdx[generated] = true
			continue
		}
		if r.touchesDropped(info.Columns) {
			continue
		}
		for _, c := range info.Columns {
			if c == "" {
				return invalid(r.table, "index %s is built on an expression and cannot be carried over", info.Name)
			}
		}
		idx := schema.IndexDefinition{Type: schema.IndexPlain, Name: info.Name, Columns: r.mapColumns(info.Columns)}
		if info.Unique {
			idx.Type = schema.IndexUnique
		}
		if info.Origin == "u" {
			idx.Name = schema.IndexName(r.final, schema.IndexUnique, idx.Columns)
		}
		stmt, err := g.indexStatement(r.final, idx)
		if err != nil {
			return err
		}
		r.postCreate.add(stmt)
	}
	for n := range r.dropIdx {
		if !r.usedIdx[n] {
			return invalid(r.table, "unknown index %s", n)
		}
	}
	return nil
}

// recreate compiles the rebuild sequence: create the temporary table,
// copy the rows, swap it in and rebuild the secondary indexes, all with
// foreign key enforcement switched off.
func (g *SQLite) recreate(ctx context.Context, bp *schema.Blueprint) ([]string, error) {
	live, err := g.inspect(ctx, bp.Table())
	if err != nil {
		return nil, err
	}
	r := newRecreation(bp, g.tempName(bp.Table()))
	if err := r.validate(live, bp); err != nil {
		return nil, err
	}
	if err := r.synthesize(live, bp); err != nil {
		return nil, err
	}
	if err := r.carryChecks(g.q, live); err != nil {
		return nil, err
	}
	if err := r.carryIndexes(g, live); err != nil {
		return nil, err
	}
	for _, idx := range bp.Indexes() {
		if idx.Type == schema.IndexPrimary {
			continue
		}
		stmt, err := g.indexStatement(r.final, renamedIndex(idx, r.table, r.final))
		if err != nil {
			return nil, err
		}
		r.postCreate.add(stmt)
	}

	r.blueprint.Seal()
	primary, _, err := splitIndexes(r.temp, r.blueprint.Indexes(), r.blueprint.Columns())
	if err != nil {
		return nil, err
	}
	create, err := g.createTable(r.temp, r.blueprint.Columns(), primary, r.blueprint.ForeignKeys(), r.checks)
	if err != nil {
		return nil, err
	}

	out := statements{"PRAGMA foreign_keys = OFF", create}
	if len(r.copyTo) > 0 {
		out.add(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			g.q.wrap(r.temp), g.q.columns(r.copyTo), g.q.columns(r.copyFrom), g.q.wrap(r.table)))
	}
	out.add("DROP TABLE " + g.q.wrap(r.table))
	out.add(g.CompileRename(r.temp, r.final)...)
	out.add(r.postCreate...)
	out.add("PRAGMA foreign_key_check", "PRAGMA foreign_keys = ON")
	return out, nil
}

// renamedIndex moves a generated index name from table to final, so new
// indexes follow a table rename made in the same blueprint.
func renamedIndex(idx schema.IndexDefinition, table, final string) schema.IndexDefinition {
	if table != final && idx.Name == schema.IndexName(table, idx.Type, idx.Columns) {
		idx.Name = schema.IndexName(final, idx.Type, idx.Columns)
	}
	return idx
}
