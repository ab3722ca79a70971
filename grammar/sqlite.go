package grammar

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// SQLite compiles blueprints for SQLite. Alterations SQLite cannot express
// in place are compiled into a table recreation, which needs the live
// schema from the introspector.
type SQLite struct {
	q        quoter
	types    typeMapper
	defaults defaultCompiler
	indexes  indexCompiler
	fks      foreignKeyCompiler
	intro    Introspector

	// tempName names the scratch table of a recreation.
	tempName func(table string) string
}

// NewSQLite returns the SQLite compiler. intro may be nil when only
// creations and simple alterations are compiled.
func NewSQLite(intro Introspector) *SQLite {
	g := &SQLite{
		q:        doubles,
		defaults: defaultCompiler{trueLiteral: "1", falseLiteral: "0"},
		indexes:  indexCompiler{q: doubles},
		fks:      foreignKeyCompiler{q: doubles},
		intro:    intro,
		tempName: func(table string) string {
			return "temp_" + table + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
	g.types = typeMapper{
		dialect: database.SQLite,
		native: map[schema.Type]string{
			schema.BigInt: "INTEGER", schema.Int: "INTEGER", schema.MediumInt: "INTEGER",
			schema.SmallInt: "INTEGER", schema.TinyInt: "INTEGER", schema.Boolean: "INTEGER",
			schema.Varchar: "TEXT", schema.Char: "TEXT",
			schema.Text: "TEXT", schema.TinyText: "TEXT", schema.MediumText: "TEXT", schema.LongText: "TEXT",
			schema.JSON: "TEXT", schema.JSONB: "TEXT", schema.UUID: "TEXT", schema.Enum: "TEXT",
			schema.Date: "TEXT", schema.DateTime: "TEXT", schema.Time: "TEXT",
			schema.Timestamp: "TEXT", schema.Year: "INTEGER",
			schema.Decimal: "REAL", schema.Float: "REAL", schema.Double: "REAL",
			schema.Binary: "BLOB", schema.Geometry: "BLOB", schema.Point: "BLOB",
		},
		override: func(c *schema.Column) (string, bool, error) {
			if c.Type == schema.Vector {
				return "", true, unsupported(database.SQLite, "VECTOR column %s", c.Name)
			}
			return "", false, nil
		},
	}
	return g
}

func (g *SQLite) Dialect() string         { return database.SQLite }
func (g *SQLite) Wrap(name string) string { return g.q.wrap(name) }
func (g *SQLite) Parameter(int) string    { return "?" }

// column renders one column definition. An auto-increment column becomes
// the rowid alias and carries its own PRIMARY KEY.
func (g *SQLite) column(table string, c *schema.Column) (string, error) {
	if c.OnUpdateExpr != "" {
		return "", unsupported(database.SQLite, "ON UPDATE on column %s", c.Name)
	}
	typ, err := g.types.mapType(c)
	if err != nil {
		return "", err
	}
	if c.IsAutoIncrement {
		return g.q.wrap(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
	}
	sql := g.q.wrap(c.Name)
	if typ != "" {
		sql += " " + typ
	}
	if !c.IsNullable {
		sql += " NOT NULL"
	}
	def, ok, err := g.defaults.compile(c)
	if err != nil {
		return "", invalid(table, "%v", err)
	}
	if ok {
		if !isLiteralDefault(def) {
			def = "(" + def + ")"
		}
		sql += " DEFAULT " + def
	}
	if c.Type == schema.Enum && len(c.Values) > 0 {
		sql += fmt.Sprintf(" CHECK (%s IN (%s))", g.q.wrap(c.Name), quoteStrings(c.Values))
	}
	return sql, nil
}

// isLiteralDefault reports whether a DEFAULT operand is accepted by SQLite
// without surrounding parentheses.
func isLiteralDefault(def string) bool {
	switch strings.ToUpper(def) {
	case "NULL", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "TRUE", "FALSE":
		return true
	}
	if strings.HasPrefix(def, "'") || strings.HasPrefix(def, "(") {
		return true
	}
	for i, r := range def {
		if (r < '0' || r > '9') && r != '.' && !(i == 0 && (r == '-' || r == '+')) {
			return false
		}
	}
	return def != ""
}

// indexStatement renders a standalone CREATE INDEX.
func (g *SQLite) indexStatement(table string, idx schema.IndexDefinition) (string, error) {
	if err := validateIndex(table, idx); err != nil {
		return "", err
	}
	switch idx.Type {
	case schema.IndexUnique, schema.IndexPlain, schema.IndexRaw:
		plain := idx
		plain.OperatorClass = ""
		plain.With = nil
		return g.indexes.createIndex(table, plain, ""), nil
	case schema.IndexFulltext:
		return "", unsupported(database.SQLite, "fulltext indexes")
	case schema.IndexSpatial:
		return "", unsupported(database.SQLite, "spatial indexes")
	case schema.IndexVector:
		return "", unsupported(database.SQLite, "vector indexes")
	case schema.IndexPrimary:
		return "", unsupported(database.SQLite, "adding a primary key without recreating the table")
	}
	return "", invalid(table, "unknown index type %q", idx.Type)
}

// checkClauses holds rendered CHECK constraints carried into a rebuilt
// table, keyed by column for column-level ones.
type checkClauses struct {
	columns map[string][]string
	table   []string
}

// createTable renders CREATE TABLE for columns, an optional composite
// primary key, foreign keys and carried CHECK constraints.
func (g *SQLite) createTable(table string, columns []*schema.Column, primary *schema.IndexDefinition, fks []*schema.ForeignKey, checks checkClauses) (string, error) {
	var defs []string
	for _, c := range columns {
		def, err := g.column(table, c)
		if err != nil {
			return "", err
		}
		for _, check := range checks.columns[c.Name] {
			def += " " + check
		}
		defs = append(defs, def)
	}
	if primary != nil {
		if err := validateIndex(table, *primary); err != nil {
			return "", err
		}
		defs = append(defs, "PRIMARY KEY ("+g.q.columns(primary.Columns)+")")
	}
	for _, fk := range fks {
		clause, err := g.fks.constraint(table, fk)
		if err != nil {
			return "", err
		}
		defs = append(defs, clause)
	}
	defs = append(defs, checks.table...)
	if len(defs) == 0 {
		return "", invalid(table, "table has no columns")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", g.q.wrap(table), strings.Join(defs, ", ")), nil
}

// splitIndexes separates the primary key from the other indexes.
func splitIndexes(table string, idxs []schema.IndexDefinition, columns []*schema.Column) (*schema.IndexDefinition, []schema.IndexDefinition, error) {
	var primary *schema.IndexDefinition
	var rest []schema.IndexDefinition
	for _, idx := range idxs {
		if isAutoPrimary(idx, columns) {
			continue
		}
		if idx.Type == schema.IndexPrimary {
			if primary != nil {
				return nil, nil, invalid(table, "multiple primary keys")
			}
			p := idx
			primary = &p
			continue
		}
		rest = append(rest, idx)
	}
	return primary, rest, nil
}

// CompileCreate renders CREATE TABLE followed by one CREATE INDEX per
// secondary index.
func (g *SQLite) CompileCreate(bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	columns := bp.AddedColumns()
	primary, rest, err := splitIndexes(table, bp.Indexes(), columns)
	if err != nil {
		return nil, err
	}
	create, err := g.createTable(table, columns, primary, bp.ForeignKeys(), checkClauses{})
	if err != nil {
		return nil, err
	}
	out := statements{create}
	for _, idx := range rest {
		stmt, err := g.indexStatement(table, idx)
		if err != nil {
			return nil, err
		}
		out.add(stmt)
	}
	return out, nil
}

// needsRecreation reports whether bp holds a change SQLite's ALTER TABLE
// cannot express.
func needsRecreation(bp *schema.Blueprint) bool {
	if len(bp.DroppedColumns()) > 0 || len(bp.ChangedColumns()) > 0 ||
		len(bp.DroppedForeigns()) > 0 || len(bp.DroppedIndexes()) > 0 ||
		len(bp.ForeignKeys()) > 0 {
		return true
	}
	for _, idx := range bp.Indexes() {
		if idx.Type == schema.IndexPrimary {
			return true
		}
	}
	return false
}

// CompileAlter renders in-place ALTER TABLE statements when possible and a
// full table recreation otherwise.
func (g *SQLite) CompileAlter(ctx context.Context, bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	if needsRecreation(bp) {
		if g.intro == nil {
			return nil, invalid(bp.Table(), "recreating a SQLite table needs a live connection")
		}
		return g.recreate(ctx, bp)
	}

	table := bp.Table()
	alter := "ALTER TABLE " + g.q.wrap(table) + " "
	var out statements
	for _, r := range bp.Renames() {
		out.add(alter + "RENAME COLUMN " + g.q.wrap(r.From) + " TO " + g.q.wrap(r.To))
	}
	for _, c := range bp.AddedColumns() {
		if c.IsAutoIncrement {
			return nil, unsupported(database.SQLite, "adding auto-increment column %s", c.Name)
		}
		def, err := g.column(table, c)
		if err != nil {
			return nil, err
		}
		out.add(alter + "ADD COLUMN " + def)
	}
	final, renamed := bp.RenamedTo()
	if !renamed {
		final = table
	}
	for _, idx := range bp.Indexes() {
		stmt, err := g.indexStatement(table, renamedIndex(idx, table, final))
		if err != nil {
			return nil, err
		}
		out.add(stmt)
	}
	if renamed {
		out.add(g.CompileRename(table, final)...)
	}
	return out, nil
}

func (g *SQLite) CompileDrop(table string) []string {
	return []string{"DROP TABLE " + g.q.wrap(table)}
}

func (g *SQLite) CompileDropIfExists(table string) []string {
	return []string{"DROP TABLE IF EXISTS " + g.q.wrap(table)}
}

func (g *SQLite) CompileRename(from, to string) []string {
	return []string{"ALTER TABLE " + g.q.wrap(from) + " RENAME TO " + g.q.wrap(to)}
}

func (g *SQLite) CompileTableExists(table string) (string, []any) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{table}
}

func (g *SQLite) CompileDropColumn(ctx context.Context, table string, columns []string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropColumn(columns...) })
}

func (g *SQLite) CompileRenameColumn(ctx context.Context, table, from, to string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.RenameColumn(from, to) })
}

func (g *SQLite) CompileDropIndex(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropIndex(name) })
}

func (g *SQLite) CompileDropForeign(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropForeign(name) })
}
