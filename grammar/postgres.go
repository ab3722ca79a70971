package grammar

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// Postgres compiles blueprints for PostgreSQL.
type Postgres struct {
	q        quoter
	types    typeMapper
	defaults defaultCompiler
	indexes  indexCompiler
	fks      foreignKeyCompiler
}

// NewPostgres returns the PostgreSQL compiler.
func NewPostgres() *Postgres {
	g := &Postgres{
		q:        doubles,
		defaults: defaultCompiler{trueLiteral: "true", falseLiteral: "false", numericBooleans: true},
		indexes:  indexCompiler{q: doubles},
		fks:      foreignKeyCompiler{q: doubles},
	}
	g.types = typeMapper{
		dialect: database.Postgres,
		native: map[schema.Type]string{
			schema.BigInt: "BIGINT", schema.Int: "INTEGER", schema.MediumInt: "INTEGER",
			schema.SmallInt: "SMALLINT", schema.TinyInt: "SMALLINT",
			schema.Varchar: "VARCHAR", schema.Char: "CHAR",
			schema.Text: "TEXT", schema.TinyText: "TEXT", schema.MediumText: "TEXT", schema.LongText: "TEXT",
			schema.Decimal: "DECIMAL", schema.Float: "REAL", schema.Double: "DOUBLE PRECISION",
			schema.Boolean: "BOOLEAN", schema.JSON: "JSONB", schema.JSONB: "JSONB",
			schema.Enum: "VARCHAR(255)",
			schema.Date: "DATE", schema.DateTime: "TIMESTAMP", schema.Time: "TIME",
			schema.Timestamp: "TIMESTAMP", schema.Year: "INTEGER",
			schema.Binary: "BYTEA", schema.UUID: "UUID",
			schema.Vector: "VECTOR",
		},
		sized: sizedSet(schema.Varchar, schema.Char, schema.Decimal, schema.Vector),
		override: func(c *schema.Column) (string, bool, error) {
			switch {
			case c.IsAutoIncrement && c.Type == schema.BigInt:
				return "BIGSERIAL", true, nil
			case c.IsAutoIncrement && (c.Type == schema.Int || c.Type == schema.MediumInt):
				return "SERIAL", true, nil
			case c.IsAutoIncrement && (c.Type == schema.SmallInt || c.Type == schema.TinyInt):
				return "SMALLSERIAL", true, nil
			case c.Type == schema.TinyInt && c.Length == 1:
				return "BOOLEAN", true, nil
			case c.Type.IsSpatial():
				return postgisType(c), true, nil
			}
			return "", false, nil
		},
	}
	return g
}

func postgisType(c *schema.Column) string {
	sub := "GEOMETRY"
	if c.Type == schema.Point {
		sub = "POINT"
	}
	if c.SRID > 0 {
		return fmt.Sprintf("GEOMETRY(%s, %d)", sub, c.SRID)
	}
	return fmt.Sprintf("GEOMETRY(%s)", sub)
}

func (g *Postgres) Dialect() string         { return database.Postgres }
func (g *Postgres) Wrap(name string) string { return g.q.wrap(name) }
func (g *Postgres) Parameter(n int) string  { return fmt.Sprintf("$%d", n) }

func (g *Postgres) checkColumn(c *schema.Column) error {
	if c.OnUpdateExpr != "" {
		return unsupported(database.Postgres, "ON UPDATE on column %s", c.Name)
	}
	return nil
}

func (g *Postgres) column(table string, c *schema.Column) (string, error) {
	if err := g.checkColumn(c); err != nil {
		return "", err
	}
	typ, err := g.types.mapType(c)
	if err != nil {
		return "", err
	}
	sql := g.q.wrap(c.Name) + " " + typ
	if c.IsNullable {
		sql += " NULL"
	} else {
		sql += " NOT NULL"
	}
	if !c.IsAutoIncrement {
		def, ok, err := g.defaults.compile(c)
		if err != nil {
			return "", invalid(table, "%v", err)
		}
		if ok {
			sql += " DEFAULT " + def
		}
	}
	if c.Type == schema.Enum {
		sql += fmt.Sprintf(" CHECK (%s IN (%s))", g.q.wrap(c.Name), quoteStrings(c.Values))
	}
	if c.IsAutoIncrement {
		sql += " PRIMARY KEY"
	}
	return sql, nil
}

func (g *Postgres) comment(table string, c *schema.Column) string {
	if c.CommentText == "" {
		return ""
	}
	return fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", g.q.wrap(table), g.q.wrap(c.Name), quoteString(c.CommentText))
}

// indexStatement renders a standalone statement for every index kind except
// the primary key.
func (g *Postgres) indexStatement(table string, idx schema.IndexDefinition) (string, error) {
	if err := validateIndex(table, idx); err != nil {
		return "", err
	}
	algorithm := strings.ToLower(idx.Algorithm)
	switch idx.Type {
	case schema.IndexPrimary:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)", g.q.wrap(table), g.q.wrap(idx.Name), g.q.columns(idx.Columns)), nil
	case schema.IndexUnique, schema.IndexPlain, schema.IndexRaw:
		return g.indexes.createIndex(table, idx, algorithm), nil
	case schema.IndexSpatial:
		return g.indexes.createIndex(table, idx, "gist"), nil
	case schema.IndexVector:
		if algorithm == "" {
			algorithm = "hnsw"
		}
		return g.indexes.createIndex(table, idx, algorithm), nil
	case schema.IndexFulltext:
		vectors := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			vectors[i] = fmt.Sprintf("to_tsvector(%s, %s)", quoteString("english"), g.q.wrap(c))
		}
		return fmt.Sprintf("CREATE INDEX %s ON %s USING gin ((%s))", g.q.wrap(idx.Name), g.q.wrap(table), strings.Join(vectors, " || ")), nil
	}
	return "", invalid(table, "unknown index type %q", idx.Type)
}

// CompileCreate renders CREATE TABLE with the primary key and foreign keys
// inline, followed by CREATE INDEX and COMMENT statements.
func (g *Postgres) CompileCreate(bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	var defs []string
	var trailing statements
	for _, c := range bp.AddedColumns() {
		def, err := g.column(table, c)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	for _, idx := range bp.Indexes() {
		if isAutoPrimary(idx, bp.Columns()) {
			continue
		}
		if idx.Type == schema.IndexPrimary {
			if err := validateIndex(table, idx); err != nil {
				return nil, err
			}
			defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", g.q.wrap(idx.Name), g.q.columns(idx.Columns)))
			continue
		}
		stmt, err := g.indexStatement(table, idx)
		if err != nil {
			return nil, err
		}
		trailing.add(stmt)
	}
	for _, fk := range bp.ForeignKeys() {
		clause, err := g.fks.constraint(table, fk)
		if err != nil {
			return nil, err
		}
		defs = append(defs, clause)
	}
	if len(defs) == 0 {
		return nil, invalid(table, "table has no columns")
	}
	for _, c := range bp.AddedColumns() {
		trailing.add(g.comment(table, c))
	}

	out := statements{fmt.Sprintf("CREATE TABLE %s (%s)", g.q.wrap(table), strings.Join(defs, ", "))}
	out.add(trailing...)
	return out, nil
}

// modify renders the ALTER COLUMN clauses for a changed column.
func (g *Postgres) modify(table string, c *schema.Column) (string, error) {
	if err := g.checkColumn(c); err != nil {
		return "", err
	}
	if c.IsAutoIncrement {
		return "", unsupported(database.Postgres, "changing column %s to auto-increment", c.Name)
	}
	typ, err := g.types.mapType(c)
	if err != nil {
		return "", err
	}
	name := g.q.wrap(c.Name)
	clauses := []string{fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s::%s", name, typ, name, typ)}
	if c.IsNullable {
		clauses = append(clauses, "ALTER COLUMN "+name+" DROP NOT NULL")
	} else {
		clauses = append(clauses, "ALTER COLUMN "+name+" SET NOT NULL")
	}
	def, ok, err := g.defaults.compile(c)
	if err != nil {
		return "", invalid(table, "%v", err)
	}
	if ok {
		clauses = append(clauses, "ALTER COLUMN "+name+" SET DEFAULT "+def)
	} else {
		clauses = append(clauses, "ALTER COLUMN "+name+" DROP DEFAULT")
	}
	return "ALTER TABLE " + g.q.wrap(table) + " " + strings.Join(clauses, ", "), nil
}

// CompileAlter renders the alteration as an ordered list: constraint and
// index drops, column drops, renames (one statement each, PostgreSQL cannot
// combine them), modifications, additions, keys, comments, table rename.
func (g *Postgres) CompileAlter(_ context.Context, bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	alter := "ALTER TABLE " + g.q.wrap(table) + " "
	var out statements

	if fks := bp.DroppedForeigns(); len(fks) > 0 {
		clauses := make([]string, len(fks))
		for i, n := range fks {
			clauses[i] = "DROP CONSTRAINT " + g.q.wrap(n)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	var plain []string
	for _, n := range bp.DroppedIndexes() {
		if isPrimaryName(n) {
			out.add(alter + "DROP CONSTRAINT " + g.q.wrap(n))
			continue
		}
		plain = append(plain, n)
	}
	if len(plain) > 0 {
		out.add("DROP INDEX " + g.q.columns(plain))
	}
	if cols := bp.DroppedColumns(); len(cols) > 0 {
		clauses := make([]string, len(cols))
		for i, n := range cols {
			clauses[i] = "DROP COLUMN " + g.q.wrap(n)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	for _, r := range bp.Renames() {
		out.add(alter + "RENAME COLUMN " + g.q.wrap(r.From) + " TO " + g.q.wrap(r.To))
	}
	for _, c := range bp.ChangedColumns() {
		stmt, err := g.modify(table, c)
		if err != nil {
			return nil, err
		}
		out.add(stmt)
	}
	if added := bp.AddedColumns(); len(added) > 0 {
		var clauses []string
		for _, c := range added {
			def, err := g.column(table, c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "ADD COLUMN "+def)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	for _, idx := range bp.Indexes() {
		if isAutoPrimary(idx, bp.Columns()) {
			continue
		}
		stmt, err := g.indexStatement(table, idx)
		if err != nil {
			return nil, err
		}
		out.add(stmt)
	}
	if fks := bp.ForeignKeys(); len(fks) > 0 {
		var clauses []string
		for _, fk := range fks {
			clause, err := g.fks.constraint(table, fk)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "ADD "+clause)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	for _, c := range bp.Columns() {
		out.add(g.comment(table, c))
	}
	if to, ok := bp.RenamedTo(); ok {
		out.add(g.CompileRename(table, to)...)
	}
	return out, nil
}

func (g *Postgres) CompileDrop(table string) []string {
	return []string{"DROP TABLE " + g.q.wrap(table)}
}

func (g *Postgres) CompileDropIfExists(table string) []string {
	return []string{"DROP TABLE IF EXISTS " + g.q.wrap(table)}
}

func (g *Postgres) CompileRename(from, to string) []string {
	return []string{"ALTER TABLE " + g.q.wrap(from) + " RENAME TO " + g.q.wrap(to)}
}

func (g *Postgres) CompileTableExists(table string) (string, []any) {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1 AND table_type = 'BASE TABLE'", []any{table}
}

func (g *Postgres) CompileDropColumn(ctx context.Context, table string, columns []string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropColumn(columns...) })
}

func (g *Postgres) CompileRenameColumn(ctx context.Context, table, from, to string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.RenameColumn(from, to) })
}

func (g *Postgres) CompileDropIndex(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropIndex(name) })
}

func (g *Postgres) CompileDropForeign(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropForeign(name) })
}
