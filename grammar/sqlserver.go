package grammar

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// SQLServer compiles blueprints for Microsoft SQL Server.
type SQLServer struct {
	q        quoter
	types    typeMapper
	defaults defaultCompiler
	indexes  indexCompiler
	fks      foreignKeyCompiler
}

// NewSQLServer returns the SQL Server compiler.
func NewSQLServer() *SQLServer {
	g := &SQLServer{
		q:        brackets,
		defaults: defaultCompiler{trueLiteral: "1", falseLiteral: "0"},
		indexes:  indexCompiler{q: brackets},
		fks:      foreignKeyCompiler{q: brackets, action: restrictAsNoAction},
	}
	g.types = typeMapper{
		dialect: database.SQLServer,
		native: map[schema.Type]string{
			schema.BigInt: "BIGINT", schema.Int: "INT", schema.MediumInt: "INT",
			schema.SmallInt: "SMALLINT", schema.TinyInt: "TINYINT",
			schema.Varchar: "NVARCHAR", schema.Char: "NCHAR",
			schema.Text: "NVARCHAR(MAX)", schema.TinyText: "NVARCHAR(255)",
			schema.MediumText: "NVARCHAR(MAX)", schema.LongText: "NVARCHAR(MAX)",
			schema.Decimal: "DECIMAL", schema.Float: "FLOAT", schema.Double: "FLOAT",
			schema.Boolean: "BIT", schema.JSON: "NVARCHAR(MAX)", schema.JSONB: "NVARCHAR(MAX)",
			schema.Enum: "NVARCHAR(255)",
			schema.Date: "DATE", schema.DateTime: "DATETIME2", schema.Time: "TIME",
			schema.Timestamp: "DATETIME2", schema.Year: "SMALLINT",
			schema.Binary: "VARBINARY(MAX)", schema.UUID: "UNIQUEIDENTIFIER",
			schema.Geometry: "GEOMETRY", schema.Point: "GEOMETRY",
		},
		sized: sizedSet(schema.Varchar, schema.Char, schema.Decimal),
		override: func(c *schema.Column) (string, bool, error) {
			switch {
			case c.Type == schema.Vector:
				return "", true, unsupported(database.SQLServer, "VECTOR column %s", c.Name)
			case c.Type == schema.TinyInt && c.Length == 1:
				return "BIT", true, nil
			}
			return "", false, nil
		},
	}
	return g
}

func (g *SQLServer) Dialect() string         { return database.SQLServer }
func (g *SQLServer) Wrap(name string) string { return g.q.wrap(name) }
func (g *SQLServer) Parameter(n int) string  { return fmt.Sprintf("@p%d", n) }

// nstring renders an N'...' unicode literal.
func nstring(s string) string {
	return "N" + quoteString(s)
}

func (g *SQLServer) columnType(c *schema.Column) (string, error) {
	if c.OnUpdateExpr != "" {
		return "", unsupported(database.SQLServer, "ON UPDATE on column %s", c.Name)
	}
	return g.types.mapType(c)
}

func (g *SQLServer) column(table string, c *schema.Column) (string, error) {
	typ, err := g.columnType(c)
	if err != nil {
		return "", err
	}
	sql := g.q.wrap(c.Name) + " " + typ
	if c.IsAutoIncrement {
		sql += " IDENTITY(1,1)"
	}
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
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = nstring(v)
		}
		sql += fmt.Sprintf(" CHECK (%s IN (%s))", g.q.wrap(c.Name), strings.Join(values, ", "))
	}
	if c.IsAutoIncrement {
		sql += " PRIMARY KEY"
	}
	return sql, nil
}

// comment renders sp_addextendedproperty, or sp_updateextendedproperty for
// an existing column.
func (g *SQLServer) comment(table string, c *schema.Column, update bool) string {
	if c.CommentText == "" {
		return ""
	}
	proc := "sp_addextendedproperty"
	if update {
		proc = "sp_updateextendedproperty"
	}
	return fmt.Sprintf("EXEC %s N'MS_Description', %s, N'SCHEMA', N'dbo', N'TABLE', %s, N'COLUMN', %s",
		proc, nstring(c.CommentText), nstring(table), nstring(c.Name))
}

// dropDefaultConstraints renders a batch that drops the default
// constraints bound to columns; SQL Server refuses to drop or alter a
// column while one exists.
func (g *SQLServer) dropDefaultConstraints(table string, columns []string) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = nstring(c)
	}
	return fmt.Sprintf("DECLARE @sql NVARCHAR(MAX) = N''; "+
		"SELECT @sql += N'ALTER TABLE %s DROP CONSTRAINT ' + OBJECT_NAME([default_object_id]) + N';' "+
		"FROM sys.columns WHERE [object_id] = OBJECT_ID(%s) AND [name] IN (%s) AND [default_object_id] <> 0; "+
		"EXEC(@sql)",
		strings.ReplaceAll(g.q.wrap(table), "'", "''"), nstring(g.q.wrap(table)), strings.Join(names, ", "))
}

func (g *SQLServer) indexStatement(table string, idx schema.IndexDefinition) (string, error) {
	if err := validateIndex(table, idx); err != nil {
		return "", err
	}
	switch idx.Type {
	case schema.IndexPrimary:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)", g.q.wrap(table), g.q.wrap(idx.Name), g.q.columns(idx.Columns)), nil
	case schema.IndexUnique, schema.IndexPlain:
		return g.indexes.createIndex(table, idx, ""), nil
	case schema.IndexSpatial:
		return fmt.Sprintf("CREATE SPATIAL INDEX %s ON %s (%s)", g.q.wrap(idx.Name), g.q.wrap(table), g.q.columns(idx.Columns)), nil
	case schema.IndexFulltext:
		return "", unsupported(database.SQLServer, "fulltext indexes")
	case schema.IndexVector:
		return "", unsupported(database.SQLServer, "vector indexes")
	case schema.IndexRaw:
		return "", unsupported(database.SQLServer, "expression indexes")
	}
	return "", invalid(table, "unknown index type %q", idx.Type)
}

// CompileCreate renders CREATE TABLE with the primary key and foreign keys
// inline, followed by index and comment statements.
func (g *SQLServer) CompileCreate(bp *schema.Blueprint) ([]string, error) {
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
		trailing.add(g.comment(table, c, false))
	}

	out := statements{fmt.Sprintf("CREATE TABLE %s (%s)", g.q.wrap(table), strings.Join(defs, ", "))}
	out.add(trailing...)
	return out, nil
}

// CompileAlter renders separate statements for default-constraint removal,
// column changes, additions and constraint additions; SQL Server cannot mix
// them in one ALTER TABLE.
func (g *SQLServer) CompileAlter(_ context.Context, bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	alter := "ALTER TABLE " + g.q.wrap(table) + " "
	var out statements

	if fks := bp.DroppedForeigns(); len(fks) > 0 {
		out.add(alter + "DROP CONSTRAINT " + g.q.columns(fks))
	}
	for _, n := range bp.DroppedIndexes() {
		if isPrimaryName(n) {
			out.add(alter + "DROP CONSTRAINT " + g.q.wrap(n))
			continue
		}
		out.add("DROP INDEX " + g.q.wrap(n) + " ON " + g.q.wrap(table))
	}
	if cols := bp.DroppedColumns(); len(cols) > 0 {
		out.add(g.dropDefaultConstraints(table, cols))
		out.add(alter + "DROP COLUMN " + g.q.columns(cols))
	}
	for _, r := range bp.Renames() {
		out.add(fmt.Sprintf("EXEC sp_rename %s, %s, N'COLUMN'", nstring(g.q.wrap(table)+"."+g.q.wrap(r.From)), nstring(r.To)))
	}
	for _, c := range bp.ChangedColumns() {
		if c.IsAutoIncrement {
			return nil, unsupported(database.SQLServer, "changing column %s to IDENTITY", c.Name)
		}
		typ, err := g.columnType(c)
		if err != nil {
			return nil, err
		}
		null := " NOT NULL"
		if c.IsNullable {
			null = " NULL"
		}
		out.add(g.dropDefaultConstraints(table, []string{c.Name}))
		out.add(alter + "ALTER COLUMN " + g.q.wrap(c.Name) + " " + typ + null)
		def, ok, err := g.defaults.compile(c)
		if err != nil {
			return nil, invalid(table, "%v", err)
		}
		if ok {
			out.add(alter + "ADD DEFAULT " + def + " FOR " + g.q.wrap(c.Name))
		}
		out.add(g.comment(table, c, true))
	}
	if added := bp.AddedColumns(); len(added) > 0 {
		defs := make([]string, 0, len(added))
		for _, c := range added {
			def, err := g.column(table, c)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
		out.add(alter + "ADD " + strings.Join(defs, ", "))
		for _, c := range added {
			out.add(g.comment(table, c, false))
		}
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
		clauses := make([]string, 0, len(fks))
		for _, fk := range fks {
			clause, err := g.fks.constraint(table, fk)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
		out.add(alter + "ADD " + strings.Join(clauses, ", "))
	}
	if to, ok := bp.RenamedTo(); ok {
		out.add(g.CompileRename(table, to)...)
	}
	return out, nil
}

func (g *SQLServer) CompileDrop(table string) []string {
	return []string{"DROP TABLE " + g.q.wrap(table)}
}

func (g *SQLServer) CompileDropIfExists(table string) []string {
	return []string{fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NOT NULL DROP TABLE %s", nstring(g.q.wrap(table)), g.q.wrap(table))}
}

func (g *SQLServer) CompileRename(from, to string) []string {
	return []string{fmt.Sprintf("EXEC sp_rename %s, %s", nstring(g.q.wrap(from)), nstring(to))}
}

func (g *SQLServer) CompileTableExists(table string) (string, []any) {
	return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_NAME = @p1", []any{table}
}

func (g *SQLServer) CompileDropColumn(ctx context.Context, table string, columns []string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropColumn(columns...) })
}

func (g *SQLServer) CompileRenameColumn(ctx context.Context, table, from, to string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.RenameColumn(from, to) })
}

func (g *SQLServer) CompileDropIndex(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropIndex(name) })
}

func (g *SQLServer) CompileDropForeign(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropForeign(name) })
}
