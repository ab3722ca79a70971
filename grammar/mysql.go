package grammar

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// MySQL compiles blueprints for MySQL and MariaDB.
type MySQL struct {
	q        quoter
	types    typeMapper
	defaults defaultCompiler
	fks      foreignKeyCompiler
}

// NewMySQL returns the MySQL compiler.
func NewMySQL() *MySQL {
	g := &MySQL{
		q:        backticks,
		defaults: defaultCompiler{trueLiteral: "1", falseLiteral: "0"},
		fks:      foreignKeyCompiler{q: backticks},
	}
	g.types = typeMapper{
		dialect: database.MySQL,
		native: map[schema.Type]string{
			schema.BigInt: "BIGINT", schema.Int: "INT", schema.MediumInt: "MEDIUMINT",
			schema.SmallInt: "SMALLINT", schema.TinyInt: "TINYINT",
			schema.Varchar: "VARCHAR", schema.Char: "CHAR",
			schema.Text: "TEXT", schema.TinyText: "TINYTEXT", schema.MediumText: "MEDIUMTEXT", schema.LongText: "LONGTEXT",
			schema.Decimal: "DECIMAL", schema.Float: "FLOAT", schema.Double: "DOUBLE",
			schema.Boolean: "TINYINT(1)", schema.JSON: "JSON", schema.JSONB: "JSON",
			schema.Date: "DATE", schema.DateTime: "DATETIME", schema.Time: "TIME",
			schema.Timestamp: "TIMESTAMP", schema.Year: "YEAR",
			schema.Binary: "BLOB", schema.UUID: "CHAR(36)",
			schema.Geometry: "GEOMETRY", schema.Point: "POINT",
			schema.Vector: "VECTOR",
		},
		sized: sizedSet(schema.BigInt, schema.Int, schema.MediumInt, schema.SmallInt, schema.TinyInt,
			schema.Varchar, schema.Char, schema.Decimal, schema.Float, schema.Double, schema.Vector),
		override: func(c *schema.Column) (string, bool, error) {
			if c.Type == schema.Enum {
				return "ENUM(" + quoteStrings(c.Values) + ")", true, nil
			}
			return "", false, nil
		},
	}
	return g
}

func (g *MySQL) Dialect() string         { return database.MySQL }
func (g *MySQL) Wrap(name string) string { return g.q.wrap(name) }
func (g *MySQL) Parameter(int) string    { return "?" }

// column renders one column definition. modify drops the inline PRIMARY KEY
// of auto-increment columns, which already own the key.
func (g *MySQL) column(table string, c *schema.Column, modify bool) (string, error) {
	typ, err := g.types.mapType(c)
	if err != nil {
		return "", err
	}
	sql := g.q.wrap(c.Name) + " " + typ
	if c.IsUnsigned && (c.Type.IsInteger() || c.Type == schema.Decimal || c.Type == schema.Float || c.Type == schema.Double) {
		sql += " UNSIGNED"
	}
	if c.IsNullable {
		sql += " NULL"
	} else {
		sql += " NOT NULL"
	}
	def, ok, err := g.defaults.compile(c)
	if err != nil {
		return "", invalid(table, "%v", err)
	}
	if ok {
		sql += " DEFAULT " + def
	}
	if c.OnUpdateExpr != "" {
		sql += " ON UPDATE " + c.OnUpdateExpr
	}
	if c.IsAutoIncrement {
		sql += " AUTO_INCREMENT"
		if !modify {
			sql += " PRIMARY KEY"
		}
	}
	if c.CommentText != "" {
		sql += " COMMENT " + quoteString(c.CommentText)
	}
	return sql, nil
}

func (g *MySQL) placement(c *schema.Column) string {
	switch {
	case c.IsFirst:
		return " FIRST"
	case c.AfterColumn != "":
		return " AFTER " + g.q.wrap(c.AfterColumn)
	}
	return ""
}

// indexClause renders an index for CREATE TABLE (inline=true) or for
// ALTER TABLE ... ADD.
func (g *MySQL) indexClause(table string, idx schema.IndexDefinition, inline bool) (string, error) {
	if err := validateIndex(table, idx); err != nil {
		return "", err
	}
	cols := "(" + g.q.columns(idx.Columns) + ")"
	using := ""
	if idx.Algorithm != "" {
		using = " USING " + strings.ToUpper(idx.Algorithm)
	}
	name := g.q.wrap(idx.Name)

	switch idx.Type {
	case schema.IndexPrimary:
		return "PRIMARY KEY" + using + " " + cols, nil
	case schema.IndexUnique:
		if inline {
			return "UNIQUE KEY " + name + using + " " + cols, nil
		}
		return "UNIQUE " + name + using + " " + cols, nil
	case schema.IndexPlain:
		return "INDEX " + name + using + " " + cols, nil
	case schema.IndexFulltext:
		return "FULLTEXT INDEX " + name + " " + cols, nil
	case schema.IndexSpatial:
		return "SPATIAL INDEX " + name + " " + cols, nil
	case schema.IndexRaw:
		return "INDEX " + name + " ((" + idx.Expression + "))", nil
	case schema.IndexVector:
		return "", unsupported(database.MySQL, "vector indexes")
	}
	return "", invalid(table, "unknown index type %q", idx.Type)
}

// CompileCreate renders CREATE TABLE with inline keys and foreign keys.
func (g *MySQL) CompileCreate(bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	var defs []string
	for _, c := range bp.AddedColumns() {
		def, err := g.column(table, c, false)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	for _, idx := range bp.Indexes() {
		if isAutoPrimary(idx, bp.Columns()) {
			continue
		}
		clause, err := g.indexClause(table, idx, true)
		if err != nil {
			return nil, err
		}
		defs = append(defs, clause)
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

	sql := fmt.Sprintf("CREATE TABLE %s (%s)", g.q.wrap(table), strings.Join(defs, ", "))
	if e := bp.TableEngine(); e != "" {
		sql += " ENGINE = " + e
	}
	if cs := bp.TableCharset(); cs != "" {
		sql += " DEFAULT CHARACTER SET = " + cs
	}
	if co := bp.TableCollation(); co != "" {
		sql += " COLLATE = " + co
	}
	if cm := bp.TableComment(); cm != "" {
		sql += " COMMENT = " + quoteString(cm)
	}
	return []string{sql}, nil
}

// CompileAlter renders one ALTER TABLE per kind of change, in an order that
// lets later clauses rely on earlier ones: constraint drops, column drops,
// renames, modifications, additions, new keys, table rename.
func (g *MySQL) CompileAlter(_ context.Context, bp *schema.Blueprint) ([]string, error) {
	bp.Seal()
	table := bp.Table()
	alter := "ALTER TABLE " + g.q.wrap(table) + " "
	var out statements

	if fks := bp.DroppedForeigns(); len(fks) > 0 {
		clauses := make([]string, len(fks))
		for i, n := range fks {
			clauses[i] = "DROP FOREIGN KEY " + g.q.wrap(n)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if idxs := bp.DroppedIndexes(); len(idxs) > 0 {
		clauses := make([]string, len(idxs))
		for i, n := range idxs {
			if isPrimaryName(n) {
				clauses[i] = "DROP PRIMARY KEY"
				continue
			}
			clauses[i] = "DROP INDEX " + g.q.wrap(n)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if cols := bp.DroppedColumns(); len(cols) > 0 {
		clauses := make([]string, len(cols))
		for i, n := range cols {
			clauses[i] = "DROP COLUMN " + g.q.wrap(n)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if renames := bp.Renames(); len(renames) > 0 {
		clauses := make([]string, len(renames))
		for i, r := range renames {
			clauses[i] = "RENAME COLUMN " + g.q.wrap(r.From) + " TO " + g.q.wrap(r.To)
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if changed := bp.ChangedColumns(); len(changed) > 0 {
		var clauses []string
		for _, c := range changed {
			def, err := g.column(table, c, true)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "MODIFY COLUMN "+def+g.placement(c))
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if added := bp.AddedColumns(); len(added) > 0 {
		var clauses []string
		for _, c := range added {
			def, err := g.column(table, c, false)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "ADD COLUMN "+def+g.placement(c))
		}
		out.add(alter + strings.Join(clauses, ", "))
	}
	if idxs := bp.Indexes(); len(idxs) > 0 {
		var clauses []string
		for _, idx := range idxs {
			if isAutoPrimary(idx, bp.Columns()) {
				continue
			}
			clause, err := g.indexClause(table, idx, false)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "ADD "+clause)
		}
		if len(clauses) > 0 {
			out.add(alter + strings.Join(clauses, ", "))
		}
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
	if to, ok := bp.RenamedTo(); ok {
		out.add(g.CompileRename(table, to)...)
	}
	return out, nil
}

func (g *MySQL) CompileDrop(table string) []string {
	return []string{"DROP TABLE " + g.q.wrap(table)}
}

func (g *MySQL) CompileDropIfExists(table string) []string {
	return []string{"DROP TABLE IF EXISTS " + g.q.wrap(table)}
}

func (g *MySQL) CompileRename(from, to string) []string {
	return []string{"RENAME TABLE " + g.q.wrap(from) + " TO " + g.q.wrap(to)}
}

func (g *MySQL) CompileTableExists(table string) (string, []any) {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ? AND table_type = 'BASE TABLE'", []any{table}
}

func (g *MySQL) CompileDropColumn(ctx context.Context, table string, columns []string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropColumn(columns...) })
}

func (g *MySQL) CompileRenameColumn(ctx context.Context, table, from, to string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.RenameColumn(from, to) })
}

func (g *MySQL) CompileDropIndex(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropIndex(name) })
}

func (g *MySQL) CompileDropForeign(ctx context.Context, table, name string) ([]string, error) {
	return alterWith(ctx, g, table, func(bp *schema.Blueprint) { bp.DropForeign(name) })
}
