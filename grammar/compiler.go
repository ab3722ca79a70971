// Package grammar compiles schema blueprints into dialect specific DDL.
package grammar

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// Compiler turns blueprints into ordered statement lists for one dialect.
type Compiler interface {
	Dialect() string

	// Wrap quotes an identifier; "schema.table" is quoted segment by segment.
	Wrap(name string) string
	// Parameter returns the placeholder for the n-th (1-based) argument.
	Parameter(n int) string

	CompileCreate(bp *schema.Blueprint) ([]string, error)
	CompileAlter(ctx context.Context, bp *schema.Blueprint) ([]string, error)
	CompileDrop(table string) []string
	CompileDropIfExists(table string) []string
	CompileRename(from, to string) []string
	CompileTableExists(table string) (string, []any)

	CompileDropColumn(ctx context.Context, table string, columns []string) ([]string, error)
	CompileRenameColumn(ctx context.Context, table, from, to string) ([]string, error)
	CompileDropIndex(ctx context.Context, table, name string) ([]string, error)
	CompileDropForeign(ctx context.Context, table, name string) ([]string, error)
}

// Introspector reads live table metadata. SQLite needs it to recreate
// tables; *database.DB implements it.
type Introspector interface {
	IntrospectColumns(ctx context.Context, table string) ([]database.ColumnInfo, error)
	IntrospectIndexes(ctx context.Context, table string) ([]database.IndexInfo, error)
	IntrospectForeignKeys(ctx context.Context, table string) ([]database.ForeignKeyInfo, error)
	TableSQL(ctx context.Context, table string) (string, error)
}

// New returns the compiler for dialect. The introspector is only used by
// SQLite and may be nil for the other dialects.
func New(dialect string, intro Introspector) (Compiler, error) {
	name, err := database.NormalizeDialect(dialect)
	if err != nil {
		return nil, err
	}
	switch name {
	case database.MySQL:
		return NewMySQL(), nil
	case database.Postgres:
		return NewPostgres(), nil
	case database.SQLServer:
		return NewSQLServer(), nil
	case database.SQLite:
		return NewSQLite(intro), nil
	}
	return nil, fmt.Errorf("no compiler for dialect %q", dialect)
}

// alterer is the part of a Compiler the single-purpose alterations are
// expressed with.
type alterer interface {
	CompileAlter(ctx context.Context, bp *schema.Blueprint) ([]string, error)
}

func alterWith(ctx context.Context, c alterer, table string, fn func(*schema.Blueprint)) ([]string, error) {
	bp := schema.NewBlueprint(table)
	fn(bp)
	return c.CompileAlter(ctx, bp)
}

// statements collects non-empty statements.
type statements []string

func (s *statements) add(sql ...string) {
	for _, stmt := range sql {
		if stmt != "" {
			*s = append(*s, stmt)
		}
	}
}
