// Package builder executes compiled schema changes against a connection.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/grammar"
	"github.com/ridoystarlord/schemato/schema"
)

// Builder is the schema facade handed to migrations. It picks the compiler
// matching the connection's dialect and runs the compiled statements in
// order.
type Builder struct {
	conn     database.Connection
	compiler grammar.Compiler
	logger   *slog.Logger

	pretend bool
	log     []string
}

// New returns a Builder for conn. A nil logger falls back to slog.Default.
func New(conn database.Connection, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var intro grammar.Introspector
	if i, ok := conn.(grammar.Introspector); ok {
		intro = i
	}
	compiler, err := grammar.New(conn.DialectName(), intro)
	if err != nil {
		return nil, err
	}
	return &Builder{conn: conn, compiler: compiler, logger: logger}, nil
}

// NewWithCompiler returns a Builder using an explicit compiler.
func NewWithCompiler(conn database.Connection, compiler grammar.Compiler, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{conn: conn, compiler: compiler, logger: logger}
}

// Compiler returns the dialect compiler in use.
func (b *Builder) Compiler() grammar.Compiler { return b.compiler }

// Connection returns the underlying connection.
func (b *Builder) Connection() database.Connection { return b.conn }

// Pretend switches the builder to recording mode: statements are collected
// instead of executed. Queries that read the database still run.
func (b *Builder) Pretend(on bool) {
	b.pretend = on
}

// Statements returns the statements recorded in pretend mode and clears
// the record.
func (b *Builder) Statements() []string {
	out := b.log
	b.log = nil
	return out
}

// Create compiles and runs a CREATE TABLE for the blueprint fn builds.
func (b *Builder) Create(ctx context.Context, table string, fn func(*schema.Blueprint)) error {
	bp := schema.NewBlueprint(table)
	fn(bp)
	return b.CreateBlueprint(ctx, bp)
}

// CreateBlueprint compiles and runs a CREATE TABLE for a blueprint built
// by the caller.
func (b *Builder) CreateBlueprint(ctx context.Context, bp *schema.Blueprint) error {
	stmts, err := b.compiler.CompileCreate(bp)
	if err != nil {
		return err
	}
	return b.run(ctx, bp.Table(), stmts)
}

// Table compiles and runs an alteration of an existing table.
func (b *Builder) Table(ctx context.Context, table string, fn func(*schema.Blueprint)) error {
	bp := schema.NewBlueprint(table)
	fn(bp)
	return b.AlterBlueprint(ctx, bp)
}

// AlterBlueprint compiles and runs the alteration a caller-built blueprint
// describes.
func (b *Builder) AlterBlueprint(ctx context.Context, bp *schema.Blueprint) error {
	stmts, err := b.compiler.CompileAlter(ctx, bp)
	if err != nil {
		return err
	}
	return b.run(ctx, bp.Table(), stmts)
}

func (b *Builder) Drop(ctx context.Context, table string) error {
	return b.run(ctx, table, b.compiler.CompileDrop(table))
}

func (b *Builder) DropIfExists(ctx context.Context, table string) error {
	return b.run(ctx, table, b.compiler.CompileDropIfExists(table))
}

func (b *Builder) Rename(ctx context.Context, from, to string) error {
	return b.run(ctx, from, b.compiler.CompileRename(from, to))
}

func (b *Builder) DropColumn(ctx context.Context, table string, columns ...string) error {
	stmts, err := b.compiler.CompileDropColumn(ctx, table, columns)
	if err != nil {
		return err
	}
	return b.run(ctx, table, stmts)
}

func (b *Builder) RenameColumn(ctx context.Context, table, from, to string) error {
	stmts, err := b.compiler.CompileRenameColumn(ctx, table, from, to)
	if err != nil {
		return err
	}
	return b.run(ctx, table, stmts)
}

func (b *Builder) DropIndex(ctx context.Context, table, name string) error {
	stmts, err := b.compiler.CompileDropIndex(ctx, table, name)
	if err != nil {
		return err
	}
	return b.run(ctx, table, stmts)
}

func (b *Builder) DropForeign(ctx context.Context, table, name string) error {
	stmts, err := b.compiler.CompileDropForeign(ctx, table, name)
	if err != nil {
		return err
	}
	return b.run(ctx, table, stmts)
}

// HasTable reports whether table exists.
func (b *Builder) HasTable(ctx context.Context, table string) (bool, error) {
	query, args := b.compiler.CompileTableExists(table)
	v, err := b.conn.FetchValue(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return database.ToInt64(v) > 0, nil
}

// GetColumnListing returns the column names of table in ordinal order.
func (b *Builder) GetColumnListing(ctx context.Context, table string) ([]string, error) {
	cols, err := b.conn.IntrospectColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// HasColumn reports whether table has column, compared case-insensitively.
func (b *Builder) HasColumn(ctx context.Context, table, column string) (bool, error) {
	names, err := b.GetColumnListing(ctx, table)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, column) {
			return true, nil
		}
	}
	return false, nil
}

// run executes stmts strictly in order and stops at the first failure.
func (b *Builder) run(ctx context.Context, table string, stmts []string) error {
	for _, stmt := range stmts {
		if b.pretend {
			b.log = append(b.log, stmt)
			continue
		}
		b.logger.Debug("executing statement", "table", table, "sql", stmt)
		if strings.EqualFold(stmt, "PRAGMA foreign_key_check") {
			if err := b.foreignKeyCheck(ctx, table); err != nil {
				return err
			}
			continue
		}
		if _, err := b.conn.Execute(ctx, stmt); err != nil {
			return &StatementError{Table: table, SQL: stmt, Err: err}
		}
	}
	return nil
}

// foreignKeyCheck fails when SQLite reports rows violating a foreign key
// after a table recreation.
func (b *Builder) foreignKeyCheck(ctx context.Context, table string) error {
	rows, err := b.conn.FetchAll(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return &StatementError{Table: table, SQL: "PRAGMA foreign_key_check", Err: err}
	}
	if len(rows) > 0 {
		return &StatementError{
			Table: table,
			SQL:   "PRAGMA foreign_key_check",
			Err:   fmt.Errorf("%d rows violate foreign keys, first in %s", len(rows), database.ToString(rows[0]["table"])),
		}
	}
	return nil
}
