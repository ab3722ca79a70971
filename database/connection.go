package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect names reported by DialectName.
const (
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
	SQLite    = "sqlite"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Connection is what the schema builder and the migration ledger need from a
// database.
type Connection interface {
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	FetchValue(ctx context.Context, query string, args ...any) (any, error)
	FetchAll(ctx context.Context, query string, args ...any) ([]Row, error)
	IntrospectColumns(ctx context.Context, table string) ([]ColumnInfo, error)
	DialectName() string
}

// DB is a Connection backed by database/sql.
type DB struct {
	db      *sql.DB
	dialect string
}

// Open connects to dsn with the driver registered for dialect. An empty
// dialect is inferred from the DSN.
func Open(ctx context.Context, dialect, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	if dialect == "" {
		dialect = DetectDialect(dsn)
	}
	dialect, err := NormalizeDialect(dialect)
	if err != nil {
		return nil, err
	}

	driver, source, err := driverSource(dialect, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s database: %w", dialect, err)
	}
	tune(db, dialect)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{db: db, dialect: dialect}, nil
}

// Wrap adapts an already opened *sql.DB. A SQLite handle is limited to one
// connection, as with Open.
func Wrap(db *sql.DB, dialect string) (*DB, error) {
	dialect, err := NormalizeDialect(dialect)
	if err != nil {
		return nil, err
	}
	tune(db, dialect)
	return &DB{db: db, dialect: dialect}, nil
}

func tune(db *sql.DB, dialect string) {
	if dialect == SQLite {
		// PRAGMA foreign_keys is per connection, and so is a :memory:
		// database; a recreation sequence must see its own pragmas.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
}

// DialectName returns one of MySQL, Postgres, SQLServer or SQLite.
func (d *DB) DialectName() string { return d.dialect }

// SQL exposes the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Close closes the pool.
func (d *DB) Close() error { return d.db.Close() }

// Execute runs a statement and returns the number of affected rows. Drivers
// that cannot report a count for DDL yield 0.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// FetchValue returns the first column of the first row, or nil when the
// query yields no rows.
func (d *DB) FetchValue(ctx context.Context, query string, args ...any) (any, error) {
	var v any
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, nil
}

// FetchAll returns every row as a map. []byte values are converted to
// strings.
func (d *DB) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
