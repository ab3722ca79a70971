package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ridoystarlord/schemato/builder"
	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

// DefaultTable is the ledger table name used when none is configured.
const DefaultTable = "migrations"

// Record is one ledger row.
type Record struct {
	ID         int64
	Migration  string
	Batch      int
	ExecutedAt time.Time
}

// Repository reads and writes the ledger table. Nothing else writes to it.
type Repository struct {
	schema *builder.Builder
	table  string
}

// NewRepository returns a ledger stored in table, DefaultTable when empty.
func NewRepository(schema *builder.Builder, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{schema: schema, table: table}
}

// Table returns the ledger table name.
func (r *Repository) Table() string { return r.table }

func (r *Repository) conn() database.Connection { return r.schema.Connection() }

func (r *Repository) wrap(name string) string { return r.schema.Compiler().Wrap(name) }

func (r *Repository) param(n int) string { return r.schema.Compiler().Parameter(n) }

// Exists reports whether the ledger table has been created.
func (r *Repository) Exists(ctx context.Context) (bool, error) {
	ok, err := r.schema.HasTable(ctx, r.table)
	if err != nil {
		return false, ledgerError("checking table", err)
	}
	return ok, nil
}

// EnsureTable creates the ledger table when it does not exist.
func (r *Repository) EnsureTable(ctx context.Context) error {
	ok, err := r.Exists(ctx)
	if err != nil || ok {
		return err
	}
	err = r.schema.Create(ctx, r.table, func(t *schema.Blueprint) {
		t.ID()
		t.String("migration").Unique()
		t.Integer("batch")
		t.Timestamp("executed_at").UseCurrent()
	})
	if err != nil {
		return ledgerError("creating table", err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s%s ORDER BY %s DESC, %s DESC",
		r.wrap("id"), r.wrap("migration"), r.wrap("batch"), r.wrap("executed_at"),
		r.wrap(r.table), where, r.wrap("batch"), r.wrap("id"))
	rows, err := r.conn().FetchAll(ctx, query, args...)
	if err != nil {
		return nil, ledgerError("reading", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			ID:         database.ToInt64(row["id"]),
			Migration:  database.ToString(row["migration"]),
			Batch:      int(database.ToInt64(row["batch"])),
			ExecutedAt: database.ToTime(row["executed_at"]),
		})
	}
	return records, nil
}

// ListApplied returns every ledger row, newest batch first and, within a
// batch, most recently recorded first.
func (r *Repository) ListApplied(ctx context.Context) ([]Record, error) {
	return r.list(ctx, "")
}

// ListLastBatch returns the rows of the highest batch, most recent first.
func (r *Repository) ListLastBatch(ctx context.Context) ([]Record, error) {
	last, err := r.lastBatch(ctx)
	if err != nil || last == 0 {
		return nil, err
	}
	return r.list(ctx, fmt.Sprintf(" WHERE %s = %s", r.wrap("batch"), r.param(1)), last)
}

func (r *Repository) lastBatch(ctx context.Context) (int, error) {
	v, err := r.conn().FetchValue(ctx, fmt.Sprintf("SELECT MAX(%s) FROM %s", r.wrap("batch"), r.wrap(r.table)))
	if err != nil {
		return 0, ledgerError("reading last batch", err)
	}
	return int(database.ToInt64(v)), nil
}

// NextBatchNumber returns the highest recorded batch plus one, or 1.
func (r *Repository) NextBatchNumber(ctx context.Context) (int, error) {
	last, err := r.lastBatch(ctx)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Record adds name to the ledger under batch.
func (r *Repository) Record(ctx context.Context, name string, batch int) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		r.wrap(r.table), r.wrap("migration"), r.wrap("batch"), r.param(1), r.param(2))
	if _, err := r.conn().Execute(ctx, query, name, batch); err != nil {
		return ledgerError("recording "+name, err)
	}
	return nil
}

// Forget removes name from the ledger.
func (r *Repository) Forget(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", r.wrap(r.table), r.wrap("migration"), r.param(1))
	if _, err := r.conn().Execute(ctx, query, name); err != nil {
		return ledgerError("forgetting "+name, err)
	}
	return nil
}
