package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ridoystarlord/schemato/builder"
)

// Options tunes Run and Rollback.
type Options struct {
	// Steps limits Run to the first N pending units and makes Rollback
	// revert the last N applied units instead of the last batch.
	Steps int
	// Pretend collects the statements each unit would run without
	// executing them or touching the ledger.
	Pretend bool
}

// Statement is one statement collected in pretend mode.
type Statement struct {
	Migration string
	SQL       string
}

// Result lists the units a call processed, in processing order.
type Result struct {
	Migrations []string
	Batch      int
	Statements []Statement
}

// StatusEntry reports whether a discovered unit has run.
type StatusEntry struct {
	Migration string
	Ran       bool
	Batch     int
}

// Migrator applies and reverts migration units in batches.
type Migrator struct {
	schema  *builder.Builder
	repo    *Repository
	sources []Source
	logger  *slog.Logger
}

// NewMigrator returns a Migrator over the units of sources. A nil logger
// falls back to slog.Default.
func NewMigrator(schema *builder.Builder, repo *Repository, logger *slog.Logger, sources ...Source) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{schema: schema, repo: repo, sources: sources, logger: logger}
}

// Repository returns the ledger.
func (m *Migrator) Repository() *Repository { return m.repo }

// units merges the units of every source, sorted by name.
func (m *Migrator) units() ([]Unit, error) {
	seen := map[string]bool{}
	var all []Unit
	for _, src := range m.sources {
		units, err := src.Units()
		if err != nil {
			return nil, fmt.Errorf("discovering migrations: %w", err)
		}
		for _, u := range units {
			if seen[u.Name] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, u.Name)
			}
			seen[u.Name] = true
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (m *Migrator) unitMap() (map[string]Unit, error) {
	units, err := m.units()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Unit, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	return byName, nil
}

// execute runs one entry point, collecting its statements when pretending.
func (m *Migrator) execute(ctx context.Context, u Unit, dir Direction, pretend bool, res *Result) error {
	if pretend {
		m.schema.Pretend(true)
		defer m.schema.Pretend(false)
	}
	var err error
	if dir == Up {
		err = u.Migration.Up(ctx, m.schema)
	} else {
		err = u.Migration.Down(ctx, m.schema)
	}
	if pretend {
		for _, sql := range m.schema.Statements() {
			res.Statements = append(res.Statements, Statement{Migration: u.Name, SQL: sql})
		}
	}
	if err != nil {
		return &MigrationError{Migration: u.Name, Direction: dir, Err: err}
	}
	return nil
}

// Run applies the pending units in name order under one new batch. It
// stops at the first failure; units applied before it stay recorded.
func (m *Migrator) Run(ctx context.Context, opts Options) (*Result, error) {
	return m.run(ctx, opts, nil)
}

// run applies the pending units. Units named in reverted count as pending
// even when the ledger still lists them, which is the state a pretended
// reset leaves behind.
func (m *Migrator) run(ctx context.Context, opts Options, reverted map[string]bool) (*Result, error) {
	if err := m.repo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	units, err := m.units()
	if err != nil {
		return nil, err
	}
	applied, err := m.repo.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	ran := make(map[string]bool, len(applied))
	lastBatch := 0
	for _, r := range applied {
		if reverted[r.Migration] {
			continue
		}
		ran[r.Migration] = true
		lastBatch = max(lastBatch, r.Batch)
	}

	var pending []Unit
	for _, u := range units {
		if !ran[u.Name] {
			pending = append(pending, u)
		}
	}
	if opts.Steps > 0 && len(pending) > opts.Steps {
		pending = pending[:opts.Steps]
	}

	res := &Result{}
	if len(pending) == 0 {
		m.logger.Info("nothing to migrate")
		return res, nil
	}
	batch := lastBatch + 1
	if len(reverted) == 0 {
		if batch, err = m.repo.NextBatchNumber(ctx); err != nil {
			return nil, err
		}
	}
	res.Batch = batch

	for _, u := range pending {
		m.logger.Info("migrating", "migration", u.Name, "batch", batch)
		if err := m.execute(ctx, u, Up, opts.Pretend, res); err != nil {
			m.logger.Error("migration failed", "migration", u.Name, "error", err)
			return res, err
		}
		if !opts.Pretend {
			if err := m.repo.Record(ctx, u.Name, batch); err != nil {
				return res, err
			}
		}
		res.Migrations = append(res.Migrations, u.Name)
	}
	return res, nil
}

// Rollback reverts the last batch, or the last opts.Steps units, most
// recent first. It stops at the first failure.
func (m *Migrator) Rollback(ctx context.Context, opts Options) (*Result, error) {
	if err := m.repo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	var records []Record
	var err error
	if opts.Steps > 0 {
		records, err = m.repo.ListApplied(ctx)
		if len(records) > opts.Steps {
			records = records[:opts.Steps]
		}
	} else {
		records, err = m.repo.ListLastBatch(ctx)
	}
	if err != nil {
		return nil, err
	}
	byName, err := m.unitMap()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if len(records) == 0 {
		m.logger.Info("nothing to roll back")
		return res, nil
	}
	res.Batch = records[0].Batch
	for _, rec := range records {
		if err := m.revert(ctx, rec, byName, opts.Pretend, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Reset reverts every applied unit, most recent first. A failing unit is
// reported and skipped and the remaining units are still reverted; the
// failures are joined into the returned error.
func (m *Migrator) Reset(ctx context.Context, opts Options) (*Result, error) {
	if err := m.repo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	records, err := m.repo.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	byName, err := m.unitMap()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var errs []error
	for _, rec := range records {
		if err := m.revert(ctx, rec, byName, opts.Pretend, res); err != nil {
			if errors.Is(err, ErrLedger) {
				return res, errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return res, errors.Join(errs...)
}

func (m *Migrator) revert(ctx context.Context, rec Record, byName map[string]Unit, pretend bool, res *Result) error {
	u, ok := byName[rec.Migration]
	if !ok {
		err := &MigrationError{Migration: rec.Migration, Direction: Down, Err: ErrMissingMigration}
		m.logger.Error("rollback failed", "migration", rec.Migration, "error", err)
		return err
	}
	m.logger.Info("rolling back", "migration", u.Name, "batch", rec.Batch)
	if err := m.execute(ctx, u, Down, pretend, res); err != nil {
		m.logger.Error("rollback failed", "migration", u.Name, "error", err)
		return err
	}
	if !pretend {
		if err := m.repo.Forget(ctx, u.Name); err != nil {
			return err
		}
	}
	res.Migrations = append(res.Migrations, u.Name)
	return nil
}

// Refresh resets the database and migrates it again. Nothing is applied
// when the reset reported failures. When pretending, the units the reset
// would revert are migrated again even though the ledger keeps them.
func (m *Migrator) Refresh(ctx context.Context, opts Options) (reset *Result, migrated *Result, err error) {
	reset, err = m.Reset(ctx, Options{Pretend: opts.Pretend})
	if err != nil {
		return reset, nil, err
	}
	var reverted map[string]bool
	if opts.Pretend {
		reverted = make(map[string]bool, len(reset.Migrations))
		for _, name := range reset.Migrations {
			reverted[name] = true
		}
	}
	migrated, err = m.run(ctx, Options{Pretend: opts.Pretend}, reverted)
	return reset, migrated, err
}

// Status reports every discovered unit as ran or pending, in name order.
// It does not create the ledger.
func (m *Migrator) Status(ctx context.Context) ([]StatusEntry, error) {
	units, err := m.units()
	if err != nil {
		return nil, err
	}
	batches := map[string]int{}
	exists, err := m.repo.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		applied, err := m.repo.ListApplied(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range applied {
			batches[r.Migration] = r.Batch
		}
	}
	entries := make([]StatusEntry, len(units))
	for i, u := range units {
		batch, ran := batches[u.Name]
		entries[i] = StatusEntry{Migration: u.Name, Ran: ran, Batch: batch}
	}
	return entries, nil
}

// History returns the ledger rows, newest first, at most limit rows when
// limit is positive.
func (m *Migrator) History(ctx context.Context, limit int) ([]Record, error) {
	exists, err := m.repo.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}
	records, err := m.repo.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
