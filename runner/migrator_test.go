package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/schemato/builder"
	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/schema"
)

type testEnv struct {
	db       *database.DB
	schema   *builder.Builder
	repo     *Repository
	registry *Registry
	migrator *Migrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := builder.New(db, nil)
	require.NoError(t, err)
	repo := NewRepository(b, "")
	reg := NewRegistry()
	return &testEnv{db: db, schema: b, repo: repo, registry: reg, migrator: NewMigrator(b, repo, nil, reg)}
}

// createTable is a migration creating table on Up and dropping it on Down.
func createTable(table string) Migration {
	return Funcs{
		UpFunc: func(ctx context.Context, s *builder.Builder) error {
			return s.Create(ctx, table, func(bp *schema.Blueprint) {
				bp.ID()
				bp.String("name")
			})
		},
		DownFunc: func(ctx context.Context, s *builder.Builder) error {
			return s.DropIfExists(ctx, table)
		},
	}
}

func failing(msg string) Migration {
	return Funcs{
		UpFunc:   func(context.Context, *builder.Builder) error { return errors.New(msg) },
		DownFunc: func(context.Context, *builder.Builder) error { return errors.New(msg) },
	}
}

func (e *testEnv) register(t *testing.T, name string, m Migration) {
	t.Helper()
	require.NoError(t, e.registry.Register(name, m))
}

func (e *testEnv) hasTable(t *testing.T, table string) bool {
	t.Helper()
	ok, err := e.schema.HasTable(context.Background(), table)
	require.NoError(t, err)
	return ok
}

func (e *testEnv) ledger(t *testing.T) []string {
	t.Helper()
	records, err := e.repo.ListApplied(context.Background())
	require.NoError(t, err)
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Migration
	}
	return names
}

func TestRunAppliesPendingInOneBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "2024_01_01_000002_create_posts", createTable("posts"))
	env.register(t, "2024_01_01_000001_create_users", createTable("users"))
	env.register(t, "2024_01_01_000003_create_tags", createTable("tags"))

	res, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Batch)
	assert.Equal(t, []string{
		"2024_01_01_000001_create_users",
		"2024_01_01_000002_create_posts",
		"2024_01_01_000003_create_tags",
	}, res.Migrations)

	for _, table := range []string{"users", "posts", "tags"} {
		assert.True(t, env.hasTable(t, table), table)
	}
	records, err := env.repo.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, 1, r.Batch)
		assert.False(t, r.ExecutedAt.IsZero())
	}

	res, err = env.migrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Migrations)
}

func TestRunUsesNextBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	_, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)

	env.register(t, "002_posts", createTable("posts"))
	env.register(t, "003_tags", createTable("tags"))
	res, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Batch)
	assert.Equal(t, []string{"002_posts", "003_tags"}, res.Migrations)

	rolled, err := env.migrator.Rollback(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rolled.Batch)
	assert.Equal(t, []string{"003_tags", "002_posts"}, rolled.Migrations)
	assert.Equal(t, []string{"001_users"}, env.ledger(t))
	assert.False(t, env.hasTable(t, "posts"))
	assert.True(t, env.hasTable(t, "users"))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_broken", failing("boom"))
	env.register(t, "003_tags", createTable("tags"))

	res, err := env.migrator.Run(ctx, Options{})
	require.Error(t, err)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "002_broken", migErr.Migration)
	assert.Equal(t, Up, migErr.Direction)
	assert.Equal(t, []string{"001_users"}, res.Migrations)
	assert.Equal(t, []string{"001_users"}, env.ledger(t))
	assert.False(t, env.hasTable(t, "tags"))
}

func TestRunSteps(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_posts", createTable("posts"))
	env.register(t, "003_tags", createTable("tags"))

	res, err := env.migrator.Run(ctx, Options{Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_users", "002_posts"}, res.Migrations)

	res, err = env.migrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Batch)

	res, err = env.migrator.Rollback(ctx, Options{Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"003_tags", "002_posts"}, res.Migrations)
	assert.Equal(t, []string{"001_users"}, env.ledger(t))
}

func TestRollbackMissingUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	_, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)

	other := NewMigrator(env.schema, env.repo, nil, NewRegistry())
	_, err = other.Rollback(ctx, Options{})
	assert.ErrorIs(t, err, ErrMissingMigration)
	assert.Equal(t, []string{"001_users"}, env.ledger(t))
}

func TestResetContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_posts", createTable("posts"))
	env.register(t, "003_bad_down", Funcs{
		DownFunc: func(context.Context, *builder.Builder) error { return errors.New("cannot revert") },
	})
	_, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)

	res, err := env.migrator.Reset(ctx, Options{})
	require.Error(t, err)
	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "003_bad_down", migErr.Migration)
	assert.Equal(t, Down, migErr.Direction)

	assert.Equal(t, []string{"002_posts", "001_users"}, res.Migrations)
	assert.Equal(t, []string{"003_bad_down"}, env.ledger(t))
	assert.False(t, env.hasTable(t, "users"))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_posts", createTable("posts"))
	_, err := env.migrator.Run(ctx, Options{Steps: 1})
	require.NoError(t, err)
	_, err = env.migrator.Run(ctx, Options{})
	require.NoError(t, err)

	reset, migrated, err := env.migrator.Refresh(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_posts", "001_users"}, reset.Migrations)
	assert.Equal(t, []string{"001_users", "002_posts"}, migrated.Migrations)
	assert.Equal(t, 1, migrated.Batch)
}

func TestRefreshPretendReappliesResetUnits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_posts", createTable("posts"))
	_, err := env.migrator.Run(ctx, Options{Steps: 1})
	require.NoError(t, err)
	_, err = env.migrator.Run(ctx, Options{})
	require.NoError(t, err)

	reset, migrated, err := env.migrator.Refresh(ctx, Options{Pretend: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_posts", "001_users"}, reset.Migrations)
	assert.Equal(t, []string{"001_users", "002_posts"}, migrated.Migrations)
	assert.Equal(t, 1, migrated.Batch)
	require.Len(t, migrated.Statements, 2)
	assert.Equal(t, "001_users", migrated.Statements[0].Migration)
	assert.Contains(t, migrated.Statements[0].SQL, `CREATE TABLE "users"`)

	assert.Equal(t, []string{"002_posts", "001_users"}, env.ledger(t))
	assert.True(t, env.hasTable(t, "users"))
	assert.True(t, env.hasTable(t, "posts"))
}

func TestRollbackStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_bad_down", Funcs{
		DownFunc: func(context.Context, *builder.Builder) error { return errors.New("cannot revert") },
	})
	res, err := env.migrator.Run(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"001_users", "002_bad_down"}, res.Migrations)

	res, err = env.migrator.Rollback(ctx, Options{})
	require.Error(t, err)
	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "002_bad_down", migErr.Migration)
	assert.Equal(t, Down, migErr.Direction)

	assert.Empty(t, res.Migrations)
	assert.Equal(t, []string{"002_bad_down", "001_users"}, env.ledger(t))
	assert.True(t, env.hasTable(t, "users"))
}

func TestStatusDoesNotCreateLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	env.register(t, "002_posts", createTable("posts"))

	entries, err := env.migrator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StatusEntry{
		{Migration: "001_users"},
		{Migration: "002_posts"},
	}, entries)
	assert.False(t, env.hasTable(t, DefaultTable))

	_, err = env.migrator.Run(ctx, Options{Steps: 1})
	require.NoError(t, err)
	entries, err = env.migrator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StatusEntry{
		{Migration: "001_users", Ran: true, Batch: 1},
		{Migration: "002_posts"},
	}, entries)

	history, err := env.migrator.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001_users", history[0].Migration)
}

func TestPretendCollectsStatements(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))

	res, err := env.migrator.Run(ctx, Options{Pretend: true})
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, "001_users", res.Statements[0].Migration)
	assert.Contains(t, res.Statements[0].SQL, `CREATE TABLE "users"`)

	assert.False(t, env.hasTable(t, "users"))
	assert.Empty(t, env.ledger(t))
}

func TestDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("001_users", createTable("users")))
	assert.ErrorIs(t, reg.Register("001_users", createTable("users")), ErrDuplicateMigration)
	assert.Error(t, reg.Register("", createTable("x")))

	env := newTestEnv(t)
	env.register(t, "001_users", createTable("users"))
	m := NewMigrator(env.schema, env.repo, nil, env.registry, reg)
	_, err := m.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrDuplicateMigration)
}

func TestLedgerErrorsAreWrapped(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close())

	_, err := env.migrator.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrLedger)
}
