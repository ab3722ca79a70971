package loader

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/schemato/builder"
	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/runner"
)

const createUsers = `
up:
  - create: users
    columns:
      - type: id
      - name: email
        type: string
        length: 120
        unique: true
      - name: active
        type: boolean
        default: true
    timestamps: true
down:
  - drop_if_exists: users
`

const createPosts = `
up:
  - create: posts
    columns:
      - type: id
      - name: user_id
        type: foreign_id
        constrained: auto
        on_delete: cascade
      - name: title
        type: string
    indexes:
      - columns: [title]
down:
  - drop_if_exists: posts
`

const alterUsers = `
up:
  - table: users
    columns:
      - name: phone
        type: string
        nullable: true
    rename_columns:
      - from: email
        to: email_address
down:
  - table: users
    drop_columns: [phone]
    rename_columns:
      - from: email_address
        to: email
`

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("migrations", name), []byte(content), 0o644))
	}
}

func TestParseMigration(t *testing.T) {
	yf, err := parseMigration("create_users", []byte(createUsers))
	require.NoError(t, err)
	require.Len(t, yf.Up, 1)
	assert.Equal(t, "users", yf.Up[0].Create)
	assert.True(t, yf.Up[0].Timestamps)
	require.Len(t, yf.Up[0].Columns, 3)
	assert.Equal(t, 120, yf.Up[0].Columns[1].Length)
	assert.Equal(t, true, yf.Up[0].Columns[2].Default)
	assert.Equal(t, "users", yf.Down[0].DropIfExists)
}

func TestParseMigrationErrors(t *testing.T) {
	cases := map[string]string{
		"no up":        "down:\n  - drop: users\n",
		"two targets":  "up:\n  - create: users\n    drop: users\n",
		"no target":    "up:\n  - columns: []\n",
		"invalid yaml": "up: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseMigration("bad", []byte(data))
			assert.Error(t, err)
		})
	}
}

func TestDirSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"2024_01_02_000000_create_posts.yml":  createPosts,
		"2024_01_01_000000_create_users.yaml": createUsers,
		"README.md":                           "not a migration",
	})

	units, err := NewDirSource(fs, "migrations").Units()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "2024_01_01_000000_create_users", units[0].Name)
	assert.Equal(t, "2024_01_02_000000_create_posts", units[1].Name)
}

func TestDirSourceMissingDir(t *testing.T) {
	units, err := NewDirSource(afero.NewMemMapFs(), "nowhere").Units()
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDirSourceRejectsInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"001_bad.yaml": "down: []\n"})

	_, err := NewDirSource(fs, "migrations").Units()
	assert.ErrorContains(t, err, "001_bad")
}

func TestYAMLMigrationsRun(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"001_create_users.yaml": createUsers,
		"002_create_posts.yaml": createPosts,
		"003_alter_users.yaml":  alterUsers,
	})

	db, err := database.Open(ctx, database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	b, err := builder.New(db, nil)
	require.NoError(t, err)
	m := runner.NewMigrator(b, runner.NewRepository(b, ""), nil, NewDirSource(fs, "migrations"))

	res, err := m.Run(ctx, runner.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Migrations, 3)

	cols, err := b.GetColumnListing(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email_address", "active", "created_at", "updated_at", "phone"}, cols)

	fks, err := db.IntrospectForeignKeys(ctx, "posts")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].ReferencedTable)
	assert.Equal(t, "CASCADE", fks[0].OnDelete)

	_, err = m.Rollback(ctx, runner.Options{})
	require.NoError(t, err)
	cols, err = b.GetColumnListing(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email", "active", "created_at", "updated_at"}, cols)

	_, err = m.Reset(ctx, runner.Options{})
	require.NoError(t, err)
	ok, err := b.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFillBlueprintErrors(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	b, err := builder.New(db, nil)
	require.NoError(t, err)

	cases := map[string]yamlOperation{
		"unknown type":  {Create: "t", Columns: []yamlColumn{{Name: "x", Type: "money"}}},
		"unnamed":       {Create: "t", Columns: []yamlColumn{{Type: "string"}}},
		"unknown index": {Create: "t", Columns: []yamlColumn{{Name: "x", Type: "string"}}, Indexes: []yamlIndex{{Type: "hash", Columns: []string{"x"}}}},
		"vector index":  {Create: "t", Columns: []yamlColumn{{Name: "x", Type: "string"}}, Indexes: []yamlIndex{{Type: "vector", Columns: []string{"x", "y"}}}},
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			err := applyOperation(ctx, b, op)
			assert.ErrorContains(t, err, "create t")
			ok, err := b.HasTable(ctx, "t")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestWriteMigrationFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)

	path, err := WriteMigrationFile(fs, "migrations", "Create Users Table", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("migrations", "2024_03_05_143015_create_users_table.yaml"), path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Migration: create_users_table\n# Created: 2024-03-05T14:30:15Z\n")

	yf, err := parseMigration("create_users_table", data)
	require.NoError(t, err)
	assert.Equal(t, "users", yf.Up[0].Create)
	assert.Equal(t, "users", yf.Down[0].DropIfExists)

	_, err = WriteMigrationFile(fs, "migrations", "create_users_table", now)
	assert.ErrorContains(t, err, "already exists")
}

func TestSkeletonForAlteration(t *testing.T) {
	yf := skeleton("add_phone_to_users_table")
	assert.Equal(t, "users", yf.Up[0].Table)

	yf = skeleton("tidy_up")
	assert.Equal(t, "table_name", yf.Up[0].Table)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "add_phone_to_users", Slug("Add phone-to users!"))
	assert.Equal(t, "", Slug("  --  "))
}
