package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/grammar"
	"github.com/ridoystarlord/schemato/schema"
)

func newTestBuilder(t *testing.T) (*Builder, *database.DB) {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := New(db, nil)
	require.NoError(t, err)
	return b, db
}

func createUsers(t *testing.T, b *Builder) {
	t.Helper()
	err := b.Create(context.Background(), "users", func(bp *schema.Blueprint) {
		bp.ID()
		bp.String("name")
		bp.String("old_email").Nullable().Unique()
		bp.Integer("age").Default(0)
	})
	require.NoError(t, err)
}

func TestCreateAndHasTable(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	ok, err := b.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)

	createUsers(t, b)

	ok, err = b.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)

	cols, err := b.GetColumnListing(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "old_email", "age"}, cols)

	ok, err = b.HasColumn(ctx, "users", "NAME")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecreationPreservesData(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	createUsers(t, b)

	_, err := db.Execute(ctx, `INSERT INTO "users" ("name", "old_email", "age") VALUES (?, ?, ?)`, "ada", "ada@example.com", 36)
	require.NoError(t, err)

	err = b.Table(ctx, "users", func(bp *schema.Blueprint) {
		bp.RenameColumn("old_email", "email")
		bp.DropColumn("age")
		bp.String("phone").Nullable()
	})
	require.NoError(t, err)

	cols, err := b.GetColumnListing(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email", "phone"}, cols)

	rows, err := db.FetchAll(ctx, `SELECT "id", "name", "email", "phone" FROM "users"`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), database.ToInt64(rows[0]["id"]))
	assert.Equal(t, "ada", rows[0]["name"])
	assert.Equal(t, "ada@example.com", rows[0]["email"])
	assert.Nil(t, rows[0]["phone"])

	indexes, err := db.IntrospectIndexes(ctx, "users")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "users_old_email_unique", indexes[0].Name)
	assert.Equal(t, []string{"email"}, indexes[0].Columns)

	// the rowid alias keeps counting from the copied rows
	_, err = db.Execute(ctx, `INSERT INTO "users" ("name") VALUES (?)`, "grace")
	require.NoError(t, err)
	v, err := db.FetchValue(ctx, `SELECT MAX("id") FROM "users"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), database.ToInt64(v))
}

func TestRecreationKeepsCheckConstraints(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	err := b.Create(ctx, "posts", func(bp *schema.Blueprint) {
		bp.ID()
		bp.Enum("status", []string{"draft", "live"})
		bp.Integer("score").Default(0)
		bp.String("legacy").Nullable()
	})
	require.NoError(t, err)

	insert := func(column, value string) error {
		_, err := db.Execute(ctx, `INSERT INTO "posts" ("`+column+`") VALUES (?)`, value)
		return err
	}
	require.Error(t, insert("status", "bogus"))

	require.NoError(t, b.DropColumn(ctx, "posts", "legacy"))
	assert.Error(t, insert("status", "bogus"))
	assert.NoError(t, insert("status", "live"))

	err = b.Table(ctx, "posts", func(bp *schema.Blueprint) {
		bp.RenameColumn("status", "state")
		bp.DropColumn("score")
	})
	require.NoError(t, err)
	assert.Error(t, insert("state", "bogus"))
	assert.Error(t, insert("state", "archived"))

	err = b.Table(ctx, "posts", func(bp *schema.Blueprint) {
		bp.Enum("state", []string{"draft", "live", "archived"}).Change()
	})
	require.NoError(t, err)
	assert.NoError(t, insert("state", "archived"))
	assert.Error(t, insert("state", "bogus"))

	v, err := db.FetchValue(ctx, `SELECT COUNT(*) FROM "posts"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), database.ToInt64(v))
}

func TestRecreationKeepsTableChecks(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	_, err := db.Execute(ctx, `CREATE TABLE "prices" (
		"id" INTEGER PRIMARY KEY,
		"low" INTEGER,
		"high" INTEGER,
		"note" TEXT,
		CONSTRAINT "prices_range" CHECK (low <= high)
	)`)
	require.NoError(t, err)

	require.NoError(t, b.RenameColumn(ctx, "prices", "note", "label"))
	require.NoError(t, b.Table(ctx, "prices", func(bp *schema.Blueprint) {
		bp.RenameColumn("low", "floor")
		bp.DropColumn("label")
	}))
	_, err = db.Execute(ctx, `INSERT INTO "prices" ("floor", "high") VALUES (2, 1)`)
	assert.Error(t, err)
	_, err = db.Execute(ctx, `INSERT INTO "prices" ("floor", "high") VALUES (1, 2)`)
	assert.NoError(t, err)

	ddl, err := db.TableSQL(ctx, "prices")
	require.NoError(t, err)
	assert.Contains(t, ddl, `CONSTRAINT "prices_range" CHECK ("floor" <= high)`)

	err = b.DropColumn(ctx, "prices", "high")
	var compileErr *grammar.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Error(), "CHECK")

	cols, err := b.GetColumnListing(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "floor", "high"}, cols)
}

func TestDropAutoIncrementPrimaryKey(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	createUsers(t, b)
	_, err := db.Execute(ctx, `INSERT INTO "users" ("id", "name") VALUES (?, ?)`, 7, "ada")
	require.NoError(t, err)

	require.NoError(t, b.DropIndex(ctx, "users", "users_id_primary"))

	cols, err := db.IntrospectColumns(ctx, "users")
	require.NoError(t, err)
	assert.False(t, cols[0].IsPrimaryKey)
	assert.False(t, cols[0].Nullable)

	_, err = db.Execute(ctx, `INSERT INTO "users" ("id", "name") VALUES (?, ?)`, 7, "grace")
	assert.NoError(t, err)
}

func TestSingleAlterations(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	createUsers(t, b)

	require.NoError(t, b.RenameColumn(ctx, "users", "name", "full_name"))
	require.NoError(t, b.DropColumn(ctx, "users", "age"))
	require.NoError(t, b.DropIndex(ctx, "users", "users_old_email_unique"))

	cols, err := b.GetColumnListing(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "full_name", "old_email"}, cols)

	indexes, err := db.IntrospectIndexes(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, indexes)
}

func TestForeignKeysRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	createUsers(t, b)

	require.NoError(t, b.Create(ctx, "posts", func(bp *schema.Blueprint) {
		bp.ID()
		bp.ForeignID("user_id").Constrained().CascadeOnDelete()
		bp.String("title")
	}))

	fks, err := db.IntrospectForeignKeys(ctx, "posts")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].ReferencedTable)
	assert.Equal(t, "CASCADE", fks[0].OnDelete)

	require.NoError(t, b.DropForeign(ctx, "posts", "posts_user_id_foreign"))
	fks, err = db.IntrospectForeignKeys(ctx, "posts")
	require.NoError(t, err)
	assert.Empty(t, fks)
}

func TestForeignKeyCheckFailsRecreation(t *testing.T) {
	ctx := context.Background()
	b, db := newTestBuilder(t)
	createUsers(t, b)
	require.NoError(t, b.Create(ctx, "posts", func(bp *schema.Blueprint) {
		bp.ID()
		bp.UnsignedBigInteger("user_id")
	}))
	_, err := db.Execute(ctx, `INSERT INTO "posts" ("user_id") VALUES (?)`, 42)
	require.NoError(t, err)

	err = b.Table(ctx, "posts", func(bp *schema.Blueprint) {
		bp.Foreign("user_id").References("id").On("users")
	})
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "PRAGMA foreign_key_check", stmtErr.SQL)
	assert.Equal(t, "posts", stmtErr.Table)
}

func TestDropIfExistsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)
	createUsers(t, b)

	require.NoError(t, b.DropIfExists(ctx, "users"))
	require.NoError(t, b.DropIfExists(ctx, "users"))

	ok, err := b.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)

	err = b.Drop(ctx, "users")
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, `DROP TABLE "users"`, stmtErr.SQL)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestRenameTable(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)
	createUsers(t, b)

	require.NoError(t, b.Rename(ctx, "users", "members"))
	ok, err := b.HasTable(ctx, "members")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPretendRecordsStatements(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)
	b.Pretend(true)

	createUsers(t, b)
	require.NoError(t, b.DropIfExists(ctx, "users"))

	assert.Equal(t, []string{
		`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL, "old_email" TEXT, "age" INTEGER NOT NULL DEFAULT 0)`,
		`CREATE UNIQUE INDEX "users_old_email_unique" ON "users" ("old_email")`,
		`DROP TABLE IF EXISTS "users"`,
	}, b.Statements())
	assert.Empty(t, b.Statements())

	b.Pretend(false)
	ok, err := b.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileErrorsAreNotExecuted(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	err := b.Create(ctx, "docs", func(bp *schema.Blueprint) {
		bp.Vector("embedding", 3)
	})
	assert.True(t, errors.Is(err, grammar.ErrUnsupported))

	ok, err := b.HasTable(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatementErrorMessage(t *testing.T) {
	err := &StatementError{Table: "users", SQL: "DROP TABLE x", Err: errors.New("boom")}
	assert.Equal(t, "table users: boom\n  statement: DROP TABLE x", err.Error())
}
