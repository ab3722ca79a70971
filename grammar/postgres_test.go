package grammar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/schemato/schema"
)

func TestPostgresCreate(t *testing.T) {
	bp := schema.NewBlueprint("users")
	bp.ID()
	bp.String("email").Unique()
	bp.Boolean("active").Default(true)
	bp.TinyInteger("legacy_flag").Default(1).Length = 1
	bp.Enum("role", []string{"admin", "member"}).Default("member")
	bp.JSON("settings").Nullable().Comment("user settings")

	stmts, err := NewPostgres().CompileCreate(bp)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, `CREATE TABLE "users" (`+
		`"id" BIGSERIAL NOT NULL PRIMARY KEY, `+
		`"email" VARCHAR(255) NOT NULL, `+
		`"active" BOOLEAN NOT NULL DEFAULT true, `+
		`"legacy_flag" BOOLEAN NOT NULL DEFAULT true, `+
		`"role" VARCHAR(255) NOT NULL DEFAULT 'member' CHECK ("role" IN ('admin', 'member')), `+
		`"settings" JSONB NULL`+
		`)`, stmts[0])
	assert.Equal(t, `CREATE UNIQUE INDEX "users_email_unique" ON "users" ("email")`, stmts[1])
	assert.Equal(t, `COMMENT ON COLUMN "users"."settings" IS 'user settings'`, stmts[2])
}

func TestPostgresSerialTypes(t *testing.T) {
	bp := schema.NewBlueprint("counters")
	bp.Increments("id")

	stmts, err := NewPostgres().CompileCreate(bp)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "counters" ("id" SERIAL NOT NULL PRIMARY KEY)`, stmts[0])
}

func TestPostgresCompositePrimary(t *testing.T) {
	bp := schema.NewBlueprint("role_user")
	bp.Integer("role_id")
	bp.Integer("user_id")
	bp.Primary([]string{"role_id", "user_id"})

	stmts, err := NewPostgres().CompileCreate(bp)
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `CONSTRAINT "role_user_role_id_user_id_primary" PRIMARY KEY ("role_id", "user_id")`)
}

func TestPostgresIndexKinds(t *testing.T) {
	bp := schema.NewBlueprint("docs")
	bp.Vector("embedding", 3).VectorIndex("vector_cosine_ops")
	bp.Fulltext([]string{"body"})
	bp.RawIndex("lower(title)", "docs_lower_title_index")

	stmts, err := NewPostgres().CompileAlter(context.Background(), bp)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "docs" ADD COLUMN "embedding" VECTOR(3) NOT NULL`,
		`CREATE INDEX "docs_body_fulltext" ON "docs" USING gin ((to_tsvector('english', "body")))`,
		`CREATE INDEX "docs_lower_title_index" ON "docs" (lower(title))`,
		`CREATE INDEX "docs_embedding_vectorindex" ON "docs" USING hnsw ("embedding" vector_cosine_ops)`,
	}, stmts)
}

func TestPostgresAlter(t *testing.T) {
	bp := schema.NewBlueprint("users")
	bp.DropIndex("users_email_unique")
	bp.DropIndex("users_pkey")
	bp.RenameColumn("a", "b")
	bp.RenameColumn("c", "d")
	bp.String("name", 50).Nullable().Change()

	stmts, err := NewPostgres().CompileAlter(context.Background(), bp)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" DROP CONSTRAINT "users_pkey"`,
		`DROP INDEX "users_email_unique"`,
		`ALTER TABLE "users" RENAME COLUMN "a" TO "b"`,
		`ALTER TABLE "users" RENAME COLUMN "c" TO "d"`,
		`ALTER TABLE "users" ALTER COLUMN "name" TYPE VARCHAR(50) USING "name"::VARCHAR(50), ALTER COLUMN "name" DROP NOT NULL, ALTER COLUMN "name" DROP DEFAULT`,
	}, stmts)
}

func TestPostgresRejectsOnUpdate(t *testing.T) {
	bp := schema.NewBlueprint("users")
	bp.Timestamp("updated_at").UseCurrent().UseCurrentOnUpdate()

	_, err := NewPostgres().CompileCreate(bp)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestPostgresParameters(t *testing.T) {
	g := NewPostgres()
	assert.Equal(t, "$1", g.Parameter(1))
	assert.Equal(t, "$3", g.Parameter(3))
	assert.Equal(t, `"public"."users"`, g.Wrap("public.users"))

	sql, args := g.CompileTableExists("users")
	assert.Contains(t, sql, "table_name = $1")
	assert.Equal(t, []any{"users"}, args)
}

func TestPostgresRename(t *testing.T) {
	assert.Equal(t, []string{`ALTER TABLE "a" RENAME TO "b"`}, NewPostgres().CompileRename("a", "b"))
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "a"`}, NewPostgres().CompileDropIfExists("a"))
}
