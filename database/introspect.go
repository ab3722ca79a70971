package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ColumnInfo describes one live column.
type ColumnInfo struct {
	Name         string
	Type         string
	Nullable     bool
	Default      *string
	IsPrimaryKey bool
	// PrimaryKeyPosition is the 1-based position inside the primary key, 0
	// when the column is not part of it. Only SQLite reports it.
	PrimaryKeyPosition int
}

// IndexInfo describes one live index.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
	// Origin is "c" for CREATE INDEX, "u" for a UNIQUE constraint and "pk"
	// for the primary key (SQLite).
	Origin string
}

// ForeignKeyInfo describes one live foreign key.
type ForeignKeyInfo struct {
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnUpdate          string
	OnDelete          string
}

// IntrospectColumns returns the columns of table in ordinal order.
func (d *DB) IntrospectColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if d.dialect == SQLite {
		return d.sqliteColumns(ctx, table)
	}

	var query string
	switch d.dialect {
	case Postgres:
		query = `
	SELECT
		c.column_name,
		c.data_type,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name
				AND kcu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		) AS is_primary
	FROM information_schema.columns c
	WHERE c.table_schema = current_schema() AND c.table_name = $1
	ORDER BY c.ordinal_position`
	case MySQL:
		query = `
	SELECT
		c.column_name,
		c.column_type,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default,
		(c.column_key = 'PRI') AS is_primary
	FROM information_schema.columns c
	WHERE c.table_schema = DATABASE() AND c.table_name = ?
	ORDER BY c.ordinal_position`
	case SQLServer:
		query = `
	SELECT
		c.COLUMN_NAME,
		c.DATA_TYPE,
		CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
		c.COLUMN_DEFAULT,
		CASE WHEN EXISTS (
			SELECT 1
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
				AND kcu.TABLE_NAME = tc.TABLE_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
				AND tc.TABLE_NAME = c.TABLE_NAME
				AND kcu.COLUMN_NAME = c.COLUMN_NAME
		) THEN 1 ELSE 0 END
	FROM INFORMATION_SCHEMA.COLUMNS c
	WHERE c.TABLE_NAME = @p1
	ORDER BY c.ORDINAL_POSITION`
	default:
		return nil, fmt.Errorf("introspection not supported for %s", d.dialect)
	}

	rows, err := d.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.IsPrimaryKey); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}
	return columns, nil
}

func (d *DB) sqliteColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := d.FetchAll(ctx, "PRAGMA table_info("+quoteSQLite(table)+")")
	if err != nil {
		return nil, fmt.Errorf("querying columns of %s: %w", table, err)
	}

	columns := make([]ColumnInfo, 0, len(rows))
	for _, r := range rows {
		col := ColumnInfo{
			Name:               ToString(r["name"]),
			Type:               strings.ToUpper(ToString(r["type"])),
			Nullable:           ToInt64(r["notnull"]) == 0,
			PrimaryKeyPosition: int(ToInt64(r["pk"])),
		}
		col.IsPrimaryKey = col.PrimaryKeyPosition > 0
		if r["dflt_value"] != nil {
			def := ToString(r["dflt_value"])
			col.Default = &def
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// IntrospectIndexes returns the indexes of a SQLite table.
func (d *DB) IntrospectIndexes(ctx context.Context, table string) ([]IndexInfo, error) {
	if d.dialect != SQLite {
		return nil, fmt.Errorf("index introspection not supported for %s", d.dialect)
	}

	list, err := d.FetchAll(ctx, "PRAGMA index_list("+quoteSQLite(table)+")")
	if err != nil {
		return nil, fmt.Errorf("querying indexes of %s: %w", table, err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return ToInt64(list[i]["seq"]) > ToInt64(list[j]["seq"])
	})

	var indexes []IndexInfo
	for _, r := range list {
		idx := IndexInfo{
			Name:   ToString(r["name"]),
			Unique: ToInt64(r["unique"]) == 1,
			Origin: ToString(r["origin"]),
		}
		info, err := d.FetchAll(ctx, "PRAGMA index_info("+quoteSQLite(idx.Name)+")")
		if err != nil {
			return nil, fmt.Errorf("querying index %s: %w", idx.Name, err)
		}
		sort.SliceStable(info, func(i, j int) bool {
			return ToInt64(info[i]["seqno"]) < ToInt64(info[j]["seqno"])
		})
		for _, c := range info {
			// expression indexes report a NULL column name
			idx.Columns = append(idx.Columns, ToString(c["name"]))
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// IntrospectForeignKeys returns the foreign keys of a SQLite table.
func (d *DB) IntrospectForeignKeys(ctx context.Context, table string) ([]ForeignKeyInfo, error) {
	if d.dialect != SQLite {
		return nil, fmt.Errorf("foreign key introspection not supported for %s", d.dialect)
	}

	rows, err := d.FetchAll(ctx, "PRAGMA foreign_key_list("+quoteSQLite(table)+")")
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys of %s: %w", table, err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if a, b := ToInt64(rows[i]["id"]), ToInt64(rows[j]["id"]); a != b {
			return a > b
		}
		return ToInt64(rows[i]["seq"]) < ToInt64(rows[j]["seq"])
	})

	var keys []ForeignKeyInfo
	last := int64(-1)
	for _, r := range rows {
		id := ToInt64(r["id"])
		if id != last || len(keys) == 0 {
			keys = append(keys, ForeignKeyInfo{
				ReferencedTable: ToString(r["table"]),
				OnUpdate:        strings.ToUpper(ToString(r["on_update"])),
				OnDelete:        strings.ToUpper(ToString(r["on_delete"])),
			})
			last = id
		}
		fk := &keys[len(keys)-1]
		fk.Columns = append(fk.Columns, ToString(r["from"]))
		if to := ToString(r["to"]); to != "" {
			fk.ReferencedColumns = append(fk.ReferencedColumns, to)
		}
	}
	return keys, nil
}

// TableSQL returns the CREATE statement SQLite stored for table.
func (d *DB) TableSQL(ctx context.Context, table string) (string, error) {
	if d.dialect != SQLite {
		return "", fmt.Errorf("table SQL not available for %s", d.dialect)
	}
	v, err := d.FetchValue(ctx, "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err != nil {
		return "", fmt.Errorf("reading definition of %s: %w", table, err)
	}
	return ToString(v), nil
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
