package schema

// Type is the dialect-neutral column type vocabulary. Each grammar owns the
// mapping from a Type to its native lexicon.
type Type string

const (
	BigInt     Type = "BIGINT"
	Int        Type = "INT"
	MediumInt  Type = "MEDIUMINT"
	SmallInt   Type = "SMALLINT"
	TinyInt    Type = "TINYINT"
	Varchar    Type = "VARCHAR"
	Char       Type = "CHAR"
	Text       Type = "TEXT"
	TinyText   Type = "TINYTEXT"
	MediumText Type = "MEDIUMTEXT"
	LongText   Type = "LONGTEXT"
	Decimal    Type = "DECIMAL"
	Float      Type = "FLOAT"
	Double     Type = "DOUBLE"
	Boolean    Type = "BOOLEAN"
	JSON       Type = "JSON"
	JSONB      Type = "JSONB"
	Enum       Type = "ENUM"
	Date       Type = "DATE"
	DateTime   Type = "DATETIME"
	Time       Type = "TIME"
	Timestamp  Type = "TIMESTAMP"
	Year       Type = "YEAR"
	Binary     Type = "BINARY"
	UUID       Type = "UUID"
	Geometry   Type = "GEOMETRY"
	Point      Type = "POINT"
	Vector     Type = "VECTOR"

	// Raw carries a native type string through untouched. It is produced by
	// introspection when a live table is copied into a new blueprint.
	Raw Type = "RAW"
)

// IsInteger reports whether t belongs to the integer family.
func (t Type) IsInteger() bool {
	switch t {
	case BigInt, Int, MediumInt, SmallInt, TinyInt:
		return true
	}
	return false
}

// IsText reports whether t belongs to the character family.
func (t Type) IsText() bool {
	switch t {
	case Varchar, Char, Text, TinyText, MediumText, LongText:
		return true
	}
	return false
}

// IsSpatial reports whether t is a geometry type.
func (t Type) IsSpatial() bool {
	return t == Geometry || t == Point
}

// Expression is a default value or index expression emitted verbatim.
type Expression string

// IndexType identifies the kind of an IndexDefinition.
type IndexType string

const (
	IndexPrimary  IndexType = "primary"
	IndexUnique   IndexType = "unique"
	IndexPlain    IndexType = "index"
	IndexFulltext IndexType = "fulltext"
	IndexSpatial  IndexType = "spatial"
	IndexVector   IndexType = "vector"
	IndexRaw      IndexType = "raw"
)

// IndexDefinition is one index or key constraint to add.
type IndexDefinition struct {
	Type    IndexType
	Columns []string
	Name    string

	// Algorithm is BTREE, HASH, GIST, HNSW ... when the dialect supports it.
	Algorithm string
	// OperatorClass is the PostgreSQL operator class (gist, vector ops).
	OperatorClass string
	// With holds storage parameters rendered as WITH (k = v, ...).
	With map[string]string
	// Expression is the body of an IndexRaw definition.
	Expression string
}

// ColumnIndex is an index requested from a column definition, e.g.
// t.String("email").Unique().
type ColumnIndex struct {
	Type          IndexType
	Name          string
	Algorithm     string
	OperatorClass string
}

// Rename is one {from, to} column rename pair.
type Rename struct {
	From string
	To   string
}

// Command is a table-level command recorded on a blueprint.
type Command struct {
	Name string
	To   string
}

// CommandRename renames the table.
const CommandRename = "rename"
