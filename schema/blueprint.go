package schema

import (
	"fmt"
	"strings"
)

// Blueprint describes the pending definition or alteration of one table. It
// is built by a single callback, compiled once and then sealed.
type Blueprint struct {
	table string

	columns     []*Column
	indexes     []IndexDefinition
	foreignKeys []*ForeignKey

	engine    string
	charset   string
	collation string
	comment   string

	dropColumns  []string
	renames      []Rename
	dropIndexes  []string
	dropForeigns []string
	commands     []Command

	sealed bool
}

// NewBlueprint returns an empty blueprint for table.
func NewBlueprint(table string) *Blueprint {
	return &Blueprint{table: table}
}

// Table returns the table name.
func (b *Blueprint) Table() string { return b.table }

// Engine sets the MySQL storage engine.
func (b *Blueprint) Engine(engine string) { b.mutate(); b.engine = engine }

// Charset sets the MySQL default character set.
func (b *Blueprint) Charset(charset string) { b.mutate(); b.charset = charset }

// Collation sets the MySQL default collation.
func (b *Blueprint) Collation(collation string) { b.mutate(); b.collation = collation }

// Comment sets a table comment (MySQL only).
func (b *Blueprint) Comment(comment string) { b.mutate(); b.comment = comment }

// TableEngine, TableCharset, TableCollation and TableComment expose the
// table options.
func (b *Blueprint) TableEngine() string    { return b.engine }
func (b *Blueprint) TableCharset() string   { return b.charset }
func (b *Blueprint) TableCollation() string { return b.collation }
func (b *Blueprint) TableComment() string   { return b.comment }

// Seal forbids any further mutation. Grammars seal a blueprint before
// compiling it.
func (b *Blueprint) Seal() { b.sealed = true }

// Sealed reports whether Seal was called.
func (b *Blueprint) Sealed() bool { return b.sealed }

func (b *Blueprint) mutate() {
	if b.sealed {
		panic(fmt.Sprintf("schema: blueprint for %q is already compiled", b.table))
	}
}

// AddColumn appends a fully built column. Factory methods below go through
// it; grammars use it directly when synthesising a blueprint from a live
// table.
func (b *Blueprint) AddColumn(col *Column) *Column {
	b.mutate()
	b.columns = append(b.columns, col)
	return col
}

// AddIndex appends an index definition, deriving its name when empty.
func (b *Blueprint) AddIndex(idx IndexDefinition) {
	b.mutate()
	idx.Columns = append([]string(nil), idx.Columns...)
	if idx.Name == "" {
		idx.Name = IndexName(b.table, idx.Type, idx.Columns)
	}
	b.indexes = append(b.indexes, idx)
}

// AddForeignKey appends a foreign key, deriving its name when empty.
func (b *Blueprint) AddForeignKey(fk *ForeignKey) *ForeignKey {
	b.mutate()
	if fk.Name == "" {
		fk.Name = ForeignKeyName(b.table, fk.Columns)
	}
	b.foreignKeys = append(b.foreignKeys, fk)
	return fk
}

func (b *Blueprint) column(name string, t Type) *Column {
	return b.AddColumn(&Column{Name: name, Type: t})
}

// ID adds an auto-incrementing unsigned BIGINT primary key, "id" by default.
func (b *Blueprint) ID(name ...string) *Column {
	n := "id"
	if len(name) > 0 {
		n = name[0]
	}
	return b.BigIncrements(n)
}

func (b *Blueprint) Increments(name string) *Column {
	return b.column(name, Int).Unsigned().AutoIncrement()
}

func (b *Blueprint) BigIncrements(name string) *Column {
	return b.column(name, BigInt).Unsigned().AutoIncrement()
}

func (b *Blueprint) SmallIncrements(name string) *Column {
	return b.column(name, SmallInt).Unsigned().AutoIncrement()
}

// String adds a VARCHAR column, 255 characters unless length is given.
func (b *Blueprint) String(name string, length ...int) *Column {
	col := b.column(name, Varchar)
	col.Length = 255
	if len(length) > 0 && length[0] > 0 {
		col.Length = length[0]
	}
	return col
}

func (b *Blueprint) Char(name string, length int) *Column {
	col := b.column(name, Char)
	col.Length = length
	return col
}

func (b *Blueprint) Text(name string) *Column       { return b.column(name, Text) }
func (b *Blueprint) TinyText(name string) *Column   { return b.column(name, TinyText) }
func (b *Blueprint) MediumText(name string) *Column { return b.column(name, MediumText) }
func (b *Blueprint) LongText(name string) *Column   { return b.column(name, LongText) }

func (b *Blueprint) Integer(name string) *Column       { return b.column(name, Int) }
func (b *Blueprint) BigInteger(name string) *Column    { return b.column(name, BigInt) }
func (b *Blueprint) MediumInteger(name string) *Column { return b.column(name, MediumInt) }
func (b *Blueprint) SmallInteger(name string) *Column  { return b.column(name, SmallInt) }
func (b *Blueprint) TinyInteger(name string) *Column   { return b.column(name, TinyInt) }

func (b *Blueprint) UnsignedInteger(name string) *Column {
	return b.Integer(name).Unsigned()
}

func (b *Blueprint) UnsignedBigInteger(name string) *Column {
	return b.BigInteger(name).Unsigned()
}

// ForeignID adds an unsigned BIGINT column meant to be Constrained.
func (b *Blueprint) ForeignID(name string) *Column {
	return b.UnsignedBigInteger(name)
}

// Decimal adds a DECIMAL(precision, scale) column; zero values fall back to
// (8, 2).
func (b *Blueprint) Decimal(name string, precision, scale int) *Column {
	col := b.column(name, Decimal)
	col.Precision, col.Scale = precision, scale
	if col.Precision == 0 {
		col.Precision, col.Scale = 8, 2
	}
	return col
}

func (b *Blueprint) Float(name string, precision, scale int) *Column {
	col := b.column(name, Float)
	col.Precision, col.Scale = precision, scale
	return col
}

func (b *Blueprint) Double(name string) *Column { return b.column(name, Double) }

func (b *Blueprint) Boolean(name string) *Column { return b.column(name, Boolean) }

func (b *Blueprint) JSON(name string) *Column  { return b.column(name, JSON) }
func (b *Blueprint) JSONB(name string) *Column { return b.column(name, JSONB) }

// Enum adds a column restricted to values.
func (b *Blueprint) Enum(name string, values []string) *Column {
	col := b.column(name, Enum)
	col.Values = append([]string(nil), values...)
	return col
}

func (b *Blueprint) Date(name string) *Column      { return b.column(name, Date) }
func (b *Blueprint) DateTime(name string) *Column  { return b.column(name, DateTime) }
func (b *Blueprint) Time(name string) *Column      { return b.column(name, Time) }
func (b *Blueprint) Timestamp(name string) *Column { return b.column(name, Timestamp) }
func (b *Blueprint) Year(name string) *Column      { return b.column(name, Year) }

// Timestamps adds nullable created_at and updated_at columns.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable()
	b.Timestamp("updated_at").Nullable()
}

// SoftDeletes adds a nullable deleted_at column.
func (b *Blueprint) SoftDeletes() *Column {
	return b.Timestamp("deleted_at").Nullable()
}

func (b *Blueprint) Binary(name string) *Column { return b.column(name, Binary) }
func (b *Blueprint) UUID(name string) *Column   { return b.column(name, UUID) }

// Geometry adds a spatial column; srid 0 means unspecified.
func (b *Blueprint) Geometry(name string, srid int) *Column {
	col := b.column(name, Geometry)
	col.SRID = srid
	return col
}

func (b *Blueprint) Point(name string, srid int) *Column {
	col := b.column(name, Point)
	col.SRID = srid
	return col
}

// Vector adds a fixed-dimension vector column.
func (b *Blueprint) Vector(name string, dimensions int) *Column {
	col := b.column(name, Vector)
	col.Length = dimensions
	return col
}

// Index adds a plain index over columns.
func (b *Blueprint) Index(columns []string, name ...string) {
	b.AddIndex(IndexDefinition{Type: IndexPlain, Columns: columns, Name: first(name)})
}

// Unique adds a unique index over columns.
func (b *Blueprint) Unique(columns []string, name ...string) {
	b.AddIndex(IndexDefinition{Type: IndexUnique, Columns: columns, Name: first(name)})
}

// Primary adds a (composite) primary key.
func (b *Blueprint) Primary(columns []string, name ...string) {
	b.AddIndex(IndexDefinition{Type: IndexPrimary, Columns: columns, Name: first(name)})
}

// Fulltext adds a full text index.
func (b *Blueprint) Fulltext(columns []string, name ...string) {
	b.AddIndex(IndexDefinition{Type: IndexFulltext, Columns: columns, Name: first(name)})
}

// SpatialIndex adds a spatial index.
func (b *Blueprint) SpatialIndex(columns []string, name ...string) {
	b.AddIndex(IndexDefinition{Type: IndexSpatial, Columns: columns, Name: first(name)})
}

// VectorIndex adds an HNSW vector index with the given operator class.
func (b *Blueprint) VectorIndex(column, operatorClass string, name ...string) {
	b.AddIndex(IndexDefinition{
		Type:          IndexVector,
		Columns:       []string{column},
		Name:          first(name),
		Algorithm:     "hnsw",
		OperatorClass: operatorClass,
	})
}

// RawIndex adds an index over an arbitrary expression. The name is required.
func (b *Blueprint) RawIndex(expression, name string) {
	b.AddIndex(IndexDefinition{Type: IndexRaw, Expression: expression, Name: name})
}

// Foreign starts a foreign key over columns; complete it with References
// and On.
func (b *Blueprint) Foreign(columns ...string) *ForeignKey {
	return b.AddForeignKey(newForeignKey("", columns))
}

// DropColumn records columns to drop.
func (b *Blueprint) DropColumn(columns ...string) {
	b.mutate()
	b.dropColumns = append(b.dropColumns, columns...)
}

// DropTimestamps drops created_at and updated_at.
func (b *Blueprint) DropTimestamps() {
	b.DropColumn("created_at", "updated_at")
}

// RenameColumn records a column rename.
func (b *Blueprint) RenameColumn(from, to string) {
	b.mutate()
	b.renames = append(b.renames, Rename{From: from, To: to})
}

// DropIndex records an index to drop by name.
func (b *Blueprint) DropIndex(name string) {
	b.mutate()
	b.dropIndexes = append(b.dropIndexes, name)
}

// DropIndexOn records the index of the given type over columns, using the
// generated name.
func (b *Blueprint) DropIndexOn(t IndexType, columns ...string) {
	b.DropIndex(IndexName(b.table, t, columns))
}

// DropForeign records a foreign key to drop by name.
func (b *Blueprint) DropForeign(name string) {
	b.mutate()
	b.dropForeigns = append(b.dropForeigns, name)
}

// DropForeignOn records the foreign key over columns, using the generated
// name.
func (b *Blueprint) DropForeignOn(columns ...string) {
	b.DropForeign(ForeignKeyName(b.table, columns))
}

// Rename records a table rename.
func (b *Blueprint) Rename(to string) {
	b.mutate()
	b.commands = append(b.commands, Command{Name: CommandRename, To: to})
}

// Columns returns every column added by the callback, including Change
// requests.
func (b *Blueprint) Columns() []*Column { return b.columns }

// AddedColumns returns the new columns.
func (b *Blueprint) AddedColumns() []*Column {
	var out []*Column
	for _, c := range b.columns {
		if !c.IsChange() {
			out = append(out, c)
		}
	}
	return out
}

// ChangedColumns returns the columns to modify in place.
func (b *Blueprint) ChangedColumns() []*Column {
	var out []*Column
	for _, c := range b.columns {
		if c.IsChange() {
			out = append(out, c)
		}
	}
	return out
}

// Indexes returns the explicit index definitions followed by those
// requested on columns, in column order.
func (b *Blueprint) Indexes() []IndexDefinition {
	out := append([]IndexDefinition(nil), b.indexes...)
	for _, c := range b.columns {
		for _, ci := range c.Indexes {
			idx := IndexDefinition{
				Type:          ci.Type,
				Columns:       []string{c.Name},
				Name:          ci.Name,
				Algorithm:     ci.Algorithm,
				OperatorClass: ci.OperatorClass,
			}
			if idx.Name == "" {
				idx.Name = IndexName(b.table, idx.Type, idx.Columns)
			}
			out = append(out, idx)
		}
	}
	return out
}

// ForeignKeys returns the explicit foreign keys followed by those attached
// to columns.
func (b *Blueprint) ForeignKeys() []*ForeignKey {
	out := append([]*ForeignKey(nil), b.foreignKeys...)
	for _, c := range b.columns {
		if c.ForeignKey == nil {
			continue
		}
		fk := c.ForeignKey.Clone()
		if fk.Name == "" {
			fk.Name = ForeignKeyName(b.table, fk.Columns)
		}
		out = append(out, fk)
	}
	return out
}

func (b *Blueprint) DroppedColumns() []string  { return b.dropColumns }
func (b *Blueprint) Renames() []Rename         { return b.renames }
func (b *Blueprint) DroppedIndexes() []string  { return b.dropIndexes }
func (b *Blueprint) DroppedForeigns() []string { return b.dropForeigns }
func (b *Blueprint) Commands() []Command       { return b.commands }

// RenamedTo returns the target of a rename command, if any.
func (b *Blueprint) RenamedTo() (string, bool) {
	for i := len(b.commands) - 1; i >= 0; i-- {
		if b.commands[i].Name == CommandRename {
			return b.commands[i].To, true
		}
	}
	return "", false
}

// IndexName builds the conventional {table}_{columns}_{type} name.
func IndexName(table string, t IndexType, columns []string) string {
	suffix := string(t)
	switch t {
	case IndexSpatial:
		suffix = "spatialindex"
	case IndexVector:
		suffix = "vectorindex"
	}
	name := table + "_" + strings.Join(columns, "_") + "_" + suffix
	return strings.ToLower(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// ForeignKeyName builds the conventional {table}_{columns}_foreign name.
func ForeignKeyName(table string, columns []string) string {
	return IndexName(table, "foreign", columns)
}

func first(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}
