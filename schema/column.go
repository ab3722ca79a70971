package schema

// Column is a single column definition. Factory methods on Blueprint create
// columns and the chainable setters below refine them.
type Column struct {
	Name      string
	Type      Type
	RawType   string
	Length    int
	Precision int
	Scale     int
	Values    []string
	SRID      int

	IsNullable      bool
	HasDefault      bool
	DefaultValue    any
	IsUnsigned      bool
	IsAutoIncrement bool
	CommentText     string
	AfterColumn     string
	IsFirst         bool
	UseCurrentTime  bool
	OnUpdateExpr    string

	// Indexes are index requests made on the column itself.
	Indexes []ColumnIndex
	// ForeignKey is the constraint attached through Constrained or References.
	ForeignKey *ForeignKey

	change bool
}

// Nullable allows NULL values.
func (c *Column) Nullable() *Column {
	c.IsNullable = true
	return c
}

// NotNull disallows NULL values.
func (c *Column) NotNull() *Column {
	c.IsNullable = false
	return c
}

// Default sets the default value. Accepted values are nil, bool, the Go
// integer and float types, string and Expression; anything else is rejected
// when the blueprint is compiled.
func (c *Column) Default(v any) *Column {
	c.HasDefault = true
	c.DefaultValue = v
	return c
}

// Unsigned marks an integer or decimal column unsigned (MySQL only).
func (c *Column) Unsigned() *Column {
	c.IsUnsigned = true
	return c
}

// AutoIncrement marks the column as the auto-incrementing primary key.
func (c *Column) AutoIncrement() *Column {
	c.IsAutoIncrement = true
	return c
}

// Comment attaches a column comment.
func (c *Column) Comment(text string) *Column {
	c.CommentText = text
	return c
}

// After places the column after another column (MySQL only).
func (c *Column) After(column string) *Column {
	c.AfterColumn = column
	return c
}

// First places the column first in the table (MySQL only).
func (c *Column) First() *Column {
	c.IsFirst = true
	return c
}

// UseCurrent defaults a temporal column to CURRENT_TIMESTAMP.
func (c *Column) UseCurrent() *Column {
	c.UseCurrentTime = true
	return c
}

// OnUpdate sets an ON UPDATE expression (MySQL only).
func (c *Column) OnUpdate(expr string) *Column {
	c.OnUpdateExpr = expr
	return c
}

// UseCurrentOnUpdate is OnUpdate("CURRENT_TIMESTAMP").
func (c *Column) UseCurrentOnUpdate() *Column {
	return c.OnUpdate("CURRENT_TIMESTAMP")
}

// Primary requests a primary key on the column.
func (c *Column) Primary(name ...string) *Column {
	return c.addIndex(IndexPrimary, name)
}

// Unique requests a unique index on the column.
func (c *Column) Unique(name ...string) *Column {
	return c.addIndex(IndexUnique, name)
}

// Index requests a plain index on the column.
func (c *Column) Index(name ...string) *Column {
	return c.addIndex(IndexPlain, name)
}

// Fulltext requests a full text index on the column.
func (c *Column) Fulltext(name ...string) *Column {
	return c.addIndex(IndexFulltext, name)
}

// SpatialIndex requests a spatial index on the column.
func (c *Column) SpatialIndex(name ...string) *Column {
	return c.addIndex(IndexSpatial, name)
}

// VectorIndex requests a vector similarity index using the given operator
// class, e.g. "vector_cosine_ops".
func (c *Column) VectorIndex(operatorClass string, name ...string) *Column {
	c.addIndex(IndexVector, name)
	c.Indexes[len(c.Indexes)-1].OperatorClass = operatorClass
	c.Indexes[len(c.Indexes)-1].Algorithm = "hnsw"
	return c
}

// Algorithm sets the algorithm of the most recent column index request.
func (c *Column) Algorithm(algorithm string) *Column {
	if n := len(c.Indexes); n > 0 {
		c.Indexes[n-1].Algorithm = algorithm
	}
	return c
}

// Change turns the column into a modify-in-place request when used inside
// Builder.Table.
func (c *Column) Change() *Column {
	c.change = true
	return c
}

// IsChange reports whether the column was marked with Change.
func (c *Column) IsChange() bool {
	return c.change
}

// HasIndex reports whether the column carries an index request of type t.
func (c *Column) HasIndex(t IndexType) bool {
	for _, idx := range c.Indexes {
		if idx.Type == t {
			return true
		}
	}
	return false
}

// IsPrimary reports whether the column is (part of) the primary key.
func (c *Column) IsPrimary() bool {
	return c.IsAutoIncrement || c.HasIndex(IndexPrimary)
}

// IsBooleanShaped reports whether the column stores a boolean: BOOLEAN, or
// TINYINT with length 1.
func (c *Column) IsBooleanShaped() bool {
	return c.Type == Boolean || (c.Type == TinyInt && c.Length == 1)
}

// Constrained attaches a foreign key referencing the "id" column of table.
// When table is omitted it is inferred from the column name: the trailing
// "_id" is stripped and the rest pluralised (user_id -> users).
func (c *Column) Constrained(table ...string) *ForeignKey {
	on := ""
	if len(table) > 0 && table[0] != "" {
		on = table[0]
	} else {
		on = InferTableName(c.Name)
	}
	return c.References("id").On(on)
}

// References attaches a foreign key on this column referencing columns of a
// table set with On.
func (c *Column) References(columns ...string) *ForeignKey {
	fk := newForeignKey("", []string{c.Name})
	fk.References(columns...)
	c.ForeignKey = fk
	return fk
}

// Clone returns a deep copy of the column with its foreign key detached.
// The copy is a plain definition: a Change request is not carried over.
func (c *Column) Clone() *Column {
	cp := *c
	cp.change = false
	cp.Values = append([]string(nil), c.Values...)
	cp.Indexes = append([]ColumnIndex(nil), c.Indexes...)
	cp.ForeignKey = nil
	return &cp
}

func (c *Column) addIndex(t IndexType, name []string) *Column {
	idx := ColumnIndex{Type: t}
	if len(name) > 0 {
		idx.Name = name[0]
	}
	c.Indexes = append(c.Indexes, idx)
	return c
}
