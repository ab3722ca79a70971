package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/schemato/builder"
	"github.com/ridoystarlord/schemato/schema"
)

// yamlMigration runs the operations of a YAML unit through the builder.
type yamlMigration struct {
	name string
	file *yamlFile
}

func (m *yamlMigration) Up(ctx context.Context, b *builder.Builder) error {
	return m.apply(ctx, b, m.file.Up)
}

func (m *yamlMigration) Down(ctx context.Context, b *builder.Builder) error {
	return m.apply(ctx, b, m.file.Down)
}

func (m *yamlMigration) apply(ctx context.Context, b *builder.Builder, ops []yamlOperation) error {
	for _, op := range ops {
		if err := applyOperation(ctx, b, op); err != nil {
			return err
		}
	}
	return nil
}

func applyOperation(ctx context.Context, b *builder.Builder, op yamlOperation) error {
	switch {
	case op.Create != "":
		bp := schema.NewBlueprint(op.Create)
		if err := fillBlueprint(bp, op); err != nil {
			return fmt.Errorf("create %s: %w", op.Create, err)
		}
		return b.CreateBlueprint(ctx, bp)
	case op.Table != "":
		bp := schema.NewBlueprint(op.Table)
		if err := fillBlueprint(bp, op); err != nil {
			return fmt.Errorf("table %s: %w", op.Table, err)
		}
		return b.AlterBlueprint(ctx, bp)
	case op.Drop != "":
		return b.Drop(ctx, op.Drop)
	case op.DropIfExists != "":
		return b.DropIfExists(ctx, op.DropIfExists)
	case op.RenameTable != nil:
		return b.Rename(ctx, op.RenameTable.From, op.RenameTable.To)
	}
	return fmt.Errorf("operation names no table")
}

// fillBlueprint replays an operation onto a blueprint.
func fillBlueprint(t *schema.Blueprint, op yamlOperation) error {
	if op.Engine != "" {
		t.Engine(op.Engine)
	}
	if op.Charset != "" {
		t.Charset(op.Charset)
	}
	if op.Collation != "" {
		t.Collation(op.Collation)
	}
	if op.Comment != "" {
		t.Comment(op.Comment)
	}

	for _, name := range op.DropColumns {
		t.DropColumn(name)
	}
	for _, r := range op.RenameColumns {
		t.RenameColumn(r.From, r.To)
	}
	for _, name := range op.DropIndexes {
		t.DropIndex(name)
	}
	for _, name := range op.DropForeign {
		t.DropForeign(name)
	}

	for _, c := range op.Columns {
		if _, err := addColumn(t, c); err != nil {
			return err
		}
	}
	for _, c := range op.Modify {
		col, err := addColumn(t, c)
		if err != nil {
			return err
		}
		col.Change()
	}
	if op.Timestamps {
		t.Timestamps()
	}
	if op.SoftDeletes {
		t.SoftDeletes()
	}

	for _, idx := range op.Indexes {
		if err := addIndex(t, idx); err != nil {
			return err
		}
	}
	for _, fk := range op.Foreign {
		f := t.Foreign(fk.Columns...).On(fk.On)
		if len(fk.References) > 0 {
			f.References(fk.References...)
		} else {
			f.References("id")
		}
		if fk.Name != "" {
			f.Named(fk.Name)
		}
		if fk.OnDelete != "" {
			f.OnDelete(fk.OnDelete)
		}
		if fk.OnUpdate != "" {
			f.OnUpdate(fk.OnUpdate)
		}
	}
	if op.Rename != "" {
		t.Rename(op.Rename)
	}
	return nil
}

func addIndex(t *schema.Blueprint, idx yamlIndex) error {
	var name []string
	if idx.Name != "" {
		name = []string{idx.Name}
	}
	switch strings.ToLower(idx.Type) {
	case "", "index":
		t.Index(idx.Columns, name...)
	case "unique":
		t.Unique(idx.Columns, name...)
	case "primary":
		t.Primary(idx.Columns, name...)
	case "fulltext":
		t.Fulltext(idx.Columns, name...)
	case "spatial":
		t.SpatialIndex(idx.Columns, name...)
	case "vector":
		if len(idx.Columns) != 1 {
			return fmt.Errorf("vector index needs exactly one column")
		}
		t.VectorIndex(idx.Columns[0], idx.OperatorClass, name...)
	case "raw":
		t.RawIndex(idx.Expression, idx.Name)
	default:
		return fmt.Errorf("unknown index type %q", idx.Type)
	}
	return nil
}

// columnFactories maps YAML type names onto blueprint factories.
var columnFactories = map[string]func(t *schema.Blueprint, c yamlColumn) *schema.Column{
	"id":                   func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.ID(nameOr(c.Name, "id")) },
	"increments":           func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Increments(c.Name) },
	"big_increments":       func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.BigIncrements(c.Name) },
	"small_increments":     func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.SmallIncrements(c.Name) },
	"string":               func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.String(c.Name, lengths(c.Length)...) },
	"char":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Char(c.Name, c.Length) },
	"text":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Text(c.Name) },
	"tiny_text":            func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.TinyText(c.Name) },
	"medium_text":          func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.MediumText(c.Name) },
	"long_text":            func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.LongText(c.Name) },
	"integer":              func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Integer(c.Name) },
	"big_integer":          func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.BigInteger(c.Name) },
	"medium_integer":       func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.MediumInteger(c.Name) },
	"small_integer":        func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.SmallInteger(c.Name) },
	"tiny_integer":         func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.TinyInteger(c.Name) },
	"unsigned_integer":     func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.UnsignedInteger(c.Name) },
	"unsigned_big_integer": func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.UnsignedBigInteger(c.Name) },
	"foreign_id":           func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.ForeignID(c.Name) },
	"decimal":              func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Decimal(c.Name, c.Precision, c.Scale) },
	"float":                func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Float(c.Name, c.Precision, c.Scale) },
	"double":               func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Double(c.Name) },
	"boolean":              func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Boolean(c.Name) },
	"json":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.JSON(c.Name) },
	"jsonb":                func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.JSONB(c.Name) },
	"enum":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Enum(c.Name, c.Values) },
	"date":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Date(c.Name) },
	"datetime":             func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.DateTime(c.Name) },
	"time":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Time(c.Name) },
	"timestamp":            func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Timestamp(c.Name) },
	"year":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Year(c.Name) },
	"binary":               func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Binary(c.Name) },
	"uuid":                 func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.UUID(c.Name) },
	"geometry":             func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Geometry(c.Name, c.SRID) },
	"point":                func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Point(c.Name, c.SRID) },
	"vector":               func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.Vector(c.Name, c.Dimensions) },
	"raw":                  func(t *schema.Blueprint, c yamlColumn) *schema.Column { return t.AddColumn(&schema.Column{Name: c.Name, Type: schema.Raw, RawType: c.RawType}) },
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func lengths(n int) []int {
	if n > 0 {
		return []int{n}
	}
	return nil
}

// addColumn creates the column and applies its modifiers.
func addColumn(t *schema.Blueprint, c yamlColumn) (*schema.Column, error) {
	factory, ok := columnFactories[strings.ToLower(c.Type)]
	if !ok {
		return nil, fmt.Errorf("column %s: unknown type %q", c.Name, c.Type)
	}
	if c.Name == "" && c.Type != "id" {
		return nil, fmt.Errorf("column of type %s has no name", c.Type)
	}
	col := factory(t, c)

	if c.Nullable {
		col.Nullable()
	}
	switch {
	case c.DefaultExpression != "":
		col.Default(schema.Expression(c.DefaultExpression))
	case c.Default != nil:
		col.Default(c.Default)
	}
	if c.Unsigned {
		col.Unsigned()
	}
	if c.AutoIncrement {
		col.AutoIncrement()
	}
	if c.Comment != "" {
		col.Comment(c.Comment)
	}
	if c.After != "" {
		col.After(c.After)
	}
	if c.First {
		col.First()
	}
	if c.UseCurrent {
		col.UseCurrent()
	}
	if c.OnUpdate != "" {
		col.OnUpdate(c.OnUpdate)
	}
	if c.Primary {
		col.Primary()
	}
	if c.Unique {
		col.Unique()
	}
	if c.Index {
		col.Index()
	}

	var fk *schema.ForeignKey
	switch {
	case c.Constrained == "auto":
		fk = col.Constrained()
	case c.Constrained != "":
		fk = col.Constrained(c.Constrained)
	case c.References != nil:
		fk = col.References(nameOr(c.References.Column, "id")).On(c.References.Table)
		if c.References.OnDelete != "" {
			fk.OnDelete(c.References.OnDelete)
		}
		if c.References.OnUpdate != "" {
			fk.OnUpdate(c.References.OnUpdate)
		}
	}
	if fk != nil && c.OnDelete != "" {
		fk.OnDelete(c.OnDelete)
	}
	return col, nil
}
