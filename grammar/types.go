package grammar

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/schemato/schema"
)

// typeMapper maps logical column types onto a dialect's native names.
type typeMapper struct {
	dialect string
	native  map[schema.Type]string
	// sized lists the types whose length or precision is appended when set.
	sized map[schema.Type]bool
	// override handles the dialect specific cases; ok=false falls through to
	// the native table.
	override func(c *schema.Column) (sql string, ok bool, err error)
}

func (m typeMapper) mapType(c *schema.Column) (string, error) {
	if m.override != nil {
		if sql, ok, err := m.override(c); ok || err != nil {
			return sql, err
		}
	}
	if c.Type == schema.Raw {
		return strings.ToUpper(c.RawType), nil
	}
	base, ok := m.native[c.Type]
	if !ok {
		return "", unsupported(m.dialect, "column type %s", c.Type)
	}
	if m.sized[c.Type] {
		base += sizeSuffix(c)
	}
	return base, nil
}

// sizeSuffix renders "(length)" or "(precision, scale)" when set.
func sizeSuffix(c *schema.Column) string {
	switch {
	case c.Precision > 0 && (c.Type == schema.Decimal || c.Type == schema.Float || c.Type == schema.Double):
		if c.Scale > 0 || c.Type == schema.Decimal {
			return fmt.Sprintf("(%d, %d)", c.Precision, c.Scale)
		}
		return fmt.Sprintf("(%d)", c.Precision)
	case c.Length > 0:
		return fmt.Sprintf("(%d)", c.Length)
	}
	return ""
}

func sizedSet(types ...schema.Type) map[schema.Type]bool {
	set := make(map[schema.Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
