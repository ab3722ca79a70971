package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ridoystarlord/schemato/schema"
)

// defaultCompiler renders DEFAULT values.
type defaultCompiler struct {
	trueLiteral  string
	falseLiteral string
	// numericBooleans renders 0/1 defaults of boolean-shaped columns with the
	// boolean literals (PostgreSQL).
	numericBooleans bool
}

var expressionDefault = regexp.MustCompile(`(?i)^(` +
	`CURRENT_TIMESTAMP(\(\d*\))?|CURRENT_DATE|CURRENT_TIME|LOCALTIMESTAMP|LOCALTIME|` +
	`NOW\(\)|UUID\(\)|GEN_RANDOM_UUID\(\)|UUID_GENERATE_V4\(\)|NEWID\(\)|NEWSEQUENTIALID\(\)|` +
	`GETDATE\(\)|GETUTCDATE\(\)|SYSDATETIME\(\)|SYSUTCDATETIME\(\)|` +
	`UTC_TIMESTAMP(\(\))?|CURRENT_USER|DATETIME\('NOW'\)` +
	`)$`)

// IsExpressionDefault reports whether a string default is a recognised SQL
// expression that must not be quoted.
func IsExpressionDefault(s string) bool {
	return expressionDefault.MatchString(strings.TrimSpace(s))
}

// compile returns the DEFAULT operand for c and whether the column has one.
func (d defaultCompiler) compile(c *schema.Column) (string, bool, error) {
	if !c.HasDefault {
		if c.UseCurrentTime {
			return "CURRENT_TIMESTAMP", true, nil
		}
		return "", false, nil
	}

	switch v := c.DefaultValue.(type) {
	case nil:
		return "NULL", true, nil
	case bool:
		if v {
			return d.trueLiteral, true, nil
		}
		return d.falseLiteral, true, nil
	case schema.Expression:
		return string(v), true, nil
	case string:
		if IsExpressionDefault(v) {
			return strings.TrimSpace(v), true, nil
		}
		return quoteString(v), true, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s := fmt.Sprint(v)
		if d.numericBooleans && c.IsBooleanShaped() && (s == "0" || s == "1") {
			if s == "1" {
				return d.trueLiteral, true, nil
			}
			return d.falseLiteral, true, nil
		}
		return s, true, nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	}
	return "", false, fmt.Errorf("unsupported default value %v (%T) for column %s", c.DefaultValue, c.DefaultValue, c.Name)
}
