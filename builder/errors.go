package builder

import "fmt"

// StatementError wraps a failure reported by the database while running
// one compiled statement.
type StatementError struct {
	Table string
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("table %s: %v\n  statement: %s", e.Table, e.Err, e.SQL)
}

func (e *StatementError) Unwrap() error { return e.Err }
