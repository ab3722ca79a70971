package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrLedger wraps every failure to create, read or write the ledger.
	ErrLedger = errors.New("migration ledger")
	// ErrDuplicateMigration reports two units sharing a name.
	ErrDuplicateMigration = errors.New("duplicate migration")
	// ErrMissingMigration reports a ledger entry with no matching unit.
	ErrMissingMigration = errors.New("migration not found")
)

// Direction names the entry point that was running.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationError identifies the unit that failed.
type MigrationError struct {
	Migration string
	Direction Direction
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s (%s): %v", e.Migration, e.Direction, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func ledgerError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLedger, op, err)
}
