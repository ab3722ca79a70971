package grammar

import (
	"errors"
	"fmt"
)

// ErrUnsupported matches every CapabilityError.
var ErrUnsupported = errors.New("unsupported by dialect")

// CapabilityError reports a blueprint feature a dialect cannot express.
type CapabilityError struct {
	Dialect string
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Dialect, e.Feature)
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrUnsupported
}

func unsupported(dialect, format string, args ...any) error {
	return &CapabilityError{Dialect: dialect, Feature: fmt.Sprintf(format, args...)}
}

// CompileError reports a malformed blueprint.
type CompileError struct {
	Table  string
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %s", e.Table, e.Reason)
}

func invalid(table, format string, args ...any) error {
	return &CompileError{Table: table, Reason: fmt.Sprintf(format, args...)}
}
