// Package runner applies and reverts migration units and keeps the ledger
// of what has run.
package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/ridoystarlord/schemato/builder"
)

// Migration is one versioned schema change.
type Migration interface {
	Up(ctx context.Context, schema *builder.Builder) error
	Down(ctx context.Context, schema *builder.Builder) error
}

// Funcs adapts two functions to Migration. A nil Down does nothing.
type Funcs struct {
	UpFunc   func(ctx context.Context, schema *builder.Builder) error
	DownFunc func(ctx context.Context, schema *builder.Builder) error
}

func (f Funcs) Up(ctx context.Context, schema *builder.Builder) error {
	if f.UpFunc == nil {
		return nil
	}
	return f.UpFunc(ctx, schema)
}

func (f Funcs) Down(ctx context.Context, schema *builder.Builder) error {
	if f.DownFunc == nil {
		return nil
	}
	return f.DownFunc(ctx, schema)
}

// Unit is a named migration. The name fixes the apply order and is the
// key stored in the ledger.
type Unit struct {
	Name      string
	Migration Migration
}

// Source discovers migration units.
type Source interface {
	Units() ([]Unit, error)
}

// Registry is a Source of migrations registered from Go code.
type Registry struct {
	units map[string]Migration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: map[string]Migration{}}
}

// Register adds a migration under name. Registering a name twice is an
// error.
func (r *Registry) Register(name string, m Migration) error {
	if name == "" {
		return fmt.Errorf("migration name is empty")
	}
	if _, ok := r.units[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMigration, name)
	}
	r.units[name] = m
	return nil
}

// Units returns the registered migrations sorted by name.
func (r *Registry) Units() ([]Unit, error) {
	units := make([]Unit, 0, len(r.units))
	for name, m := range r.units {
		units = append(units, Unit{Name: name, Migration: m})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}
