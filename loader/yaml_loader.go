// Package loader reads migration units written as YAML files and writes
// new migration skeletons.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlFile is one migration unit.
type yamlFile struct {
	Up   []yamlOperation `yaml:"up"`
	Down []yamlOperation `yaml:"down"`
}

// yamlOperation is one schema builder call. Exactly one of Create, Table,
// Drop, DropIfExists and RenameTable is set.
type yamlOperation struct {
	Create       string      `yaml:"create,omitempty"`
	Table        string      `yaml:"table,omitempty"`
	Drop         string      `yaml:"drop,omitempty"`
	DropIfExists string      `yaml:"drop_if_exists,omitempty"`
	RenameTable  *yamlRename `yaml:"rename_table,omitempty"`

	Columns     []yamlColumn     `yaml:"columns,omitempty"`
	Modify      []yamlColumn     `yaml:"modify,omitempty"`
	Indexes     []yamlIndex      `yaml:"indexes,omitempty"`
	Foreign     []yamlForeignKey `yaml:"foreign,omitempty"`
	Timestamps  bool             `yaml:"timestamps,omitempty"`
	SoftDeletes bool             `yaml:"soft_deletes,omitempty"`

	DropColumns   []string     `yaml:"drop_columns,omitempty"`
	RenameColumns []yamlRename `yaml:"rename_columns,omitempty"`
	DropIndexes   []string     `yaml:"drop_indexes,omitempty"`
	DropForeign   []string     `yaml:"drop_foreign,omitempty"`
	Rename        string       `yaml:"rename,omitempty"`

	Engine    string `yaml:"engine,omitempty"`
	Charset   string `yaml:"charset,omitempty"`
	Collation string `yaml:"collation,omitempty"`
	Comment   string `yaml:"comment,omitempty"`
}

type yamlRename struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type yamlColumn struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	RawType    string   `yaml:"raw_type,omitempty"`
	Length     int      `yaml:"length,omitempty"`
	Precision  int      `yaml:"precision,omitempty"`
	Scale      int      `yaml:"scale,omitempty"`
	Values     []string `yaml:"values,omitempty"`
	SRID       int      `yaml:"srid,omitempty"`
	Dimensions int      `yaml:"dimensions,omitempty"`

	Nullable          bool   `yaml:"nullable,omitempty"`
	Default           any    `yaml:"default,omitempty"`
	DefaultExpression string `yaml:"default_expression,omitempty"`
	Unsigned          bool   `yaml:"unsigned,omitempty"`
	AutoIncrement     bool   `yaml:"auto_increment,omitempty"`
	Comment           string `yaml:"comment,omitempty"`
	After             string `yaml:"after,omitempty"`
	First             bool   `yaml:"first,omitempty"`
	UseCurrent        bool   `yaml:"use_current,omitempty"`
	OnUpdate          string `yaml:"on_update,omitempty"`
	Primary           bool   `yaml:"primary,omitempty"`
	Unique            bool   `yaml:"unique,omitempty"`
	Index             bool   `yaml:"index,omitempty"`

	References *yamlRef `yaml:"references,omitempty"`
	// Constrained names the referenced table; "auto" infers it from the
	// column name.
	Constrained string `yaml:"constrained,omitempty"`
	OnDelete    string `yaml:"on_delete,omitempty"`
}

type yamlRef struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	OnDelete string `yaml:"on_delete,omitempty"`
	OnUpdate string `yaml:"on_update,omitempty"`
}

type yamlIndex struct {
	Type          string            `yaml:"type"`
	Columns       []string          `yaml:"columns,omitempty"`
	Name          string            `yaml:"name,omitempty"`
	Algorithm     string            `yaml:"algorithm,omitempty"`
	OperatorClass string            `yaml:"operator_class,omitempty"`
	With          map[string]string `yaml:"with,omitempty"`
	Expression    string            `yaml:"expression,omitempty"`
}

type yamlForeignKey struct {
	Columns    []string `yaml:"columns"`
	References []string `yaml:"references,omitempty"`
	On         string   `yaml:"on"`
	Name       string   `yaml:"name,omitempty"`
	OnDelete   string   `yaml:"on_delete,omitempty"`
	OnUpdate   string   `yaml:"on_update,omitempty"`
}

// parseMigration decodes a unit and checks every operation names exactly
// one target.
func parseMigration(name string, data []byte) (*yamlFile, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", name, err)
	}
	if len(yf.Up) == 0 {
		return nil, fmt.Errorf("migration %s has no up operations", name)
	}
	for i, op := range append(append([]yamlOperation(nil), yf.Up...), yf.Down...) {
		if n := op.targets(); n != 1 {
			return nil, fmt.Errorf("migration %s: operation %d names %d targets, want 1", name, i+1, n)
		}
	}
	return &yf, nil
}

func (op yamlOperation) targets() int {
	n := 0
	for _, s := range []string{op.Create, op.Table, op.Drop, op.DropIfExists} {
		if s != "" {
			n++
		}
	}
	if op.RenameTable != nil {
		n++
	}
	return n
}
