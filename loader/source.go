package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/ridoystarlord/schemato/runner"
)

// DirSource discovers YAML migration units in a directory. Each
// *.yaml or *.yml file is one unit named after the file without its
// extension.
type DirSource struct {
	fs  afero.Fs
	dir string
}

// NewDirSource returns a source reading dir on fs. A nil fs reads the OS
// file system.
func NewDirSource(fs afero.Fs, dir string) *DirSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DirSource{fs: fs, dir: dir}
}

// Units parses every migration file. A missing directory holds no units.
func (s *DirSource) Units() ([]runner.Unit, error) {
	exists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("checking migrations dir: %w", err)
	}
	if !exists {
		return nil, nil
	}
	files, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations dir: %w", err)
	}

	var units []runner.Unit
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if f.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		yf, err := parseMigration(name, data)
		if err != nil {
			return nil, err
		}
		units = append(units, runner.Unit{Name: name, Migration: &yamlMigration{name: name, file: yf}})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}
