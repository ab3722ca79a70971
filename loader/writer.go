package loader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileTimeFormat prefixes migration file names so that they sort in
// creation order.
const FileTimeFormat = "2006_01_02_150405"

var (
	nonWord     = regexp.MustCompile(`[^a-z0-9]+`)
	createTable = regexp.MustCompile(`^create_(\w+?)_table$`)
	alterTable  = regexp.MustCompile(`^\w+_(?:to|from|in)_(\w+?)_table$`)
)

// Slug turns a free-form description into a snake_case file name part.
func Slug(description string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(description), "_"), "_")
}

// WriteMigrationFile writes a timestamped migration skeleton into dir and
// returns its path. "create_x_table" descriptions produce a create/drop
// pair for table x, "..._to_x_table" ones an alteration of x.
func WriteMigrationFile(fs afero.Fs, dir, description string, now time.Time) (string, error) {
	slug := Slug(description)
	if slug == "" {
		return "", fmt.Errorf("migration description is empty")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	path := filepath.Join(dir, now.Format(FileTimeFormat)+"_"+slug+".yaml")
	if exists, _ := afero.Exists(fs, path); exists {
		return "", fmt.Errorf("migration file %s already exists", path)
	}

	data, err := yaml.Marshal(skeleton(slug))
	if err != nil {
		return "", fmt.Errorf("encoding migration skeleton: %w", err)
	}
	content := "# Migration: " + slug + "\n# Created: " + now.Format(time.RFC3339) + "\n\n" + string(data)
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return path, nil
}

func skeleton(slug string) yamlFile {
	if m := createTable.FindStringSubmatch(slug); m != nil {
		return yamlFile{
			Up: []yamlOperation{{
				Create:     m[1],
				Columns:    []yamlColumn{{Name: "id", Type: "id"}},
				Timestamps: true,
			}},
			Down: []yamlOperation{{DropIfExists: m[1]}},
		}
	}
	table := "table_name"
	if m := alterTable.FindStringSubmatch(slug); m != nil {
		table = m[1]
	}
	return yamlFile{
		Up:   []yamlOperation{{Table: table}},
		Down: []yamlOperation{{Table: table}},
	}
}
