// Package config resolves the connection and migration settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/schemato/database"
)

// Config holds the resolved settings.
type Config struct {
	Dialect       string
	DSN           string
	MigrationsDir string
	Table         string
	Verbose       bool
}

// Load reads schemato.yaml (or the file at path) from fs, then applies
// SCHEMATO_* environment overrides. DATABASE_URL is used when no DSN is
// configured. A missing config file is not an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("schemato")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCHEMATO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("table", "migrations")
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Dialect:       v.GetString("dialect"),
		DSN:           v.GetString("dsn"),
		MigrationsDir: v.GetString("migrations_dir"),
		Table:         v.GetString("table"),
		Verbose:       v.GetBool("verbose"),
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	if cfg.Dialect == "" && cfg.DSN != "" {
		cfg.Dialect = database.DetectDialect(cfg.DSN)
	}
	if cfg.Dialect != "" {
		name, err := database.NormalizeDialect(cfg.Dialect)
		if err != nil {
			return nil, err
		}
		cfg.Dialect = name
	}
	return cfg, nil
}

// Validate reports a missing DSN.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DATABASE_URL not set (in .env, environment or schemato.yaml)")
	}
	return nil
}
