package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/ridoystarlord/schemato/builder"
	"github.com/ridoystarlord/schemato/config"
	"github.com/ridoystarlord/schemato/database"
	"github.com/ridoystarlord/schemato/loader"
	"github.com/ridoystarlord/schemato/runner"
	"github.com/ridoystarlord/schemato/utils"
)

// appFs is the file system commands read migrations from and write to.
var appFs = afero.NewOsFs()

// session bundles everything a command needs to talk to the database.
type session struct {
	cfg      *config.Config
	db       *database.DB
	migrator *runner.Migrator
	logger   *slog.Logger
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	utils.LoadEnv(logger)
	cfg, err := config.Load(appFs, configPath)
	if err != nil {
		return nil, err
	}
	if migrationsDir != "" {
		cfg.MigrationsDir = migrationsDir
	}
	if cfg.Verbose {
		verbose = true
	}
	return cfg, nil
}

// openSession loads the config, connects and wires the migrator over the
// migrations directory.
func openSession(ctx context.Context) (*session, error) {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, err
	}
	if verbose {
		logger = newLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	schema, err := builder.New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	repo := runner.NewRepository(schema, cfg.Table)
	source := loader.NewDirSource(appFs, cfg.MigrationsDir)
	return &session{
		cfg:      cfg,
		db:       db,
		migrator: runner.NewMigrator(schema, repo, logger, source),
		logger:   logger,
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}
