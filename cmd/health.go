package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and whether the ledger exists.

Examples:
  schemato health                    # Check default database connection
  schemato health --timeout 10s      # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkDatabaseHealth(cmd.Context()); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		success("Database is healthy and accessible")
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, healthTimeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	info("🔌 Connected (%s)", s.db.DialectName())

	repo := s.migrator.Repository()
	exists, err := repo.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		warn("Database is accessible but the %s table was not found", repo.Table())
		info("   Run 'schemato init' or 'schemato migrate' to create it")
		return nil
	}

	applied, err := repo.ListApplied(ctx)
	if err != nil {
		return err
	}
	info("📊 Found %d applied migrations", len(applied))
	return nil
}
