package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/schemato/runner"
)

var (
	dryRunMigrate bool
	migrateSteps  int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.migrator.Run(cmd.Context(), runner.Options{Steps: migrateSteps, Pretend: dryRunMigrate})
		reportResult(res, "Migrated", dryRunMigrate)
		return err
	},
}

// reportResult prints the processed migrations, or the collected
// statements in dry-run mode.
func reportResult(res *runner.Result, verb string, dryRun bool) {
	if res == nil {
		return
	}
	if dryRun {
		cyan := color.New(color.FgCyan)
		current := ""
		for _, st := range res.Statements {
			if st.Migration != current {
				current = st.Migration
				cyan.Printf("\n-- %s\n", current)
			}
			info("%s;", st.SQL)
		}
		if len(res.Statements) == 0 {
			info("📋 Nothing to run")
		}
		return
	}
	if len(res.Migrations) == 0 {
		info("📋 Nothing to do")
		return
	}
	for _, name := range res.Migrations {
		success("%s: %s", verb, name)
	}
	if res.Batch > 0 {
		info("📦 Batch %d", res.Batch)
	}
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Print the SQL that would be executed without applying migrations")
	migrateCmd.Flags().IntVar(&migrateSteps, "step", 0, "Apply at most this many pending migrations (0 = all)")
}
