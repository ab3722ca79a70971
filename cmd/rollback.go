package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/schemato/runner"
)

var (
	rollbackSteps  int
	dryRunRollback bool
	forceReset     bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the last batch of migrations",
	Long: `Revert the last batch of migrations, most recent first.

Examples:
  schemato rollback              # Revert the last batch
  schemato rollback --steps 2    # Revert the last two migrations
  schemato rollback --dry-run    # Print the SQL without running it
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.migrator.Rollback(cmd.Context(), runner.Options{Steps: rollbackSteps, Pretend: dryRunRollback})
		reportResult(res, "Rolled back", dryRunRollback)
		return err
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Revert every applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dryRunRollback && !confirm("Revert ALL applied migrations?") {
			warn("Reset cancelled")
			return nil
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.migrator.Reset(cmd.Context(), runner.Options{Pretend: dryRunRollback})
		reportResult(res, "Rolled back", dryRunRollback)
		return err
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Revert every migration and apply them again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dryRunRollback && !confirm("Revert ALL applied migrations and run them again?") {
			warn("Refresh cancelled")
			return nil
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		reset, migrated, err := s.migrator.Refresh(cmd.Context(), runner.Options{Pretend: dryRunRollback})
		reportResult(reset, "Rolled back", dryRunRollback)
		reportResult(migrated, "Migrated", dryRunRollback)
		return err
	},
}

// confirm asks before a destructive command unless --force is set.
func confirm(message string) bool {
	if forceReset {
		return true
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok); err != nil {
		fmt.Println("❌", err)
		return false
	}
	return ok
}

func init() {
	rollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 0, "Revert the last N migrations instead of the last batch")
	for _, c := range []*cobra.Command{rollbackCmd, resetCmd, refreshCmd} {
		c.Flags().BoolVar(&dryRunRollback, "dry-run", false, "Print the SQL without running it")
	}
	resetCmd.Flags().BoolVarP(&forceReset, "force", "f", false, "Do not ask for confirmation")
	refreshCmd.Flags().BoolVarP(&forceReset, "force", "f", false, "Do not ask for confirmation")
}
