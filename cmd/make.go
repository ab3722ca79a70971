package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/schemato/loader"
)

var makeCmd = &cobra.Command{
	Use:   "make <description>",
	Short: "Create a new timestamped migration file",
	Long: `Create a new migration file in the migrations directory.

Examples:
  schemato make create_users_table
  schemato make add_phone_to_users_table
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(newLogger())
		if err != nil {
			return err
		}
		path, err := loader.WriteMigrationFile(appFs, cfg.MigrationsDir, strings.Join(args, "_"), time.Now())
		if err != nil {
			return err
		}
		success("Created %s", path)
		return nil
	},
}
