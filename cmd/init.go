package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/schemato/loader"
)

const configTemplate = `# schemato configuration
# dsn may also come from DATABASE_URL or SCHEMATO_DSN.
# dialect is inferred from the DSN scheme when omitted.
dialect: postgres
dsn: ""
migrations_dir: migrations
table: migrations
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new schemato project",
	Long: `Create schemato.yaml, the migrations directory and a first migration.

Examples:
  schemato init
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exists, err := afero.Exists(appFs, "schemato.yaml")
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("schemato.yaml already exists")
		}
		if err := afero.WriteFile(appFs, "schemato.yaml", []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("writing schemato.yaml: %w", err)
		}
		success("Created schemato.yaml")

		cfg, err := loadConfig(newLogger())
		if err != nil {
			return err
		}
		path, err := loader.WriteMigrationFile(appFs, cfg.MigrationsDir, "create_users_table", time.Now())
		if err != nil {
			return err
		}
		success("Created %s", path)
		info("\nNext steps:\n  1. Set DATABASE_URL (or dsn in schemato.yaml)\n  2. Edit %s\n  3. Run 'schemato migrate'", path)
		return nil
	},
}
