package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	verbose       bool
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "schemato",
	Short: "Declarative schema builder and migration runner for MySQL, PostgreSQL, SQL Server and SQLite",
	Long: `schemato applies versioned schema migrations written as YAML units.

Examples:

  schemato init
  schemato make create_users_table
  schemato migrate
  schemato rollback
  schemato status
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError prints err and, in verbose mode, every wrapped cause.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Println("❌", err)
	if !verbose {
		return
	}
	faint := color.New(color.Faint)
	depth := 1
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		faint.Printf("%*s↳ %T: %v\n", depth*2, "", cause, cause)
		depth++
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			faint.Println("  ↳", e)
		}
	}
}

func success(format string, args ...any) {
	color.New(color.FgGreen).Printf("✅ "+format+"\n", args...)
}

func warn(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠️  "+format+"\n", args...)
}

func info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default ./schemato.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print executed statements and full error causes")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "Migrations directory (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
}
