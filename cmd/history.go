package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the migration ledger",
	Long: `Show the applied migrations recorded in the ledger, newest first.

Examples:
  schemato history                    # Show all migration history
  schemato history --limit 10         # Show last 10 migrations
  schemato history --detailed         # Show one block per migration
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		history, err := s.migrator.History(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("getting migration history: %w", err)
		}
		if len(history) == 0 {
			info("📋 No migration history found")
			return nil
		}

		blue := color.New(color.FgBlue, color.Bold)
		cyan := color.New(color.FgCyan)
		fmt.Println("📋 Migration History")
		fmt.Println(strings.Repeat("=", 60))

		if historyDetailed {
			for i, r := range history {
				fmt.Printf("\n%d. ", i+1)
				blue.Printf("%s\n", r.Migration)
				cyan.Printf("   📦 Batch: %d\n", r.Batch)
				cyan.Printf("   📅 Executed: %s\n", r.ExecutedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		fmt.Printf("%-6s %-6s %-45s %s\n", "ID", "Batch", "Migration", "Date")
		fmt.Println(strings.Repeat("-", 80))
		batches := map[int]bool{}
		for _, r := range history {
			name := r.Migration
			if len(name) > 43 {
				name = name[:40] + "..."
			}
			fmt.Printf("%-6d %-6d %-45s %s\n", r.ID, r.Batch, blue.Sprint(name), r.ExecutedAt.Format("2006-01-02 15:04"))
			batches[r.Batch] = true
		}
		fmt.Println(strings.Repeat("-", 80))
		fmt.Printf("📊 Summary: %d migrations in %d batches\n", len(history), len(batches))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of records to show (0 = all)")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}
