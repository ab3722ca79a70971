package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.migrator.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if len(entries) == 0 {
			info("📋 No migrations found in %s", s.cfg.MigrationsDir)
			return nil
		}

		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		data := pterm.TableData{{"Migration", "Batch", "Status"}}
		pending := 0
		for _, e := range entries {
			if e.Ran {
				data = append(data, []string{e.Migration, fmt.Sprint(e.Batch), green.Sprint("Ran")})
				continue
			}
			pending++
			data = append(data, []string{e.Migration, "", yellow.Sprint("Pending")})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		info("\n📊 %d total, %d pending", len(entries), pending)
		return nil
	},
}
