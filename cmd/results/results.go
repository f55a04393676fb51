// Package results implements the results command.
package results

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/common"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/report"
)

// Command returns the results command.
func Command() *cobra.Command {
	var (
		format string
		status string
		output string
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print the result store",
		Example: `  domain-checker results
  domain-checker results --status available --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.Status
			if status != "" {
				st, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = st
			}

			deps, err := common.NewCommandDeps(func(cfg *config.Config) {
				if cmd.Flags().Changed("output") {
					cfg.Store.Path = output
				}
			})
			if err != nil {
				return err
			}

			records, err := deps.Store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if filter != "" {
				records = records.WithStatus(filter)
			}
			if err := report.Write(cmd.OutOrStdout(), format, records); err != nil {
				return fmt.Errorf("print results: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable,
		fmt.Sprintf("output format: %s, %s or %s", report.FormatTable, report.FormatJSON, report.FormatYAML))
	cmd.Flags().StringVar(&status, "status", "", "only show records with this status")
	cmd.Flags().StringVarP(&output, "output", "o", "", "result store JSON file")
	return cmd
}
