// Package export implements the export command.
package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/common"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/report"
)

// Command returns the export command.
func Command() *cobra.Command {
	var (
		out    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the result store to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			if err := report.WriteXLSX(out, records); err != nil {
				return fmt.Errorf("export results: %w", err)
			}
			deps.Logger.Info("Exported results",
				logger.String("path", out),
				logger.Int("records", len(records)))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "results.xlsx", "workbook path")
	cmd.Flags().StringVarP(&output, "output", "o", "", "result store JSON file")
	return cmd
}
