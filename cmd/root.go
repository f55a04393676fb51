// Package cmd implements the domain-checker command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/check"
	"github.com/jonesrussell/north-cloud/domain-checker/cmd/common"
	"github.com/jonesrussell/north-cloud/domain-checker/cmd/export"
	"github.com/jonesrussell/north-cloud/domain-checker/cmd/results"
	"github.com/jonesrussell/north-cloud/domain-checker/cmd/serve"
)

var rootCmd = &cobra.Command{
	Use:   "domain-checker",
	Short: "Check domain name availability",
	Long: `domain-checker reads a list of candidate domain names, queries a registrar
for each one across several concurrent sessions, and records the results
in a JSON file that is safe to re-run against.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&common.Flags.ConfigPath, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	flags.BoolVar(&common.Flags.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "domain-checker version %s\n", common.Version)
		},
	})

	rootCmd.AddCommand(check.Command())
	rootCmd.AddCommand(results.Command())
	rootCmd.AddCommand(export.Command())
	rootCmd.AddCommand(serve.Command())
}
