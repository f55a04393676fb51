// Package serve implements the serve command, a read-only HTTP API over the store.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/common"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/api"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
)

// Command returns the serve command.
func Command() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the result store over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps(func(cfg *config.Config) {
				if cmd.Flags().Changed("addr") {
					cfg.Server.Address = addr
				}
			})
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			router := api.NewRouter(deps.Store, deps.Gatherer(), deps.Logger, common.Version, deps.Config.App.Debug)
			return api.NewServer(deps.Config.Server, router, deps.Logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
