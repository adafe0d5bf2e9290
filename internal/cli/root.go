// Package cli wires the dailyreports commands onto the core service.
package cli

import (
	"context"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/core"
	"github.com/spf13/cobra"
)

// App holds what the commands need: configuration and a way to reach
// storage. Commands open the store themselves so they can fail fast on bad
// input before connecting.
type App struct {
	Config    *config.Config
	OpenStore func(ctx context.Context) (core.Store, error)
}

// NewApp returns an App that opens the store configured in cfg.
func NewApp(cfg *config.Config) *App {
	return &App{
		Config: cfg,
		OpenStore: func(ctx context.Context) (core.Store, error) {
			return OpenStore(ctx, cfg.Database)
		},
	}
}

// NewRootCmd creates the top-level "dailyreports" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "dailyreports",
		Short:         "Import daily work report CSVs and serve them over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newImportCmd(app),
		newServeCmd(app),
	)

	return root
}
