package cli

import (
	"context"
	"fmt"

	"github.com/dailyreports/importer/internal/core"
	"github.com/dailyreports/importer/internal/logging"
	"github.com/dailyreports/importer/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			store, err := app.OpenStore(ctx)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			svc := core.NewService(store, app.Config)
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			server := web.NewServer(svc, app.Config)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("server stopped")
			return <-errCh
		},
	}
}
