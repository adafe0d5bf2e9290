package cli

import (
	"context"
	"fmt"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/core"
	"github.com/dailyreports/importer/internal/logging"
	"github.com/dailyreports/importer/internal/storage/postgres"
	"github.com/dailyreports/importer/internal/storage/sqlite"
)

// OpenStore opens the storage gateway selected by cfg.Driver. The caller
// must Close it.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (core.Store, error) {
	logger := logging.FromContext(ctx)

	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Debug("connected to database", "driver", cfg.Driver, "max_conns", cfg.MaxConns)
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		logger.Debug("opened database", "driver", cfg.Driver, "path", cfg.DSN())
		return store, nil
	}

	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
}
