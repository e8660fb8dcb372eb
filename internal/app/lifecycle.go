package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/infrastructure"
	"tutorplan.io/tutorplan/internal/pkg/logger"
)

// Start starts background services. Currently that is the River client;
// HTTP serving is owned by cmd/server.
func (a *Application) Start(ctx context.Context) error {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started, jobs will now be consumed")
	}
	return nil
}

// Shutdown gracefully shuts down all application components in reverse
// dependency order: job consumption first, then pools, then connections.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop river client", zap.Error(err))
		}
		logger.Info("River client stopped")
	}

	if a.Pools != nil {
		a.Pools.Shutdown()
	}

	if a.Store != nil {
		for _, alias := range a.Store.Aliases() {
			db, ok := a.Store.Deregister(alias)
			if !ok {
				continue
			}
			if err := infrastructure.CloseSemesterDB(db); err != nil {
				logger.Warn("failed to close semester database",
					zap.String("alias", alias),
					zap.Error(err),
				)
			}
		}
	}

	if a.DB != nil {
		a.DB.Close()
	}
}
