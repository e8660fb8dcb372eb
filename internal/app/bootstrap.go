// Package app is the composition root: bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/api/handlers"
	"tutorplan.io/tutorplan/internal/api/middleware"
	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/infrastructure"
	"tutorplan.io/tutorplan/internal/jobs"
	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/pkg/worker"
	"tutorplan.io/tutorplan/internal/semester"
	"tutorplan.io/tutorplan/internal/service"
)

// Application holds composed application dependencies.
type Application struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *infrastructure.DatabaseClients
	Store    *datastore.Store
	Hydrator *semester.Hydrator
	Pools    *worker.Pools
}

// Bootstrap initializes all dependencies with manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		ImportPoolSize:  cfg.Worker.ImportPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	store := datastore.New(db.Gorm)
	registry := semester.NewRegistry(db.Gorm)
	hydrator := semester.NewHydrator(cfg.Database, registry, store)
	audit := service.NewAuditService(db.Gorm)
	provisioner := semester.NewProvisioner(cfg.Database, cfg.Semester, db.Pool, registry, store, audit)

	users := service.NewUserService(db.Gorm)
	sessions := service.NewSessionService(db.Gorm, store, cfg.Session)
	allocations := service.NewAllocationService(store, pools)
	timetable := service.NewTimetableService(store)

	// River wiring: the EOI service enqueues through an Enqueuer that is
	// bound to the client after worker registration.
	workers := river.NewWorkers()
	eoiForWorker := service.NewEOIService(store, nil)
	river.AddWorker(workers, jobs.NewEOIImportWorker(eoiForWorker))
	river.AddWorker(workers, jobs.NewSessionCleanupWorker(sessions))

	if err := db.InitRiverClient(workers, jobs.PeriodicJobs(), cfg.River); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}
	eoi := service.NewEOIService(store, jobs.NewEnqueuer(db.RiverClient))

	// Build the runtime registry before serving. Failure is non-fatal:
	// routing middleware retries lazily per request.
	if err := hydrator.Hydrate(ctx); err != nil {
		logger.Warn("Initial semester hydration failed", zap.Error(err))
	}

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.JWTExpiresIn,
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Pool:        db.Pool,
		JWTCfg:      jwtCfg,
		Store:       store,
		Registry:    registry,
		Provisioner: provisioner,
		Hydrator:    hydrator,
		Users:       users,
		Sessions:    sessions,
		EOI:         eoi,
		Allocations: allocations,
		Timetable:   timetable,
		Audit:       audit,
	})

	return &Application{
		Config:   cfg,
		Router:   newRouter(cfg, server, store, hydrator, sessions, jwtCfg),
		DB:       db,
		Store:    store,
		Hydrator: hydrator,
		Pools:    pools,
	}, nil
}
