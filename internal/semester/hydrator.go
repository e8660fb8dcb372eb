package semester

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/infrastructure"
	"tutorplan.io/tutorplan/internal/pkg/logger"
)

// Hydrator builds the runtime alias registry from the semester registry at
// boot, and lazily repairs it afterwards. Hydration failure is not fatal:
// the server still boots and serves registry endpoints, and each request
// that needs semester routing retries hydration until it succeeds.
type Hydrator struct {
	cfg      config.DatabaseConfig
	registry *Registry
	store    *datastore.Store

	mu       sync.Mutex
	hydrated bool
}

// NewHydrator creates a Hydrator over the registry and runtime store.
func NewHydrator(cfg config.DatabaseConfig, registry *Registry, store *datastore.Store) *Hydrator {
	return &Hydrator{cfg: cfg, registry: registry, store: store}
}

// Hydrated reports whether the last hydration attempt fully succeeded.
func (h *Hydrator) Hydrated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hydrated
}

// Hydrate opens a connection for every registered semester and marks the
// current one. Idempotent: aliases already registered in the store are
// reused, not reopened. Partial failure leaves the store with whatever
// connected and reports the run as not hydrated.
func (h *Hydrator) Hydrate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	semesters, err := h.registry.List(ctx)
	if err != nil {
		h.hydrated = false
		return err
	}

	failed := 0
	currentAlias := ""
	for _, sem := range semesters {
		if sem.IsCurrent {
			currentAlias = sem.Alias
		}
		if h.store.Has(sem.Alias) {
			continue
		}
		db, err := infrastructure.OpenSemesterDB(h.cfg, sem.DBName)
		if err != nil {
			// Keep going: one unreachable semester database must not
			// take down routing for the rest.
			logger.Error("Failed to open semester database",
				zap.String("alias", sem.Alias),
				zap.String("db_name", sem.DBName),
				zap.Error(err),
			)
			failed++
			continue
		}
		h.store.Register(sem.Alias, db)
		logger.Info("Semester database registered",
			zap.String("alias", sem.Alias),
			zap.String("db_name", sem.DBName),
		)
	}

	if currentAlias != "" && h.store.Has(currentAlias) {
		if err := h.store.SetCurrent(currentAlias); err != nil {
			h.hydrated = false
			return err
		}
	} else {
		h.store.ClearCurrent()
	}

	h.hydrated = failed == 0 && (currentAlias == "" || h.store.Has(currentAlias))
	if !h.hydrated {
		logger.Warn("Semester hydration incomplete",
			zap.Int("failed", failed),
			zap.String("current_alias", currentAlias),
		)
	}
	return nil
}

// EnsureHydrated retries hydration if the last attempt was incomplete.
// Called by routing middleware on each request that needs semester access;
// cheap when already hydrated.
func (h *Hydrator) EnsureHydrated(ctx context.Context) {
	if h.Hydrated() {
		return
	}
	if err := h.Hydrate(ctx); err != nil {
		logger.Error("Lazy rehydration failed", zap.Error(err))
	}
}
