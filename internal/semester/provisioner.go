package semester

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	"tutorplan.io/tutorplan/internal/infrastructure"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/pkg/logger"
)

// Auditor records administrative actions on the default database.
type Auditor interface {
	Record(ctx context.Context, actor, action, target, detail string) error
}

// Provisioner creates, promotes and drops semester databases. CREATE
// DATABASE and DROP DATABASE cannot run inside a transaction, so each
// provisioning step is individually idempotent and Provision can be
// re-run after a partial failure.
type Provisioner struct {
	dbCfg    config.DatabaseConfig
	semCfg   config.SemesterConfig
	admin    *pgxpool.Pool // connected to the default database
	registry *Registry
	store    *datastore.Store
	auditor  Auditor
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(
	dbCfg config.DatabaseConfig,
	semCfg config.SemesterConfig,
	admin *pgxpool.Pool,
	registry *Registry,
	store *datastore.Store,
	auditor Auditor,
) *Provisioner {
	return &Provisioner{
		dbCfg:    dbCfg,
		semCfg:   semCfg,
		admin:    admin,
		registry: registry,
		store:    store,
		auditor:  auditor,
	}
}

// Provision creates the semester (year, term) end to end: physical
// database, schema, registry row, and live connection. When makeCurrent is
// set the new semester is also promoted. Idempotent throughout; re-running
// after a partial failure completes the remaining steps.
func (p *Provisioner) Provision(ctx context.Context, year int, term domain.Term, makeCurrent bool, actor string) (*domain.Semester, error) {
	if year < 2000 || year > 2100 {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "year out of range", http.StatusBadRequest).
			WithParams(map[string]interface{}{"year": year})
	}
	if !domain.ValidTerm(term) {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "unknown term", http.StatusBadRequest).
			WithParams(map[string]interface{}{"term": string(term)})
	}

	alias := domain.AliasFor(year, term)
	dbName := domain.DBNameFor(p.semCfg.DBPrefix, year, term)

	if err := p.createDatabase(ctx, dbName); err != nil {
		return nil, apperrors.ErrProvisioningf(err, "create semester database")
	}

	sem, err := p.registry.Create(ctx, &domain.Semester{
		Year:   year,
		Term:   term,
		Alias:  alias,
		DBName: dbName,
	})
	if err != nil {
		return nil, apperrors.ErrProvisioningf(err, "register semester")
	}

	if err := p.EnsureMigrated(ctx, sem); err != nil {
		return nil, err
	}

	if !p.store.Has(alias) {
		db, err := infrastructure.OpenSemesterDB(p.dbCfg, dbName)
		if err != nil {
			return nil, apperrors.ErrProvisioningf(err, "connect semester database")
		}
		p.store.Register(alias, db)
	}

	if p.auditor != nil {
		if err := p.auditor.Record(ctx, actor, domain.AuditActionSemesterCreate, alias, dbName); err != nil {
			logger.Warn("Audit record failed", zap.Error(err))
		}
	}
	logger.Info("Semester provisioned",
		zap.String("alias", alias),
		zap.String("db_name", dbName),
		zap.Bool("make_current", makeCurrent),
	)

	if makeCurrent {
		return p.SetCurrent(ctx, alias, actor)
	}
	return sem, nil
}

// EnsureMigrated applies the semester schema to the semester's physical
// database. Idempotent; exposed separately so operators can re-run schema
// migration on an existing semester.
func (p *Provisioner) EnsureMigrated(ctx context.Context, sem *domain.Semester) error {
	db, ok := p.store.Get(sem.Alias)
	opened := false
	if !ok {
		var err error
		db, err = infrastructure.OpenSemesterDB(p.dbCfg, sem.DBName)
		if err != nil {
			return apperrors.ErrProvisioningf(err, "connect semester database")
		}
		opened = true
	}
	if err := infrastructure.ApplySemesterSchema(ctx, db); err != nil {
		if opened {
			_ = infrastructure.CloseSemesterDB(db)
		}
		return apperrors.ErrProvisioningf(err, "migrate semester database")
	}
	if opened {
		p.store.Register(sem.Alias, db)
	}
	return nil
}

// SetCurrent promotes alias to the current semester in both the registry
// and the runtime store. The semester schema is re-applied first so an
// older semester cannot become current with a stale schema; promotion only
// happens once migration succeeds.
func (p *Provisioner) SetCurrent(ctx context.Context, alias, actor string) (*domain.Semester, error) {
	row, err := p.registry.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	// Also connects and registers the alias if this boot never reached it.
	if err := p.EnsureMigrated(ctx, row); err != nil {
		return nil, err
	}

	sem, err := p.registry.Promote(ctx, alias)
	if err != nil {
		return nil, err
	}
	if err := p.store.SetCurrent(alias); err != nil {
		return nil, err
	}

	if p.auditor != nil {
		if err := p.auditor.Record(ctx, actor, domain.AuditActionSemesterPromote, alias, ""); err != nil {
			logger.Warn("Audit record failed", zap.Error(err))
		}
	}
	logger.Info("Semester promoted to current", zap.String("alias", alias))
	return sem, nil
}

// Drop removes a semester: connection, registry row, and physical database.
// The current semester cannot be dropped; promote another one first. Drops
// are audited because the semester database itself leaves no trace.
func (p *Provisioner) Drop(ctx context.Context, alias, actor string) error {
	sem, err := p.registry.GetByAlias(ctx, alias)
	if err != nil {
		return err
	}
	if sem.IsCurrent || p.store.CurrentAlias() == alias {
		return apperrors.ErrCannotDropCurrentf(alias)
	}

	if db, ok := p.store.Deregister(alias); ok {
		if err := infrastructure.CloseSemesterDB(db); err != nil {
			logger.Warn("Failed to close semester connection",
				zap.String("alias", alias),
				zap.Error(err),
			)
		}
	}

	if err := p.registry.Delete(ctx, alias); err != nil {
		return err
	}

	if err := p.dropDatabase(ctx, sem.DBName); err != nil {
		return apperrors.ErrProvisioningf(err, "drop semester database")
	}

	if p.auditor != nil {
		if err := p.auditor.Record(ctx, actor, domain.AuditActionSemesterDrop, alias, sem.DBName); err != nil {
			logger.Warn("Audit record failed", zap.Error(err))
		}
	}
	logger.Info("Semester dropped",
		zap.String("alias", alias),
		zap.String("db_name", sem.DBName),
		zap.String("actor", actor),
	)
	return nil
}

// DatabaseStatus is one row of the database diagnostic: a registry row
// joined with whether the physical database exists and whether a live
// connection is registered.
type DatabaseStatus struct {
	Alias     string      `json:"alias"`
	DBName    string      `json:"db_name"`
	Year      int         `json:"year"`
	Term      domain.Term `json:"term"`
	IsCurrent bool        `json:"is_current"`
	DBExists  bool        `json:"db_exists"`
	Connected bool        `json:"connected"`
}

// DatabaseList reports every registered semester with its physical-database
// existence checked against pg_database. Serves the admin diagnostic
// endpoint; a registry row whose database is gone shows DBExists false
// instead of erroring.
func (p *Provisioner) DatabaseList(ctx context.Context) ([]DatabaseStatus, error) {
	semesters, err := p.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DatabaseStatus, 0, len(semesters))
	for _, sem := range semesters {
		exists, err := p.databaseExists(ctx, sem.DBName)
		if err != nil {
			return nil, err
		}
		out = append(out, DatabaseStatus{
			Alias:     sem.Alias,
			DBName:    sem.DBName,
			Year:      sem.Year,
			Term:      sem.Term,
			IsCurrent: sem.IsCurrent,
			DBExists:  exists,
			Connected: p.store.Has(sem.Alias),
		})
	}
	return out, nil
}

// createDatabase creates the physical database if it does not exist.
// Postgres has no CREATE DATABASE IF NOT EXISTS, so existence is checked
// against pg_database first.
func (p *Provisioner) createDatabase(ctx context.Context, dbName string) error {
	exists, err := p.databaseExists(ctx, dbName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = p.admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	if err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// dropDatabase drops the physical database, terminating lingering
// connections. Missing databases are not an error so a re-run after partial
// failure converges.
func (p *Provisioner) dropDatabase(ctx context.Context, dbName string) error {
	exists, err := p.databaseExists(ctx, dbName)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	_, err = p.admin.Exec(ctx, "DROP DATABASE "+pgx.Identifier{dbName}.Sanitize()+" WITH (FORCE)")
	if err != nil {
		return fmt.Errorf("drop database %s: %w", dbName, err)
	}
	return nil
}

func (p *Provisioner) databaseExists(ctx context.Context, dbName string) (bool, error) {
	var exists bool
	err := p.admin.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", dbName, err)
	}
	return exists, nil
}
