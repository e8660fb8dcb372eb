// Package infrastructure provides database and connection pool setup.
//
// The default database uses a single shared pgxpool for GORM, River, and
// maintenance SQL (CREATE/DROP DATABASE). Per-semester databases get their
// own small GORM connections opened on demand by the semester hydrator and
// provisioner.
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/domain"
	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/scd"
)

// DatabaseClients contains all default-database clients.
// All clients share a single pgxpool connection pool.
//
// Do not create separate sql.Open() and pgxpool.New() for the default
// database; that doubles connections against the registry.
type DatabaseClients struct {
	// Pool is the shared connection pool (GORM + River + maintenance SQL).
	Pool *pgxpool.Pool

	// DB is the *sql.DB wrapper around Pool, created via
	// stdlib.OpenDBFromPool so GORM reuses pgxpool connections.
	DB *sql.DB

	// Gorm is the GORM handle for the default database.
	Gorm *gorm.DB

	// RiverClient is the River job queue client backed by the shared pool.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients creates the default-database clients with a shared
// connection pool.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	// Set UTC timezone on each new connection; SCD validity windows are
	// stored and compared in UTC.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open gorm on shared pool: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &DatabaseClients{
		Pool: pool,
		DB:   db,
		Gorm: gormDB,
	}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// OpenSemesterDB opens a GORM connection to one per-semester physical
// database. Semester connections are few and long-lived; they do not share
// the default pool.
func OpenSemesterDB(cfg config.DatabaseConfig, dbName string) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.DSNFor(dbName)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open semester database %s: %w", dbName, err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap semester database %s: %w", dbName, err)
	}
	sqlDB.SetMaxOpenConns(cfg.SemesterMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.SemesterMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	return gormDB, nil
}

// CloseSemesterDB closes the connection pool behind a semester GORM handle.
func CloseSemesterDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate applies the default-database schema and the River queue
// tables. Semester schemas are applied separately by the provisioner, on
// the semester database only.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running default-database auto-migration...")
	if err := c.Gorm.WithContext(ctx).AutoMigrate(domain.DefaultModels()...); err != nil {
		return fmt.Errorf("default auto-migrate: %w", err)
	}
	logger.Info("Default-database auto-migration completed")

	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	} else {
		logger.Info("River migration: already up-to-date")
	}

	return nil
}

// ApplySemesterSchema migrates one semester database to the semester-scoped
// schema, including the partial unique indexes that guard SCD current rows.
// Idempotent: safe to run on every boot and after provisioning.
func ApplySemesterSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(domain.SemesterModels()...); err != nil {
		return fmt.Errorf("semester auto-migrate: %w", err)
	}
	for _, table := range domain.VersionedTables() {
		if err := db.WithContext(ctx).Exec(scd.CurrentIndexDDL(table)).Error; err != nil {
			return fmt.Errorf("create current-row index on %s: %w", table, err)
		}
	}
	return nil
}

// InitRiverClient creates a River client with registered workers and the
// periodic job schedule. Called after NewDatabaseClients; workers come from
// bootstrap.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, periodic []*river.PeriodicJob, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:                     workers,
		PeriodicJobs:                periodic,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized", zap.Int("max_workers", cfg.MaxWorkers))
	return nil
}

// Close closes all connection pools gracefully.
func (c *DatabaseClients) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
