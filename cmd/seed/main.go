// Package main provides idempotent data seeding for TutorPlan.
//
// Seeds users from a YAML fixture, and optionally provisions a semester
// with units, courses and a master schedule so a fresh install is usable
// without clicking through the API. Safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	"tutorplan.io/tutorplan/internal/infrastructure"
	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/semester"
	"tutorplan.io/tutorplan/internal/service"
)

const seedActor = "seed"

type fixture struct {
	Users []struct {
		Email    string `yaml:"email"`
		FullName string `yaml:"full_name"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`

	Semester *struct {
		Year        int    `yaml:"year"`
		Term        string `yaml:"term"`
		MakeCurrent bool   `yaml:"make_current"`

		Courses []struct {
			Code string `yaml:"code"`
			Name string `yaml:"name"`
		} `yaml:"courses"`

		Units []struct {
			Code        string               `yaml:"code"`
			Name        string               `yaml:"name"`
			Coordinator string               `yaml:"coordinator"`
			Slots       []service.MasterSlot `yaml:"slots"`
		} `yaml:"units"`
	} `yaml:"semester"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fixturePath := flag.String("fixture", "seed.yaml", "path to the YAML seed fixture")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fix fixture
	if err := yaml.Unmarshal(raw, &fix); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	store := datastore.New(db.Gorm)
	registry := semester.NewRegistry(db.Gorm)
	audit := service.NewAuditService(db.Gorm)
	provisioner := semester.NewProvisioner(cfg.Database, cfg.Semester, db.Pool, registry, store, audit)
	users := service.NewUserService(db.Gorm)

	logger.Info("Starting data seeding...")

	for _, u := range fix.Users {
		if _, err := users.Upsert(ctx, u.Email, u.FullName, u.Password, domain.Role(u.Role)); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		logger.Info("Seeded user", zap.String("email", u.Email), zap.String("role", u.Role))
	}

	if fix.Semester != nil {
		if err := seedSemester(ctx, &fix, provisioner, store); err != nil {
			return err
		}
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

func seedSemester(ctx context.Context, fix *fixture, provisioner *semester.Provisioner, store *datastore.Store) error {
	sem := fix.Semester
	row, err := provisioner.Provision(ctx, sem.Year, domain.Term(sem.Term), sem.MakeCurrent, seedActor)
	if err != nil {
		return fmt.Errorf("provision semester: %w", err)
	}
	logger.Info("Seeded semester", zap.String("alias", row.Alias), zap.Bool("current", sem.MakeCurrent))

	if !sem.MakeCurrent {
		// Unit and course seeding writes through the current-semester
		// route, so it only applies when this semester is promoted.
		if len(sem.Units) > 0 || len(sem.Courses) > 0 {
			logger.Warn("Skipping unit and course seeding: semester not made current",
				zap.String("alias", row.Alias),
			)
		}
		return nil
	}

	timetable := service.NewTimetableService(store)
	for _, c := range sem.Courses {
		if _, err := timetable.UpsertCourse(ctx, c.Code, c.Name); err != nil {
			return fmt.Errorf("seed course %s: %w", c.Code, err)
		}
	}
	for _, u := range sem.Units {
		if _, err := timetable.UpsertUnit(ctx, u.Code, u.Name, u.Coordinator); err != nil {
			return fmt.Errorf("seed unit %s: %w", u.Code, err)
		}
		if len(u.Slots) == 0 {
			continue
		}
		if _, err := timetable.SetMasterSchedule(ctx, u.Code, u.Slots); err != nil {
			return fmt.Errorf("seed schedule for %s: %w", u.Code, err)
		}
		logger.Info("Seeded unit schedule", zap.String("unit", u.Code), zap.Int("slots", len(u.Slots)))
	}
	return nil
}
