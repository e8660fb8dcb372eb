package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	"tutorplan.io/tutorplan/internal/scd"
	"tutorplan.io/tutorplan/internal/semester/semesterctx"
	"tutorplan.io/tutorplan/internal/testutil"
)

const testAlias = "sem_2026_s1"

// newTestStore wires a router with a default database and one current
// semester database, each in its own isolated schema.
func newTestStore(t *testing.T) (*datastore.Store, *gorm.DB) {
	t.Helper()

	defaultDB := testutil.OpenGormPostgres(t, "svc_default")
	require.NoError(t, defaultDB.AutoMigrate(domain.DefaultModels()...))

	semDB := testutil.OpenGormPostgres(t, "svc_semester")
	require.NoError(t, semDB.AutoMigrate(domain.SemesterModels()...))
	for _, table := range domain.VersionedTables() {
		require.NoError(t, semDB.Exec(scd.CurrentIndexDDL(table)).Error)
	}

	store := datastore.New(defaultDB)
	store.Register(testAlias, semDB)
	require.NoError(t, store.SetCurrent(testAlias))
	return store, semDB
}

// routedCtx simulates the routing middleware: read and write on the
// current semester.
func routedCtx() context.Context {
	return semesterctx.With(context.Background(), semesterctx.Aliases{
		Read:  testAlias,
		Write: testAlias,
	})
}

func seedUnit(t *testing.T, db *gorm.DB, code string) *domain.Unit {
	t.Helper()
	unit := &domain.Unit{Code: code, Name: code + " name"}
	require.NoError(t, db.Create(unit).Error)
	return unit
}
