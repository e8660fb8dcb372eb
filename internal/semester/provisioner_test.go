package semester

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/testutil"
)

// newTestProvisioner wires a provisioner over a real registry. The admin
// pool is nil unless a test needs pg_database access, which also proves the
// guards under test fire before any physical database work.
func newTestProvisioner(t *testing.T) (*Provisioner, *Registry, *datastore.Store) {
	t.Helper()
	registry := newTestRegistry(t)
	store := datastore.New(&gorm.DB{})
	p := NewProvisioner(
		config.DatabaseConfig{},
		config.SemesterConfig{DBPrefix: "tutorplan_sem_"},
		nil,
		registry,
		store,
		nil,
	)
	return p, registry, store
}

func TestProvisioner_DropCurrentRejected(t *testing.T) {
	p, r, _ := newTestProvisioner(t)
	ctx := context.Background()

	seedSemester(t, r, 2026, domain.TermS1)
	_, err := r.Promote(ctx, "sem_2026_s1")
	require.NoError(t, err)

	err = p.Drop(ctx, "sem_2026_s1", "admin@example.com")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCannotDropCurrent, appErr.Code)

	// Registry unchanged: the row survives and is still current.
	sem, err := r.GetByAlias(ctx, "sem_2026_s1")
	require.NoError(t, err)
	assert.True(t, sem.IsCurrent)
}

func TestProvisioner_DropRuntimeCurrentRejected(t *testing.T) {
	p, r, store := newTestProvisioner(t)
	ctx := context.Background()

	// The registry row is not flagged current, but the runtime store still
	// routes writes to it. Dropping must be refused until another semester
	// is promoted.
	seedSemester(t, r, 2025, domain.TermS2)
	store.Register("sem_2025_s2", &gorm.DB{})
	require.NoError(t, store.SetCurrent("sem_2025_s2"))

	err := p.Drop(ctx, "sem_2025_s2", "admin@example.com")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCannotDropCurrent, appErr.Code)

	_, err = r.GetByAlias(ctx, "sem_2025_s2")
	require.NoError(t, err)
}

func TestProvisioner_DropUnknownAlias(t *testing.T) {
	p, _, _ := newTestProvisioner(t)

	err := p.Drop(context.Background(), "sem_1999_s1", "admin@example.com")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnknownAlias, appErr.Code)
}

func TestProvisioner_DatabaseList(t *testing.T) {
	registry := newTestRegistry(t)
	pool := testutil.OpenPGXPool(t, "semester_dbs")
	store := datastore.New(&gorm.DB{})
	p := NewProvisioner(
		config.DatabaseConfig{},
		config.SemesterConfig{DBPrefix: "tutorplan_sem_"},
		pool,
		registry,
		store,
		nil,
	)
	ctx := context.Background()

	var realDB string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_database()").Scan(&realDB))

	// One row whose physical database exists (the test database itself),
	// one whose database is gone.
	_, err := registry.Create(ctx, &domain.Semester{
		Year: 2026, Term: domain.TermS1,
		Alias:  "sem_2026_s1",
		DBName: realDB,
	})
	require.NoError(t, err)
	_, err = registry.Create(ctx, &domain.Semester{
		Year: 2020, Term: domain.TermS2,
		Alias:  "sem_2020_s2",
		DBName: "tutorplan_sem_gone",
	})
	require.NoError(t, err)
	store.Register("sem_2026_s1", &gorm.DB{})

	list, err := p.DatabaseList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byAlias := map[string]DatabaseStatus{}
	for _, row := range list {
		byAlias[row.Alias] = row
	}

	live := byAlias["sem_2026_s1"]
	assert.Equal(t, realDB, live.DBName)
	assert.Equal(t, 2026, live.Year)
	assert.Equal(t, domain.TermS1, live.Term)
	assert.True(t, live.DBExists)
	assert.True(t, live.Connected)

	gone := byAlias["sem_2020_s2"]
	assert.False(t, gone.DBExists)
	assert.False(t, gone.Connected)
	assert.False(t, gone.IsCurrent)
}
