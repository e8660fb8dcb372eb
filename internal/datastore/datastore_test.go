package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// Handles in these tests never touch a real database; the router only
// compares and returns pointers.
func newHandle() *gorm.DB { return &gorm.DB{} }

func TestResolve_DefaultGroupAlwaysDefaultDB(t *testing.T) {
	def := newHandle()
	store := New(def)
	store.Register("sem_2026_s1", newHandle())
	require.NoError(t, store.SetCurrent("sem_2026_s1"))

	for _, op := range []Operation{OpRead, OpWrite} {
		db, err := store.Resolve(op, GroupDefault, "sem_2026_s1")
		require.NoError(t, err)
		assert.Same(t, def, db)
	}
}

func TestResolve_WriteIgnoresViewAlias(t *testing.T) {
	store := New(newHandle())
	current := newHandle()
	viewed := newHandle()
	store.Register("sem_2026_s1", current)
	store.Register("sem_2025_s2", viewed)
	require.NoError(t, store.SetCurrent("sem_2026_s1"))

	db, err := store.Resolve(OpWrite, GroupSemester, "sem_2025_s2")
	require.NoError(t, err)
	assert.Same(t, current, db, "writes must always go to the current semester")
}

func TestResolve_ReadPrefersViewAlias(t *testing.T) {
	store := New(newHandle())
	current := newHandle()
	viewed := newHandle()
	store.Register("sem_2026_s1", current)
	store.Register("sem_2025_s2", viewed)
	require.NoError(t, store.SetCurrent("sem_2026_s1"))

	db, err := store.Resolve(OpRead, GroupSemester, "sem_2025_s2")
	require.NoError(t, err)
	assert.Same(t, viewed, db)

	db, err = store.Resolve(OpRead, GroupSemester, "")
	require.NoError(t, err)
	assert.Same(t, current, db)
}

func TestResolve_StaleViewFallsBackToCurrent(t *testing.T) {
	store := New(newHandle())
	current := newHandle()
	store.Register("sem_2026_s1", current)
	require.NoError(t, store.SetCurrent("sem_2026_s1"))

	db, err := store.Resolve(OpRead, GroupSemester, "sem_2020_s1")
	require.NoError(t, err)
	assert.Same(t, current, db)
}

func TestResolve_NoCurrentSemester(t *testing.T) {
	store := New(newHandle())
	store.Register("sem_2025_s2", newHandle())

	_, err := store.Resolve(OpWrite, GroupSemester, "")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNoCurrentSemester, appErr.Code)

	// Reads still work through an explicit view even without a current
	// semester.
	db, err := store.Resolve(OpRead, GroupSemester, "sem_2025_s2")
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestSetCurrent_UnknownAlias(t *testing.T) {
	store := New(newHandle())
	err := store.SetCurrent("sem_1999_s1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnknownAlias, appErr.Code)
}

func TestDeregister_ClearsCurrent(t *testing.T) {
	store := New(newHandle())
	db := newHandle()
	store.Register("sem_2026_s1", db)
	require.NoError(t, store.SetCurrent("sem_2026_s1"))

	got, ok := store.Deregister("sem_2026_s1")
	require.True(t, ok)
	assert.Same(t, db, got)
	assert.Empty(t, store.CurrentAlias())
	assert.False(t, store.Has("sem_2026_s1"))

	_, ok = store.Deregister("sem_2026_s1")
	assert.False(t, ok)
}

func TestAliases_Sorted(t *testing.T) {
	store := New(newHandle())
	store.Register("sem_2026_s1", newHandle())
	store.Register("sem_2024_s2", newHandle())
	store.Register("sem_2025_s1", newHandle())

	assert.Equal(t, []string{"sem_2024_s2", "sem_2025_s1", "sem_2026_s1"}, store.Aliases())
}

func TestAllowMigrate(t *testing.T) {
	tests := []struct {
		alias string
		group EntityGroup
		want  bool
	}{
		{DefaultAlias, GroupDefault, true},
		{DefaultAlias, GroupSemester, false},
		{"sem_2026_s1", GroupSemester, true},
		{"sem_2026_s1", GroupDefault, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowMigrate(tt.alias, tt.group),
			"alias=%s group=%d", tt.alias, tt.group)
	}
}
