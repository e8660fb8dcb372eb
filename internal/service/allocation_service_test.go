package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

func seedSession(t *testing.T, db *gorm.DB, unit *domain.Unit, day domain.Weekday, start, end string, need int) *domain.TimeTable {
	t.Helper()
	mct := &domain.MasterClassTime{
		UnitID: unit.ID, ClassType: "tutorial",
		Day: day, StartTime: start, EndTime: end, TutorsNeed: need,
	}
	require.NoError(t, db.Create(mct).Error)
	session := &domain.TimeTable{MasterClassID: mct.ID, UnitID: unit.ID}
	require.NoError(t, db.Create(session).Error)
	return session
}

func seedTutor(t *testing.T, db *gorm.DB, email string) *domain.Tutor {
	t.Helper()
	tutor := &domain.Tutor{Email: email, FullName: email, IsActive: true}
	require.NoError(t, db.Create(tutor).Error)
	return tutor
}

func TestAllocationService_ManualAssign(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	session := seedSession(t, semDB, unit, domain.Monday, "10:00", "12:00", 1)
	tutor := seedTutor(t, semDB, "alex@uni.edu")
	svc := NewAllocationService(store, nil)

	alloc, err := svc.ManualAssign(routedCtx(), session.ID, tutor.ID, "admin@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, domain.AllocationApproved, alloc.Status)
	assert.Equal(t, "admin@uni.edu", alloc.AssignedBy)
}

func TestAllocationService_ManualAssignDuplicate(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	session := seedSession(t, semDB, unit, domain.Monday, "10:00", "12:00", 2)
	tutor := seedTutor(t, semDB, "alex@uni.edu")
	svc := NewAllocationService(store, nil)
	ctx := routedCtx()

	_, err := svc.ManualAssign(ctx, session.ID, tutor.ID, "admin@uni.edu")
	require.NoError(t, err)

	_, err = svc.ManualAssign(ctx, session.ID, tutor.ID, "admin@uni.edu")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAllocationExists, appErr.Code)
}

func TestAllocationService_ManualAssignClash(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	monday10 := seedSession(t, semDB, unit, domain.Monday, "10:00", "12:00", 1)
	monday11 := seedSession(t, semDB, unit, domain.Monday, "11:00", "13:00", 1)
	tuesday10 := seedSession(t, semDB, unit, domain.Tuesday, "10:00", "12:00", 1)
	tutor := seedTutor(t, semDB, "alex@uni.edu")
	svc := NewAllocationService(store, nil)
	ctx := routedCtx()

	_, err := svc.ManualAssign(ctx, monday10.ID, tutor.ID, "admin@uni.edu")
	require.NoError(t, err)

	_, err = svc.ManualAssign(ctx, monday11.ID, tutor.ID, "admin@uni.edu")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAllocationClash, appErr.Code)

	// A non-overlapping slot is fine.
	_, err = svc.ManualAssign(ctx, tuesday10.ID, tutor.ID, "admin@uni.edu")
	require.NoError(t, err)
}

func TestAllocationService_AutoAllocate(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	seedSession(t, semDB, unit, domain.Monday, "10:00", "12:00", 2)
	eoiSvc := NewEOIService(store, nil)
	ctx := routedCtx()

	// Three candidates: best preference wins; preference 0 is ignored.
	for _, sub := range []EOISubmission{
		{TutorEmail: "amir@uni.edu", TutorName: "Amir", UnitCode: "COMP1000", Preference: 1},
		{TutorEmail: "kim@uni.edu", TutorName: "Kim", UnitCode: "COMP1000", Preference: 2},
		{TutorEmail: "zoe@uni.edu", TutorName: "Zoe", UnitCode: "COMP1000", Preference: 0},
	} {
		_, err := eoiSvc.Submit(ctx, sub)
		require.NoError(t, err)
	}

	svc := NewAllocationService(store, nil)
	result, err := svc.AutoAllocate(ctx, "auto")
	require.NoError(t, err)
	assert.Equal(t, 1, result.UnitsProcessed)
	assert.Equal(t, 2, result.Assigned)

	allocs, err := svc.ListByUnit(ctx, "COMP1000")
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	emails := []string{allocs[0].Tutor.Email, allocs[1].Tutor.Email}
	assert.ElementsMatch(t, []string{"amir@uni.edu", "kim@uni.edu"}, emails)
	for _, alloc := range allocs {
		assert.Equal(t, domain.AllocationProposed, alloc.Status)
	}

	// Re-running is a no-op once the session is staffed.
	again, err := svc.AutoAllocate(ctx, "auto")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Assigned)
	assert.Equal(t, 1, again.Skipped)
}

func TestAllocationService_ApproveUnit(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	seedSession(t, semDB, unit, domain.Monday, "10:00", "12:00", 1)
	eoiSvc := NewEOIService(store, nil)
	ctx := routedCtx()

	_, err := eoiSvc.Submit(ctx, EOISubmission{
		TutorEmail: "amir@uni.edu", TutorName: "Amir", UnitCode: "COMP1000", Preference: 1,
	})
	require.NoError(t, err)

	svc := NewAllocationService(store, nil)
	_, err = svc.AutoAllocate(ctx, "auto")
	require.NoError(t, err)

	updated, err := svc.ApproveUnit(ctx, "COMP1000")
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	allocs, err := svc.ListByUnit(ctx, "COMP1000")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, domain.AllocationApproved, allocs[0].Status)
}

func TestAllocationService_TutorSchedule(t *testing.T) {
	store, semDB := newTestStore(t)
	unit := seedUnit(t, semDB, "COMP1000")
	session := seedSession(t, semDB, unit, domain.Friday, "09:00", "11:00", 1)
	tutor := seedTutor(t, semDB, "alex@uni.edu")
	svc := NewAllocationService(store, nil)
	ctx := routedCtx()

	_, err := svc.ManualAssign(ctx, session.ID, tutor.ID, "admin@uni.edu")
	require.NoError(t, err)

	schedule, err := svc.TutorSchedule(ctx, "alex@uni.edu")
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	require.NotNil(t, schedule[0].TimeTable)
	require.NotNil(t, schedule[0].TimeTable.MasterClass)
	assert.Equal(t, domain.Friday, schedule[0].TimeTable.MasterClass.Day)
}
