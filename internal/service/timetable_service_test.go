package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

func TestTimetableService_UpsertUnitIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewTimetableService(store)
	ctx := routedCtx()

	first, err := svc.UpsertUnit(ctx, "COMP1000", "Intro to Programming", "coord@uni.edu")
	require.NoError(t, err)

	second, err := svc.UpsertUnit(ctx, "COMP1000", "Introduction to Programming", "coord@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Introduction to Programming", second.Name)

	units, err := svc.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestTimetableService_SetMasterScheduleCreatesSessions(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewTimetableService(store)
	ctx := routedCtx()

	slots, err := svc.SetMasterSchedule(ctx, "COMP1000", []MasterSlot{
		{ClassType: "tutorial", Day: domain.Monday, StartTime: "10:00", EndTime: "12:00", TutorsNeed: 2},
		{ClassType: "lab", Day: domain.Wednesday, StartTime: "14:00", EndTime: "16:00"},
	})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[1].TutorsNeed, "tutors_need defaults to 1")

	sessions, err := svc.ListSessions(ctx, "COMP1000")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestTimetableService_SetMasterScheduleReplaces(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewTimetableService(store)
	ctx := routedCtx()

	_, err := svc.SetMasterSchedule(ctx, "COMP1000", []MasterSlot{
		{ClassType: "tutorial", Day: domain.Monday, StartTime: "10:00", EndTime: "12:00"},
		{ClassType: "tutorial", Day: domain.Tuesday, StartTime: "10:00", EndTime: "12:00"},
	})
	require.NoError(t, err)

	_, err = svc.SetMasterSchedule(ctx, "COMP1000", []MasterSlot{
		{ClassType: "tutorial", Day: domain.Friday, StartTime: "09:00", EndTime: "11:00"},
	})
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx, "COMP1000")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].MasterClass)
	assert.Equal(t, domain.Friday, sessions[0].MasterClass.Day)
}

func TestTimetableService_SetMasterScheduleRejectsBadSlot(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewTimetableService(store)

	_, err := svc.SetMasterSchedule(routedCtx(), "COMP1000", []MasterSlot{
		{ClassType: "tutorial", Day: domain.Monday, StartTime: "12:00", EndTime: "10:00"},
	})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}
