package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/semester/semesterctx"
)

type fakeEnqueuer struct {
	batchIDs []uint
}

func (f *fakeEnqueuer) EnqueueEOIImport(_ context.Context, batchID uint) error {
	f.batchIDs = append(f.batchIDs, batchID)
	return nil
}

func TestEOIService_SubmitCreatesTutorAndFirstVersion(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewEOIService(store, nil)

	app, err := svc.Submit(routedCtx(), EOISubmission{
		TutorEmail: "alex@uni.edu",
		TutorName:  "Alex Chen",
		UnitCode:   "COMP1000",
		Preference: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, app.Version)
	assert.True(t, app.IsCurrent)

	var tutor domain.Tutor
	require.NoError(t, semDB.Where("email = ?", "alex@uni.edu").Take(&tutor).Error)
	assert.Equal(t, "Alex Chen", tutor.FullName)
}

func TestEOIService_ResubmitChainsVersions(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewEOIService(store, nil)
	ctx := routedCtx()

	first, err := svc.Submit(ctx, EOISubmission{
		TutorEmail: "alex@uni.edu", TutorName: "Alex Chen",
		UnitCode: "COMP1000", Preference: 2,
	})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, EOISubmission{
		TutorEmail: "alex@uni.edu", TutorName: "Alex Chen",
		UnitCode: "COMP1000", Preference: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, first.BusinessKey, second.BusinessKey)
	assert.Equal(t, 2, second.Version)

	history, err := svc.History(ctx, first.BusinessKey)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Preference)
	assert.Equal(t, 1, history[1].Preference)
	assert.False(t, history[0].IsCurrent)
	assert.True(t, history[1].IsCurrent)
}

func TestEOIService_SeparateUnitsSeparateChains(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	seedUnit(t, semDB, "COMP2000")
	svc := NewEOIService(store, nil)
	ctx := routedCtx()

	a, err := svc.Submit(ctx, EOISubmission{
		TutorEmail: "alex@uni.edu", TutorName: "Alex", UnitCode: "COMP1000", Preference: 1,
	})
	require.NoError(t, err)
	b, err := svc.Submit(ctx, EOISubmission{
		TutorEmail: "alex@uni.edu", TutorName: "Alex", UnitCode: "COMP2000", Preference: 1,
	})
	require.NoError(t, err)

	assert.NotEqual(t, a.BusinessKey, b.BusinessKey)
	assert.Equal(t, 1, b.Version)
}

func TestEOIService_ListCurrentByUnitOrdersByPreference(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	svc := NewEOIService(store, nil)
	ctx := routedCtx()

	for _, sub := range []EOISubmission{
		{TutorEmail: "zoe@uni.edu", TutorName: "Zoe", UnitCode: "COMP1000", Preference: 3},
		{TutorEmail: "amir@uni.edu", TutorName: "Amir", UnitCode: "COMP1000", Preference: 1},
		{TutorEmail: "kim@uni.edu", TutorName: "Kim", UnitCode: "COMP1000", Preference: 2},
	} {
		_, err := svc.Submit(ctx, sub)
		require.NoError(t, err)
	}

	apps, err := svc.ListCurrentByUnit(ctx, "COMP1000")
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, "amir@uni.edu", apps[0].TutorEmail)
	assert.Equal(t, "kim@uni.edu", apps[1].TutorEmail)
	assert.Equal(t, "zoe@uni.edu", apps[2].TutorEmail)
}

func TestEOIService_SubmitUnknownUnit(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewEOIService(store, nil)

	_, err := svc.Submit(routedCtx(), EOISubmission{
		TutorEmail: "alex@uni.edu", TutorName: "Alex", UnitCode: "NOPE9999",
	})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnitNotFound, appErr.Code)
}

func TestEOIService_SubmitWithoutCurrentSemester(t *testing.T) {
	store, _ := newTestStore(t)
	store.ClearCurrent()
	svc := NewEOIService(store, nil)

	_, err := svc.Submit(semesterctx.With(context.Background(), semesterctx.Aliases{}),
		EOISubmission{TutorEmail: "alex@uni.edu", UnitCode: "COMP1000"})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNoCurrentSemester, appErr.Code)
}

func TestEOIService_ImportRoundTrip(t *testing.T) {
	store, semDB := newTestStore(t)
	seedUnit(t, semDB, "COMP1000")
	enq := &fakeEnqueuer{}
	svc := NewEOIService(store, enq)
	ctx := routedCtx()

	batch, err := svc.EnqueueImport(ctx, "admin@uni.edu", []EOISubmission{
		{TutorEmail: "alex@uni.edu", TutorName: "Alex", UnitCode: "COMP1000", Preference: 1},
		{TutorEmail: "kim@uni.edu", TutorName: "Kim", UnitCode: "NOPE9999", Preference: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ImportBatchPending, batch.Status)
	assert.Equal(t, 2, batch.RowCount)
	require.Equal(t, []uint{batch.ID}, enq.batchIDs)

	require.NoError(t, svc.RunImport(ctx, batch.ID))

	done, err := svc.GetImport(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportBatchCompleted, done.Status)
	assert.Equal(t, 1, done.FailedRows)
	assert.NotEmpty(t, done.Error)

	apps, err := svc.ListCurrentByUnit(ctx, "COMP1000")
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestEOIService_EnqueueImportEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewEOIService(store, nil)

	_, err := svc.EnqueueImport(routedCtx(), "admin@uni.edu", nil)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeImportEmpty, appErr.Code)
}
