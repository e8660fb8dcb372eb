package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

func TestUserService_AuthenticateRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewUserService(store.Default())
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin@uni.edu", "Admin", "correct horse battery", domain.RoleAdmin)
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "admin@uni.edu", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = svc.Authenticate(ctx, "admin@uni.edu", "wrong")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAuthFailed, appErr.Code)

	// Unknown accounts fail with the same code as bad passwords.
	_, err = svc.Authenticate(ctx, "ghost@uni.edu", "whatever")
	require.Error(t, err)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAuthFailed, appErr.Code)
}

func TestSessionService_SelectView(t *testing.T) {
	store, _ := newTestStore(t)
	users := NewUserService(store.Default())
	sessions := NewSessionService(store.Default(), store, config.SessionConfig{Lifetime: time.Hour})
	ctx := context.Background()

	user, err := users.Create(ctx, "tutor@uni.edu", "Tutor", "pw12345678", domain.RoleTutor)
	require.NoError(t, err)

	session, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, session.ViewAlias)

	// Only registered aliases can be viewed.
	_, err = sessions.SelectView(ctx, session.ID, "sem_1999_s1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnknownAlias, appErr.Code)

	updated, err := sessions.SelectView(ctx, session.ID, testAlias)
	require.NoError(t, err)
	assert.Equal(t, testAlias, updated.ViewAlias)

	// Clearing the view returns the session to current-semester reads.
	updated, err = sessions.SelectView(ctx, session.ID, "")
	require.NoError(t, err)
	assert.Empty(t, updated.ViewAlias)
}

func TestSessionService_PruneExpired(t *testing.T) {
	store, _ := newTestStore(t)
	users := NewUserService(store.Default())
	sessions := NewSessionService(store.Default(), store, config.SessionConfig{Lifetime: -time.Minute})
	ctx := context.Background()

	user, err := users.Create(ctx, "tutor@uni.edu", "Tutor", "pw12345678", domain.RoleTutor)
	require.NoError(t, err)

	session, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	_, err = sessions.Get(ctx, session.ID)
	require.Error(t, err, "expired session must not resolve")

	pruned, err := sessions.PruneExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func TestSessionService_ClearViewsOf(t *testing.T) {
	store, _ := newTestStore(t)
	users := NewUserService(store.Default())
	sessions := NewSessionService(store.Default(), store, config.SessionConfig{Lifetime: time.Hour})
	ctx := context.Background()

	user, err := users.Create(ctx, "tutor@uni.edu", "Tutor", "pw12345678", domain.RoleTutor)
	require.NoError(t, err)
	session, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	_, err = sessions.SelectView(ctx, session.ID, testAlias)
	require.NoError(t, err)

	cleared, err := sessions.ClearViewsOf(ctx, testAlias)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ViewAlias)
}
