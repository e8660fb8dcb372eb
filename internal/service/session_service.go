package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// SessionService manages server-side sessions on the default database. A
// session's view alias scopes the holder's semester-scoped reads; writes
// are unaffected.
type SessionService struct {
	db    *gorm.DB
	store *datastore.Store
	cfg   config.SessionConfig
}

// NewSessionService creates a SessionService.
func NewSessionService(db *gorm.DB, store *datastore.Store, cfg config.SessionConfig) *SessionService {
	return &SessionService{db: db, store: store, cfg: cfg}
}

// Create opens a session for the user.
func (s *SessionService) Create(ctx context.Context, userID uint) (*domain.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	session := &domain.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.cfg.Lifetime),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get returns a live session; expired sessions are treated as missing.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeTokenInvalid, "session not found", http.StatusUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.Expired(time.Now().UTC()) {
		return nil, apperrors.New(apperrors.CodeTokenExpired, "session expired", http.StatusUnauthorized)
	}
	return &session, nil
}

// SelectView points the session's reads at a registered semester alias.
// Empty alias returns the session to current-semester reads. The alias must
// exist in the runtime registry: selecting an unregistered semester is an
// error, not a silent fallback.
func (s *SessionService) SelectView(ctx context.Context, id uuid.UUID, alias string) (*domain.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alias != "" && !s.store.Has(alias) {
		return nil, apperrors.ErrUnknownAliasf(alias)
	}
	session.ViewAlias = alias
	if err := s.db.WithContext(ctx).Model(session).Update("view_alias", alias).Error; err != nil {
		return nil, fmt.Errorf("update session view: %w", err)
	}
	return session, nil
}

// Delete ends a session. Missing sessions are fine; logout is idempotent.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PruneExpired removes sessions past their expiry, returning the count.
// Called from the periodic cleanup job.
func (s *SessionService) PruneExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&domain.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearViewsOf resets the view alias on every session pointing at alias.
// Called when a semester is dropped so stale views never outlive their
// database.
func (s *SessionService) ClearViewsOf(ctx context.Context, alias string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("view_alias = ?", alias).
		Update("view_alias", "")
	if res.Error != nil {
		return 0, fmt.Errorf("clear session views of %s: %w", alias, res.Error)
	}
	return res.RowsAffected, nil
}
