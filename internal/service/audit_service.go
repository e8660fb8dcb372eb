// Package service holds the business logic on top of the domain models and
// the datastore router. Services take the router, resolve a database per
// call from the request's routing context, and never hold a semester handle
// across calls: the current semester can change underneath a running
// server.
package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/domain"
)

// AuditService records administrative actions on the default database.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates an AuditService over the default database.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one audit entry.
func (s *AuditService) Record(ctx context.Context, actor, action, target, detail string) error {
	entry := &domain.AuditEntry{
		Actor:  actor,
		Action: action,
		Target: target,
		Detail: detail,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record audit entry %s/%s: %w", action, target, err)
	}
	return nil
}

// Recent returns the latest limit audit entries, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*domain.AuditEntry
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}
