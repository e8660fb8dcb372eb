// Package semester manages the per-semester database lifecycle: the
// registry of known semesters on the default database, boot-time hydration
// of live connections, provisioning of new physical databases, promotion of
// the current semester, and drops.
package semester

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// Registry reads and writes semester rows on the default database. It knows
// nothing about live connections; that is the hydrator's job.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a Registry over the default database.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// List returns all registered semesters, newest first.
func (r *Registry) List(ctx context.Context) ([]*domain.Semester, error) {
	var out []*domain.Semester
	err := r.db.WithContext(ctx).
		Order("year DESC, term DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return out, nil
}

// GetByAlias returns the semester registered under alias.
func (r *Registry) GetByAlias(ctx context.Context, alias string) (*domain.Semester, error) {
	var sem domain.Semester
	err := r.db.WithContext(ctx).Where("alias = ?", alias).Take(&sem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnknownAliasf(alias)
	}
	if err != nil {
		return nil, fmt.Errorf("get semester %s: %w", alias, err)
	}
	return &sem, nil
}

// Current returns the semester flagged current, or an error when none is.
func (r *Registry) Current(ctx context.Context) (*domain.Semester, error) {
	var sem domain.Semester
	err := r.db.WithContext(ctx).Where("is_current = ?", true).Take(&sem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNoCurrentSemesterf()
	}
	if err != nil {
		return nil, fmt.Errorf("get current semester: %w", err)
	}
	return &sem, nil
}

// Create registers a semester row. Idempotent on (year, term): an existing
// row is returned unchanged.
func (r *Registry) Create(ctx context.Context, sem *domain.Semester) (*domain.Semester, error) {
	err := r.db.WithContext(ctx).
		Where(&domain.Semester{Year: sem.Year, Term: sem.Term}).
		FirstOrCreate(sem).Error
	if err != nil {
		return nil, fmt.Errorf("register semester %s: %w", sem.Alias, err)
	}
	return sem, nil
}

// Promote marks the semester with the given alias as current. Demote-all
// then promote-one in a single transaction, so exactly one row is current
// afterwards no matter what state the table was in.
func (r *Registry) Promote(ctx context.Context, alias string) (*domain.Semester, error) {
	var sem domain.Semester
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alias = ?", alias).Take(&sem).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUnknownAliasf(alias)
			}
			return err
		}
		if err := tx.Model(&domain.Semester{}).
			Where("is_current = ?", true).
			Update("is_current", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Semester{}).
			Where("alias = ?", alias).
			Update("is_current", true).Error; err != nil {
			return err
		}
		sem.IsCurrent = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sem, nil
}

// Delete removes the registry row for alias. The physical database is the
// provisioner's responsibility.
func (r *Registry) Delete(ctx context.Context, alias string) error {
	res := r.db.WithContext(ctx).Where("alias = ?", alias).Delete(&domain.Semester{})
	if res.Error != nil {
		return fmt.Errorf("delete semester %s: %w", alias, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUnknownAliasf(alias)
	}
	return nil
}
