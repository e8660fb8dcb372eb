package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/pkg/worker"
)

// AllocationService assigns tutors to timetable sessions, manually and by
// preference-driven auto-allocation.
type AllocationService struct {
	store *datastore.Store
	pools *worker.Pools
}

// NewAllocationService creates an AllocationService. pools may be nil; the
// auto-allocation sweep then runs units sequentially.
func NewAllocationService(store *datastore.Store, pools *worker.Pools) *AllocationService {
	return &AllocationService{store: store, pools: pools}
}

// AutoAllocateResult summarises one auto-allocation sweep.
type AutoAllocateResult struct {
	UnitsProcessed int `json:"units_processed"`
	Assigned       int `json:"assigned"`
	Skipped        int `json:"skipped"` // sessions already fully staffed
}

// ManualAssign assigns one tutor to one session after checking for clashes
// with the tutor's existing assignments. Duplicate assignment of the same
// tutor to the same session is rejected.
func (s *AllocationService) ManualAssign(ctx context.Context, sessionID, tutorID uint, actor string) (*domain.Allocation, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}

	session, err := sessionByID(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}
	var tutor domain.Tutor
	if err := db.WithContext(ctx).Where("id = ?", tutorID).Take(&tutor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeTutorNotFound, "tutor not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("lookup tutor %d: %w", tutorID, err)
	}

	alloc := &domain.Allocation{
		TimeTableID: sessionID,
		TutorID:     tutorID,
		Status:      domain.AllocationApproved,
		AssignedBy:  actor,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.assignInTx(ctx, tx, session, alloc)
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// assignInTx performs the clash check and insert under one transaction so
// two concurrent assignments of the same tutor cannot both pass the check.
func (s *AllocationService) assignInTx(ctx context.Context, tx *gorm.DB, session *domain.TimeTable, alloc *domain.Allocation) error {
	var count int64
	err := tx.Model(&domain.Allocation{}).
		Where("timetable_id = ? AND tutor_id = ?", alloc.TimeTableID, alloc.TutorID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check existing allocation: %w", err)
	}
	if count > 0 {
		return apperrors.New(apperrors.CodeAllocationExists,
			"tutor already assigned to this session", http.StatusConflict)
	}

	clash, err := hasClash(ctx, tx, alloc.TutorID, session.MasterClass)
	if err != nil {
		return err
	}
	if clash {
		return apperrors.New(apperrors.CodeAllocationClash,
			"assignment overlaps another session for this tutor", http.StatusConflict).
			WithParams(map[string]interface{}{
				"tutor_id":   alloc.TutorID,
				"session_id": alloc.TimeTableID,
			})
	}

	if err := tx.Create(alloc).Error; err != nil {
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// AutoAllocate fills under-staffed sessions from current applications,
// most preferred first. Unranked applications (preference 0) are never
// auto-assigned. Idempotent: fully staffed sessions are skipped, existing
// allocations are kept. Units are swept concurrently on the worker pool;
// each unit's assignments run in their own transaction.
func (s *AllocationService) AutoAllocate(ctx context.Context, actor string) (*AutoAllocateResult, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}

	var units []*domain.Unit
	if err := db.WithContext(ctx).Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	result := &AutoAllocateResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	runUnit := func(unit *domain.Unit) {
		assigned, skipped, err := s.allocateUnit(ctx, db, unit, actor)
		if err != nil {
			logger.Error("Auto-allocation failed for unit",
				zap.String("unit_code", unit.Code),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		result.UnitsProcessed++
		result.Assigned += assigned
		result.Skipped += skipped
		mu.Unlock()
	}

	for _, unit := range units {
		unit := unit
		if s.pools == nil {
			runUnit(unit)
			continue
		}
		wg.Add(1)
		if err := s.pools.General.Submit(ctx, func(taskCtx context.Context) {
			defer wg.Done()
			runUnit(unit)
		}); err != nil {
			wg.Done()
			runUnit(unit)
		}
	}
	wg.Wait()

	logger.Info("Auto-allocation sweep finished",
		zap.Int("units", result.UnitsProcessed),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *AllocationService) allocateUnit(ctx context.Context, db *gorm.DB, unit *domain.Unit, actor string) (assigned, skipped int, err error) {
	var sessions []*domain.TimeTable
	err = db.WithContext(ctx).
		Preload("MasterClass").
		Where("unit_id = ?", unit.ID).
		Find(&sessions).Error
	if err != nil {
		return 0, 0, fmt.Errorf("list sessions for %s: %w", unit.Code, err)
	}

	var candidates []*domain.EOIApplication
	err = db.WithContext(ctx).
		Where("unit_id = ? AND is_current = ? AND preference >= 1", unit.ID, true).
		Order("preference ASC, tutor_email ASC").
		Find(&candidates).Error
	if err != nil {
		return 0, 0, fmt.Errorf("list candidates for %s: %w", unit.Code, err)
	}

	for _, session := range sessions {
		if session.MasterClass == nil {
			continue
		}

		var staffed int64
		err = db.WithContext(ctx).Model(&domain.Allocation{}).
			Where("timetable_id = ?", session.ID).
			Count(&staffed).Error
		if err != nil {
			return assigned, skipped, fmt.Errorf("count staffing: %w", err)
		}
		if staffed >= int64(session.MasterClass.TutorsNeed) {
			skipped++
			continue
		}

		need := int(int64(session.MasterClass.TutorsNeed) - staffed)
		for _, cand := range candidates {
			if need == 0 {
				break
			}
			tutor := &domain.Tutor{}
			err := db.WithContext(ctx).Where("email = ?", cand.TutorEmail).Take(tutor).Error
			if err != nil {
				continue
			}
			alloc := &domain.Allocation{
				TimeTableID: session.ID,
				TutorID:     tutor.ID,
				Status:      domain.AllocationProposed,
				AssignedBy:  actor,
			}
			txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return s.assignInTx(ctx, tx, session, alloc)
			})
			if txErr != nil {
				// Clashes and duplicates just mean this candidate cannot
				// take this session; move to the next one.
				if _, ok := apperrors.IsAppError(txErr); ok {
					continue
				}
				return assigned, skipped, txErr
			}
			assigned++
			need--
		}
	}
	return assigned, skipped, nil
}

// ApproveUnit confirms all proposed allocations for a unit.
func (s *AllocationService) ApproveUnit(ctx context.Context, unitCode string) (int64, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return 0, err
	}
	unit, err := unitByCode(ctx, db, unitCode)
	if err != nil {
		return 0, err
	}

	res := db.WithContext(ctx).Model(&domain.Allocation{}).
		Where("status = ? AND timetable_id IN (?)",
			domain.AllocationProposed,
			db.Model(&domain.TimeTable{}).Select("id").Where("unit_id = ?", unit.ID),
		).
		Update("status", domain.AllocationApproved)
	if res.Error != nil {
		return 0, fmt.Errorf("approve allocations for %s: %w", unitCode, res.Error)
	}
	return res.RowsAffected, nil
}

// Remove deletes an allocation.
func (s *AllocationService) Remove(ctx context.Context, allocationID uint) error {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Where("id = ?", allocationID).Delete(&domain.Allocation{})
	if res.Error != nil {
		return fmt.Errorf("delete allocation %d: %w", allocationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeSessionNotFound, "allocation not found", http.StatusNotFound)
	}
	return nil
}

// ListByUnit returns all allocations for a unit with tutors and sessions
// preloaded.
func (s *AllocationService) ListByUnit(ctx context.Context, unitCode string) ([]*domain.Allocation, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}
	unit, err := unitByCode(ctx, db, unitCode)
	if err != nil {
		return nil, err
	}

	var out []*domain.Allocation
	err = db.WithContext(ctx).
		Preload("Tutor").
		Preload("TimeTable").
		Preload("TimeTable.MasterClass").
		Where("timetable_id IN (?)",
			db.Model(&domain.TimeTable{}).Select("id").Where("unit_id = ?", unit.ID),
		).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list allocations for %s: %w", unitCode, err)
	}
	return out, nil
}

// TutorSchedule returns a tutor's allocations with their sessions, for the
// personal timetable view.
func (s *AllocationService) TutorSchedule(ctx context.Context, tutorEmail string) ([]*domain.Allocation, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}
	var tutor domain.Tutor
	if err := db.WithContext(ctx).Where("email = ?", tutorEmail).Take(&tutor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeTutorNotFound, "tutor not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("lookup tutor %s: %w", tutorEmail, err)
	}

	var out []*domain.Allocation
	err = db.WithContext(ctx).
		Preload("TimeTable").
		Preload("TimeTable.MasterClass").
		Preload("TimeTable.Unit").
		Where("tutor_id = ?", tutor.ID).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("tutor schedule %s: %w", tutorEmail, err)
	}
	return out, nil
}

// hasClash reports whether the tutor already holds an allocation whose slot
// overlaps target.
func hasClash(ctx context.Context, db *gorm.DB, tutorID uint, target *domain.MasterClassTime) (bool, error) {
	if target == nil {
		return false, nil
	}
	var existing []*domain.Allocation
	err := db.WithContext(ctx).
		Preload("TimeTable").
		Preload("TimeTable.MasterClass").
		Where("tutor_id = ?", tutorID).
		Find(&existing).Error
	if err != nil {
		return false, fmt.Errorf("list tutor allocations: %w", err)
	}
	for _, alloc := range existing {
		if alloc.TimeTable == nil || alloc.TimeTable.MasterClass == nil {
			continue
		}
		if target.Overlaps(alloc.TimeTable.MasterClass) {
			return true, nil
		}
	}
	return false, nil
}

func sessionByID(ctx context.Context, db *gorm.DB, id uint) (*domain.TimeTable, error) {
	var session domain.TimeTable
	err := db.WithContext(ctx).Preload("MasterClass").Where("id = ?", id).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeSessionNotFound, "session not found", http.StatusNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session %d: %w", id, err)
	}
	return &session, nil
}
