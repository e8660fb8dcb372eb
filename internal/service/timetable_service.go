package service

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// MasterSlot is one weekly slot in a unit's master schedule as supplied by
// an admin or the seeder.
type MasterSlot struct {
	ClassType  string         `json:"class_type" yaml:"class_type"`
	Day        domain.Weekday `json:"day" yaml:"day"`
	StartTime  string         `json:"start_time" yaml:"start_time"`
	EndTime    string         `json:"end_time" yaml:"end_time"`
	Location   string         `json:"location" yaml:"location"`
	TutorsNeed int            `json:"tutors_need" yaml:"tutors_need"`
}

// TimetableService manages units, courses and the master schedule of the
// current semester.
type TimetableService struct {
	store *datastore.Store
}

// NewTimetableService creates a TimetableService.
func NewTimetableService(store *datastore.Store) *TimetableService {
	return &TimetableService{store: store}
}

// UpsertUnit creates or updates a unit by code.
func (s *TimetableService) UpsertUnit(ctx context.Context, code, name, coordinator string) (*domain.Unit, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}
	unit := &domain.Unit{Code: code}
	err = db.WithContext(ctx).
		Where(&domain.Unit{Code: code}).
		Assign(map[string]interface{}{"name": name, "coordinator": coordinator}).
		FirstOrCreate(unit).Error
	if err != nil {
		return nil, fmt.Errorf("upsert unit %s: %w", code, err)
	}
	return unit, nil
}

// ListUnits returns all units of the read semester, by code.
func (s *TimetableService) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}
	var out []*domain.Unit
	if err := db.WithContext(ctx).Order("code ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return out, nil
}

// UpsertCourse creates or updates a course by code.
func (s *TimetableService) UpsertCourse(ctx context.Context, code, name string) (*domain.Course, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}
	course := &domain.Course{Code: code}
	err = db.WithContext(ctx).
		Where(&domain.Course{Code: code}).
		Assign(map[string]interface{}{"name": name}).
		FirstOrCreate(course).Error
	if err != nil {
		return nil, fmt.Errorf("upsert course %s: %w", code, err)
	}
	return course, nil
}

// SetMasterSchedule replaces the master schedule of a unit and keeps one
// timetable session per master slot. Existing allocations survive only for
// slots that remain; removed slots cascade through session deletion.
func (s *TimetableService) SetMasterSchedule(ctx context.Context, unitCode string, slots []MasterSlot) ([]*domain.MasterClassTime, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}
	unit, err := unitByCode(ctx, db, unitCode)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if !validSlot(slot) {
			return nil, apperrors.New(apperrors.CodeValidationFailed, "invalid schedule slot", http.StatusBadRequest).
				WithParams(map[string]interface{}{
					"day":        int(slot.Day),
					"start_time": slot.StartTime,
					"end_time":   slot.EndTime,
				})
		}
	}

	var out []*domain.MasterClassTime
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Drop sessions and allocations of slots being replaced, then the
		// slots themselves.
		var oldIDs []uint
		if err := tx.Model(&domain.MasterClassTime{}).
			Where("unit_id = ?", unit.ID).
			Pluck("id", &oldIDs).Error; err != nil {
			return err
		}
		if len(oldIDs) > 0 {
			var sessionIDs []uint
			if err := tx.Model(&domain.TimeTable{}).
				Where("master_class_id IN ?", oldIDs).
				Pluck("id", &sessionIDs).Error; err != nil {
				return err
			}
			if len(sessionIDs) > 0 {
				if err := tx.Where("timetable_id IN ?", sessionIDs).
					Delete(&domain.Allocation{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", sessionIDs).
					Delete(&domain.TimeTable{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("id IN ?", oldIDs).
				Delete(&domain.MasterClassTime{}).Error; err != nil {
				return err
			}
		}

		for _, slot := range slots {
			mct := &domain.MasterClassTime{
				UnitID:     unit.ID,
				ClassType:  slot.ClassType,
				Day:        slot.Day,
				StartTime:  slot.StartTime,
				EndTime:    slot.EndTime,
				Location:   slot.Location,
				TutorsNeed: slot.TutorsNeed,
			}
			if mct.TutorsNeed < 1 {
				mct.TutorsNeed = 1
			}
			if err := tx.Create(mct).Error; err != nil {
				return err
			}
			session := &domain.TimeTable{MasterClassID: mct.ID, UnitID: unit.ID}
			if err := tx.Create(session).Error; err != nil {
				return err
			}
			out = append(out, mct)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set master schedule for %s: %w", unitCode, err)
	}
	return out, nil
}

// ListSessions returns the timetable sessions of a unit ("" for all units)
// with master slots preloaded.
func (s *TimetableService) ListSessions(ctx context.Context, unitCode string) ([]*domain.TimeTable, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}

	q := db.WithContext(ctx).
		Preload("MasterClass").
		Preload("Unit")
	if unitCode != "" {
		unit, err := unitByCode(ctx, db, unitCode)
		if err != nil {
			return nil, err
		}
		q = q.Where("unit_id = ?", unit.ID)
	}

	var out []*domain.TimeTable
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func validSlot(slot MasterSlot) bool {
	if slot.Day < domain.Monday || slot.Day > domain.Sunday {
		return false
	}
	if len(slot.StartTime) != 5 || len(slot.EndTime) != 5 {
		return false
	}
	return slot.StartTime < slot.EndTime
}
