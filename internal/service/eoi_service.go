package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/scd"
)

// EOISubmission is one expression of interest as submitted by a tutor or an
// import row.
type EOISubmission struct {
	TutorEmail   string `json:"tutor_email" yaml:"tutor_email"`
	TutorName    string `json:"tutor_name" yaml:"tutor_name"`
	UnitCode     string `json:"unit_code" yaml:"unit_code"`
	Preference   int    `json:"preference" yaml:"preference"`
	Availability string `json:"availability" yaml:"availability"`
	Experience   string `json:"experience" yaml:"experience"`
	HoursWanted  int    `json:"hours_wanted" yaml:"hours_wanted"`
}

// MasterEOISubmission is a standing course-level registration of interest.
type MasterEOISubmission struct {
	TutorEmail     string `json:"tutor_email"`
	TutorName      string `json:"tutor_name"`
	CourseCode     string `json:"course_code"`
	Qualifications string `json:"qualifications"`
	MaxHours       int    `json:"max_hours"`
}

// ImportEnqueuer inserts an EOI import job; satisfied by the jobs module.
// The service stays decoupled from River so it can be tested without a
// queue.
type ImportEnqueuer interface {
	EnqueueEOIImport(ctx context.Context, batchID uint) error
}

// EOIService handles expression-of-interest submission and history. All
// writes route to the current semester through the SCD engine; reads honour
// the caller's view alias.
type EOIService struct {
	store    *datastore.Store
	enqueuer ImportEnqueuer
}

// NewEOIService creates an EOIService. enqueuer may be nil when imports are
// disabled (seeding).
func NewEOIService(store *datastore.Store, enqueuer ImportEnqueuer) *EOIService {
	return &EOIService{store: store, enqueuer: enqueuer}
}

// Submit records one expression of interest as the next version of the
// tutor's application for that unit, creating the per-semester tutor row on
// first contact.
func (s *EOIService) Submit(ctx context.Context, sub EOISubmission) (*domain.EOIApplication, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return s.submitOn(ctx, db, sub)
}

// submitOn runs the submission against an explicit database handle; the
// import worker uses it to pin a whole batch to one semester database.
func (s *EOIService) submitOn(ctx context.Context, db *gorm.DB, sub EOISubmission) (*domain.EOIApplication, error) {
	unit, err := unitByCode(ctx, db, sub.UnitCode)
	if err != nil {
		return nil, err
	}
	if err := ensureTutor(ctx, db, sub.TutorEmail, sub.TutorName); err != nil {
		return nil, err
	}

	app := &domain.EOIApplication{
		TutorEmail:   sub.TutorEmail,
		TutorName:    sub.TutorName,
		UnitID:       unit.ID,
		Preference:   sub.Preference,
		Availability: sub.Availability,
		Experience:   sub.Experience,
		HoursWanted:  sub.HoursWanted,
	}

	// Resubmission for the same tutor/unit continues the existing version
	// chain rather than starting a new one.
	key, err := currentBusinessKey(ctx, db, &domain.EOIApplication{},
		"tutor_email = ? AND unit_id = ?", sub.TutorEmail, unit.ID)
	if err != nil {
		return nil, err
	}
	app.BusinessKey = key

	if err := scd.Submit(ctx, db, app); err != nil {
		return nil, fmt.Errorf("submit eoi for %s/%s: %w", sub.TutorEmail, sub.UnitCode, err)
	}
	return app, nil
}

// SubmitMaster records a course-level registration of interest, versioned
// per tutor/course.
func (s *EOIService) SubmitMaster(ctx context.Context, sub MasterEOISubmission) (*domain.MasterEOI, error) {
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return nil, err
	}

	var course domain.Course
	err = db.WithContext(ctx).Where("code = ?", sub.CourseCode).Take(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeUnitNotFound, "course not found", http.StatusNotFound).
			WithParams(map[string]interface{}{"course_code": sub.CourseCode})
	}
	if err != nil {
		return nil, fmt.Errorf("lookup course %s: %w", sub.CourseCode, err)
	}
	if err := ensureTutor(ctx, db, sub.TutorEmail, sub.TutorName); err != nil {
		return nil, err
	}

	m := &domain.MasterEOI{
		TutorEmail:     sub.TutorEmail,
		TutorName:      sub.TutorName,
		CourseID:       course.ID,
		Qualifications: sub.Qualifications,
		MaxHours:       sub.MaxHours,
	}
	key, err := currentBusinessKey(ctx, db, &domain.MasterEOI{},
		"tutor_email = ? AND course_id = ?", sub.TutorEmail, course.ID)
	if err != nil {
		return nil, err
	}
	m.BusinessKey = key

	if err := scd.Submit(ctx, db, m); err != nil {
		return nil, fmt.Errorf("submit master eoi for %s/%s: %w", sub.TutorEmail, sub.CourseCode, err)
	}
	return m, nil
}

// ListCurrentByUnit returns the current version of every application for a
// unit, most preferred first.
func (s *EOIService) ListCurrentByUnit(ctx context.Context, unitCode string) ([]*domain.EOIApplication, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}
	unit, err := unitByCode(ctx, db, unitCode)
	if err != nil {
		return nil, err
	}

	var out []*domain.EOIApplication
	err = db.WithContext(ctx).
		Where("unit_id = ? AND is_current = ?", unit.ID, true).
		Order("preference ASC, tutor_email ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list eois for %s: %w", unitCode, err)
	}
	return out, nil
}

// History returns every version of one application, oldest first.
func (s *EOIService) History(ctx context.Context, businessKey uuid.UUID) ([]*domain.EOIApplication, error) {
	db, err := semesterRead(ctx, s.store)
	if err != nil {
		return nil, err
	}
	var out []*domain.EOIApplication
	err = db.WithContext(ctx).
		Where("business_key = ?", businessKey).
		Order("version ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("eoi history %s: %w", businessKey, err)
	}
	if len(out) == 0 {
		return nil, apperrors.New(apperrors.CodeEOINotFound, "no application under this key", http.StatusNotFound)
	}
	return out, nil
}

// EnqueueImport stores the full import payload as a claim check on the
// default database and enqueues only the batch ID. The worker replays each
// row through Submit against the semester current at processing time.
func (s *EOIService) EnqueueImport(ctx context.Context, submittedBy string, rows []EOISubmission) (*domain.ImportBatch, error) {
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.CodeImportEmpty, "import has no rows", http.StatusBadRequest)
	}
	// Fail before persisting anything if no semester can receive the rows.
	if _, err := semesterWrite(ctx, s.store); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal import payload: %w", err)
	}
	batch := &domain.ImportBatch{
		SubmittedBy: submittedBy,
		Payload:     payload,
		Status:      domain.ImportBatchPending,
		RowCount:    len(rows),
	}
	if err := s.store.Default().WithContext(ctx).Create(batch).Error; err != nil {
		return nil, fmt.Errorf("create import batch: %w", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueEOIImport(ctx, batch.ID); err != nil {
			return nil, fmt.Errorf("enqueue import batch %d: %w", batch.ID, err)
		}
	}
	return batch, nil
}

// GetImport returns one import batch by ID.
func (s *EOIService) GetImport(ctx context.Context, id uint) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	err := s.store.Default().WithContext(ctx).Where("id = ?", id).Take(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeImportNotFound, "import batch not found", http.StatusNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup import batch %d: %w", id, err)
	}
	return &batch, nil
}

// RunImport processes a stored batch row by row. Called by the background
// worker; per-row failures are counted, not fatal, so one bad row cannot
// wedge a whole batch.
func (s *EOIService) RunImport(ctx context.Context, batchID uint) error {
	defaultDB := s.store.Default()

	var batch domain.ImportBatch
	if err := defaultDB.WithContext(ctx).Where("id = ?", batchID).Take(&batch).Error; err != nil {
		return fmt.Errorf("load import batch %d: %w", batchID, err)
	}

	var rows []EOISubmission
	if err := json.Unmarshal(batch.Payload, &rows); err != nil {
		return s.finishImport(ctx, &batch, domain.ImportBatchFailed, 0, fmt.Sprintf("decode payload: %v", err))
	}

	if err := defaultDB.WithContext(ctx).Model(&batch).
		Update("status", domain.ImportBatchRunning).Error; err != nil {
		return fmt.Errorf("mark batch %d running: %w", batchID, err)
	}

	// Pin the whole batch to the semester current at processing time.
	db, err := semesterWrite(ctx, s.store)
	if err != nil {
		return s.finishImport(ctx, &batch, domain.ImportBatchFailed, 0, err.Error())
	}

	failed := 0
	var firstErr string
	for _, row := range rows {
		if _, err := s.submitOn(ctx, db, row); err != nil {
			failed++
			if firstErr == "" {
				firstErr = err.Error()
			}
		}
	}

	status := domain.ImportBatchCompleted
	if failed == len(rows) {
		status = domain.ImportBatchFailed
	}
	return s.finishImport(ctx, &batch, status, failed, firstErr)
}

func (s *EOIService) finishImport(ctx context.Context, batch *domain.ImportBatch, status domain.ImportBatchStatus, failed int, errMsg string) error {
	err := s.store.Default().WithContext(ctx).Model(batch).Updates(map[string]interface{}{
		"status":      status,
		"failed_rows": failed,
		"error":       errMsg,
	}).Error
	if err != nil {
		return fmt.Errorf("finish import batch %d: %w", batch.ID, err)
	}
	return nil
}

// currentBusinessKey returns the business key of the current row matching
// the condition, or a fresh key when the logical record does not exist yet.
func currentBusinessKey(ctx context.Context, db *gorm.DB, model interface{}, cond string, args ...interface{}) (uuid.UUID, error) {
	var keys []uuid.UUID
	err := db.WithContext(ctx).Model(model).
		Where("is_current = ?", true).
		Where(cond, args...).
		Limit(1).
		Pluck("business_key", &keys).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup business key: %w", err)
	}
	if len(keys) == 0 {
		return uuid.Nil, nil
	}
	return keys[0], nil
}

func unitByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.WithContext(ctx).Where("code = ?", code).Take(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeUnitNotFound, "unit not found", http.StatusNotFound).
			WithParams(map[string]interface{}{"unit_code": code})
	}
	if err != nil {
		return nil, fmt.Errorf("lookup unit %s: %w", code, err)
	}
	return &unit, nil
}

func ensureTutor(ctx context.Context, db *gorm.DB, email, name string) error {
	tutor := &domain.Tutor{Email: email, FullName: name, IsActive: true}
	err := db.WithContext(ctx).
		Where(&domain.Tutor{Email: email}).
		FirstOrCreate(tutor).Error
	if err != nil {
		return fmt.Errorf("ensure tutor %s: %w", email, err)
	}
	return nil
}
