package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorisation level of a user.
type Role string

const (
	RoleAdmin       Role = "admin"       // department admins: semester lifecycle, allocation
	RoleCoordinator Role = "coordinator" // unit coordinators: EOI review, manual assignment
	RoleTutor       Role = "tutor"       // tutors: EOI submission, own timetable
)

// User is an account on the default database. Users exist independently of
// any semester; per-semester tutor records reference them by email.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName     string    `gorm:"column:full_name;type:varchar(255);not null" json:"full_name"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(32);not null;default:'tutor'" json:"role"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Session is a server-side login session on the default database. The
// ViewAlias, when set, scopes the session's reads to a non-current semester
// database; writes always go to the current semester regardless.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ViewAlias string    `gorm:"column:view_alias;type:varchar(64);not null;default:''" json:"view_alias"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// ImportBatchStatus tracks the lifecycle of a bulk EOI import.
type ImportBatchStatus string

const (
	ImportBatchPending   ImportBatchStatus = "PENDING"
	ImportBatchRunning   ImportBatchStatus = "RUNNING"
	ImportBatchCompleted ImportBatchStatus = "COMPLETED"
	ImportBatchFailed    ImportBatchStatus = "FAILED"
)

// ImportBatch is the claim-check record for a bulk EOI import: the HTTP
// handler stores the full payload here and enqueues only the batch ID; the
// background worker fetches the payload by ID and replays each row through
// the versioning engine.
type ImportBatch struct {
	ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmittedBy string            `gorm:"column:submitted_by;type:varchar(255);not null" json:"submitted_by"`
	Payload     []byte            `gorm:"type:jsonb;not null" json:"-"`
	Status      ImportBatchStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	RowCount    int               `gorm:"column:row_count;not null;default:0" json:"row_count"`
	FailedRows  int               `gorm:"column:failed_rows;not null;default:0" json:"failed_rows"`
	Error       string            `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (ImportBatch) TableName() string { return "import_batches" }

// AuditEntry records destructive or administrative actions on the default
// database. Semester drops in particular must leave a trace after the
// semester database itself is gone.
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Actor     string    `gorm:"type:varchar(255);not null" json:"actor"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"`
	Target    string    `gorm:"type:varchar(255);not null" json:"target"`
	Detail    string    `gorm:"type:text;not null;default:''" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_entries" }

const (
	AuditActionSemesterCreate  = "SEMESTER_CREATE"
	AuditActionSemesterDrop    = "SEMESTER_DROP"
	AuditActionSemesterPromote = "SEMESTER_PROMOTE"
)
