package domain

import (
	"time"

	"tutorplan.io/tutorplan/internal/scd"
)

// EOIApplication is a tutor's expression of interest in tutoring one unit
// for the current semester. Versioned: resubmitting for the same tutor/unit
// closes the previous version and inserts the next one, so the full
// application history is queryable.
//
// The logical identity (tutor email + unit) maps to one business key; the
// service layer looks up the business key of the current row before
// resubmission so versions chain instead of forking.
type EOIApplication struct {
	scd.Revision

	TutorEmail string `gorm:"column:tutor_email;type:varchar(255);not null;index" json:"tutor_email"`
	TutorName  string `gorm:"column:tutor_name;type:varchar(255);not null" json:"tutor_name"`
	UnitID     uint   `gorm:"column:unit_id;not null;index" json:"unit_id"`
	Unit       *Unit  `gorm:"foreignKey:UnitID" json:"unit,omitempty"`

	// Preference ranks this unit among the tutor's applications, 1 = most
	// preferred. Zero means unranked and is skipped by auto-allocation.
	Preference int `gorm:"not null;default:0" json:"preference"`

	Availability string `gorm:"type:text;not null;default:''" json:"availability"`
	Experience   string `gorm:"type:text;not null;default:''" json:"experience"`
	HoursWanted  int    `gorm:"column:hours_wanted;not null;default:0" json:"hours_wanted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EOIApplication) TableName() string { return "eoi_applications" }

// MasterEOI is a tutor's standing registration of interest in a course,
// ahead of per-unit applications. Versioned like EOIApplication.
type MasterEOI struct {
	scd.Revision

	TutorEmail string  `gorm:"column:tutor_email;type:varchar(255);not null;index" json:"tutor_email"`
	TutorName  string  `gorm:"column:tutor_name;type:varchar(255);not null" json:"tutor_name"`
	CourseID   uint    `gorm:"column:course_id;not null;index" json:"course_id"`
	Course     *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`

	Qualifications string `gorm:"type:text;not null;default:''" json:"qualifications"`
	MaxHours       int    `gorm:"column:max_hours;not null;default:0" json:"max_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MasterEOI) TableName() string { return "master_eois" }
