// Package domain provides the domain models for TutorPlan.
//
// Models are split into two groups: registry entities that live on the
// default database (semesters, users, sessions, import batches) and
// semester-scoped entities that live on exactly one per-semester database
// (units, timetable, EOI, allocations). The datastore package enforces the
// split at routing and migration time.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Term identifies a teaching period within a year.
type Term string

const (
	TermS1 Term = "S1" // first semester
	TermS2 Term = "S2" // second semester
	TermS3 Term = "S3" // summer school
	TermS4 Term = "S4" // winter school
)

// ValidTerm reports whether t is one of the recognised teaching periods.
func ValidTerm(t Term) bool {
	switch t {
	case TermS1, TermS2, TermS3, TermS4:
		return true
	}
	return false
}

// Semester is a registry row on the default database describing one
// per-semester physical database. At most one row has IsCurrent set.
type Semester struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Year      int       `gorm:"not null;uniqueIndex:ux_semesters_year_term,priority:1" json:"year"`
	Term      Term      `gorm:"type:varchar(8);not null;uniqueIndex:ux_semesters_year_term,priority:2" json:"term"`
	Alias     string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"alias"`
	DBName    string    `gorm:"column:db_name;type:varchar(128);not null;uniqueIndex" json:"db_name"`
	IsCurrent bool      `gorm:"column:is_current;not null;default:false" json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Semester) TableName() string { return "semesters" }

// Label renders the human-readable semester name, e.g. "2026 S1".
func (s *Semester) Label() string { return fmt.Sprintf("%d %s", s.Year, s.Term) }

// AliasFor derives the stable routing alias for a year/term pair.
// Aliases are logical names; they never change even if the physical
// database name prefix does.
func AliasFor(year int, term Term) string {
	return fmt.Sprintf("sem_%d_%s", year, strings.ToLower(string(term)))
}

// DBNameFor derives the physical database name for a year/term pair under
// the configured prefix.
func DBNameFor(prefix string, year int, term Term) string {
	return fmt.Sprintf("%s%d_%s", prefix, year, strings.ToLower(string(term)))
}
