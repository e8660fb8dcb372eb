package domain

import "time"

// TimeTable is a concrete teaching session generated from the master
// schedule: one row per master slot per teaching week is not materialised,
// the session stands for the weekly slot and carries allocation state.
type TimeTable struct {
	ID            uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterClassID uint             `gorm:"column:master_class_id;not null;uniqueIndex" json:"master_class_id"`
	MasterClass   *MasterClassTime `gorm:"foreignKey:MasterClassID" json:"master_class,omitempty"`
	UnitID        uint             `gorm:"column:unit_id;not null;index" json:"unit_id"`
	Unit          *Unit            `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (TimeTable) TableName() string { return "timetables" }

// AllocationStatus is the review state of a tutor-to-session assignment.
type AllocationStatus string

const (
	AllocationProposed AllocationStatus = "PROPOSED" // produced by auto-allocation, pending review
	AllocationApproved AllocationStatus = "APPROVED" // confirmed by an admin
)

// Allocation assigns one tutor to one timetable session. A tutor holds at
// most one allocation per session; clashing sessions for the same tutor are
// rejected at assignment time.
type Allocation struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	TimeTableID uint             `gorm:"column:timetable_id;not null;uniqueIndex:ux_allocations_session_tutor,priority:1" json:"timetable_id"`
	TimeTable   *TimeTable       `gorm:"foreignKey:TimeTableID" json:"timetable,omitempty"`
	TutorID     uint             `gorm:"column:tutor_id;not null;uniqueIndex:ux_allocations_session_tutor,priority:2;index" json:"tutor_id"`
	Tutor       *Tutor           `gorm:"foreignKey:TutorID" json:"tutor,omitempty"`
	Status      AllocationStatus `gorm:"type:varchar(16);not null;default:'PROPOSED'" json:"status"`
	AssignedBy  string           `gorm:"column:assigned_by;type:varchar(255);not null;default:''" json:"assigned_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Allocation) TableName() string { return "allocations" }
