package domain

import "time"

// Unit is a teaching unit offered in one semester. Semester-scoped: the same
// unit code may appear in several semester databases with different staffing.
type Unit struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"type:varchar(16);not null;uniqueIndex" json:"code"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Coordinator string    `gorm:"type:varchar(255);not null;default:''" json:"coordinator"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Unit) TableName() string { return "units" }

// Course groups related units for master-EOI purposes (a tutor registers
// interest in a course once, then applies per unit per semester).
type Course struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(16);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

// Tutor is the per-semester record of a person who may be allocated to
// classes in this semester. Tutors are keyed by email and mirror users from
// the default database; a tutor row exists in a semester database only once
// that person has submitted an EOI or been assigned there.
type Tutor struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName  string    `gorm:"column:full_name;type:varchar(255);not null" json:"full_name"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tutor) TableName() string { return "tutors" }

// Weekday is the ISO day-of-week of a scheduled class, Monday=1.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// MasterClassTime is a slot in the master schedule for a unit: a repeating
// weekly session with a day, start and end time, and required tutor count.
type MasterClassTime struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID     uint      `gorm:"column:unit_id;not null;index" json:"unit_id"`
	Unit       *Unit     `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	ClassType  string    `gorm:"column:class_type;type:varchar(32);not null" json:"class_type"`
	Day        Weekday   `gorm:"not null" json:"day"`
	StartTime  string    `gorm:"column:start_time;type:varchar(5);not null" json:"start_time"` // "HH:MM"
	EndTime    string    `gorm:"column:end_time;type:varchar(5);not null" json:"end_time"`
	Location   string    `gorm:"type:varchar(128);not null;default:''" json:"location"`
	TutorsNeed int       `gorm:"column:tutors_need;not null;default:1" json:"tutors_need"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (MasterClassTime) TableName() string { return "master_class_times" }

// Overlaps reports whether two weekly slots collide: same day with
// intersecting half-open time ranges. Times compare lexicographically
// because they are zero-padded "HH:MM".
func (m *MasterClassTime) Overlaps(other *MasterClassTime) bool {
	if m.Day != other.Day {
		return false
	}
	return m.StartTime < other.EndTime && m.EndTime > other.StartTime
}
