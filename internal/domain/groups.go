package domain

// DefaultModels lists the entities that live on the default (registry)
// database and nowhere else.
func DefaultModels() []interface{} {
	return []interface{}{
		&Semester{},
		&User{},
		&Session{},
		&ImportBatch{},
		&AuditEntry{},
	}
}

// SemesterModels lists the entities that live on per-semester databases and
// nowhere else. The migrator applies these only to semester databases.
func SemesterModels() []interface{} {
	return []interface{}{
		&Unit{},
		&Course{},
		&Tutor{},
		&MasterClassTime{},
		&TimeTable{},
		&Allocation{},
		&EOIApplication{},
		&MasterEOI{},
	}
}

// VersionedTables lists the semester tables under SCD-II control; each gets
// the partial unique current-row index at migration time.
func VersionedTables() []string {
	return []string{
		EOIApplication{}.TableName(),
		MasterEOI{}.TableName(),
	}
}
