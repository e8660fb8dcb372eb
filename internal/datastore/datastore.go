// Package datastore routes database operations to physical databases.
//
// One registry maps semester aliases to live GORM handles. Reads on
// semester-scoped entities go to the caller's view alias when one is set,
// otherwise to the current semester; writes on semester-scoped entities
// always go to the current semester, so a user browsing an old semester can
// never mutate it. Registry entities route to the default database
// unconditionally.
package datastore

import (
	"sort"
	"sync"

	"gorm.io/gorm"

	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// Operation is the kind of database access being routed.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

// EntityGroup partitions the domain models by home database.
type EntityGroup int

const (
	// GroupDefault entities live on the default (registry) database.
	GroupDefault EntityGroup = iota
	// GroupSemester entities live on per-semester databases.
	GroupSemester
)

// DefaultAlias is the routing alias of the default database.
const DefaultAlias = "default"

// Store is the alias-to-database registry. Safe for concurrent use; the
// hydrator and provisioner mutate it, request handlers only read.
type Store struct {
	mu        sync.RWMutex
	defaultDB *gorm.DB
	semesters map[string]*gorm.DB
	current   string // alias of the current semester, "" if none
}

// New creates a Store with only the default database registered.
func New(defaultDB *gorm.DB) *Store {
	return &Store{
		defaultDB: defaultDB,
		semesters: make(map[string]*gorm.DB),
	}
}

// Default returns the default-database handle.
func (s *Store) Default() *gorm.DB {
	return s.defaultDB
}

// Register adds or replaces a semester database under the given alias.
func (s *Store) Register(alias string, db *gorm.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.semesters[alias] = db
}

// Deregister removes an alias, returning its handle so the caller can close
// it. Clears the current marker if the dropped alias held it.
func (s *Store) Deregister(alias string) (*gorm.DB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.semesters[alias]
	if !ok {
		return nil, false
	}
	delete(s.semesters, alias)
	if s.current == alias {
		s.current = ""
	}
	return db, true
}

// Get returns the handle registered under alias.
func (s *Store) Get(alias string) (*gorm.DB, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, ok := s.semesters[alias]
	return db, ok
}

// Has reports whether alias is registered.
func (s *Store) Has(alias string) bool {
	_, ok := s.Get(alias)
	return ok
}

// SetCurrent marks alias as the current semester. The alias must already be
// registered.
func (s *Store) SetCurrent(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.semesters[alias]; !ok {
		return apperrors.ErrUnknownAliasf(alias)
	}
	s.current = alias
	return nil
}

// ClearCurrent removes the current marker without touching the registry.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
}

// CurrentAlias returns the current semester's alias, or "" when no semester
// is current.
func (s *Store) CurrentAlias() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Aliases returns all registered semester aliases, sorted.
func (s *Store) Aliases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.semesters))
	for alias := range s.semesters {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Resolve routes one operation on one entity group to a database handle.
// viewAlias is the caller's session view ("" means no view is selected);
// it only influences reads on semester-scoped entities.
func (s *Store) Resolve(op Operation, group EntityGroup, viewAlias string) (*gorm.DB, error) {
	if group == GroupDefault {
		return s.defaultDB, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if op == OpRead && viewAlias != "" {
		if db, ok := s.semesters[viewAlias]; ok {
			return db, nil
		}
		// A view pointing at a dropped semester falls through to the
		// current semester rather than failing the read.
	}

	if s.current == "" {
		return nil, apperrors.ErrNoCurrentSemesterf()
	}
	db, ok := s.semesters[s.current]
	if !ok {
		return nil, apperrors.ErrRegistryUnreadyf()
	}
	return db, nil
}

// AllowMigrate is the migration guard: semester-scoped entities may only be
// migrated on semester databases, registry entities only on the default
// database. Keeps a misconfigured migrator from creating semester tables on
// the registry or vice versa.
func AllowMigrate(alias string, group EntityGroup) bool {
	if group == GroupSemester {
		return alias != DefaultAlias
	}
	return alias == DefaultAlias
}
