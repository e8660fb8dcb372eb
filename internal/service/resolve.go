package service

import (
	"context"

	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/datastore"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/semester/semesterctx"
)

// semesterRead resolves the database for a semester-scoped read: the
// session's view alias when one is selected, otherwise the write alias.
// Aliases captured by the routing middleware at request start are
// authoritative for the whole request; the store's live current pointer is
// consulted only for callers with no request routing context (jobs).
func semesterRead(ctx context.Context, store *datastore.Store) (*gorm.DB, error) {
	a, ok := semesterctx.From(ctx)
	if !ok {
		return store.Resolve(datastore.OpRead, datastore.GroupSemester, "")
	}
	if view := a.ViewAlias(); view != "" {
		if db, ok := store.Get(view); ok {
			return db, nil
		}
		// A view pointing at a dropped semester falls back to the write
		// alias rather than failing the read.
	}
	return pinnedHandle(store, a.Write)
}

// semesterWrite resolves the database for a semester-scoped write: always
// the write alias, never the view.
func semesterWrite(ctx context.Context, store *datastore.Store) (*gorm.DB, error) {
	a, ok := semesterctx.From(ctx)
	if !ok {
		return store.Resolve(datastore.OpWrite, datastore.GroupSemester, "")
	}
	return pinnedHandle(store, a.Write)
}

// pinnedHandle returns the handle for an alias resolved at request start. A
// promotion that lands mid-request must not redirect the remainder of the
// request's traffic, so the store's current pointer is deliberately not
// re-read here.
func pinnedHandle(store *datastore.Store, alias string) (*gorm.DB, error) {
	if alias == "" {
		return nil, apperrors.ErrNoCurrentSemesterf()
	}
	db, ok := store.Get(alias)
	if !ok {
		return nil, apperrors.ErrRegistryUnreadyf()
	}
	return db, nil
}
