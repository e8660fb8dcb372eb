package middleware

import (
	"github.com/gin-gonic/gin"

	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/semester"
	"tutorplan.io/tutorplan/internal/semester/semesterctx"
	"tutorplan.io/tutorplan/internal/service"
)

// SemesterRouting resolves the caller's read and write aliases once per
// request and stashes them in the request context. The write alias is
// always the current semester; the read alias is the session's view when
// one is selected. Runs after JWTAuth so the session is known.
//
// Resolution is advisory here: a missing current semester is not an error
// until a handler actually performs a semester-scoped write.
func SemesterRouting(store *datastore.Store, hydrator *semester.Hydrator, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// Repair the registry if boot-time hydration was incomplete.
		hydrator.EnsureHydrated(ctx)

		aliases := semesterctx.Aliases{Write: store.CurrentAlias()}
		aliases.Read = aliases.Write

		if sessionID, ok := GetSessionID(ctx); ok {
			if session, err := sessions.Get(ctx, sessionID); err == nil && session.ViewAlias != "" {
				if store.Has(session.ViewAlias) {
					aliases.Read = session.ViewAlias
				}
			}
		}

		c.Request = c.Request.WithContext(semesterctx.With(ctx, aliases))
		c.Next()
	}
}
