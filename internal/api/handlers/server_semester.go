package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorplan.io/tutorplan/internal/api/middleware"
	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/semester/semesterctx"
)

type createSemesterRequest struct {
	Year        int    `json:"year" binding:"required"`
	Term        string `json:"term" binding:"required"`
	MakeCurrent bool   `json:"make_current"`
}

type selectViewRequest struct {
	Alias string `json:"alias"` // empty returns the session to current
}

type semesterStatus struct {
	*domain.Semester
	Connected bool `json:"connected"`
}

// ListSemesters handles GET /semesters: registry rows plus whether each has
// a live connection.
func (s *Server) ListSemesters(c *gin.Context) {
	semesters, err := s.registry.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]semesterStatus, len(semesters))
	for i, sem := range semesters {
		out[i] = semesterStatus{Semester: sem, Connected: s.store.Has(sem.Alias)}
	}
	c.JSON(http.StatusOK, gin.H{"semesters": out})
}

// CreateSemester handles POST /semesters: provisions the physical database,
// schema, registry row and connection.
func (s *Server) CreateSemester(c *gin.Context) {
	var req createSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid semester payload", http.StatusBadRequest))
		return
	}

	sem, err := s.provisioner.Provision(c.Request.Context(), req.Year, domain.Term(req.Term), req.MakeCurrent, actorFromCtx(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sem)
}

// GetCurrentSemester handles GET /semesters/current: the semester the
// caller should treat as active. When the session has a view alias selected
// that is the viewed semester's record; otherwise the global current one.
// The global current row is always included so clients can show both.
func (s *Server) GetCurrentSemester(c *gin.Context) {
	ctx := c.Request.Context()
	current, err := s.registry.Current(ctx)
	if err != nil {
		c.Error(err)
		return
	}

	active := current
	if aliases, ok := semesterctx.From(ctx); ok {
		if view := aliases.ViewAlias(); view != "" {
			viewed, err := s.registry.GetByAlias(ctx, view)
			if err != nil {
				c.Error(err)
				return
			}
			active = viewed
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"semester":        active,
		"current":         current,
		"effective_alias": active.Alias,
	})
}

// SetCurrentSemester handles POST /semesters/:alias/set-current: promotes
// the alias in registry and runtime store.
func (s *Server) SetCurrentSemester(c *gin.Context) {
	sem, err := s.provisioner.SetCurrent(c.Request.Context(), c.Param("alias"), actorFromCtx(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sem)
}

// DropSemester handles DELETE /semesters/:alias. The current semester is
// refused; sessions viewing the dropped semester are reset to current.
func (s *Server) DropSemester(c *gin.Context) {
	alias := c.Param("alias")
	if err := s.provisioner.Drop(c.Request.Context(), alias, actorFromCtx(c)); err != nil {
		c.Error(err)
		return
	}
	if _, err := s.sessions.ClearViewsOf(c.Request.Context(), alias); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectView handles POST /semesters/select-view: points the caller's
// session reads at a registered semester; empty alias clears the view.
func (s *Server) SelectView(c *gin.Context) {
	var req selectViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid view payload", http.StatusBadRequest))
		return
	}

	sessionID, ok := middleware.GetSessionID(c.Request.Context())
	if !ok {
		c.Error(apperrors.New(apperrors.CodeTokenInvalid, "no session", http.StatusUnauthorized))
		return
	}

	session, err := s.sessions.SelectView(c.Request.Context(), sessionID, req.Alias)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_alias": session.ViewAlias})
}

// ListDatabases handles GET /semesters/databases: per registry row, the
// physical-database existence and connection state, plus the runtime
// registry's own view of the world.
func (s *Server) ListDatabases(c *gin.Context) {
	databases, err := s.provisioner.DatabaseList(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"databases":     databases,
		"current_alias": s.store.CurrentAlias(),
		"hydrated":      s.hydrator.Hydrated(),
	})
}

// ListAuditEntries handles GET /audit: recent administrative actions.
func (s *Server) ListAuditEntries(c *gin.Context) {
	entries, err := s.audit.Recent(c.Request.Context(), 100)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
