package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorplan.io/tutorplan/internal/api/middleware"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/service"
)

type submitEOIRequest struct {
	UnitCode     string `json:"unit_code" binding:"required"`
	Preference   int    `json:"preference"`
	Availability string `json:"availability"`
	Experience   string `json:"experience"`
	HoursWanted  int    `json:"hours_wanted"`
}

type submitMasterEOIRequest struct {
	CourseCode     string `json:"course_code" binding:"required"`
	Qualifications string `json:"qualifications"`
	MaxHours       int    `json:"max_hours"`
}

type importEOIRequest struct {
	Rows []service.EOISubmission `json:"rows" binding:"required"`
}

// SubmitEOI handles POST /eoi: records the caller's expression of interest
// as the next version for that unit.
func (s *Server) SubmitEOI(c *gin.Context) {
	var req submitEOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid eoi payload", http.StatusBadRequest))
		return
	}

	ctx := c.Request.Context()
	user, err := s.users.GetByEmail(ctx, middleware.GetUserEmail(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	app, err := s.eoi.Submit(ctx, service.EOISubmission{
		TutorEmail:   user.Email,
		TutorName:    user.FullName,
		UnitCode:     req.UnitCode,
		Preference:   req.Preference,
		Availability: req.Availability,
		Experience:   req.Experience,
		HoursWanted:  req.HoursWanted,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// SubmitMasterEOI handles POST /eoi/master: course-level interest.
func (s *Server) SubmitMasterEOI(c *gin.Context) {
	var req submitMasterEOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid master eoi payload", http.StatusBadRequest))
		return
	}

	ctx := c.Request.Context()
	user, err := s.users.GetByEmail(ctx, middleware.GetUserEmail(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	m, err := s.eoi.SubmitMaster(ctx, service.MasterEOISubmission{
		TutorEmail:     user.Email,
		TutorName:      user.FullName,
		CourseCode:     req.CourseCode,
		Qualifications: req.Qualifications,
		MaxHours:       req.MaxHours,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ListUnitEOIs handles GET /units/:code/eoi: current applications for a
// unit, most preferred first.
func (s *Server) ListUnitEOIs(c *gin.Context) {
	apps, err := s.eoi.ListCurrentByUnit(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// EOIHistory handles GET /eoi/:key/history: every version of one
// application, oldest first.
func (s *Server) EOIHistory(c *gin.Context) {
	key, err := uuid.Parse(c.Param("key"))
	if err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid business key", http.StatusBadRequest))
		return
	}
	versions, err := s.eoi.History(c.Request.Context(), key)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// ImportEOIs handles POST /eoi/import: stores the payload and enqueues the
// background import job.
func (s *Server) ImportEOIs(c *gin.Context) {
	var req importEOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid import payload", http.StatusBadRequest))
		return
	}

	batch, err := s.eoi.EnqueueImport(c.Request.Context(), actorFromCtx(c), req.Rows)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, batch)
}

// GetImport handles GET /eoi/import/:id: import batch progress.
func (s *Server) GetImport(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid batch id", http.StatusBadRequest))
		return
	}
	batch, err := s.eoi.GetImport(c.Request.Context(), uint(id))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, batch)
}
