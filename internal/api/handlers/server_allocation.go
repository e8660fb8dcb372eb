package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorplan.io/tutorplan/internal/api/middleware"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

type manualAssignRequest struct {
	SessionID uint `json:"session_id" binding:"required"`
	TutorID   uint `json:"tutor_id" binding:"required"`
}

// ManualAssign handles POST /allocations: assigns one tutor to one session
// with clash checking.
func (s *Server) ManualAssign(c *gin.Context) {
	var req manualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid allocation payload", http.StatusBadRequest))
		return
	}

	alloc, err := s.allocations.ManualAssign(c.Request.Context(), req.SessionID, req.TutorID, actorFromCtx(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, alloc)
}

// AutoAllocate handles POST /allocations/auto: preference-driven sweep over
// all under-staffed sessions.
func (s *Server) AutoAllocate(c *gin.Context) {
	result, err := s.allocations.AutoAllocate(c.Request.Context(), actorFromCtx(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApproveUnitAllocations handles POST /units/:code/allocations/approve.
func (s *Server) ApproveUnitAllocations(c *gin.Context) {
	approved, err := s.allocations.ApproveUnit(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": approved})
}

// RemoveAllocation handles DELETE /allocations/:id.
func (s *Server) RemoveAllocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid allocation id", http.StatusBadRequest))
		return
	}
	if err := s.allocations.Remove(c.Request.Context(), uint(id)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUnitAllocations handles GET /units/:code/allocations.
func (s *Server) ListUnitAllocations(c *gin.Context) {
	allocs, err := s.allocations.ListByUnit(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocs})
}

// MySchedule handles GET /allocations/me: the caller's own timetable.
func (s *Server) MySchedule(c *gin.Context) {
	schedule, err := s.allocations.TutorSchedule(c.Request.Context(), middleware.GetUserEmail(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": schedule})
}
