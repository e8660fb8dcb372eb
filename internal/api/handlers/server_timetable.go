package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/service"
)

type upsertUnitRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Coordinator string `json:"coordinator"`
}

type masterScheduleRequest struct {
	Slots []service.MasterSlot `json:"slots" binding:"required"`
}

// ListUnits handles GET /units.
func (s *Server) ListUnits(c *gin.Context) {
	units, err := s.timetable.ListUnits(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

// UpsertUnit handles POST /units.
func (s *Server) UpsertUnit(c *gin.Context) {
	var req upsertUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid unit payload", http.StatusBadRequest))
		return
	}
	unit, err := s.timetable.UpsertUnit(c.Request.Context(), req.Code, req.Name, req.Coordinator)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// SetMasterSchedule handles PUT /units/:code/schedule: replaces the unit's
// master schedule and regenerates its sessions.
func (s *Server) SetMasterSchedule(c *gin.Context) {
	var req masterScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid schedule payload", http.StatusBadRequest))
		return
	}
	slots, err := s.timetable.SetMasterSchedule(c.Request.Context(), c.Param("code"), req.Slots)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// ListSessions handles GET /timetable: sessions of the read semester,
// optionally filtered by ?unit=CODE.
func (s *Server) ListSessions(c *gin.Context) {
	sessions, err := s.timetable.ListSessions(c.Request.Context(), c.Query("unit"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
