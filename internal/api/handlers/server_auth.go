package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/api/middleware"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
	"tutorplan.io/tutorplan/internal/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
}

// Login handles POST /auth/login: password check, server-side session,
// signed token bound to the session.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.CodeInvalidRequest, "invalid login payload", http.StatusBadRequest))
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	session, err := s.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, user.Email, string(user.Role), session.ID)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      string(user.Role),
	})
}

// Logout handles POST /auth/logout: deletes the server-side session so the
// token dies with it.
func (s *Server) Logout(c *gin.Context) {
	if sessionID, ok := middleware.GetSessionID(c.Request.Context()); ok {
		if err := s.sessions.Delete(c.Request.Context(), sessionID); err != nil {
			c.Error(err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (s *Server) Me(c *gin.Context) {
	user, err := s.users.GetByEmail(c.Request.Context(), middleware.GetUserEmail(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}
