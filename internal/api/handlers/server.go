// Package handlers implements the HTTP API. Handlers bind and validate
// requests, delegate to the service layer, and push errors to the
// centralized error-handling middleware via c.Error.
package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"tutorplan.io/tutorplan/internal/api/middleware"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/semester"
	"tutorplan.io/tutorplan/internal/service"
)

// Server holds all API handlers.
type Server struct {
	pool        *pgxpool.Pool
	jwtCfg      middleware.JWTConfig
	store       *datastore.Store
	registry    *semester.Registry
	provisioner *semester.Provisioner
	hydrator    *semester.Hydrator
	users       *service.UserService
	sessions    *service.SessionService
	eoi         *service.EOIService
	allocations *service.AllocationService
	timetable   *service.TimetableService
	audit       *service.AuditService
}

// ServerDeps holds all dependencies for creating a Server. Manual DI, no
// wire framework.
type ServerDeps struct {
	Pool        *pgxpool.Pool
	JWTCfg      middleware.JWTConfig
	Store       *datastore.Store
	Registry    *semester.Registry
	Provisioner *semester.Provisioner
	Hydrator    *semester.Hydrator
	Users       *service.UserService
	Sessions    *service.SessionService
	EOI         *service.EOIService
	Allocations *service.AllocationService
	Timetable   *service.TimetableService
	Audit       *service.AuditService
}

// NewServer creates a Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		pool:        deps.Pool,
		jwtCfg:      deps.JWTCfg,
		store:       deps.Store,
		registry:    deps.Registry,
		provisioner: deps.Provisioner,
		hydrator:    deps.Hydrator,
		users:       deps.Users,
		sessions:    deps.Sessions,
		eoi:         deps.EOI,
		allocations: deps.Allocations,
		timetable:   deps.Timetable,
		audit:       deps.Audit,
	}
}

// actorFromCtx extracts the authenticated user's email for audit trails.
func actorFromCtx(c interface{ GetString(any) string }) string {
	if email := c.GetString("user_email"); email != "" {
		return email
	}
	return "anonymous"
}
