package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tutorplan.io/tutorplan/internal/api/handlers"
	"tutorplan.io/tutorplan/internal/api/middleware"
	"tutorplan.io/tutorplan/internal/config"
	"tutorplan.io/tutorplan/internal/datastore"
	"tutorplan.io/tutorplan/internal/domain"
	"tutorplan.io/tutorplan/internal/semester"
	"tutorplan.io/tutorplan/internal/service"
)

// buildCORSConfig derives the CORS policy from server configuration.
// A literal "*" origin is stripped unless UnsafeAllowAllOrigins is set,
// and that flag forcibly disables credentials since browsers reject the
// wildcard-plus-credentials combination anyway.
func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsCfg.ExposeHeaders = []string{"X-Request-ID"}
	corsCfg.MaxAge = 12 * time.Hour

	if cfg.Server.UnsafeAllowAllOrigins {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		if o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	corsCfg.AllowOrigins = origins
	corsCfg.AllowCredentials = cfg.Server.AllowCredentials
	return corsCfg
}

// newRouter wires middleware and routes. Routes are registered explicitly;
// handler methods carry no routing metadata of their own.
func newRouter(
	cfg *config.Config,
	server *handlers.Server,
	store *datastore.Store,
	hydrator *semester.Hydrator,
	sessions *service.SessionService,
	jwtCfg middleware.JWTConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(buildCORSConfig(cfg)))
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/api/v1")

	// Public surface: probes and login.
	v1.GET("/health/live", server.GetLiveness)
	v1.GET("/health/ready", server.GetReadiness)
	v1.POST("/auth/login", server.Login)

	auth := v1.Group("")
	auth.Use(middleware.JWTAuth(jwtCfg.SigningKey))
	auth.Use(middleware.SemesterRouting(store, hydrator, sessions))

	auth.POST("/auth/logout", server.Logout)
	auth.GET("/auth/me", server.Me)
	auth.POST("/semesters/select-view", server.SelectView)

	// Semester lifecycle is admin territory; listing is open to any
	// authenticated role so the UI can populate the view selector.
	auth.GET("/semesters", server.ListSemesters)
	auth.GET("/semesters/current", server.GetCurrentSemester)

	admin := auth.Group("")
	admin.Use(middleware.RequireRole(string(domain.RoleAdmin)))
	admin.POST("/semesters", server.CreateSemester)
	admin.POST("/semesters/:alias/set-current", server.SetCurrentSemester)
	admin.DELETE("/semesters/:alias", server.DropSemester)
	admin.GET("/semesters/databases", server.ListDatabases)
	admin.GET("/audit", server.ListAuditEntries)

	coord := auth.Group("")
	coord.Use(middleware.RequireRole(string(domain.RoleCoordinator)))
	coord.POST("/units", server.UpsertUnit)
	coord.PUT("/units/:code/schedule", server.SetMasterSchedule)
	coord.GET("/units/:code/eois", server.ListUnitEOIs)
	coord.GET("/eois/:key/history", server.EOIHistory)
	coord.POST("/eois/import", server.ImportEOIs)
	coord.GET("/eois/import/:id", server.GetImport)
	coord.POST("/allocations", server.ManualAssign)
	coord.POST("/allocations/auto", server.AutoAllocate)
	coord.POST("/units/:code/allocations/approve", server.ApproveUnitAllocations)
	coord.DELETE("/allocations/:id", server.RemoveAllocation)
	coord.GET("/units/:code/allocations", server.ListUnitAllocations)

	// Any authenticated user can browse the timetable, lodge an EOI, and
	// read their own schedule.
	auth.GET("/units", server.ListUnits)
	auth.GET("/sessions", server.ListSessions)
	auth.POST("/eois", server.SubmitEOI)
	auth.POST("/eois/master", server.SubmitMasterEOI)
	auth.GET("/allocations/me", server.MySchedule)

	return r
}
