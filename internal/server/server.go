// Package server exposes the student service over HTTP using gin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-studentdb/auth"
	"github.com/goliatone/go-studentdb/jobs"
	"github.com/goliatone/go-studentdb/student"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Repository student.Repository
	Runner     *jobs.Runner
	Gate       *auth.Gate
	// DataDir is where ingestion jobs resolve file names.
	DataDir string
	Store   Pinger
	// Cache is optional; a nil Cache is reported as "disabled".
	Cache  Pinger
	Logger zerolog.Logger
}

// Server is the HTTP front of the service.
type Server struct {
	engine *gin.Engine
	logger zerolog.Logger
}

type handlers struct {
	repo    student.Repository
	runner  *jobs.Runner
	gate    *auth.Gate
	dataDir string
	store   Pinger
	cache   Pinger
	logger  zerolog.Logger
}

// New builds the router over deps.
func New(deps Deps) *Server {
	logger := deps.Logger.With().Str("component", "http").Logger()

	h := &handlers{
		repo:    deps.Repository,
		runner:  deps.Runner,
		gate:    deps.Gate,
		dataDir: deps.DataDir,
		store:   deps.Store,
		cache:   deps.Cache,
		logger:  logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger))

	router.GET("/healthcheck", h.healthCheck(time.Now().UTC()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register())
		authGroup.POST("/login", h.login())
		authGroup.POST("/logout", h.logout())
	}

	gated := router.Group("/")
	gated.Use(h.requireUser())
	{
		gated.GET("/students/:faculty", h.listByFaculty())
		gated.GET("/courses", h.listCourses())
		gated.GET("/average-grade/:faculty", h.averageGrade())
		gated.GET("/students", h.listStudents())
		gated.GET("/student/:id", h.getStudent())

		gated.POST("/students", h.createStudent())
		gated.POST("/students/", h.createStudent())
		gated.PUT("/students/:id", h.updateStudent())
		gated.DELETE("/students/:id", h.deleteStudent())

		gated.POST("/load_csv", h.loadCSV())
		gated.POST("/delete_students", h.deleteStudents())
		gated.GET("/jobs/:id", h.jobStatus())
	}

	return &Server{engine: router, logger: logger}
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
