package server

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/preference"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
)

//go:embed static/index.html
var indexHTML []byte

// Server is the browser front end and JSON API of the studio
type Server struct {
	engine *gin.Engine

	studio     *studio.UseCase
	preference *preference.UseCase

	corsOrigins    []string
	requestTimeout time.Duration
}

// Option is a functional option for Server
type Option func(*Server)

// WithCORSOrigins allows cross-origin API calls from the given origins
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = append(s.corsOrigins, origins...)
	}
}

// WithRequestTimeout bounds each generation or refinement call. Zero means no limit.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates a new Server
func New(uc *studio.UseCase, pref *preference.UseCase, opts ...Option) *Server {
	s := &Server{
		studio:     uc,
		preference: pref,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(attachLogger())
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.corsOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/", s.index)
	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.POST("/generate", s.postGenerate)
		api.DELETE("/results", s.deleteResults)
		api.POST("/results/:id/refine", s.postRefine)
		api.GET("/results/:id/download", s.getDownload)
		api.POST("/results/:id/export", s.postExport)
		api.PUT("/preference", s.putPreference)
	}

	s.engine = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// attachLogger puts a request-scoped logger into the request context and logs
// each request once it is done
func attachLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := logging.From(c.Request.Context()).With("request_id", uuid.NewString())
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logger))

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
