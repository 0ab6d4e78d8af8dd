// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zen-systems/tripmate/pkg/chat"
	"github.com/zen-systems/tripmate/pkg/plan"
)

// Handler answers chat turns.
type Handler interface {
	Handle(ctx context.Context, req chat.Request) chat.Result
}

// PlanReader reads committed itineraries.
type PlanReader interface {
	ListPlans(ctx context.Context, userID, tripID string) ([]plan.Plan, error)
	Trip(ctx context.Context, tripID string) (*plan.Trip, error)
}

// Server is the HTTP surface.
type Server struct {
	handler   Handler
	plans     PlanReader
	zones     plan.ZoneFinder
	origins   []string
	limiter   *userLimiter
	metrics   http.Handler
	now       func() time.Time
	logger    func(format string, args ...any)
	engine    *gin.Engine
	perMinute int
	burst     int
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithRateLimit limits each user to perMinute chat turns with the given
// burst. Zero disables limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		s.perMinute = perMinute
		s.burst = burst
	}
}

// WithZoneFinder resolves plan time zones for calendar export.
func WithZoneFinder(z plan.ZoneFinder) Option {
	return func(s *Server) {
		s.zones = z
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithClock overrides the calendar timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds the router.
func New(handler Handler, plans PlanReader, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		plans:   plans,
		origins: []string{"*"},
		now:     time.Now,
		logger:  log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.perMinute > 0 {
		s.limiter = newUserLimiter(s.perMinute, s.burst)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	api := r.Group("/api")
	{
		api.POST("/chat", s.postChat)
		api.GET("/trips/:tripId/plans", s.getPlans)
		api.GET("/trips/:tripId/calendar.ics", s.getCalendar)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.now().UTC()})
		})
	}
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range s.origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.origins
	cfg.AllowCredentials = true
	return cfg
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger("[server] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
