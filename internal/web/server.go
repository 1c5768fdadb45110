// Package web exposes the study service over a JSON HTTP API.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conorfennell/studyhash/internal/study"
	"github.com/conorfennell/studyhash/internal/sweep"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	svc     *study.Service
	queues  *sweep.Runner
	streaks *sweep.Runner
	router  *gin.Engine
	log     *slog.Logger
	now     func() time.Time

	maxImportBytes int64
}

// DefaultMaxImportBytes bounds a deck import body when Options leaves it unset.
const DefaultMaxImportBytes = 4 << 20

// Options configures a Server. A nil Now uses time.Now in UTC.
type Options struct {
	Logger         *slog.Logger
	Now            func() time.Time
	MaxImportBytes int64
}

// NewServer creates and configures a new server. The runners back the
// manual sweep endpoints.
func NewServer(svc *study.Service, queues, streaks *sweep.Runner, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		svc:     svc,
		queues:  queues,
		streaks: streaks,
		router:  gin.New(),
		log:     opts.Logger,
		now:     opts.Now,

		maxImportBytes: opts.MaxImportBytes,
	}
	if s.maxImportBytes <= 0 {
		s.maxImportBytes = DefaultMaxImportBytes
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	s.router.Use(gin.Recovery(), requestLogger(s.log))
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")

	users := api.Group("/users")
	users.POST("", s.handleCreateUser())
	users.POST("/:userID/decks", s.handleImportDeck())
	users.POST("/:userID/cards/:cardID/reviews", s.handleReview())
	users.POST("/:userID/activity", s.handleActivity())
	users.GET("/:userID/streak", s.handleStreak())
	users.GET("/:userID/queue/today", s.handleTodayQueue())
	users.GET("/:userID/burnout", s.handleBurnout())

	decks := api.Group("/decks")
	decks.GET("/:deckID/stats", s.handleDeckStats())
	decks.GET("/:deckID/forecast", s.handleForecast())
	decks.GET("/:deckID/weak-topics", s.handleWeakTopics())

	jobs := api.Group("/jobs")
	jobs.POST("/daily-queues", s.handleRunSweep(s.queues.BuildDailyQueues))
	jobs.POST("/streak-reset", s.handleRunSweep(s.streaks.ResetExpiredStreaks))
}

// requestLogger logs one line per request after it completes.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", attrs...)
			return
		}
		log.Info("request", attrs...)
	}
}
