package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/importer"
	"github.com/conorfennell/studyhash/internal/localday"
	"github.com/conorfennell/studyhash/internal/sm2"
	"github.com/conorfennell/studyhash/internal/study"
	"github.com/conorfennell/studyhash/internal/sweep"
)

var (
	// errBadRequest marks malformed path, query or body values.
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("request body too large")
)

func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.svc.CreateUser(c.Request.Context(), s.now())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// handleImportDeck creates a deck from Q:/A: markdown in the request body.
func (s *Server) handleImportDeck() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		var body struct {
			Name     string `json:"name" binding:"required"`
			Markdown string `json:"markdown" binding:"required"`
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxImportBytes)
		if err := c.ShouldBindJSON(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.fail(c, fmt.Errorf("%w: limit is %d bytes", errTooLarge, tooLarge.Limit))
				return
			}
			s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}

		contents, dropped, err := importer.Read(strings.NewReader(body.Markdown))
		if err != nil {
			s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if len(contents) == 0 {
			s.fail(c, fmt.Errorf("%w: no Q:/A: cards found", errBadRequest))
			return
		}

		deck, err := s.svc.CreateDeck(c.Request.Context(), userID, body.Name, contents, s.now())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"deck": deck, "duplicates_dropped": dropped})
	}
}

func (s *Server) handleReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		cardID, ok := s.uuidParam(c, "cardID")
		if !ok {
			return
		}
		var body struct {
			Rating sm2.Rating `json:"rating" binding:"required"`
			Offset int        `json:"tz_offset_minutes"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}

		res, err := s.svc.Review(c.Request.Context(), userID, cardID, body.Rating, s.now(), body.Offset)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleActivity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		var body struct {
			Kind   domain.ActivityKind `json:"kind" binding:"required"`
			Offset int                 `json:"tz_offset_minutes"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}

		sum, err := s.svc.RecordActivity(c.Request.Context(), userID, body.Kind, s.now(), body.Offset)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

func (s *Server) handleStreak() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		sum, err := s.svc.Streak(c.Request.Context(), userID)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

func (s *Server) handleTodayQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		q, err := s.svc.TodayQueue(c.Request.Context(), userID, s.now())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

func (s *Server) handleBurnout() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.uuidParam(c, "userID")
		if !ok {
			return
		}
		off, ok := s.offsetQuery(c)
		if !ok {
			return
		}
		b, err := s.svc.BurnoutLevel(c.Request.Context(), userID, s.now(), off)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func (s *Server) handleDeckStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		deckID, ok := s.uuidParam(c, "deckID")
		if !ok {
			return
		}
		off, ok := s.offsetQuery(c)
		if !ok {
			return
		}
		st, err := s.svc.DeckStats(c.Request.Context(), deckID, s.now(), off)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func (s *Server) handleForecast() gin.HandlerFunc {
	return func(c *gin.Context) {
		deckID, ok := s.uuidParam(c, "deckID")
		if !ok {
			return
		}
		off, ok := s.offsetQuery(c)
		if !ok {
			return
		}
		r, err := s.svc.ReadinessForecast(c.Request.Context(), deckID, s.now(), off)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func (s *Server) handleWeakTopics() gin.HandlerFunc {
	return func(c *gin.Context) {
		deckID, ok := s.uuidParam(c, "deckID")
		if !ok {
			return
		}
		off, ok := s.offsetQuery(c)
		if !ok {
			return
		}
		topics, err := s.svc.WeakTopics(c.Request.Context(), deckID, s.now(), off)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": topics})
	}
}

// handleRunSweep runs a sweep in the foreground and returns its report.
func (s *Server) handleRunSweep(job sweep.Job) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := job(c.Request.Context(), s.now())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

func (s *Server) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %s is not a valid id", errBadRequest, name))
		return uuid.Nil, false
	}
	return id, true
}

// offsetQuery reads the tz query parameter in minutes east of UTC,
// defaulting to 0.
func (s *Server) offsetQuery(c *gin.Context) (int, bool) {
	off, err := strconv.Atoi(c.DefaultQuery("tz", "0"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: tz must be an integer number of minutes", errBadRequest))
		return 0, false
	}
	return off, true
}

// fail maps err onto a status code and writes it as a JSON error body.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, study.ErrInvalidInput),
		errors.Is(err, sm2.ErrInvalidRating),
		errors.Is(err, localday.ErrInvalidOffset):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request error", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
