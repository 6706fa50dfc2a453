// Package api serves readiness evaluations as read-only JSON over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/logging"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/tracker"
)

// Service is the part of the tracker the API exposes.
type Service interface {
	Today() calendar.Date
	Day(ctx context.Context, workerID string, date calendar.Date) (readiness.DayObligation, error)
	Streak(ctx context.Context, workerID string, asOf calendar.Date) (readiness.StreakState, error)
	PlanProgress(ctx context.Context, workerID string) (readiness.PlanProgress, error)
	Schedule(ctx context.Context, workerID string, date calendar.Date) (readiness.ScheduleResult, error)
	ActiveException(ctx context.Context, workerID string, date calendar.Date) (*readiness.ExceptionRecord, error)
}

type Server struct {
	port       int
	service    Service
	log        *logging.Logger
	httpServer *http.Server
	running    bool
	mu         sync.Mutex
	onShutdown []func()
}

func NewServer(port int, service Service, log *logging.Logger) *Server {
	return &Server{port: port, service: service, log: log}
}

// OnShutdown adds a callback to run on shutdown
func (s *Server) OnShutdown(callback func()) {
	s.onShutdown = append(s.onShutdown, callback)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.log), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "server": "readiness"})
	})

	workers := r.Group("/api/workers/:id")
	workers.GET("/day", s.getDay)
	workers.GET("/streak", s.getStreak)
	workers.GET("/plan", s.getPlan)
	workers.GET("/schedule", s.getSchedule)
	workers.GET("/exception", s.getException)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("API listening on http://localhost:%d", s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err, ok := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if ok {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	}
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, cb := range s.onShutdown {
		cb()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) getDay(c *gin.Context) {
	date, ok := s.dateParam(c, "date")
	if !ok {
		return
	}
	day, err := s.service.Day(c.Request.Context(), c.Param("id"), date)
	s.respond(c, day, err)
}

func (s *Server) getStreak(c *gin.Context) {
	asOf, ok := s.dateParam(c, "as_of")
	if !ok {
		return
	}
	streak, err := s.service.Streak(c.Request.Context(), c.Param("id"), asOf)
	s.respond(c, streak, err)
}

func (s *Server) getPlan(c *gin.Context) {
	progress, err := s.service.PlanProgress(c.Request.Context(), c.Param("id"))
	s.respond(c, progress, err)
}

func (s *Server) getSchedule(c *gin.Context) {
	date, ok := s.dateParam(c, "date")
	if !ok {
		return
	}
	schedule, err := s.service.Schedule(c.Request.Context(), c.Param("id"), date)
	s.respond(c, schedule, err)
}

func (s *Server) getException(c *gin.Context) {
	date, ok := s.dateParam(c, "date")
	if !ok {
		return
	}
	exception, err := s.service.ActiveException(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		s.respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "active": exception != nil, "exception": exception})
}

// dateParam reads an optional YYYY-MM-DD query parameter, defaulting to today.
func (s *Server) dateParam(c *gin.Context, name string) (calendar.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return s.service.Today(), true
	}
	date, err := calendar.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return calendar.Date{}, false
	}
	return date, true
}

func (s *Server) respond(c *gin.Context, body any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, body)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps engine and tracker errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		badSchedule  *readiness.InvalidScheduleError
		badException *readiness.InvalidExceptionRangeError
		badPlan      *readiness.InvalidPlanRangeError
		unavailable  *readiness.DataUnavailableError
	)
	switch {
	case errors.As(err, &badSchedule), errors.As(err, &badException), errors.As(err, &badPlan):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, tracker.ErrNoActivePlan):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
