// Package health serves the liveness endpoint of the daemon.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/scheduler"
	"github.com/dl-alexandre/sheetmirror/pkg/version"
	"github.com/gin-gonic/gin"
)

// JobStatus reports the history of a scheduled job
type JobStatus interface {
	Status() scheduler.Status
}

// Response is the body of GET /health
type Response struct {
	Status    string             `json:"status"`
	Message   string             `json:"message"`
	Version   string             `json:"version"`
	StartedAt time.Time          `json:"startedAt"`
	Uptime    string             `json:"uptime"`
	Jobs      []scheduler.Status `json:"jobs"`
}

// Server is the health HTTP server
type Server struct {
	addr      string
	engine    *gin.Engine
	server    *http.Server
	jobs      []JobStatus
	startedAt time.Time
	logger    logging.Logger
}

// New creates a server listening on addr once started
func New(addr string, logger logging.Logger, jobs ...JobStatus) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		addr:      addr,
		engine:    engine,
		jobs:      jobs,
		startedAt: time.Now(),
		logger:    logger,
	}
	engine.GET("/health", s.getHealth)
	return s
}

// Handler exposes the routes, for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) getHealth(c *gin.Context) {
	resp := Response{
		Status:    "OK",
		Message:   "Service is running",
		Version:   version.Version,
		StartedAt: s.startedAt,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Jobs:      make([]scheduler.Status, 0, len(s.jobs)),
	}
	for _, j := range s.jobs {
		resp.Jobs = append(resp.Jobs, j.Status())
	}
	c.JSON(http.StatusOK, resp)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Health endpoint listening", logging.F("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	}
}

// Stop shuts the server down
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop health server: %w", err)
	}
	return nil
}

// requestLogger logs requests other than health probes
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/health" {
			return
		}
		fields := []logging.Field{
			logging.F("status", c.Writer.Status()),
			logging.F("method", c.Request.Method),
			logging.F("path", c.Request.URL.Path),
			logging.F("duration_ms", time.Since(start).Milliseconds()),
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			logger.Warn("HTTP request", fields...)
			return
		}
		logger.Debug("HTTP request", fields...)
	}
}
