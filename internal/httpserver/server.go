// Package httpserver exposes the pipeline's state over a small JSON
// API plus a Prometheus metrics endpoint.
package httpserver

import (
	"context"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/framescope/framescope/internal/buildinfo"
	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/frame"
	"github.com/framescope/framescope/internal/logging"
	"github.com/framescope/framescope/internal/observability"
	"github.com/framescope/framescope/internal/pipeline"
)

// Server wraps an Echo instance serving the status API.
type Server struct {
	Echo     *echo.Echo
	settings *conf.Settings
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// statusResponse is the payload of GET /api/v1/status.
type statusResponse struct {
	Version   string              `json:"version"`
	Running   bool                `json:"running"`
	Source    *frame.SourceInfo   `json:"source,omitempty"`
	Transform string              `json:"transform"`
	Buffers   pipeline.BufferInfo `json:"buffers"`
	Recording recordingStatus     `json:"recording"`
}

type recordingStatus struct {
	Active     bool   `json:"active"`
	SessionDir string `json:"session_dir,omitempty"`
	FrameCount int    `json:"frame_count"`
}

// New builds the server around an existing pipeline. Routes are
// registered immediately; the listener starts on Start.
func New(settings *conf.Settings, p *pipeline.Pipeline, metrics *observability.Metrics) *Server {
	logger := logging.ForService("httpserver")
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if settings.Webserver.Debug {
		e.Use(middleware.Logger())
	}

	s := &Server{
		Echo:     e,
		settings: settings,
		pipeline: p,
		metrics:  metrics,
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.Echo.Group("/api/v1")
	api.GET("/status", s.handleStatus)
	api.GET("/frames/latest", s.handleLatestFrame)
	api.GET("/frames/:number", s.handleFrameByNumber)
	api.POST("/recording/start", s.handleRecordingStart)
	api.POST("/recording/stop", s.handleRecordingStop)

	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins listening on the configured address. It blocks until
// the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "address", s.settings.Webserver.Listen)
	err := s.Echo.Start(s.settings.Webserver.Listen)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Version:   buildinfo.GetVersion(),
		Running:   s.pipeline.Running(),
		Transform: s.pipeline.Transform().Name(),
		Buffers:   s.pipeline.GetBufferInfo(),
	}
	if src := s.pipeline.Source(); src != nil {
		resp.Source = src.Info()
	}
	if rec := s.pipeline.Recorder(); rec != nil {
		resp.Recording = recordingStatus{
			Active:     rec.Active(),
			SessionDir: rec.Dir(),
			FrameCount: rec.FrameCount(),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleLatestFrame serves the newest frame as PNG. The view query
// parameter selects the source or processed buffer, defaulting to
// processed.
func (s *Server) handleLatestFrame(c echo.Context) error {
	src, processed := s.pipeline.GetLatestFrames()
	f := processed
	if c.QueryParam("view") == "source" {
		f = src
	}
	return s.writeFrame(c, f)
}

func (s *Server) handleFrameByNumber(c echo.Context) error {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid frame number")
	}
	src, processed := s.pipeline.GetFrameByNumber(number)
	f := processed
	if c.QueryParam("view") == "source" {
		f = src
	}
	return s.writeFrame(c, f)
}

func (s *Server) writeFrame(c echo.Context, f *frame.Frame) error {
	if f == nil || f.Image == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no frame available")
	}
	c.Response().Header().Set("X-Frame-Number", strconv.FormatInt(f.Number, 10))
	c.Response().Header().Set("X-Frame-Timestamp", f.Timestamp.Format(time.RFC3339Nano))
	c.Response().Header().Set(echo.HeaderContentType, "image/png")
	c.Response().WriteHeader(http.StatusOK)
	return png.Encode(c.Response(), f.Image)
}

func (s *Server) handleRecordingStart(c echo.Context) error {
	rec := s.pipeline.Recorder()
	if rec == nil {
		return echo.NewHTTPError(http.StatusConflict, "recording not configured")
	}
	dir, err := rec.Start(c.QueryParam("name"))
	if err != nil {
		s.logger.Error("failed to start recording session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start recording")
	}
	return c.JSON(http.StatusOK, map[string]any{"session_dir": dir})
}

func (s *Server) handleRecordingStop(c echo.Context) error {
	rec := s.pipeline.Recorder()
	if rec == nil {
		return echo.NewHTTPError(http.StatusConflict, "recording not configured")
	}
	dir, frames := rec.Stop()
	return c.JSON(http.StatusOK, map[string]any{
		"session_dir":    dir,
		"frames_written": frames,
	})
}
