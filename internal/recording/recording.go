// Package recording persists processed frames as numbered image
// sequences, one directory per session.
package recording

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/framescope/framescope/internal/diskmanager"
	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
	"github.com/framescope/framescope/internal/logging"
	"github.com/framescope/framescope/internal/observability/metrics"
)

// sessionTimeFormat produces the default session name from wall-clock
// time.
const sessionTimeFormat = "recording_20060102_150405"

// Config holds the configuration for a recording service.
type Config struct {
	BaseDir  string  // base directory for session directories
	MaxUsage float64 // refuse new sessions above this disk usage percentage; 0 disables the guard
	Metrics  *metrics.RecorderMetrics
}

// Service writes one recording session at a time as a zero-padded
// numbered PNG sequence. The session state machine is Idle →
// Recording → Idle; starting while recording is idempotent.
type Service struct {
	config Config

	mu         sync.Mutex
	active     bool
	sessionID  string
	sessionDir string
	counter    int
	logger     *slog.Logger
}

// NewService creates a recording service writing under
// config.BaseDir.
func NewService(config Config) *Service {
	if config.BaseDir == "" {
		config.BaseDir = "recordings"
	}
	logger := logging.ForService("recording")
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: config,
		logger: logger,
	}
}

// Start begins a new session and returns its directory. When a
// session is already active its directory is returned unchanged and
// the frame counter is untouched. An empty name derives one from
// wall-clock time.
func (s *Service) Start(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return s.sessionDir, nil
	}

	// The base directory may not exist yet on first use; the guard
	// only applies once it does.
	if s.config.MaxUsage > 0 {
		if _, err := os.Stat(s.config.BaseDir); err == nil {
			if err := diskmanager.EnsureBelow(s.config.BaseDir, s.config.MaxUsage); err != nil {
				return "", err
			}
		}
	}

	if name == "" {
		name = time.Now().Format(sessionTimeFormat)
	}

	dir := filepath.Join(s.config.BaseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(err).
			Component("recording").
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}

	s.active = true
	s.sessionID = uuid.New().String()
	s.sessionDir = dir
	s.counter = 0

	if s.config.Metrics != nil {
		s.config.Metrics.RecordSessionStarted()
	}
	s.logger.Info("recording session started",
		"session_id", s.sessionID,
		"dir", dir)
	return dir, nil
}

// RecordFrame writes the frame as the next numbered file in the
// session. It fails with no side effect when no session is active;
// the counter advances only on confirmed write success.
func (s *Service) RecordFrame(f *frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return errors.NewStd("no active recording session")
	}
	if f == nil || f.Image == nil {
		return errors.NewStd("nil frame")
	}

	path := filepath.Join(s.sessionDir, fmt.Sprintf("frame_%06d.png", s.counter))

	start := time.Now()
	// imaging converts to the on-disk NRGBA convention before encoding.
	if err := imaging.Save(f.Image, path); err != nil {
		if s.config.Metrics != nil {
			s.config.Metrics.RecordWriteError()
		}
		return errors.New(err).
			Component("recording").
			Category(errors.CategoryRecording).
			FrameContext(f.Number, f.Source).
			Context("path", path).
			Build()
	}

	s.counter++
	if s.config.Metrics != nil {
		s.config.Metrics.RecordFrameWritten()
		s.config.Metrics.ObserveWriteDuration(time.Since(start).Seconds())
	}
	return nil
}

// Stop ends the session and returns its directory and the number of
// frames written. When idle it returns ("", 0).
func (s *Service) Stop() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return "", 0
	}

	dir := s.sessionDir
	frames := s.counter

	s.active = false
	s.sessionDir = ""
	s.sessionID = ""
	s.counter = 0

	if s.config.Metrics != nil {
		s.config.Metrics.RecordSessionStopped()
	}
	s.logger.Info("recording session stopped",
		"dir", dir,
		"frames", frames)
	return dir, frames
}

// Active reports whether a session is in progress.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// FrameCount returns the number of frames written in the active
// session, or 0 when idle.
func (s *Service) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return 0
	}
	return s.counter
}

// Dir returns the active session directory, or "" when idle.
func (s *Service) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionDir
}
