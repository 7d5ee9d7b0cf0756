package source

import (
	"image"
	"sync"
	"time"

	"github.com/vova616/screenshot"

	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
)

// Screen captures the desktop as a live frame source, paced to the
// configured fps.
type Screen struct {
	fps float64

	mu       sync.Mutex
	info     *frame.SourceInfo
	started  bool
	position int
	lastRead time.Time
}

// NewScreen creates a screen capture source.
func NewScreen(fps float64) *Screen {
	if fps <= 0 {
		fps = 15
	}
	return &Screen{fps: fps}
}

// Open queries the screen geometry and produces the source descriptor.
func (s *Screen) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rect, err := screenshot.ScreenRect()
	if err != nil {
		return errors.New(err).
			Component("source").
			Category(errors.CategorySourceOpen).
			Build()
	}

	s.info = &frame.SourceInfo{
		Name:         "screen",
		Kind:         frame.SourceScreen,
		Width:        rect.Dx(),
		Height:       rect.Dy(),
		FPS:          s.fps,
		SupportsSeek: false,
		TotalFrames:  0,
		ColorMode:    frame.ColorRGB,
	}
	return nil
}

// Start begins frame production.
func (s *Screen) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info == nil {
		return errors.NewStd("screen source not opened")
	}
	s.started = true
	s.lastRead = time.Time{}
	return nil
}

// ReadFrame grabs a screenshot, paced to the configured fps.
func (s *Screen) ReadFrame() (image.Image, bool) {
	s.mu.Lock()

	if !s.started || s.info == nil {
		s.mu.Unlock()
		return nil, false
	}

	interval := time.Duration(float64(time.Second) / s.fps)
	if !s.lastRead.IsZero() && time.Since(s.lastRead) < interval {
		s.mu.Unlock()
		return nil, false
	}
	s.lastRead = time.Now()
	s.mu.Unlock()

	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	s.position++
	s.mu.Unlock()
	return img, true
}

// Seek is unsupported for live capture.
func (s *Screen) Seek(int) bool { return false }

// Info returns the source descriptor, or nil before Open.
func (s *Screen) Info() *frame.SourceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SupportsSeek reports random access support.
func (s *Screen) SupportsSeek() bool { return false }

// TotalFrames is unknown for live capture.
func (s *Screen) TotalFrames() (int, bool) { return 0, false }

// Position returns the number of frames read so far.
func (s *Screen) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Close releases the source. Idempotent.
func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	return nil
}
