package source

import (
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	// Still image decoders for the formats a sequence directory may hold.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	gocache "github.com/patrickmn/go-cache"

	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
)

// extensions accepted when scanning a sequence directory.
var sequenceExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}

const (
	decodeCacheTTL     = time.Minute
	decodeCacheCleanup = 2 * time.Minute
)

// ImageSequence reads a directory of numbered still images as a
// seekable frame source. ReadFrame is paced to the configured fps so
// the acquisition loop sees frames at the nominal rate. Decoded stills
// are kept in a TTL cache, which makes seek-heavy playback cheap.
type ImageSequence struct {
	dir  string
	fps  float64
	loop bool

	mu       sync.Mutex
	files    []string
	position int
	started  bool
	lastRead time.Time
	info     *frame.SourceInfo
	cache    *gocache.Cache
}

// NewImageSequence creates an image sequence source for dir. With loop
// enabled the sequence wraps instead of ending.
func NewImageSequence(dir string, fps float64, loop bool) *ImageSequence {
	if fps <= 0 {
		fps = 30
	}
	return &ImageSequence{
		dir:   dir,
		fps:   fps,
		loop:  loop,
		cache: gocache.New(decodeCacheTTL, decodeCacheCleanup),
	}
}

// Open scans the directory and decodes the first frame to produce the
// source descriptor.
func (s *ImageSequence) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.New(err).
			Component("source").
			Category(errors.CategorySourceOpen).
			Context("dir", s.dir).
			Build()
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(sequenceExtensions, ext) {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	slices.Sort(files)

	if len(files) == 0 {
		return errors.Newf("no image files found in %s", s.dir).
			Component("source").
			Category(errors.CategorySourceOpen).
			Build()
	}

	first, err := s.decode(files[0])
	if err != nil {
		return err
	}

	s.files = files
	s.position = 0
	bounds := first.Bounds()
	s.info = &frame.SourceInfo{
		Name:         filepath.Base(s.dir),
		Kind:         frame.SourceImageSequence,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		FPS:          s.fps,
		SupportsSeek: true,
		TotalFrames:  len(files),
		ColorMode:    colorModeOf(first),
	}
	return nil
}

// Start begins frame production.
func (s *ImageSequence) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info == nil {
		return errors.NewStd("image sequence not opened")
	}
	s.started = true
	s.lastRead = time.Time{}
	return nil
}

// ReadFrame returns the next still, paced to the configured fps. At
// the end of a non-looping sequence it keeps returning (nil, false).
func (s *ImageSequence) ReadFrame() (image.Image, bool) {
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

	if s.position >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, false
		}
		s.position = 0
	}

	path := s.files[s.position]
	s.position++
	s.lastRead = time.Now()
	s.mu.Unlock()

	img, err := s.decode(path)
	if err != nil {
		return nil, false
	}
	return img, true
}

// decode loads a still through the TTL cache.
func (s *ImageSequence) decode(path string) (image.Image, error) {
	if cached, ok := s.cache.Get(path); ok {
		return cached.(image.Image), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategoryFrameDecode).
			Context("path", path).
			Build()
	}

	s.cache.Set(path, img, gocache.DefaultExpiration)
	return img, nil
}

// Seek positions the sequence at the given frame index.
func (s *ImageSequence) Seek(position int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info == nil || position < 0 || position >= len(s.files) {
		return false
	}
	s.position = position
	// Allow the next ReadFrame to return immediately after a seek.
	s.lastRead = time.Time{}
	return true
}

// Info returns the source descriptor, or nil before Open.
func (s *ImageSequence) Info() *frame.SourceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SupportsSeek reports random access support.
func (s *ImageSequence) SupportsSeek() bool { return true }

// TotalFrames returns the number of stills in the sequence.
func (s *ImageSequence) TotalFrames() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files), s.info != nil
}

// Position returns the index of the next frame to be read.
func (s *ImageSequence) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Close releases the source. Idempotent.
func (s *ImageSequence) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	s.cache.Flush()
	return nil
}

// colorModeOf maps a decoded image to the descriptor colour mode.
func colorModeOf(img image.Image) frame.ColorMode {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return frame.ColorGray
	default:
		return frame.ColorRGB
	}
}
