package source

import (
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
)

// Volumetric reads DICOM files as a seekable frame source. A path may
// name a single file or a directory; multi-frame files contribute one
// frame per contained slice. All slices are decoded at open time, so
// ReadFrame and Seek are array lookups.
type Volumetric struct {
	path string
	fps  float64

	mu       sync.Mutex
	frames   []image.Image
	position int
	started  bool
	lastRead time.Time
	info     *frame.SourceInfo
}

// NewVolumetric creates a volumetric source for path.
func NewVolumetric(path string, fps float64) *Volumetric {
	if fps <= 0 {
		fps = 10
	}
	return &Volumetric{path: path, fps: fps}
}

// Open loads every slice from the file or directory.
func (v *Volumetric) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	files, err := v.collectFiles()
	if err != nil {
		return err
	}

	var frames []image.Image
	for _, path := range files {
		imgs, err := decodeSlices(path)
		if err != nil {
			// A single unreadable file does not fail the whole volume.
			continue
		}
		frames = append(frames, imgs...)
	}

	if len(frames) == 0 {
		return errors.Newf("no readable DICOM frames in %s", v.path).
			Component("source").
			Category(errors.CategorySourceOpen).
			Build()
	}

	v.frames = frames
	v.position = 0
	bounds := frames[0].Bounds()
	v.info = &frame.SourceInfo{
		Name:         filepath.Base(v.path),
		Kind:         frame.SourceVolumetric,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		FPS:          v.fps,
		SupportsSeek: true,
		TotalFrames:  len(frames),
		ColorMode:    frame.ColorGray,
	}
	return nil
}

// collectFiles lists the DICOM files under the configured path.
func (v *Volumetric) collectFiles() ([]string, error) {
	st, err := os.Stat(v.path)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategorySourceOpen).
			Context("path", v.path).
			Build()
	}
	if !st.IsDir() {
		return []string{v.path}, nil
	}

	entries, err := os.ReadDir(v.path)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategorySourceOpen).
			Context("path", v.path).
			Build()
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			files = append(files, filepath.Join(v.path, e.Name()))
		}
	}
	if len(files) == 0 {
		// Some exports ship DICOM files without an extension.
		for _, e := range entries {
			if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				files = append(files, filepath.Join(v.path, e.Name()))
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

// decodeSlices extracts the pixel data frames of one DICOM file.
func decodeSlices(path string) ([]image.Image, error) {
	dataset, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategoryFrameDecode).
			Context("path", path).
			Build()
	}

	el, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, errors.New(err).
			Component("source").
			Category(errors.CategoryFrameDecode).
			Context("path", path).
			Build()
	}

	info := dicom.MustGetPixelDataInfo(el.Value)
	var out []image.Image
	for i := range info.Frames {
		img, err := info.Frames[i].GetImage()
		if err != nil {
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

// Start begins frame production.
func (v *Volumetric) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.info == nil {
		return errors.NewStd("volumetric source not opened")
	}
	v.started = true
	v.lastRead = time.Time{}
	return nil
}

// ReadFrame returns the next slice, paced to the configured fps. The
// source stalls at the last slice rather than wrapping; playback over
// a volume is driven by seeks.
func (v *Volumetric) ReadFrame() (image.Image, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.started || v.info == nil || v.position >= len(v.frames) {
		return nil, false
	}

	interval := time.Duration(float64(time.Second) / v.fps)
	if !v.lastRead.IsZero() && time.Since(v.lastRead) < interval {
		return nil, false
	}

	img := v.frames[v.position]
	v.position++
	v.lastRead = time.Now()
	return img, true
}

// Seek positions the source at the given slice index.
func (v *Volumetric) Seek(position int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.info == nil || position < 0 || position >= len(v.frames) {
		return false
	}
	v.position = position
	v.lastRead = time.Time{}
	return true
}

// Info returns the source descriptor, or nil before Open.
func (v *Volumetric) Info() *frame.SourceInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.info
}

// SupportsSeek reports random access support.
func (v *Volumetric) SupportsSeek() bool { return true }

// TotalFrames returns the number of slices in the volume.
func (v *Volumetric) TotalFrames() (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.frames), v.info != nil
}

// Position returns the index of the next slice to be read.
func (v *Volumetric) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// Close releases the decoded slices. Idempotent.
func (v *Volumetric) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.started = false
	return nil
}
