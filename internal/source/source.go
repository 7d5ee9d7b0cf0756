// Package source provides the acquisition source contract and the
// camera, screen, image-sequence and volumetric implementations.
package source

import (
	"image"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
)

// Source is the contract every acquisition source satisfies. Open and
// Start failures surface synchronously; after both succeed the
// pipeline polls ReadFrame.
type Source interface {
	// Open prepares the source and produces its descriptor.
	Open() error
	// Start begins producing frames. Open must have succeeded.
	Start() error
	// ReadFrame returns the next frame, or (nil, false) when no frame
	// is available yet. A false return means "try again", not
	// necessarily end-of-stream. ReadFrame never blocks.
	ReadFrame() (image.Image, bool)
	// Seek positions the source at the given frame index. Sources
	// without random access always return false.
	Seek(position int) bool
	// Info returns the source descriptor produced at open time.
	Info() *frame.SourceInfo
	// SupportsSeek reports whether Seek can succeed.
	SupportsSeek() bool
	// TotalFrames returns the total frame count when known.
	TotalFrames() (int, bool)
	// Position returns the current frame index.
	Position() int
	// Close releases the source. Idempotent.
	Close() error
}

// New builds the source selected by the settings.
func New(settings *conf.Settings) (Source, error) {
	switch settings.Source.Kind {
	case "camera":
		return NewCamera(CameraConfig{
			Device: settings.Source.Device,
			Width:  settings.Source.Width,
			Height: settings.Source.Height,
			FPS:    settings.Source.FPS,
		}), nil
	case "screen":
		return NewScreen(settings.Source.FPS), nil
	case "image_sequence":
		return NewImageSequence(settings.Source.Path, settings.Source.FPS, settings.Source.Loop), nil
	case "volumetric":
		return NewVolumetric(settings.Source.Path, settings.Source.FPS), nil
	default:
		return nil, errors.Newf("unknown source kind: %s", settings.Source.Kind).
			Component("source").
			Category(errors.CategoryConfiguration).
			Context("kind", settings.Source.Kind).
			Build()
	}
}
