package transform

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/framescope/framescope/internal/errors"
)

var (
	sobelX = [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
)

// EdgeDetector marks gradient edges with a double threshold: pixels
// with a gradient magnitude at or above threshold2 become strong
// edges (white), pixels below threshold1 are suppressed, and the band
// in between is rendered as weak edges at half intensity.
type EdgeDetector struct {
	mu         sync.Mutex
	threshold1 int // lower bound, below which gradients are suppressed
	threshold2 int // upper bound, at or above which edges are strong
}

// NewEdgeDetector creates an edge detector with the default
// thresholds.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{
		threshold1: 50,
		threshold2: 150,
	}
}

// Configure applies threshold1 and threshold2 options. Valid keys are
// applied even when others are rejected.
func (t *EdgeDetector) Configure(options map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rejected := map[string]any{}
	for key, value := range options {
		switch key {
		case "threshold1", "threshold2":
			f, ok := asFloat(value)
			if !ok || f < 0 || f > 255 {
				rejected[key] = value
				continue
			}
			if key == "threshold1" {
				t.threshold1 = int(f)
			} else {
				t.threshold2 = int(f)
			}
		default:
			rejected[key] = value
		}
	}

	if len(rejected) > 0 {
		return configError(t.Name(), rejected)
	}
	return nil
}

// Process computes per-pixel gradient magnitude from two Sobel passes
// and applies the double threshold.
func (t *EdgeDetector) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.NewStd("nil frame")
	}

	t.mu.Lock()
	low, high := t.threshold1, t.threshold2
	t.mu.Unlock()

	gray := imaging.Grayscale(img)
	opts := &imaging.ConvolveOptions{Abs: true}
	gx := imaging.Convolve3x3(gray, sobelX, opts)
	gy := imaging.Convolve3x3(gray, sobelY, opts)

	out := image.NewNRGBA(gray.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		// The grayscale rendition keeps R=G=B, so one channel is
		// enough for the magnitude.
		mag := int(gx.Pix[i]) + int(gy.Pix[i])
		var v uint8
		switch {
		case mag >= high:
			v = 255
		case mag >= low:
			v = 128
		}
		out.Pix[i] = v
		out.Pix[i+1] = v
		out.Pix[i+2] = v
		out.Pix[i+3] = 255
	}
	return out, nil
}

// Name returns the transform's display name.
func (t *EdgeDetector) Name() string {
	return "Edge Detector"
}

// Parameters returns the self-describing parameter schema.
func (t *EdgeDetector) Parameters() map[string]Parameter {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]Parameter{
		"threshold1": {
			Kind:  ParamSlider,
			Value: t.threshold1,
			Min:   0,
			Max:   255,
			Label: "Lower threshold",
		},
		"threshold2": {
			Kind:  ParamSlider,
			Value: t.threshold2,
			Min:   0,
			Max:   255,
			Label: "Upper threshold",
		},
	}
}
