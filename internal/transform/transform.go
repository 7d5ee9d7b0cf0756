// Package transform provides the processing transform contract and
// the identity, convolution and edge detection implementations.
package transform

import (
	"image"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/errors"
)

// ParamKind classifies a transform parameter for self-describing
// schemas.
type ParamKind string

const (
	ParamChoice ParamKind = "choice"
	ParamBool   ParamKind = "bool"
	ParamSlider ParamKind = "slider"
)

// Parameter describes one configurable option of a transform. The
// schema returned by Parameters stays consistent with what Configure
// accepts: every key present in the schema is a valid Configure key,
// with choices and bounds enforced.
type Parameter struct {
	Kind    ParamKind `json:"kind"`
	Value   any       `json:"value"`
	Choices []string  `json:"choices,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Label   string    `json:"label"`
}

// Transform is the contract every processing transform satisfies.
// Process must be a pure function of its input: it never mutates the
// input image and returns a freshly allocated result (identity being
// the one documented exception).
type Transform interface {
	// Configure applies the given options. Valid keys are applied
	// even when the call also carries invalid ones; the returned
	// error reports every rejected key.
	Configure(options map[string]any) error
	// Process transforms one frame.
	Process(img image.Image) (image.Image, error)
	// Name returns the transform's display name.
	Name() string
	// Parameters returns the self-describing parameter schema.
	Parameters() map[string]Parameter
}

// New builds the transform selected by the settings.
func New(settings *conf.Settings) (Transform, error) {
	switch settings.Transform.Name {
	case "identity":
		return NewIdentity(), nil
	case "convolution":
		t := NewConvolution()
		if err := t.Configure(map[string]any{
			"kernel_name": settings.Transform.Kernel,
			"normalize":   settings.Transform.Normalize,
		}); err != nil {
			return nil, err
		}
		return t, nil
	case "edge":
		t := NewEdgeDetector()
		if err := t.Configure(map[string]any{
			"threshold1": settings.Transform.EdgeLow,
			"threshold2": settings.Transform.EdgeHigh,
		}); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, errors.Newf("unknown transform: %s", settings.Transform.Name).
			Component("transform").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// configError builds the partial-apply error for rejected option keys.
func configError(name string, rejected map[string]any) error {
	eb := errors.Newf("transform %s rejected %d option(s)", name, len(rejected)).
		Component("transform").
		Category(errors.CategoryValidation)
	for k, v := range rejected {
		eb.Context(k, v)
	}
	return eb.Build()
}

// asFloat coerces the numeric types a config map may carry.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
