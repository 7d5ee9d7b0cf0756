// validate.go: configuration validation run after loading settings.
package conf

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError collects all problems found in a settings struct.
type ValidationError struct {
	Errors []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the loaded settings for consistency. It
// returns a ValidationError listing every problem found, or nil.
func ValidateSettings(s *Settings) error {
	ve := &ValidationError{}

	if !slices.Contains(ValidSourceKinds, s.Source.Kind) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("source.kind %q is not one of %v", s.Source.Kind, ValidSourceKinds))
	}
	switch s.Source.Kind {
	case "image_sequence", "volumetric":
		if s.Source.Path == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("source.path is required for %s sources", s.Source.Kind))
		}
	}
	if s.Source.FPS <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("source.fps must be positive, got %g", s.Source.FPS))
	}

	if s.Pipeline.BufferSize < 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("pipeline.buffersize must be at least 1, got %d", s.Pipeline.BufferSize))
	}
	if s.Pipeline.QueueSize < 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("pipeline.queuesize must be at least 1, got %d", s.Pipeline.QueueSize))
	}

	if !slices.Contains(ValidTransforms, s.Transform.Name) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("transform.name %q is not one of %v", s.Transform.Name, ValidTransforms))
	}
	if s.Transform.EdgeLow < 0 || s.Transform.EdgeHigh > 255 || s.Transform.EdgeLow > s.Transform.EdgeHigh {
		ve.Errors = append(ve.Errors, fmt.Sprintf("transform edge thresholds must satisfy 0 <= low <= high <= 255, got %d..%d", s.Transform.EdgeLow, s.Transform.EdgeHigh))
	}

	if s.Recording.MaxUsage <= 0 || s.Recording.MaxUsage > 100 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("recording.maxusage must be in (0,100], got %g", s.Recording.MaxUsage))
	}

	if s.Playback.FPS < 1 || s.Playback.FPS > 120 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("playback.fps must be within [1,120], got %g", s.Playback.FPS))
	}

	if s.Webserver.Enabled && s.Webserver.Listen == "" {
		ve.Errors = append(ve.Errors, "webserver.listen must be set when the webserver is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
