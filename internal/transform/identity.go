package transform

import "image"

// Identity passes frames through unchanged. It is the default
// transform and the baseline for pipeline benchmarks.
type Identity struct{}

// NewIdentity creates the identity transform.
func NewIdentity() *Identity {
	return &Identity{}
}

// Configure accepts no options; any key is rejected.
func (t *Identity) Configure(options map[string]any) error {
	if len(options) == 0 {
		return nil
	}
	return configError(t.Name(), options)
}

// Process returns the input unchanged. The pipeline clones frames
// before publishing, so sharing the input is safe.
func (t *Identity) Process(img image.Image) (image.Image, error) {
	return img, nil
}

// Name returns the transform's display name.
func (t *Identity) Name() string {
	return "No Processing"
}

// Parameters returns an empty schema.
func (t *Identity) Parameters() map[string]Parameter {
	return map[string]Parameter{}
}
