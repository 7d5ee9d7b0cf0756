package transform

import (
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/framescope/framescope/internal/errors"
)

// kernel is a square convolution mask of size 3 or 5.
type kernel struct {
	size int
	k3   [9]float64
	k5   [25]float64
}

// kernels holds the predefined convolution masks by display name.
var kernels = map[string]kernel{
	"Average 3x3": {size: 3, k3: [9]float64{
		1.0 / 9, 1.0 / 9, 1.0 / 9,
		1.0 / 9, 1.0 / 9, 1.0 / 9,
		1.0 / 9, 1.0 / 9, 1.0 / 9,
	}},
	"Average 5x5": {size: 5, k5: average5x5()},
	"Gaussian 3x3": {size: 3, k3: [9]float64{
		1.0 / 16, 2.0 / 16, 1.0 / 16,
		2.0 / 16, 4.0 / 16, 2.0 / 16,
		1.0 / 16, 2.0 / 16, 1.0 / 16,
	}},
	"Gaussian 5x5": {size: 5, k5: gaussian5x5()},
	"Sobel X": {size: 3, k3: [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}},
	"Sobel Y": {size: 3, k3: [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}},
	"Laplacian": {size: 3, k3: [9]float64{
		0, 1, 0,
		1, -4, 1,
		0, 1, 0,
	}},
	"Laplacian 5x5": {size: 5, k5: [25]float64{
		0, 0, -1, 0, 0,
		0, -1, -2, -1, 0,
		-1, -2, 16, -2, -1,
		0, -1, -2, -1, 0,
		0, 0, -1, 0, 0,
	}},
	"Sharpen": {size: 3, k3: [9]float64{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	}},
	"Edge Detection": {size: 3, k3: [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}},
}

func average5x5() (k [25]float64) {
	for i := range k {
		k[i] = 1.0 / 25
	}
	return k
}

// gaussian5x5 returns the binomial 5x5 Gaussian mask (sum 256).
func gaussian5x5() (k [25]float64) {
	row := [5]float64{1, 4, 6, 4, 1}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			k[y*5+x] = row[y] * row[x] / 256.0
		}
	}
	return k
}

// KernelNames returns the available kernel names, sorted.
func KernelNames() []string {
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Convolution applies one of the predefined kernels to a grayscale
// rendition of the frame. Masks with negative coefficients can be
// normalized into the visible range with the normalize option.
type Convolution struct {
	mu         sync.Mutex
	kernelName string
	normalize  bool
}

// NewConvolution creates a convolution transform with the default
// kernel.
func NewConvolution() *Convolution {
	return &Convolution{
		kernelName: "Average 3x3",
		normalize:  true,
	}
}

// Configure applies kernel_name and normalize options. Valid keys are
// applied even when others are rejected.
func (t *Convolution) Configure(options map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rejected := map[string]any{}
	for key, value := range options {
		switch key {
		case "kernel_name":
			name, ok := value.(string)
			if !ok {
				rejected[key] = value
				continue
			}
			if _, exists := kernels[name]; !exists {
				rejected[key] = value
				continue
			}
			t.kernelName = name
		case "normalize":
			b, ok := value.(bool)
			if !ok {
				rejected[key] = value
				continue
			}
			t.normalize = b
		default:
			rejected[key] = value
		}
	}

	if len(rejected) > 0 {
		return configError(t.Name(), rejected)
	}
	return nil
}

// Process convolves a grayscale rendition of the frame with the
// current kernel.
func (t *Convolution) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.NewStd("nil frame")
	}

	t.mu.Lock()
	k := kernels[t.kernelName]
	normalize := t.normalize
	t.mu.Unlock()

	opts := &imaging.ConvolveOptions{Abs: normalize}

	gray := imaging.Grayscale(img)
	switch k.size {
	case 5:
		return imaging.Convolve5x5(gray, k.k5, opts), nil
	default:
		return imaging.Convolve3x3(gray, k.k3, opts), nil
	}
}

// Name returns the transform's display name.
func (t *Convolution) Name() string {
	return "Convolution"
}

// Parameters returns the self-describing parameter schema.
func (t *Convolution) Parameters() map[string]Parameter {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]Parameter{
		"kernel_name": {
			Kind:    ParamChoice,
			Value:   t.kernelName,
			Choices: KernelNames(),
			Label:   "Kernel",
		},
		"normalize": {
			Kind:  ParamBool,
			Value: t.normalize,
			Label: "Normalize output",
		},
	}
}
