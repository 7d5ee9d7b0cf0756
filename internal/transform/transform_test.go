package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framescope/framescope/internal/conf"
)

// gradientImage returns a small image with a hard vertical edge in
// the middle.
func gradientImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			var v uint8
			if x >= 8 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestIdentityPassThrough(t *testing.T) {
	t.Parallel()

	id := NewIdentity()
	in := gradientImage()

	out, err := id.Process(in)
	require.NoError(t, err)
	assert.Same(t, image.Image(in), out)

	assert.NoError(t, id.Configure(nil))
	assert.Error(t, id.Configure(map[string]any{"anything": 1}))
	assert.Empty(t, id.Parameters())
}

func TestConvolutionProcess(t *testing.T) {
	t.Parallel()

	conv := NewConvolution()
	in := gradientImage()

	out, err := conv.Process(in)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Bounds(), out.Bounds())
	// Process must not alias its input.
	assert.NotSame(t, image.Image(in), out)
}

func TestConvolutionAllKernels(t *testing.T) {
	t.Parallel()

	in := gradientImage()
	for _, name := range KernelNames() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			conv := NewConvolution()
			require.NoError(t, conv.Configure(map[string]any{"kernel_name": name}))

			out, err := conv.Process(in)
			require.NoError(t, err)
			assert.Equal(t, in.Bounds(), out.Bounds())
		})
	}
}

func TestConvolutionConfigurePartialApply(t *testing.T) {
	t.Parallel()

	conv := NewConvolution()
	err := conv.Configure(map[string]any{
		"kernel_name": "Sobel X",
		"bogus_key":   42,
	})

	// The invalid key is reported, the valid one is applied.
	require.Error(t, err)
	assert.Equal(t, "Sobel X", conv.Parameters()["kernel_name"].Value)
}

func TestConvolutionConfigureRejectsUnknownKernel(t *testing.T) {
	t.Parallel()

	conv := NewConvolution()
	err := conv.Configure(map[string]any{"kernel_name": "Mystery 7x7"})
	require.Error(t, err)
	assert.Equal(t, "Average 3x3", conv.Parameters()["kernel_name"].Value)
}

func TestConvolutionParametersSchema(t *testing.T) {
	t.Parallel()

	params := NewConvolution().Parameters()

	require.Contains(t, params, "kernel_name")
	assert.Equal(t, ParamChoice, params["kernel_name"].Kind)
	assert.ElementsMatch(t, KernelNames(), params["kernel_name"].Choices)

	require.Contains(t, params, "normalize")
	assert.Equal(t, ParamBool, params["normalize"].Kind)

	// Every advertised choice must be accepted by Configure.
	for _, choice := range params["kernel_name"].Choices {
		conv := NewConvolution()
		assert.NoError(t, conv.Configure(map[string]any{"kernel_name": choice}))
	}
}

func TestEdgeDetectorFindsEdge(t *testing.T) {
	t.Parallel()

	ed := NewEdgeDetector()
	out, err := ed.Process(gradientImage())
	require.NoError(t, err)

	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok)

	// The hard vertical edge must produce strong pixels around x=8.
	var strong int
	for y := 1; y < 15; y++ {
		for x := 7; x <= 9; x++ {
			if nrgba.NRGBAAt(x, y).R == 255 {
				strong++
			}
		}
	}
	assert.Positive(t, strong)

	// Flat regions stay suppressed.
	assert.Equal(t, uint8(0), nrgba.NRGBAAt(2, 8).R)
	assert.Equal(t, uint8(0), nrgba.NRGBAAt(13, 8).R)
}

func TestEdgeDetectorConfigure(t *testing.T) {
	t.Parallel()

	ed := NewEdgeDetector()
	require.NoError(t, ed.Configure(map[string]any{
		"threshold1": 10,
		"threshold2": 200,
	}))
	assert.Equal(t, 10, ed.Parameters()["threshold1"].Value)
	assert.Equal(t, 200, ed.Parameters()["threshold2"].Value)

	// Out-of-range values are rejected, in-range ones applied.
	err := ed.Configure(map[string]any{
		"threshold1": 500,
		"threshold2": 90,
	})
	require.Error(t, err)
	assert.Equal(t, 10, ed.Parameters()["threshold1"].Value)
	assert.Equal(t, 90, ed.Parameters()["threshold2"].Value)
}

func TestNewFromSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transform string
		wantName  string
		wantErr   bool
	}{
		{"identity", "identity", "No Processing", false},
		{"convolution", "convolution", "Convolution", false},
		{"edge", "edge", "Edge Detector", false},
		{"unknown", "sharpen9000", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := &conf.Settings{}
			s.Transform.Name = tc.transform
			s.Transform.Kernel = "Average 3x3"
			s.Transform.EdgeLow = 50
			s.Transform.EdgeHigh = 150

			tr, err := New(s)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, tr.Name())
		})
	}
}
