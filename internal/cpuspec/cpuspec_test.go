package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13600K", 6},
		{"14th Gen Intel(R) Core(TM) i3-14100", 4},
		{"Apple M1", 4},
		{"Apple M2 Max", 12},
		{"Apple M1 Ultra", 16},
		{"AMD Ryzen 9 5950X 16-Core Processor", 0},
		{"", 0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, determinePerformanceCores(tc.brand), "brand %q", tc.brand)
	}
}

func TestGetOptimalWorkerCount(t *testing.T) {
	t.Parallel()

	// P-core count is capped by the CPUs actually available.
	spec := CPUSpec{BrandName: "test", PerformanceCores: runtime.NumCPU() + 8}
	assert.Equal(t, runtime.NumCPU(), spec.GetOptimalWorkerCount())

	// A small P-core count is used as-is.
	spec = CPUSpec{BrandName: "test", PerformanceCores: 1}
	assert.Equal(t, 1, spec.GetOptimalWorkerCount())

	// Unknown models still return something usable.
	spec = GetCPUSpec()
	assert.Positive(t, spec.GetOptimalWorkerCount())
}
