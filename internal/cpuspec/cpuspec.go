// Package cpuspec detects performance core counts on hybrid CPUs so
// compute-heavy work can size its worker pool sensibly.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about the CPU of the host.
type CPUSpec struct {
	BrandName        string
	PerformanceCores int
}

// GetCPUSpec returns CPU specifications including the number of
// performance cores, when the model is recognized.
func GetCPUSpec() CPUSpec {
	brandName := cpuid.CPU.BrandName
	return CPUSpec{
		BrandName:        brandName,
		PerformanceCores: determinePerformanceCores(brandName),
	}
}

// GetOptimalWorkerCount returns the recommended number of parallel
// transform workers. On hybrid architectures only performance cores
// are counted; otherwise all logical cores are used.
func (c CPUSpec) GetOptimalWorkerCount() int {
	availableCPUs := runtime.NumCPU()

	if c.PerformanceCores > 0 {
		if c.PerformanceCores > availableCPUs {
			return availableCPUs
		}
		return c.PerformanceCores
	}

	if cores := cpuid.CPU.LogicalCores; cores > 0 {
		return cores
	}
	return availableCPUs
}

var (
	intelCoreRegex = regexp.MustCompile(`intel.*core.*i[3579]-(\d{5})`)
	appleRegex     = regexp.MustCompile(`(?i)apple\s+(m[1234]\s*(pro|max|ultra)?)\s*`)
)

// determinePerformanceCores maps known hybrid CPU models to their
// P-core counts. Unknown models return 0.
func determinePerformanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	// Intel 12th-14th gen hybrid parts.
	if matches := intelCoreRegex.FindStringSubmatch(brandName); len(matches) > 1 {
		model := matches[1]
		switch {
		case strings.HasPrefix(model, "129"), strings.HasPrefix(model, "127"),
			strings.HasPrefix(model, "139"), strings.HasPrefix(model, "137"),
			strings.HasPrefix(model, "149"), strings.HasPrefix(model, "147"):
			return 8
		case strings.HasPrefix(model, "126"), strings.HasPrefix(model, "124"),
			strings.HasPrefix(model, "136"), strings.HasPrefix(model, "135"),
			strings.HasPrefix(model, "134"), strings.HasPrefix(model, "146"),
			strings.HasPrefix(model, "144"):
			return 6
		case strings.HasPrefix(model, "121"), strings.HasPrefix(model, "131"),
			strings.HasPrefix(model, "141"):
			return 4
		}
	}

	// Apple Silicon.
	if matches := appleRegex.FindStringSubmatch(brandName); len(matches) > 1 {
		chip := strings.ToLower(strings.Join(strings.Fields(matches[1]), " "))
		switch chip {
		case "m1", "m2", "m3":
			return 4
		case "m4":
			return 6
		case "m1 pro", "m1 max", "m2 pro", "m3 pro", "m4 pro":
			return 8
		case "m2 max", "m3 max", "m4 max":
			return 12
		case "m1 ultra":
			return 16
		case "m2 ultra", "m3 ultra":
			return 24
		}
	}

	return 0
}
