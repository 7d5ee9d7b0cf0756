// Package benchmark implements the benchmark subcommand: it measures
// transform throughput on synthetic frames.
package benchmark

import (
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/cpuspec"
	"github.com/framescope/framescope/internal/transform"
)

var (
	width    int
	height   int
	runTime  time.Duration
	parallel bool
)

// Command creates the benchmark subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure transform throughput on synthetic frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 8 || height < 8 {
				return fmt.Errorf("frame size must be at least 8x8, got %dx%d", width, height)
			}
			return runBenchmark()
		},
	}

	cmd.Flags().IntVar(&width, "width", 640, "synthetic frame width")
	cmd.Flags().IntVar(&height, "height", 480, "synthetic frame height")
	cmd.Flags().DurationVar(&runTime, "time", 3*time.Second, "measurement time per transform")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run one worker per performance core")

	return cmd
}

type benchResult struct {
	name      string
	frames    int64
	perFrame  time.Duration
	framesSec float64
}

func runBenchmark() error {
	spec := cpuspec.GetCPUSpec()
	workers := 1
	if parallel {
		workers = spec.GetOptimalWorkerCount()
	}

	fmt.Printf("FrameScope transform benchmark\n")
	if spec.BrandName != "" {
		fmt.Printf("CPU: %s\n", spec.BrandName)
	}
	fmt.Printf("Frame size: %dx%d, workers: %d, %s per transform\n\n", width, height, workers, runTime)

	img := syntheticFrame(width, height)

	transforms := []transform.Transform{transform.NewIdentity()}
	for _, kernelName := range transform.KernelNames() {
		t := transform.NewConvolution()
		if err := t.Configure(map[string]any{"kernel_name": kernelName}); err != nil {
			return err
		}
		transforms = append(transforms, t)
	}
	transforms = append(transforms, transform.NewEdgeDetector())

	fmt.Printf("%-24s  %12s  %14s  %12s\n", "Transform", "Frames", "Per-Frame", "Throughput")
	fmt.Printf("%-24s  %12s  %14s  %12s\n", "────────────────────", "──────────", "────────────", "──────────")

	for _, t := range transforms {
		result, err := measure(t, img, workers)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s  %12d  %11.3f ms  %8.1f fps\n",
			result.name, result.frames,
			float64(result.perFrame.Microseconds())/1000,
			result.framesSec)
	}
	return nil
}

// measure runs the transform over copies of img for the configured
// time and reports aggregate throughput.
func measure(t transform.Transform, img image.Image, workers int) (benchResult, error) {
	var frames atomic.Int64
	var firstErr atomic.Value

	deadline := time.Now().Add(runTime)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if _, err := t.Process(img); err != nil {
					firstErr.Store(err)
					return
				}
				frames.Add(1)
			}
		}()
	}
	wg.Wait()

	if err, ok := firstErr.Load().(error); ok {
		return benchResult{}, fmt.Errorf("transform %q failed: %w", t.Name(), err)
	}

	total := frames.Load()
	result := benchResult{
		name:      t.Name(),
		frames:    total,
		framesSec: float64(total) / runTime.Seconds(),
	}
	if total > 0 {
		// Wall-clock per frame across all workers.
		result.perFrame = time.Duration(int64(runTime) * int64(workers) / total)
	}
	return result, nil
}

// syntheticFrame builds a noise image so convolution cost is
// representative of real content.
func syntheticFrame(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewPCG(1, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.UintN(256))
	}
	return img
}
