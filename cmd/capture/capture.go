// Package capture implements the capture subcommand: it runs the
// acquisition pipeline against the configured source until
// interrupted.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/httpserver"
	"github.com/framescope/framescope/internal/logging"
	"github.com/framescope/framescope/internal/observability"
	"github.com/framescope/framescope/internal/pipeline"
	"github.com/framescope/framescope/internal/recording"
	"github.com/framescope/framescope/internal/source"
	"github.com/framescope/framescope/internal/transform"
)

var (
	record      bool
	sessionName string
	duration    time.Duration
)

// Command creates the capture subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Acquire and process frames from the configured source",
		Long:  "Run the acquisition and processing loops against the configured source, optionally recording processed frames and serving the status API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(settings)
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Record processed frames from the start")
	cmd.Flags().StringVar(&sessionName, "session", "", "Recording session name (default: derived from wall-clock time)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this duration (0 = run until interrupted)")
	cmd.Flags().StringVar(&settings.Recording.Path, "recordpath", viper.GetString("recording.path"), "Base directory for recording sessions")
	cmd.Flags().StringVar(&settings.Webserver.Listen, "listen", viper.GetString("webserver.listen"), "Status API listen address")

	return cmd
}

func runCapture(settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := source.New(settings)
	if err != nil {
		return err
	}
	tr, err := transform.New(settings)
	if err != nil {
		return err
	}
	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	recorder := recording.NewService(recording.Config{
		BaseDir:  settings.Recording.Path,
		MaxUsage: settings.Recording.MaxUsage,
		Metrics:  metrics.Recorder,
	})

	p := pipeline.New(&pipeline.Config{
		Source:     src,
		Transform:  tr,
		Recorder:   recorder,
		BufferSize: settings.Pipeline.BufferSize,
		QueueSize:  settings.Pipeline.QueueSize,
		Metrics:    metrics.Pipeline,
	})

	if err := p.Start(); err != nil {
		return err
	}

	info := src.Info()
	fmt.Printf("FrameScope capturing from %s (%s, %s @ %.4g fps)\n",
		info.Name, info.Kind, info.Resolution(), info.FPS)

	if record {
		dir, err := recorder.Start(sessionName)
		if err != nil {
			_ = p.Stop()
			return err
		}
		fmt.Printf("Recording to %s\n", dir)
	}

	var server *httpserver.Server
	if settings.Webserver.Enabled {
		server = httpserver.New(settings, p, metrics)
		go func() {
			if err := server.Start(); err != nil {
				logging.Error("http server failed", "error", err)
			}
		}()
		fmt.Printf("Status API on http://%s\n", settings.Webserver.Listen)
	}

	waitForShutdown(duration)

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			logging.Warn("http server shutdown failed", "error", err)
		}
		cancel()
	}
	if err := p.Stop(); err != nil {
		return err
	}

	stats := p.GetBufferInfo()
	fmt.Printf("Acquired %d frames, processed %d, dropped %d\n",
		stats.FramesAcquired, stats.FramesProcessed, stats.FramesDropped)
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or the optional
// duration elapses.
func waitForShutdown(d time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if d > 0 {
		select {
		case <-sigChan:
		case <-time.After(d):
		}
		return
	}
	<-sigChan
}
