// Package play implements the play subcommand: timed playback over a
// seekable source, driven by the playback controller.
package play

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/pipeline"
	"github.com/framescope/framescope/internal/playback"
	"github.com/framescope/framescope/internal/source"
	"github.com/framescope/framescope/internal/transform"
)

// Command creates the play subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play back a seekable source on a virtual timeline",
		Long:  "Drive a seekable source (image sequence or volumetric stack) with the playback controller, processing each visited frame through the configured transform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(settings)
		},
	}

	cmd.Flags().Float64Var(&settings.Playback.FPS, "playfps", viper.GetFloat64("playback.fps"), "Playback rate, clamped to [1,120]")
	cmd.Flags().BoolVar(&settings.Playback.Loop, "playloop", viper.GetBool("playback.loop"), "Wrap to the first frame at the end")

	return cmd
}

func runPlay(settings *conf.Settings) error {
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

	p := pipeline.New(&pipeline.Config{
		Source:     src,
		Transform:  tr,
		BufferSize: settings.Pipeline.BufferSize,
		QueueSize:  settings.Pipeline.QueueSize,
	})
	if err := p.Start(); err != nil {
		return err
	}
	defer func() { _ = p.Stop() }()

	if !src.SupportsSeek() {
		return fmt.Errorf("source kind %q does not support playback", settings.Source.Kind)
	}

	controller := playback.NewController(settings.Playback.FPS)
	controller.SetLoop(settings.Playback.Loop)
	if total, known := src.TotalFrames(); known {
		controller.SetTotalFrames(total)
	}
	// The controller only announces target positions; the source does
	// the actual seeking.
	controller.SetFrameCallback(func(frameNumber int) {
		src.Seek(frameNumber)
	})

	info := src.Info()
	fmt.Printf("Playing %s (%d frames) at %.4g fps\n",
		info.Name, info.TotalFrames, controller.FPS())

	controller.Play()
	defer controller.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			if controller.State() == playback.StatePaused {
				// Reached the end with looping disabled.
				fmt.Printf("Playback finished at frame %d\n", controller.CurrentFrame())
				return nil
			}
		}
	}
}
