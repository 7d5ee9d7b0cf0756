package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/framescope/framescope/cmd/benchmark"
	"github.com/framescope/framescope/cmd/capture"
	"github.com/framescope/framescope/cmd/play"
	"github.com/framescope/framescope/internal/buildinfo"
	"github.com/framescope/framescope/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "framescope",
		Short:   "FrameScope CLI",
		Long:    "Acquire, process and record image frames from cameras, image sequences, volumetric stacks and screen capture.",
		Version: buildinfo.GetVersion(),
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		capture.Command(settings),
		play.Command(settings),
		benchmark.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines the global flags shared by every subcommand.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Source.Kind, "kind", viper.GetString("source.kind"), "Source kind (camera, screen, image_sequence, volumetric)")
	cmd.PersistentFlags().StringVar(&settings.Source.Device, "device", viper.GetString("source.device"), "Capture device for camera sources")
	cmd.PersistentFlags().StringVar(&settings.Source.Path, "path", viper.GetString("source.path"), "File or directory for sequence and volumetric sources")
	cmd.PersistentFlags().Float64Var(&settings.Source.FPS, "fps", viper.GetFloat64("source.fps"), "Nominal acquisition rate")
	cmd.PersistentFlags().BoolVar(&settings.Source.Loop, "loop", viper.GetBool("source.loop"), "Wrap at the end of finite sources")
	cmd.PersistentFlags().StringVar(&settings.Transform.Name, "transform", viper.GetString("transform.name"), "Transform to apply (identity, convolution, edge)")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
