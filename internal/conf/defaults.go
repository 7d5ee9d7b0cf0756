// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FrameScope")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "framescope.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("source.kind", "camera")
	viper.SetDefault("source.device", defaultCameraDevice())
	viper.SetDefault("source.path", "")
	viper.SetDefault("source.fps", 30.0)
	viper.SetDefault("source.loop", false)
	viper.SetDefault("source.width", 640)
	viper.SetDefault("source.height", 480)

	viper.SetDefault("pipeline.buffersize", 100)
	viper.SetDefault("pipeline.queuesize", 10)

	viper.SetDefault("transform.name", "identity")
	viper.SetDefault("transform.kernel", "Average 3x3")
	viper.SetDefault("transform.normalize", true)
	viper.SetDefault("transform.edgelow", 50)
	viper.SetDefault("transform.edgehigh", 150)

	viper.SetDefault("recording.path", "recordings/")
	viper.SetDefault("recording.maxusage", 90.0)

	viper.SetDefault("playback.fps", 30.0)
	viper.SetDefault("playback.loop", false)

	viper.SetDefault("webserver.enabled", false)
	viper.SetDefault("webserver.listen", "0.0.0.0:8090")
	viper.SetDefault("webserver.debug", false)
}
