// config.go: settings struct and functions to load and save the FrameScope configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Log rotation policies
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to the log file
	Rotation string // rotation policy, "daily", "weekly" or "size"
	MaxSize  int64  // max size in bytes for size-based rotation
}

// MainSettings contains process-wide settings.
type MainSettings struct {
	Name string    // name of this node, used in logs and the status API
	Log  LogConfig // main log settings
}

// SourceSettings selects and configures the acquisition source.
type SourceSettings struct {
	Kind   string  // "camera", "screen", "image_sequence" or "volumetric"
	Device string  // ffmpeg input for camera sources, e.g. /dev/video0 or an URL
	Path   string  // file or directory for sequence and volumetric sources
	FPS    float64 // nominal acquisition rate for paced sources
	Loop   bool    // wrap at the end of finite sources
	Width  int     // requested capture width (camera/screen)
	Height int     // requested capture height (camera/screen)
}

// PipelineSettings configures the processing pipeline buffers.
type PipelineSettings struct {
	BufferSize int // ring buffer capacity, frames
	QueueSize  int // acquisition to processing hand-off queue capacity
}

// TransformSettings selects and configures the processing transform.
type TransformSettings struct {
	Name      string // "identity", "convolution" or "edge"
	Kernel    string // convolution kernel name
	Normalize bool   // normalize convolution output
	EdgeLow   int    // edge detector lower threshold
	EdgeHigh  int    // edge detector upper threshold
}

// RecordingSettings configures the numbered-file recording sink.
type RecordingSettings struct {
	Path     string  // base directory for recording sessions
	MaxUsage float64 // refuse new sessions above this disk usage percentage
}

// PlaybackSettings configures the playback controller.
type PlaybackSettings struct {
	FPS  float64 // initial playback rate
	Loop bool    // wrap at the last frame
}

// WebserverSettings configures the status HTTP server.
type WebserverSettings struct {
	Enabled bool   // true to serve status and metrics endpoints
	Listen  string // listen address, e.g. "0.0.0.0:8090"
	Debug   bool   // true to enable request logging
}

// Settings is the root configuration for FrameScope.
type Settings struct {
	Debug bool // true to enable debug log output

	Main      MainSettings
	Source    SourceSettings
	Pipeline  PipelineSettings
	Transform TransformSettings
	Recording RecordingSettings
	Playback  PlaybackSettings
	Webserver WebserverSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the shared settings instance, loading it on first
// use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		settingsInstance = Load()
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Load reads the configuration from disk, creating a default config
// file if none exists.
func Load() *Settings {
	settings := &Settings{}

	initViper()

	if err := viper.Unmarshal(settings); err != nil {
		fmt.Fprintf(os.Stderr, "error unmarshaling config into struct: %v\n", err)
	}

	return settings
}

func initViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths := configSearchPaths()
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if err := createDefaultConfig(configPaths[0]); err != nil {
				fmt.Fprintf(os.Stderr, "error creating default config file: %v\n", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "error reading config file: %v\n", err)
		}
	}
}

// configSearchPaths returns the directories probed for config.yaml,
// most specific first.
func configSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "framescope"))
	}
	return paths
}

// createDefaultConfig writes the embedded default config file into dir
// and points viper at it.
func createDefaultConfig(dir string) error {
	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("writing default config to %s: %w", configPath, err)
	}

	return viper.ReadInConfig()
}

// Save writes the current settings to the given path as YAML.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}

	return nil
}
