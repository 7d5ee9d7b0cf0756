// Package buildinfo carries build-time metadata, kept separate from
// user configuration.
package buildinfo

import "runtime/debug"

// Version and BuildDate are injected with -ldflags at build time.
// They fall back to module metadata for plain `go install` builds.
var (
	Version   = ""
	BuildDate = "unknown"
)

// GetVersion returns the release version, the VCS revision when built
// without ldflags, or "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 8 {
				return setting.Value[:8]
			}
		}
	}
	return "dev"
}

// GetBuildDate returns the build date string.
func GetBuildDate() string {
	return BuildDate
}
