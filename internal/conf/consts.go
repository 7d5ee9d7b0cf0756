// consts.go: platform-dependent constants used by the default config.
package conf

import "runtime"

// Source kinds accepted in source.kind.
var ValidSourceKinds = []string{"camera", "screen", "image_sequence", "volumetric"}

// Transform names accepted in transform.name.
var ValidTransforms = []string{"identity", "convolution", "edge"}

// defaultCameraDevice returns a sensible ffmpeg capture input for the
// current platform.
func defaultCameraDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "0"
	case "windows":
		return "video=Integrated Camera"
	default:
		return "/dev/video0"
	}
}

// CaptureFormat returns the ffmpeg input format flag for the current
// platform's camera capture.
func CaptureFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}
