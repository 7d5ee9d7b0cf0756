package playback

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the drive loop never leaks goroutines across the
// package's tests.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}
