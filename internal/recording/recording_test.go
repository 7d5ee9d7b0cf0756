package recording

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framescope/framescope/internal/frame"
)

func testFrame(number int64) *frame.Frame {
	return &frame.Frame{
		Image:     image.NewNRGBA(image.Rect(0, 0, 4, 4)),
		Timestamp: time.Now(),
		Number:    number,
		Source:    "test",
	}
}

func TestStartCreatesSessionDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	svc := NewService(Config{BaseDir: base})

	dir, err := svc.Start("session1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "session1"), dir)
	assert.DirExists(t, dir)
	assert.True(t, svc.Active())
}

func TestStartDefaultNameFromClock(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})

	dir, err := svc.Start("")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(dir), "recording_")
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})

	dir1, err := svc.Start("a")
	require.NoError(t, err)
	require.NoError(t, svc.RecordFrame(testFrame(0)))
	require.NoError(t, svc.RecordFrame(testFrame(1)))

	// A second start returns the same path and keeps the counter.
	dir2, err := svc.Start("b")
	require.NoError(t, err)
	assert.Equal(t, dir1, dir2)
	assert.Equal(t, 2, svc.FrameCount())
}

func TestRecordFrameWhileIdleFails(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})
	assert.Error(t, svc.RecordFrame(testFrame(0)))
	assert.Equal(t, 0, svc.FrameCount())
}

func TestRecordFrameWritesNumberedFiles(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})
	dir, err := svc.Start("seq")
	require.NoError(t, err)

	const n = 5
	for i := int64(0); i < n; i++ {
		require.NoError(t, svc.RecordFrame(testFrame(i)))
	}

	for i := 0; i < n; i++ {
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestStopReturnsPathAndCount(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})
	dir, err := svc.Start("done")
	require.NoError(t, err)
	require.NoError(t, svc.RecordFrame(testFrame(0)))

	gotDir, gotFrames := svc.Stop()
	assert.Equal(t, dir, gotDir)
	assert.Equal(t, 1, gotFrames)
	assert.False(t, svc.Active())
	assert.Empty(t, svc.Dir())

	// Stopping again while idle reports the zero values.
	gotDir, gotFrames = svc.Stop()
	assert.Empty(t, gotDir)
	assert.Zero(t, gotFrames)
}

func TestRestartResetsCounter(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})

	_, err := svc.Start("first")
	require.NoError(t, err)
	require.NoError(t, svc.RecordFrame(testFrame(0)))
	svc.Stop()

	dir, err := svc.Start("second")
	require.NoError(t, err)
	require.NoError(t, svc.RecordFrame(testFrame(7)))

	// The new session numbers from zero again.
	assert.FileExists(t, filepath.Join(dir, "frame_000000.png"))
	assert.Equal(t, 1, svc.FrameCount())
}

func TestRecordFrameNilFrame(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{BaseDir: t.TempDir()})
	_, err := svc.Start("x")
	require.NoError(t, err)

	assert.Error(t, svc.RecordFrame(nil))
	assert.Error(t, svc.RecordFrame(&frame.Frame{}))
	assert.Equal(t, 0, svc.FrameCount())
}
