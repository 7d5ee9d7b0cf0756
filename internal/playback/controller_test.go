package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameRecorder collects callback invocations with timestamps.
type frameRecorder struct {
	mu     sync.Mutex
	frames []int
	times  []time.Time
}

func (r *frameRecorder) callback(frameNumber int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frameNumber)
	r.times = append(r.times, time.Now())
}

func (r *frameRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.frames...)
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) intervals() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, 0, len(r.times))
	for i := 1; i < len(r.times); i++ {
		out = append(out, r.times[i].Sub(r.times[i-1]))
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	c := NewController(30)
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 0, c.CurrentFrame())
	assert.InDelta(t, 30.0, c.FPS(), 0.001)
}

func TestFPSClamping(t *testing.T) {
	t.Parallel()

	c := NewController(500)
	assert.InDelta(t, 120.0, c.FPS(), 0.001)

	c.SetFPS(0.1)
	assert.InDelta(t, 1.0, c.FPS(), 0.001)

	c.SetFPS(60)
	assert.InDelta(t, 60.0, c.FPS(), 0.001)
}

func TestSeekClamps(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(30)
	c.SetFrameCallback(rec.callback)
	c.SetTotalFrames(10)

	c.Seek(5)
	assert.Equal(t, 5, c.CurrentFrame())

	c.Seek(100)
	assert.Equal(t, 9, c.CurrentFrame())

	c.Seek(-3)
	assert.Equal(t, 0, c.CurrentFrame())

	// Each seek fires the callback synchronously.
	assert.Equal(t, []int{5, 9, 0}, rec.snapshot())
}

func TestSeekWithoutTotalClampsAtZeroOnly(t *testing.T) {
	t.Parallel()

	c := NewController(30)
	c.Seek(100000)
	assert.Equal(t, 100000, c.CurrentFrame())

	c.Seek(-1)
	assert.Equal(t, 0, c.CurrentFrame())
}

func TestStepBounds(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(30)
	c.SetFrameCallback(rec.callback)
	c.SetTotalFrames(3)

	// Backward at 0 is clamped and does not fire.
	c.StepBackward()
	assert.Equal(t, 0, c.CurrentFrame())
	assert.Equal(t, 0, rec.count())

	c.StepForward()
	c.StepForward()
	assert.Equal(t, 2, c.CurrentFrame())

	// Forward at the last index with loop disabled does not exceed it.
	c.StepForward()
	assert.Equal(t, 2, c.CurrentFrame())
	assert.Equal(t, []int{1, 2}, rec.snapshot())
}

func TestStepWorksWhileStopped(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(30)
	c.SetFrameCallback(rec.callback)

	require.Equal(t, StateStopped, c.State())
	c.StepForward()
	assert.Equal(t, 1, c.CurrentFrame())
	assert.Equal(t, 1, rec.count())
}

func TestPlayAdvancesAndPausesAtEnd(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(120)
	c.SetFrameCallback(rec.callback)
	c.SetTotalFrames(5)

	c.Play()
	assert.Equal(t, StatePlaying, c.State())

	// With loop disabled the drive loop pauses at the last index.
	waitFor(t, 2*time.Second, func() bool { return c.State() == StatePaused })
	assert.Equal(t, 4, c.CurrentFrame())
	assert.Equal(t, []int{1, 2, 3, 4}, rec.snapshot())

	c.Stop()
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 0, c.CurrentFrame())
}

func TestPlayLoopWrapsToZero(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(120)
	c.SetFrameCallback(rec.callback)
	c.SetTotalFrames(3)
	c.SetLoop(true)

	c.Play()
	// Wait until the timeline has wrapped at least once.
	waitFor(t, 2*time.Second, func() bool {
		for _, f := range rec.snapshot() {
			if f == 0 {
				return true
			}
		}
		return false
	})
	c.Stop()

	frames := rec.snapshot()
	for i, f := range frames {
		if f == 0 {
			require.Positive(t, i)
			assert.Equal(t, 2, frames[i-1], "wrap must happen from the last index")
			return
		}
	}
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(120)
	c.SetFrameCallback(rec.callback)
	c.Play()

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 2 })
	c.Pause()
	assert.Equal(t, StatePaused, c.State())

	// The drive loop winds down; no further callbacks arrive.
	time.Sleep(50 * time.Millisecond)
	n := rec.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, rec.count())

	c.Play()
	waitFor(t, 2*time.Second, func() bool { return rec.count() > n })
	c.Stop()
}

func TestTogglePlayPause(t *testing.T) {
	t.Parallel()

	c := NewController(60)
	c.TogglePlayPause()
	assert.Equal(t, StatePlaying, c.State())

	c.TogglePlayPause()
	assert.Equal(t, StatePaused, c.State())

	c.TogglePlayPause()
	assert.Equal(t, StatePlaying, c.State())
	c.Stop()
}

func TestSetFPSTakesEffectMidPlayback(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(5) // 200ms ticks
	c.SetFrameCallback(rec.callback)
	c.Play()

	waitFor(t, 3*time.Second, func() bool { return rec.count() >= 2 })
	c.SetFPS(100) // 10ms ticks
	waitFor(t, 3*time.Second, func() bool { return rec.count() >= 8 })
	c.Stop()

	intervals := rec.intervals()
	require.GreaterOrEqual(t, len(intervals), 5)
	// The later intervals must be clearly shorter than the 200ms
	// start rate.
	last := intervals[len(intervals)-1]
	assert.Less(t, last, 100*time.Millisecond)
}

func TestCallbackReentrancyDoesNotDeadlock(t *testing.T) {
	t.Parallel()

	c := NewController(120)
	c.SetTotalFrames(100)

	done := make(chan struct{})
	var once sync.Once
	c.SetFrameCallback(func(frameNumber int) {
		// Callbacks legitimately call back into the controller.
		c.CurrentFrame()
		if frameNumber >= 3 {
			c.Seek(0)
			once.Do(func() { close(done) })
		}
	})

	c.Play()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant callback deadlocked")
	}
	c.Stop()
}

func TestCallbackPanicIsContained(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	calls := 0
	c := NewController(120)
	c.SetFrameCallback(func(frameNumber int) {
		calls++
		if calls == 1 {
			panic("listener bug")
		}
		rec.callback(frameNumber)
	})

	c.Play()
	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 2 })
	c.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewController(60)
	c.Play()
	c.Stop()
	c.Stop()
	assert.Equal(t, StateStopped, c.State())
}

func TestConcurrentStopAndPlayNeverStrands(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	c := NewController(120)
	c.SetFrameCallback(rec.callback)
	c.SetLoop(true)
	c.SetTotalFrames(3)

	// A Play racing a Stop must always end up either stopped or with a
	// live drive loop, never a PLAYING state that nothing advances.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		c.Play()
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Play()
		}()
		c.Stop()
		wg.Wait()
	}

	if c.State() == StatePlaying {
		before := rec.count()
		waitFor(t, 5*time.Second, func() bool { return rec.count() > before })
	}
	c.Stop()
	assert.Equal(t, StateStopped, c.State())
}
