// Package playback provides a virtual timeline with play, pause, step,
// seek and loop support, independent of any frame source. The
// controller only reports target frame numbers through a callback; it
// never performs seeks itself.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/framescope/framescope/internal/logging"
)

// State is the playback state machine state.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

const (
	minFPS = 1.0
	maxFPS = 120.0

	// stopPollInterval bounds how long a stop request can go unnoticed
	// while the drive loop is sleeping between ticks.
	stopPollInterval = 100 * time.Millisecond
)

// FrameCallback is invoked with the target frame number whenever the
// timeline advances. It is always called without any controller lock
// held, so it may safely call back into the controller.
type FrameCallback func(frameNumber int)

// Controller drives a speed-adjustable virtual playback timeline.
type Controller struct {
	mu           sync.Mutex
	state        State
	currentFrame int
	fps          float64
	loopEnabled  bool
	totalFrames  int // 0 when unknown
	callback     FrameCallback

	loopRunning bool
	quit        chan struct{}
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewController creates a stopped controller at the given rate.
func NewController(fps float64) *Controller {
	logger := logging.ForService("playback")
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:  StateStopped,
		fps:    clampFPS(fps),
		logger: logger,
	}
}

func clampFPS(fps float64) float64 {
	if fps < minFPS {
		return minFPS
	}
	if fps > maxFPS {
		return maxFPS
	}
	return fps
}

// SetFrameCallback sets the callback invoked on every timeline
// advance.
func (c *Controller) SetFrameCallback(callback FrameCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = callback
}

// Play starts or resumes playback. No-op while already playing.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		return
	}
	c.state = StatePlaying

	if !c.loopRunning {
		c.loopRunning = true
		c.quit = make(chan struct{})
		c.wg.Add(1)
		go c.driveLoop(c.quit)
	}
}

// Pause suspends playback, keeping the current position.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		c.state = StatePaused
	}
}

// Stop halts playback and resets the position to frame 0.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.state = StateStopped
	c.currentFrame = 0
	// Signal and clear in one critical section: a Play arriving after
	// this section finds loopRunning false and starts a fresh loop,
	// while the signaled loop can no longer tick.
	if c.quit != nil {
		close(c.quit)
		c.quit = nil
		c.loopRunning = false
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// TogglePlayPause dispatches to Pause or Play based on the current
// state.
func (c *Controller) TogglePlayPause() {
	if c.State() == StatePlaying {
		c.Pause()
	} else {
		c.Play()
	}
}

// StepForward advances the position by one frame, clamped to the last
// index when the total is known. The callback fires synchronously in
// every state.
func (c *Controller) StepForward() {
	c.mu.Lock()
	if c.totalFrames > 0 && c.currentFrame >= c.totalFrames-1 {
		c.mu.Unlock()
		return
	}
	c.currentFrame++
	frameNum := c.currentFrame
	callback := c.callback
	c.mu.Unlock()

	invoke(callback, frameNum, c.logger)
}

// StepBackward moves the position back by one frame, clamped at 0.
// The callback fires synchronously in every state.
func (c *Controller) StepBackward() {
	c.mu.Lock()
	if c.currentFrame <= 0 {
		c.mu.Unlock()
		return
	}
	c.currentFrame--
	frameNum := c.currentFrame
	callback := c.callback
	c.mu.Unlock()

	invoke(callback, frameNum, c.logger)
}

// Seek clamps frameNumber into the valid range, sets the position and
// fires the callback synchronously.
func (c *Controller) Seek(frameNumber int) {
	c.mu.Lock()
	if frameNumber < 0 {
		frameNumber = 0
	}
	if c.totalFrames > 0 && frameNumber > c.totalFrames-1 {
		frameNumber = c.totalFrames - 1
	}
	c.currentFrame = frameNumber
	callback := c.callback
	c.mu.Unlock()

	invoke(callback, frameNumber, c.logger)
}

// SetFPS clamps the rate into [1,120]. The new rate takes effect on
// the very next drive-loop tick, even mid-playback.
func (c *Controller) SetFPS(fps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = clampFPS(fps)
}

// FPS returns the current playback rate.
func (c *Controller) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// SetLoop enables or disables wrapping at the last frame.
func (c *Controller) SetLoop(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopEnabled = enabled
}

// LoopEnabled reports whether wrapping is enabled.
func (c *Controller) LoopEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopEnabled
}

// SetTotalFrames sets the known timeline length; 0 means unknown, in
// which case end-of-range logic never triggers.
func (c *Controller) SetTotalFrames(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total < 0 {
		total = 0
	}
	c.totalFrames = total
}

// TotalFrames returns the timeline length and whether it is known.
func (c *Controller) TotalFrames() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalFrames, c.totalFrames > 0
}

// CurrentFrame returns the current position.
func (c *Controller) CurrentFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentFrame
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// driveLoop advances the timeline while PLAYING. Every field the loop
// depends on is re-read each tick so fps, loop and total changes take
// effect immediately.
func (c *Controller) driveLoop(quit chan struct{}) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		// Only this loop's own session may clear the flag; after a
		// Stop/Play pair c.quit belongs to a newer loop.
		if c.quit == quit {
			c.loopRunning = false
		}
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		// Checked under the lock: Stop closes quit inside its critical
		// section, so a stopped loop can never tick again.
		select {
		case <-quit:
			c.mu.Unlock()
			return
		default:
		}

		if c.state != StatePlaying {
			// Clearing the running flag in the same critical section
			// keeps Play from observing a loop that is about to exit.
			c.loopRunning = false
			c.mu.Unlock()
			return
		}

		interval := time.Duration(float64(time.Second) / c.fps)

		if c.totalFrames > 0 && c.currentFrame >= c.totalFrames-1 {
			if c.loopEnabled {
				c.currentFrame = 0
			} else {
				c.state = StatePaused
				c.loopRunning = false
				c.mu.Unlock()
				return
			}
		} else {
			c.currentFrame++
		}
		frameNum := c.currentFrame
		callback := c.callback
		c.mu.Unlock()

		invoke(callback, frameNum, c.logger)

		if !sleepInterruptible(interval, quit) {
			return
		}
	}
}

// sleepInterruptible sleeps for d while polling quit at a bounded
// granularity, so stop requests are honored promptly. It returns false
// when quit fired.
func sleepInterruptible(d time.Duration, quit <-chan struct{}) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > stopPollInterval {
			remaining = stopPollInterval
		}
		select {
		case <-quit:
			return false
		case <-time.After(remaining):
		}
	}
}

// invoke runs the frame callback with fault isolation; a panicking
// listener never takes down the drive loop.
func invoke(callback FrameCallback, frameNumber int, logger *slog.Logger) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("frame callback panicked",
				"frame_number", frameNumber,
				"panic", r)
		}
	}()
	callback(frameNumber)
}
