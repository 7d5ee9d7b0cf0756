package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/smallnest/ringbuffer"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
	"github.com/framescope/framescope/internal/logging"
)

const (
	// bytesPerPixel is fixed by the rawvideo rgba pixel format
	// requested from ffmpeg.
	bytesPerPixel = 4

	// ringFrames is how many raw frames the byte ring between the
	// reader goroutine and ReadFrame can hold before old data is
	// dropped.
	ringFrames = 8

	// stderrBufferSize bounds the retained ffmpeg stderr output used
	// in failure diagnostics.
	stderrBufferSize = 4096
)

// CameraConfig holds the configuration for a camera source.
type CameraConfig struct {
	Device string  // ffmpeg capture input, e.g. /dev/video0 or an URL
	Width  int     // requested capture width
	Height int     // requested capture height
	FPS    float64 // requested capture rate
}

// Camera captures live video through an ffmpeg subprocess emitting raw
// RGBA frames over a pipe. A reader goroutine drains the pipe into a
// byte ring so ffmpeg never blocks on a slow consumer; ReadFrame pops
// one complete frame from the ring when enough bytes have arrived.
type Camera struct {
	config CameraConfig

	mu        sync.Mutex
	info      *frame.SourceInfo
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	ring      *ringbuffer.RingBuffer
	frameSize int
	position  int
	started   bool
	wg        sync.WaitGroup
	stderr    *boundedBuffer
	logger    *slog.Logger
}

// boundedBuffer retains the most recent ffmpeg stderr output.
type boundedBuffer struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	size int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len()+len(p) > b.size {
		b.buf.Reset()
		if len(p) > b.size {
			p = p[len(p)-b.size:]
		}
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewCamera creates a camera source for the given configuration.
func NewCamera(config CameraConfig) *Camera {
	if config.Width <= 0 {
		config.Width = 640
	}
	if config.Height <= 0 {
		config.Height = 480
	}
	if config.FPS <= 0 {
		config.FPS = 30
	}
	logger := logging.ForService("source")
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		config: config,
		stderr: &boundedBuffer{size: stderrBufferSize},
		logger: logger.With("component", "camera", "device", config.Device),
	}
}

// Open probes the device and produces the source descriptor. Probe
// failures are not fatal; the configured dimensions are used instead.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	width, height, fps := c.config.Width, c.config.Height, c.config.FPS
	if w, h, f, err := probeDevice(c.config.Device); err == nil {
		width, height = w, h
		if f > 0 {
			fps = f
		}
	} else {
		c.logger.Debug("ffprobe failed, using configured capture size", "error", err)
	}

	c.frameSize = width * height * bytesPerPixel
	c.info = &frame.SourceInfo{
		Name:         c.config.Device,
		Kind:         frame.SourceCamera,
		Width:        width,
		Height:       height,
		FPS:          fps,
		SupportsSeek: false,
		TotalFrames:  0,
		ColorMode:    frame.ColorRGB,
	}
	return nil
}

// probeDevice asks ffprobe for the first video stream's geometry.
func probeDevice(device string) (width, height int, fps float64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-f", conf.CaptureFormat(),
		"-i", device).Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: %w", device, err)
	}

	root, err := jason.NewObjectFromBytes(out)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	streams, err := root.GetObjectArray("streams")
	if err != nil || len(streams) == 0 {
		return 0, 0, 0, fmt.Errorf("no streams in ffprobe output")
	}

	for _, stream := range streams {
		w, werr := stream.GetInt64("width")
		h, herr := stream.GetInt64("height")
		if werr != nil || herr != nil {
			continue
		}
		if rate, err := stream.GetString("r_frame_rate"); err == nil {
			fps = parseFrameRate(rate)
		}
		return int(w), int(h), fps, nil
	}
	return 0, 0, 0, fmt.Errorf("no video stream in ffprobe output")
}

// parseFrameRate parses ffprobe's "num/den" rate notation.
func parseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// Start launches the ffmpeg capture process and the pipe reader.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.info == nil {
		return errors.NewStd("camera not opened")
	}
	if c.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", conf.CaptureFormat(),
		"-framerate", strconv.FormatFloat(c.info.FPS, 'f', -1, 64),
		"-video_size", fmt.Sprintf("%dx%d", c.info.Width, c.info.Height),
		"-i", c.config.Device,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1")
	cmd.Stderr = c.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return errors.New(err).
			Component("source").
			Category(errors.CategoryFFmpeg).
			Build()
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return errors.New(err).
			Component("source").
			Category(errors.CategorySourceOpen).
			Context("device", c.config.Device).
			Context("stderr", c.stderr.String()).
			Build()
	}

	c.cmd = cmd
	c.cancel = cancel
	c.ring = ringbuffer.New(c.frameSize * ringFrames)
	c.started = true
	c.position = 0

	c.wg.Add(1)
	go c.drainPipe(stdout)

	c.logger.Info("camera capture started",
		"resolution", c.info.Resolution(),
		"fps", c.info.FPS)
	return nil
}

// drainPipe copies raw frame bytes from ffmpeg into the byte ring.
// When the ring is full the oldest data is discarded; a live camera
// must never be throttled by a slow consumer.
func (c *Camera) drainPipe(stdout io.ReadCloser) {
	defer c.wg.Done()
	defer stdout.Close()

	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			c.mu.Lock()
			ring := c.ring
			if ring != nil {
				if ring.Free() < n {
					dropped := discardStaleFrames(ring, c.frameSize, n)
					c.logger.Debug("consumer behind, stale frames discarded",
						"frames", dropped)
				}
				if _, werr := ring.Write(buf[:n]); werr != nil {
					c.logger.Debug("ring write failed", "error", werr)
				}
			}
			c.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("ffmpeg pipe read failed",
					"error", err,
					"stderr", c.stderr.String())
			}
			return
		}
	}
}

// discardStaleFrames makes room for n incoming bytes by dropping
// whole frames from the front of the ring, oldest first. The read
// side only ever consumes complete frames, so the ring start is
// always on a frame boundary; dropping in frame units keeps it there,
// where a flat reset would leave every later frame torn mid-stream.
// Returns the number of frames dropped.
func discardStaleFrames(ring *ringbuffer.RingBuffer, frameSize, n int) int {
	dropped := 0
	for ring.Free() < n && ring.Length() >= frameSize {
		if _, err := io.CopyN(io.Discard, ring, int64(frameSize)); err != nil {
			break
		}
		dropped++
	}
	return dropped
}

// ReadFrame pops one complete RGBA frame from the ring, or returns
// (nil, false) when a full frame has not arrived yet.
func (c *Camera) ReadFrame() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.ring == nil || c.ring.Length() < c.frameSize {
		return nil, false
	}

	pix := make([]uint8, c.frameSize)
	if _, err := io.ReadFull(c.ring, pix); err != nil {
		return nil, false
	}
	c.position++

	return &image.RGBA{
		Pix:    pix,
		Stride: c.info.Width * bytesPerPixel,
		Rect:   image.Rect(0, 0, c.info.Width, c.info.Height),
	}, true
}

// Seek is unsupported for live capture.
func (c *Camera) Seek(int) bool { return false }

// Info returns the source descriptor, or nil before Open.
func (c *Camera) Info() *frame.SourceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// SupportsSeek reports random access support.
func (c *Camera) SupportsSeek() bool { return false }

// TotalFrames is unknown for live capture.
func (c *Camera) TotalFrames() (int, bool) { return 0, false }

// Position returns the number of frames read so far.
func (c *Camera) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Close stops the ffmpeg process and the pipe reader. Idempotent.
func (c *Camera) Close() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	cmd := c.cmd
	c.cancel = nil
	c.cmd = nil
	c.ring = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil {
		// The context kill above makes Wait return promptly.
		_ = cmd.Wait()
	}
	c.wg.Wait()

	c.logger.Info("camera capture stopped")
	return nil
}
