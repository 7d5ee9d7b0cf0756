// Package pipeline wires one acquisition source to one transform
// through a pair of worker loops. Acquired frames land in a source
// ring buffer and are handed to the processing loop over a small
// bounded queue; when the queue is full the frame is dropped from the
// processing path only, so acquisition timing never depends on
// processing speed.
package pipeline

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/framescope/framescope/internal/errors"
	"github.com/framescope/framescope/internal/frame"
	"github.com/framescope/framescope/internal/logging"
	"github.com/framescope/framescope/internal/observability/metrics"
	"github.com/framescope/framescope/internal/recording"
	"github.com/framescope/framescope/internal/source"
	"github.com/framescope/framescope/internal/transform"
)

const (
	// defaultBufferCapacity is used when the config leaves the ring
	// buffer capacity unset.
	defaultBufferCapacity = 100

	// defaultQueueCapacity bounds the acquisition→processing hand-off
	// queue. Small on purpose: a deep queue would only add latency
	// between acquisition and display.
	defaultQueueCapacity = 10

	// readBackoff is how long the acquisition loop sleeps after a
	// read that produced no frame, instead of spinning.
	readBackoff = 10 * time.Millisecond

	// receiveTimeout bounds how long the processing loop waits on the
	// hand-off queue before re-checking the stop signal.
	receiveTimeout = 100 * time.Millisecond

	// joinTimeout bounds how long Stop waits for the worker loops.
	joinTimeout = 2 * time.Second
)

// FrameReadyCallback receives every successfully processed frame
// together with the source frame it was derived from. It is invoked
// from the processing loop without any pipeline lock held.
type FrameReadyCallback func(src, processed *frame.Frame)

// Config assembles a pipeline's collaborators.
type Config struct {
	Source    source.Source
	Transform transform.Transform
	Recorder  *recording.Service

	// BufferSize is the capacity of each ring buffer; 0 selects the
	// default.
	BufferSize int
	// QueueSize is the hand-off queue capacity; 0 selects the
	// default.
	QueueSize int

	Metrics *metrics.PipelineMetrics
}

// BufferInfo is a point-in-time snapshot of the pipeline's buffers
// and counters.
type BufferInfo struct {
	SourceSize        int           `json:"source_size"`
	SourceCapacity    int           `json:"source_capacity"`
	SourceFill        float64       `json:"source_fill"`
	ProcessedSize     int           `json:"processed_size"`
	ProcessedCapacity int           `json:"processed_capacity"`
	ProcessedFill     float64       `json:"processed_fill"`
	FramesAcquired    int64         `json:"frames_acquired"`
	FramesProcessed   int64         `json:"frames_processed"`
	FramesDropped     int64         `json:"frames_dropped"`
	LastAcquisition   time.Duration `json:"last_acquisition_ns"`
	LastProcessing    time.Duration `json:"last_processing_ns"`
}

// Pipeline runs the acquisition and processing loops over one source
// and one swappable transform.
type Pipeline struct {
	src      source.Source
	recorder *recording.Service
	metrics  *metrics.PipelineMetrics

	sourceBuffer    *frame.RingBuffer
	processedBuffer *frame.RingBuffer
	queueSize       int

	mu        sync.Mutex
	transform transform.Transform
	callback  FrameReadyCallback
	running   bool
	quit      chan struct{}

	wg sync.WaitGroup

	framesAcquired  atomic.Int64
	framesProcessed atomic.Int64
	framesDropped   atomic.Int64
	lastAcquisition atomic.Int64 // nanoseconds
	lastProcessing  atomic.Int64 // nanoseconds

	logger     *slog.Logger
	sourceName string
}

// New creates a stopped pipeline from the given config.
func New(config *Config) *Pipeline {
	logger := logging.ForService("pipeline")
	if logger == nil {
		logger = slog.Default()
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferCapacity
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueCapacity
	}

	return &Pipeline{
		src:             config.Source,
		transform:       config.Transform,
		recorder:        config.Recorder,
		metrics:         config.Metrics,
		sourceBuffer:    frame.NewRingBuffer(bufferSize),
		processedBuffer: frame.NewRingBuffer(bufferSize),
		queueSize:       queueSize,
		logger:          logger,
	}
}

// Start opens the source and launches the acquisition and processing
// loops. When open or start fails no loops are spawned and the source
// is left closed. No-op while already running.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	if err := p.src.Open(); err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategorySourceOpen).
			Context("operation", "open_source").
			Build()
	}
	if err := p.src.Start(); err != nil {
		_ = p.src.Close()
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategorySourceOpen).
			Context("operation", "start_source").
			Build()
	}

	info := p.src.Info()
	if info != nil {
		p.sourceName = info.Name
	}

	p.framesAcquired.Store(0)
	p.framesProcessed.Store(0)
	p.framesDropped.Store(0)
	p.lastAcquisition.Store(0)
	p.lastProcessing.Store(0)

	// Sequence numbers restart at 0, so frames from a previous run
	// must not linger under duplicate numbers.
	p.sourceBuffer.Clear()
	p.processedBuffer.Clear()

	p.running = true
	p.quit = make(chan struct{})
	handoff := make(chan *frame.Frame, p.queueSize)

	p.wg.Add(2)
	go p.acquisitionLoop(p.quit, handoff)
	go p.processingLoop(p.quit, handoff)

	p.logger.Info("pipeline started",
		"source", p.sourceName,
		"buffer_capacity", p.sourceBuffer.Cap(),
		"queue_capacity", p.queueSize)
	return nil
}

// Stop signals both loops to exit, joins them with a bounded timeout,
// closes the source and stops any active recording session. No-op
// while already stopped.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	quit := p.quit
	p.quit = nil
	p.mu.Unlock()

	close(quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		p.logger.Warn("worker loops did not exit within join timeout",
			"timeout", joinTimeout)
	}

	var closeErr error
	if err := p.src.Close(); err != nil {
		closeErr = errors.New(err).
			Component("pipeline").
			Category(errors.CategorySourceRead).
			Context("operation", "close_source").
			Build()
	}

	if p.recorder != nil && p.recorder.Active() {
		dir, frames := p.recorder.Stop()
		p.logger.Info("recording session closed on pipeline stop",
			"session_dir", dir,
			"frames_written", frames)
	}

	p.logger.Info("pipeline stopped",
		"frames_acquired", p.framesAcquired.Load(),
		"frames_processed", p.framesProcessed.Load(),
		"frames_dropped", p.framesDropped.Load())
	return closeErr
}

// Running reports whether the worker loops are active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SetTransform swaps the active transform. The new transform applies
// from the next dequeued frame; in-flight frames finish with the
// transform that was current when they were dequeued.
func (p *Pipeline) SetTransform(t transform.Transform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transform = t
}

// Transform returns the currently active transform.
func (p *Pipeline) Transform() transform.Transform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transform
}

// SetFrameCallback sets the callback invoked for every processed
// frame.
func (p *Pipeline) SetFrameCallback(callback FrameReadyCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = callback
}

// Source returns the pipeline's acquisition source.
func (p *Pipeline) Source() source.Source {
	return p.src
}

// Recorder returns the pipeline's recording sink.
func (p *Pipeline) Recorder() *recording.Service {
	return p.recorder
}

// GetLatestFrames returns the newest source and processed frames, nil
// for any empty buffer.
func (p *Pipeline) GetLatestFrames() (src, processed *frame.Frame) {
	return p.sourceBuffer.Latest(), p.processedBuffer.Latest()
}

// GetFrameByNumber looks up a sequence number in both buffers,
// returning nil where it is absent.
func (p *Pipeline) GetFrameByNumber(number int64) (src, processed *frame.Frame) {
	return p.sourceBuffer.ByNumber(number), p.processedBuffer.ByNumber(number)
}

// GetBufferInfo snapshots buffer occupancy and cumulative counters.
func (p *Pipeline) GetBufferInfo() BufferInfo {
	return BufferInfo{
		SourceSize:        p.sourceBuffer.Len(),
		SourceCapacity:    p.sourceBuffer.Cap(),
		SourceFill:        p.sourceBuffer.FillPercent(),
		ProcessedSize:     p.processedBuffer.Len(),
		ProcessedCapacity: p.processedBuffer.Cap(),
		ProcessedFill:     p.processedBuffer.FillPercent(),
		FramesAcquired:    p.framesAcquired.Load(),
		FramesProcessed:   p.framesProcessed.Load(),
		FramesDropped:     p.framesDropped.Load(),
		LastAcquisition:   time.Duration(p.lastAcquisition.Load()),
		LastProcessing:    time.Duration(p.lastProcessing.Load()),
	}
}

// acquisitionLoop pulls frames from the source until stopped. Each
// frame gets the next sequence number, lands in the source buffer and
// is pushed onto the hand-off queue without blocking.
func (p *Pipeline) acquisitionLoop(quit <-chan struct{}, handoff chan<- *frame.Frame) {
	defer p.wg.Done()

	var nextNumber int64

	for {
		select {
		case <-quit:
			return
		default:
		}

		start := time.Now()
		img, ok := p.src.ReadFrame()
		if !ok {
			// No frame yet. Back off briefly rather than spin; a
			// stalled live source or a finished sequence keeps
			// returning false until Stop.
			select {
			case <-quit:
				return
			case <-time.After(readBackoff):
			}
			continue
		}
		elapsed := time.Since(start)

		f := &frame.Frame{
			Image:     img,
			Timestamp: time.Now(),
			Number:    nextNumber,
			Source:    p.sourceName,
		}
		nextNumber++

		// The buffer owns its own copy; the queue entry is handed to
		// the processing loop, which never mutates it.
		p.sourceBuffer.Add(f.Clone())

		p.framesAcquired.Add(1)
		p.lastAcquisition.Store(int64(elapsed))
		if p.metrics != nil {
			p.metrics.RecordFrameAcquired(p.sourceName)
			p.metrics.ObserveAcquisitionDuration(elapsed.Seconds())
			p.metrics.SetBufferFill("source", p.sourceBuffer.FillPercent())
		}

		select {
		case handoff <- f:
		default:
			// Queue full: the frame stays in the source buffer but is
			// dropped from the processing path.
			p.framesDropped.Add(1)
			if p.metrics != nil {
				p.metrics.RecordFrameDropped(p.sourceName, "handoff_queue_full")
			}
			p.logger.Debug("hand-off queue full, frame dropped from processing path",
				"frame_number", f.Number)
		}
	}
}

// processingLoop drains the hand-off queue until stopped, applying
// the current transform to each frame. A transform or callback fault
// drops that one frame and the loop continues.
func (p *Pipeline) processingLoop(quit <-chan struct{}, handoff <-chan *frame.Frame) {
	defer p.wg.Done()

	for {
		select {
		case <-quit:
			return
		case f := <-handoff:
			p.processFrame(f)
		case <-time.After(receiveTimeout):
			// Timed out waiting for a frame; loop to re-check quit.
		}
	}
}

func (p *Pipeline) processFrame(f *frame.Frame) {
	p.mu.Lock()
	t := p.transform
	callback := p.callback
	p.mu.Unlock()

	start := time.Now()
	out, err := applyTransform(t, f.Image)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Warn("transform failed, frame dropped",
			"frame_number", f.Number,
			"transform", t.Name(),
			"error", err)
		if p.metrics != nil {
			p.metrics.RecordProcessingError(p.sourceName, "transform")
		}
		return
	}

	// Same sequence number as the source frame, fresh timestamp.
	processed := &frame.Frame{
		Image:     out,
		Timestamp: time.Now(),
		Number:    f.Number,
		Source:    t.Name(),
	}
	p.processedBuffer.Add(processed.Clone())

	if p.recorder != nil && p.recorder.Active() {
		if err := p.recorder.RecordFrame(processed); err != nil {
			p.logger.Warn("recording write failed",
				"frame_number", processed.Number,
				"error", err)
		}
	}

	p.framesProcessed.Add(1)
	p.lastProcessing.Store(int64(elapsed))
	if p.metrics != nil {
		p.metrics.RecordFrameProcessed(p.sourceName)
		p.metrics.ObserveProcessingDuration(elapsed.Seconds())
		p.metrics.SetBufferFill("processed", p.processedBuffer.FillPercent())
	}

	p.invokeCallback(callback, f, processed)
}

// applyTransform runs the transform with fault isolation: a panic in
// Process surfaces as an error, so one bad frame cannot take down the
// processing loop.
func applyTransform(t transform.Transform, img image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Newf("transform panicked: %v", r).
				Component("pipeline").
				Category(errors.CategoryProcessing).
				Context("transform", t.Name()).
				Build()
		}
	}()
	return t.Process(img)
}

// invokeCallback runs the frame-ready callback with fault isolation
// so a panicking listener cannot take down the processing loop.
func (p *Pipeline) invokeCallback(callback FrameReadyCallback, src, processed *frame.Frame) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("frame-ready callback panicked",
				"frame_number", processed.Number,
				"panic", r)
			if p.metrics != nil {
				p.metrics.RecordProcessingError(p.sourceName, "callback")
			}
		}
	}()
	callback(src, processed)
}
