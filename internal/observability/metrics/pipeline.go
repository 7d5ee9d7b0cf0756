// Package metrics provides Prometheus metric collectors for the
// FrameScope subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for the processing
// pipeline.
type PipelineMetrics struct {
	framesAcquiredTotal   *prometheus.CounterVec
	framesProcessedTotal  *prometheus.CounterVec
	framesDroppedTotal    *prometheus.CounterVec
	processingErrorsTotal *prometheus.CounterVec
	acquisitionDuration   prometheus.Histogram
	processingDuration    prometheus.Histogram
	bufferFillGauge       *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		framesAcquiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framescope_frames_acquired_total",
				Help: "Total number of frames read from the source",
			},
			[]string{"source"},
		),
		framesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framescope_frames_processed_total",
				Help: "Total number of frames successfully transformed",
			},
			[]string{"source"},
		),
		framesDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framescope_frames_dropped_total",
				Help: "Total number of frames dropped from the processing path",
			},
			[]string{"source", "reason"},
		),
		processingErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framescope_processing_errors_total",
				Help: "Total number of per-frame faults contained by the processing loop",
			},
			[]string{"source", "kind"},
		),
		acquisitionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "framescope_acquisition_duration_seconds",
				Help:    "Time spent reading one frame from the source",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
		),
		processingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "framescope_processing_duration_seconds",
				Help:    "Time spent transforming one frame",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
		),
		bufferFillGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framescope_buffer_fill_percent",
				Help: "Ring buffer fill percentage",
			},
			[]string{"buffer"},
		),
	}

	collectors := []prometheus.Collector{
		m.framesAcquiredTotal,
		m.framesProcessedTotal,
		m.framesDroppedTotal,
		m.processingErrorsTotal,
		m.acquisitionDuration,
		m.processingDuration,
		m.bufferFillGauge,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFrameAcquired increments the acquired-frame counter.
func (m *PipelineMetrics) RecordFrameAcquired(source string) {
	m.framesAcquiredTotal.WithLabelValues(source).Inc()
}

// RecordFrameProcessed increments the processed-frame counter.
func (m *PipelineMetrics) RecordFrameProcessed(source string) {
	m.framesProcessedTotal.WithLabelValues(source).Inc()
}

// RecordFrameDropped increments the dropped-frame counter.
func (m *PipelineMetrics) RecordFrameDropped(source, reason string) {
	m.framesDroppedTotal.WithLabelValues(source, reason).Inc()
}

// RecordProcessingError increments the contained-fault counter.
func (m *PipelineMetrics) RecordProcessingError(source, kind string) {
	m.processingErrorsTotal.WithLabelValues(source, kind).Inc()
}

// ObserveAcquisitionDuration records one source read duration.
func (m *PipelineMetrics) ObserveAcquisitionDuration(seconds float64) {
	m.acquisitionDuration.Observe(seconds)
}

// ObserveProcessingDuration records one transform duration.
func (m *PipelineMetrics) ObserveProcessingDuration(seconds float64) {
	m.processingDuration.Observe(seconds)
}

// SetBufferFill updates a ring buffer fill gauge.
func (m *PipelineMetrics) SetBufferFill(buffer string, percent float64) {
	m.bufferFillGauge.WithLabelValues(buffer).Set(percent)
}
