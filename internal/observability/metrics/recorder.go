package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RecorderMetrics contains Prometheus metrics for the recording
// service.
type RecorderMetrics struct {
	framesWrittenTotal prometheus.Counter
	writeErrorsTotal   prometheus.Counter
	sessionsTotal      prometheus.Counter
	sessionActiveGauge prometheus.Gauge
	writeDuration      prometheus.Histogram
}

// NewRecorderMetrics creates and registers recorder metrics.
func NewRecorderMetrics(registry *prometheus.Registry) (*RecorderMetrics, error) {
	m := &RecorderMetrics{
		framesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framescope_recording_frames_written_total",
			Help: "Total number of frames written to recording sessions",
		}),
		writeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framescope_recording_write_errors_total",
			Help: "Total number of failed recording writes",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framescope_recording_sessions_total",
			Help: "Total number of recording sessions started",
		}),
		sessionActiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framescope_recording_session_active",
			Help: "Whether a recording session is currently active",
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "framescope_recording_write_duration_seconds",
			Help:    "Time spent encoding and writing one frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
	}

	collectors := []prometheus.Collector{
		m.framesWrittenTotal,
		m.writeErrorsTotal,
		m.sessionsTotal,
		m.sessionActiveGauge,
		m.writeDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFrameWritten increments the written-frame counter.
func (m *RecorderMetrics) RecordFrameWritten() {
	m.framesWrittenTotal.Inc()
}

// RecordWriteError increments the failed-write counter.
func (m *RecorderMetrics) RecordWriteError() {
	m.writeErrorsTotal.Inc()
}

// RecordSessionStarted increments the session counter and marks the
// session gauge active.
func (m *RecorderMetrics) RecordSessionStarted() {
	m.sessionsTotal.Inc()
	m.sessionActiveGauge.Set(1)
}

// RecordSessionStopped clears the session gauge.
func (m *RecorderMetrics) RecordSessionStopped() {
	m.sessionActiveGauge.Set(0)
}

// ObserveWriteDuration records one frame write duration.
func (m *RecorderMetrics) ObserveWriteDuration(seconds float64) {
	m.writeDuration.Observe(seconds)
}
