package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Tick loop counters
	TicksProcessed atomic.Uint64
	CaptureErrors  atomic.Uint64
	SettingsErrors atomic.Uint64

	// Detection counters
	DetectionsValid    atomic.Uint64
	DetectionsRejected atomic.Uint64
	AlertsFired        atomic.Uint64
	AlertsSuppressed   atomic.Uint64

	// Recording state
	RecordingActive atomic.Uint64 // 0 = idle, 1 = recording
	RecordingFrames atomic.Uint64
	WriterErrors    atomic.Uint64

	// Summary dispatch
	SummariesSent   atomic.Uint64
	SummaryFailures atomic.Uint64

	// Stream fanout
	StreamClients atomic.Uint64
	FramesDropped atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"studycam_ticks_processed_total", "Total frame-processing ticks completed", m.TicksProcessed.Load},
		{"studycam_capture_errors_total", "Total camera read failures", m.CaptureErrors.Load},
		{"studycam_settings_errors_total", "Total settings read failures", m.SettingsErrors.Load},
		{"studycam_detections_valid_total", "Total detections accepted by the shape filter", m.DetectionsValid.Load},
		{"studycam_detections_rejected_total", "Total phone detections rejected by the shape filter", m.DetectionsRejected.Load},
		{"studycam_alerts_fired_total", "Total distraction alerts fired", m.AlertsFired.Load},
		{"studycam_alerts_suppressed_total", "Total alerts suppressed by cooldown", m.AlertsSuppressed.Load},
		{"studycam_recording_active", "Recording active (0=idle, 1=recording)", m.RecordingActive.Load},
		{"studycam_recording_frames_total", "Total frames written to recording files", m.RecordingFrames.Load},
		{"studycam_writer_errors_total", "Total video writer open/write failures", m.WriterErrors.Load},
		{"studycam_summaries_sent_total", "Total daily summary notifications delivered", m.SummariesSent.Load},
		{"studycam_summary_failures_total", "Total daily summary send failures", m.SummaryFailures.Load},
		{"studycam_stream_clients", "Number of connected MJPEG stream clients", m.StreamClients.Load},
		{"studycam_frames_dropped_total", "Total stream frames dropped for slow clients", m.FramesDropped.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
