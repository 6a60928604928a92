package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session counters exposed on the optional metrics
// endpoint. Registration is scoped to the provided registerer so test
// builds never collide on the global registry.
type Metrics struct {
	SessionsStarted    prometheus.Counter
	SessionActive      prometheus.Gauge
	ReconnectAttempts  prometheus.Counter
	ReconnectExhausted prometheus.Counter
	FramesSent         prometheus.Counter
	FramesDropped      prometheus.Counter
	ChunksScheduled    prometheus.Counter
	PlaybackInterrupts prometheus.Counter
	TurnsCompleted     prometheus.Counter
}

// New creates and registers all session metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_sessions_started_total",
			Help: "Total number of live sessions successfully established",
		}),
		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "holovox_session_active",
			Help: "Whether a live session is currently established",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_reconnect_attempts_total",
			Help: "Total number of scheduled reconnection attempts",
		}),
		ReconnectExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_reconnect_exhausted_total",
			Help: "Total number of times the reconnection ceiling was hit",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_capture_frames_sent_total",
			Help: "Total number of capture frames sent over the channel",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_capture_frames_dropped_total",
			Help: "Total number of capture frames dropped on send failure",
		}),
		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_playback_chunks_scheduled_total",
			Help: "Total number of playback chunks scheduled",
		}),
		PlaybackInterrupts: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_playback_interrupts_total",
			Help: "Total number of barge-in playback interruptions",
		}),
		TurnsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "holovox_turns_completed_total",
			Help: "Total number of completed conversation turns",
		}),
	}
}
