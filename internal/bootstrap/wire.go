package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"holovox/internal/audio"
	"holovox/internal/config"
	"holovox/internal/metrics"
	"holovox/internal/ports"
	"holovox/internal/providers/gemini"
	"holovox/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Log        *usecase.ActivityLog
	Config     config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Build wires all backend dependencies for the current runtime. Each
// build gets its own metrics registry; the optional metrics endpoint
// serves it when an address is configured.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return Services{}, err
	}

	registry := prometheus.NewRegistry()
	sessionMetrics := metrics.New(registry)
	if cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	activityLog := usecase.NewActivityLog(cfg.Session.LogCapacity, eventSink)

	controller := usecase.NewSessionController(
		audio.NewMicCapture(cfg.Audio.FFmpegCommand),
		audio.NewSpeakerOutput(),
		gemini.NewProvider(gemini.Config{
			APIKey:   cfg.Gemini.APIKey,
			Endpoint: cfg.Gemini.Endpoint,
			Model:    cfg.Gemini.Model,
		}, logger),
		eventSink,
		activityLog,
		logger,
		sessionMetrics,
		usecase.Config{
			Channel: ports.ChannelConfig{
				Model:               cfg.Gemini.Model,
				SystemInstruction:   cfg.Gemini.SystemInstruction,
				Voice:               cfg.Gemini.Voice,
				InputSampleRate:     cfg.Audio.SampleRate,
				OutputSampleRate:    cfg.Session.OutputSampleRate,
				InputTranscription:  true,
				OutputTranscription: true,
				Tools:               cfg.Gemini.Tools,
			},
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ReconnectBase:        cfg.Session.ReconnectBase,
			ReconnectCeiling:     cfg.Session.ReconnectCeiling,
			MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
			TeardownCooldown:     cfg.Session.TeardownCooldown,
		},
	)

	return Services{
		Controller: controller,
		Log:        activityLog,
		Config:     cfg,
		Logger:     logger,
		Metrics:    sessionMetrics,
	}, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()
}
