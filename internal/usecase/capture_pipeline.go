package usecase

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"

	"holovox/internal/codec"
	"holovox/internal/domain"
	"holovox/internal/metrics"
	"holovox/internal/ports"
)

// captureFrameSamples is the fixed mono frame size read from the
// microphone before each encode-and-send step.
const captureFrameSamples = 4096

// pumpCaptureFrames streams fixed-size microphone frames into the live
// channel until the capture source drains. Each frame also feeds the
// audio level meter. A failed send drops that one frame; the session
// keeps running and the channel's own failure path decides its fate.
func pumpCaptureFrames(audio ports.AudioSession, channel ports.Channel, events ports.EventSink, logger *zap.Logger, m *metrics.Metrics, done chan struct{}) {
	defer close(done)

	frame := make([]byte, captureFrameSamples*2)
	for {
		if _, err := io.ReadFull(audio, frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) {
				logger.Warn("audio capture read failed", zap.Error(err))
				events.SessionError(domain.ErrorCodeMicrophone, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}

		samples := codec.BytesToSamples(frame)
		events.AudioLevel(rmsLevel(samples))

		if err := channel.SendRealtimeInput(codec.Encode(samples)); err != nil {
			m.FramesDropped.Inc()
			logger.Warn("dropping capture frame", zap.Error(err))
			continue
		}
		m.FramesSent.Inc()
	}
}

func rmsLevel(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
