package usecase

import (
	"sync"
	"time"

	"holovox/internal/ports"
)

// sessionTimer abstracts time.Timer so backoff and playback completion
// timers can be driven manually in tests.
type sessionTimer interface {
	Stop() bool
}

func startTimer(d time.Duration, fn func()) sessionTimer {
	return time.AfterFunc(d, fn)
}

// activeSession bundles the per-connection resources. Exactly one may
// exist at a time; it is created on a successful handshake and fully
// torn down before any reconnection attempt re-creates it.
type activeSession struct {
	audio   ports.AudioSession
	channel ports.Channel
	speaker ports.Speaker

	scheduler *playbackScheduler
	assembler *transcriptAssembler

	eventsDone chan struct{}
	audioDone  chan struct{}

	teardownOnce sync.Once
}
