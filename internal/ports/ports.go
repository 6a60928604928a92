package ports

import (
	"context"
	"errors"
	"io"

	"holovox/internal/domain"
)

// ErrCredentialMissing marks the fatal-local case of a missing access
// credential. It never triggers the reconnection loop.
var ErrCredentialMissing = errors.New("access credential is not configured")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live microphone capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Speaker is an output audio device consuming raw 16-bit LE PCM.
// Write buffers audio for gapless playback; Flush discards everything
// buffered and silences the device immediately.
type Speaker interface {
	Write(pcm []byte) error
	Flush()
	Close() error
}

// SpeakerOpener acquires an output device for one session. Exactly one
// speaker may be open per connection.
type SpeakerOpener interface {
	Open(sampleRate int, channels int) (Speaker, error)
}

// ChannelConfig enumerates the session channel handshake parameters.
type ChannelConfig struct {
	Model               string
	SystemInstruction   string
	Voice               string
	InputSampleRate     int
	OutputSampleRate    int
	InputTranscription  bool
	OutputTranscription bool
	Tools               []string
}

// Channel is an open bidirectional session with the remote
// conversational service. Events are delivered strictly in arrival
// order on a single channel; the events channel closes when the
// session ends for any reason.
type Channel interface {
	SendRealtimeInput(blob domain.PCMBlob) error
	Events() <-chan domain.ServerEvent
	Wait() error
	Close() error
}

// ChannelProvider opens session channels.
type ChannelProvider interface {
	Open(ctx context.Context, cfg ChannelConfig) (Channel, error)
}

// EventSink pushes read-only snapshots to the rendering layer. No sink
// implementation mutates session state.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	AudioLevel(rms float64)
	TranscriptPreview(direction domain.TranscriptDirection, text string)
	LogAppended(entry domain.LogEntry)
	VisualPayload(mimeType string, data []byte)
	SessionError(code domain.ErrorCode, detail string)
}
