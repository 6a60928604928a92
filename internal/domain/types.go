package domain

import "time"

// SessionState models the live-session lifecycle. Exactly one value is
// current at a time; only the session controller mutates it.
type SessionState string

const (
	SessionStateIdle         SessionState = "idle"
	SessionStateConnecting   SessionState = "connecting"
	SessionStateListening    SessionState = "listening"
	SessionStateThinking     SessionState = "thinking"
	SessionStateSpeaking     SessionState = "speaking"
	SessionStateReconnecting SessionState = "reconnecting"
	SessionStateError        SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonBooted            SessionStateReason = "booted"
	SessionReasonConnecting        SessionStateReason = "connecting"
	SessionReasonReconnecting      SessionStateReason = "reconnecting"
	SessionReasonConnected         SessionStateReason = "connected"
	SessionReasonUserSpeech        SessionStateReason = "user_speech"
	SessionReasonAssistantSpeech   SessionStateReason = "assistant_speech"
	SessionReasonTurnComplete      SessionStateReason = "turn_complete"
	SessionReasonInterrupted       SessionStateReason = "interrupted"
	SessionReasonChannelLost       SessionStateReason = "channel_lost"
	SessionReasonUserDisconnect    SessionStateReason = "user_disconnect"
	SessionReasonRetriesExhausted  SessionStateReason = "retries_exhausted"
	SessionReasonCredentialMissing SessionStateReason = "credential_missing"
	SessionReasonMicrophoneFailed  SessionStateReason = "microphone_failed"
	SessionReasonAudioOutputFailed SessionStateReason = "audio_output_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeCredential  ErrorCode = "credential"
	ErrorCodeMicrophone  ErrorCode = "microphone"
	ErrorCodeAudioOutput ErrorCode = "audio_output"
	ErrorCodeChannel     ErrorCode = "channel"
	ErrorCodeAudioSend   ErrorCode = "audio_send"
	ErrorCodeTeardown    ErrorCode = "teardown"
)

// LogSource identifies who produced an activity log entry.
type LogSource string

const (
	LogSourceSystem    LogSource = "system"
	LogSourceUser      LogSource = "user"
	LogSourceAssistant LogSource = "assistant"
)

// LogEntry is one finalized line in the bounded activity log.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    LogSource `json:"source"`
	Message   string    `json:"message"`
}

// TranscriptDirection tags streamed transcript fragments.
type TranscriptDirection string

const (
	TranscriptInput  TranscriptDirection = "input"
	TranscriptOutput TranscriptDirection = "output"
)

// PCMBlob is the wire representation of one captured audio frame:
// base64 of raw 16-bit little-endian PCM plus its MIME tag.
type PCMBlob struct {
	MIMEType   string `json:"mimeType"`
	Base64Data string `json:"data"`
}

// InlineBlob is a decoded inline data part from the channel, such as a
// holographic image payload.
type InlineBlob struct {
	MIMEType string
	Data     []byte
}

// ServerEvent is one inbound channel event, delivered strictly in
// arrival order. All fields are optional; an event may carry any
// combination of them.
type ServerEvent struct {
	InputTranscript  string
	OutputTranscript string
	TurnComplete     bool
	Interrupted      bool
	Audio            []byte // raw 16-bit LE PCM at the output sample rate
	Visual           *InlineBlob
}

// Status summarizes the current runtime status for the UI.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Attempt int          `json:"attempt,omitempty"`
	Message string       `json:"message,omitempty"`
}
