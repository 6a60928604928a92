package bootstrap

import (
	"testing"

	"holovox/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")

	services, err := Build(noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Log == nil {
		t.Fatalf("expected activity log")
	}
	if services.Metrics == nil {
		t.Fatalf("expected metrics")
	}
	if services.Config.Session.MaxReconnectAttempts != 5 {
		t.Fatalf("unexpected reconnect budget: %d", services.Config.Session.MaxReconnectAttempts)
	}
}

func TestBuildWithoutAPIKeySucceeds(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	// A missing key is a session-start failure, not a boot failure.
	services, err := Build(noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) AudioLevel(_ float64)                                                   {}
func (noopEventSink) TranscriptPreview(_ domain.TranscriptDirection, _ string)               {}
func (noopEventSink) LogAppended(_ domain.LogEntry)                                          {}
func (noopEventSink) VisualPayload(_ string, _ []byte)                                       {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}
