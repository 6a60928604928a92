package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"holovox/internal/ports"
)

func TestMicCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nsleep 2\n")
	capture := NewMicCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	// A second stop is a no-op.
	if err := session.Stop(); err != nil {
		t.Fatalf("repeated stop failed: %v", err)
	}
}

func TestMicCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := NewMicCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("stderr not surfaced: %v", err)
	}
}

func TestCaptureArgsUseConfiguredDevice(t *testing.T) {
	t.Parallel()

	cfg := withCaptureDefaults(ports.AudioConfig{
		InputFormat: "alsa",
		InputDevice: "hw:1,0",
		SampleRate:  16000,
	})
	args := strings.Join(captureArgs(cfg), " ")
	if !strings.Contains(args, "-f alsa -i hw:1,0") {
		t.Fatalf("device flags missing: %q", args)
	}
	if !strings.Contains(args, "-ar 16000") || !strings.Contains(args, "-ac 1") {
		t.Fatalf("rate flags missing: %q", args)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := ignoreExitStatus(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
	if got := ignoreExitStatus(nil); got != nil {
		t.Fatalf("expected nil for nil error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
