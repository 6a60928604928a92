package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"holovox/internal/ports"
)

const (
	// warmupWindow is how long ffmpeg gets to prove it can actually
	// open the input device before Start reports success.
	warmupWindow = 250 * time.Millisecond

	// stopGrace is how long a stopping process gets to exit on SIGINT
	// before it is killed outright.
	stopGrace = 1200 * time.Millisecond
)

// MicCapture acquires the microphone by running ffmpeg as a child
// process and reading raw s16le PCM from its stdout.
type MicCapture struct {
	command string
}

func NewMicCapture(command string) *MicCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &MicCapture{command: command}
}

func captureArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

func withCaptureDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func (c *MicCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withCaptureDefaults(cfg)

	cmd := exec.CommandContext(ctx, c.command, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	// An ffmpeg that cannot open the device dies within milliseconds;
	// surface that as a Start failure instead of a dead session.
	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, stderrTail(&stderr))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(warmupWindow):
	}

	return &micSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

type micSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *micSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *micSession) Close() error {
	return s.Stop()
}

// Stop interrupts the capture process, escalating to a kill if it does
// not exit within the grace window. Safe to call more than once.
func (s *micSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.exited:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.exited
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stderrTail(s.stderr))
		}
	})

	return s.stopErr
}

// ignoreExitStatus drops non-zero exit codes; an interrupted ffmpeg
// exiting unhappily is the expected shutdown path.
func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stderrTail(buf *bytes.Buffer) string {
	return string(bytes.TrimSpace(buf.Bytes()))
}
