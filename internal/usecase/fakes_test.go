package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"holovox/internal/domain"
	"holovox/internal/ports"
)

// fakeSink records every notification pushed toward the rendering
// layer so tests can assert on ordering and content.
type fakeSink struct {
	mu       sync.Mutex
	states   []string
	levels   []float64
	previews []string
	logs     []domain.LogEntry
	visuals  []string
	errors   []string
}

func (s *fakeSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, fmt.Sprintf("%s/%s", state, reason))
}

func (s *fakeSink) AudioLevel(rms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, rms)
}

func (s *fakeSink) TranscriptPreview(direction domain.TranscriptDirection, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews = append(s.previews, fmt.Sprintf("%s:%s", direction, text))
}

func (s *fakeSink) LogAppended(entry domain.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
}

func (s *fakeSink) VisualPayload(mimeType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visuals = append(s.visuals, fmt.Sprintf("%s:%d", mimeType, len(data)))
}

func (s *fakeSink) SessionError(code domain.ErrorCode, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, fmt.Sprintf("%s:%s", code, detail))
}

func (s *fakeSink) lastState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return ""
	}
	return s.states[len(s.states)-1]
}

func (s *fakeSink) stateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// fakeClock replaces the wall clock and timer creation. Timers never
// fire on their own; tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	at     time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) after(d time.Duration, fn func()) sessionTimer {
	t := &fakeTimer{delay: d, fn: fn}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

func (c *fakeClock) lastTimer() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fakeAudioSession blocks reads until stopped, then drains with EOF.
type fakeAudioSession struct {
	done chan struct{}
	once sync.Once
}

func newFakeAudioSession() *fakeAudioSession {
	return &fakeAudioSession{done: make(chan struct{})}
}

func (s *fakeAudioSession) Read(p []byte) (int, error) {
	<-s.done
	return 0, io.EOF
}

func (s *fakeAudioSession) Stop() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeAudioSession) Close() error { return s.Stop() }

type fakeCapture struct {
	mu       sync.Mutex
	sessions []*fakeAudioSession
	startErr error
}

func (c *fakeCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return nil, c.startErr
	}
	s := newFakeAudioSession()
	c.sessions = append(c.sessions, s)
	return s, nil
}

type fakeSpeaker struct {
	mu      sync.Mutex
	writes  [][]byte
	flushes int
	closed  bool
}

func (s *fakeSpeaker) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.writes = append(s.writes, buf)
	return nil
}

func (s *fakeSpeaker) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.writes = nil
}

func (s *fakeSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeSpeakerOpener struct {
	mu       sync.Mutex
	speakers []*fakeSpeaker
	openErr  error
}

func (o *fakeSpeakerOpener) Open(sampleRate, channels int) (ports.Speaker, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	s := &fakeSpeaker{}
	o.speakers = append(o.speakers, s)
	return s, nil
}

// fakeChannel is a scripted session channel. Tests push server events
// with emit and simulate a remote drop with fail.
type fakeChannel struct {
	mu      sync.Mutex
	events  chan domain.ServerEvent
	sent    []domain.PCMBlob
	sendErr error
	waitErr error
	once    sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan domain.ServerEvent, 16)}
}

func (ch *fakeChannel) SendRealtimeInput(blob domain.PCMBlob) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.sendErr != nil {
		return ch.sendErr
	}
	ch.sent = append(ch.sent, blob)
	return nil
}

func (ch *fakeChannel) Events() <-chan domain.ServerEvent { return ch.events }

func (ch *fakeChannel) Wait() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.waitErr
}

func (ch *fakeChannel) Close() error {
	ch.once.Do(func() { close(ch.events) })
	return nil
}

func (ch *fakeChannel) emit(ev domain.ServerEvent) { ch.events <- ev }

func (ch *fakeChannel) fail(err error) {
	ch.mu.Lock()
	ch.waitErr = err
	ch.mu.Unlock()
	_ = ch.Close()
}

type fakeProvider struct {
	mu       sync.Mutex
	channels []*fakeChannel
	openErr  error
}

func (p *fakeProvider) Open(ctx context.Context, cfg ports.ChannelConfig) (ports.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	ch := newFakeChannel()
	p.channels = append(p.channels, ch)
	return ch, nil
}

func (p *fakeProvider) channelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func (p *fakeProvider) channel(i int) *fakeChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels[i]
}

func (p *fakeProvider) setOpenErr(err error) {
	p.mu.Lock()
	p.openErr = err
	p.mu.Unlock()
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
