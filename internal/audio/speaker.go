package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"holovox/internal/ports"
)

// SpeakerOutput opens playback devices backed by an oto audio context.
// oto allows exactly one context per process, so the context is
// created lazily on first use and shared by every later session.
type SpeakerOutput struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

func (o *SpeakerOutput) Open(sampleRate, channels int) (ports.Speaker, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if channels <= 0 {
		channels = 1
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audio output: %w", err)
		}
		<-ready
		o.ctx = ctx
		o.sampleRate = sampleRate
		o.channels = channels
	} else if o.sampleRate != sampleRate || o.channels != channels {
		return nil, fmt.Errorf("audio output already open at %d Hz/%d ch, cannot reopen at %d Hz/%d ch",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	s := newOtoSpeaker()
	s.player = o.ctx.NewPlayer(s)
	return s, nil
}

// otoSpeaker buffers PCM for a pull-model oto player. The device
// goroutine drains the buffer through Read; Write appends and wakes
// it up.
type otoSpeaker struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
	player *oto.Player
}

func newOtoSpeaker() *otoSpeaker {
	s := &otoSpeaker{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Read blocks until audio arrives or the speaker closes.
func (s *otoSpeaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *otoSpeaker) Write(pcm []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("speaker is closed")
	}
	s.buf = append(s.buf, pcm...)
	player := s.player
	s.mu.Unlock()

	s.cond.Signal()
	if player != nil && !player.IsPlaying() {
		player.Play()
	}
	return nil
}

// Flush drops everything buffered and silences the device
// immediately. The next Write resumes playback.
func (s *otoSpeaker) Flush() {
	s.mu.Lock()
	s.buf = nil
	player := s.player
	s.mu.Unlock()

	s.cond.Broadcast()
	if player != nil {
		player.Pause()
		player.Reset()
	}
}

func (s *otoSpeaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	player := s.player
	s.mu.Unlock()

	s.cond.Broadcast()
	if player != nil {
		return player.Close()
	}
	return nil
}
