package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"holovox/internal/codec"
	"holovox/internal/ports"
)

// playbackScheduler keeps assistant audio gapless. A cursor tracks the
// projected end of everything scheduled so far; each chunk starts at
// max(cursor, now) and advances the cursor by its duration. Barge-in
// cancels every pending source and resets the cursor so the next chunk
// plays immediately.
type playbackScheduler struct {
	mu         sync.Mutex
	cursor     time.Time
	sources    map[uint64]sessionTimer
	nextSource uint64

	speaker ports.Speaker
	logger  *zap.Logger
	now     func() time.Time
	after   func(time.Duration, func()) sessionTimer
}

func newPlaybackScheduler(speaker ports.Speaker, logger *zap.Logger) *playbackScheduler {
	return &playbackScheduler{
		sources: make(map[uint64]sessionTimer),
		speaker: speaker,
		logger:  logger,
		now:     time.Now,
		after:   startTimer,
	}
}

// Enqueue schedules a decoded chunk immediately after the previously
// scheduled audio and returns its computed start time.
func (p *playbackScheduler) Enqueue(chunk codec.Chunk) time.Time {
	p.mu.Lock()
	now := p.now()
	startAt := now
	if p.cursor.After(now) {
		startAt = p.cursor
	}
	p.cursor = startAt.Add(chunk.Duration)

	id := p.nextSource
	p.nextSource++
	p.sources[id] = p.after(p.cursor.Sub(now), func() { p.release(id) })
	speaker := p.speaker
	p.mu.Unlock()

	if err := speaker.Write(chunk.Raw); err != nil {
		p.logger.Warn("playback write failed", zap.Error(err))
	}
	return startAt
}

func (p *playbackScheduler) release(id uint64) {
	p.mu.Lock()
	delete(p.sources, id)
	p.mu.Unlock()
}

// Interrupt cancels all pending audio and flushes the device buffer.
// The cursor is reset so post-interruption audio starts right away.
func (p *playbackScheduler) Interrupt() {
	p.mu.Lock()
	for id, t := range p.sources {
		t.Stop()
		delete(p.sources, id)
	}
	p.cursor = time.Time{}
	speaker := p.speaker
	p.mu.Unlock()

	speaker.Flush()
}

// Stop releases scheduler resources during session teardown.
func (p *playbackScheduler) Stop() {
	p.Interrupt()
}

// ActiveCount reports how many scheduled chunks have not yet finished.
func (p *playbackScheduler) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}
