package usecase

import (
	"strings"
	"sync"

	"holovox/internal/domain"
	"holovox/internal/ports"
)

// turnEntry is one finalized transcript line produced by a completed
// turn, ready to be appended to the activity log.
type turnEntry struct {
	Source  domain.LogSource
	Message string
}

// transcriptAssembler accumulates streamed partial transcript
// fragments per speaker turn. Each append publishes the running buffer
// as a live preview; turn-complete drains both buffers atomically.
type transcriptAssembler struct {
	mu     sync.Mutex
	input  strings.Builder
	output strings.Builder

	events ports.EventSink
}

func newTranscriptAssembler(events ports.EventSink) *transcriptAssembler {
	return &transcriptAssembler{events: events}
}

func (a *transcriptAssembler) AddInput(fragment string) {
	if fragment == "" {
		return
	}
	a.mu.Lock()
	a.input.WriteString(fragment)
	preview := a.input.String()
	a.mu.Unlock()

	a.events.TranscriptPreview(domain.TranscriptInput, preview)
}

func (a *transcriptAssembler) AddOutput(fragment string) {
	if fragment == "" {
		return
	}
	a.mu.Lock()
	a.output.WriteString(fragment)
	preview := a.output.String()
	a.mu.Unlock()

	a.events.TranscriptPreview(domain.TranscriptOutput, preview)
}

// CompleteTurn finalizes the current turn. It returns one entry per
// non-empty buffer, the turn's headline direction (output wins when
// the assistant produced any text), and whether anything was emitted.
// Both buffers are always cleared.
func (a *transcriptAssembler) CompleteTurn() ([]turnEntry, domain.TranscriptDirection, bool) {
	a.mu.Lock()
	input := strings.TrimSpace(a.input.String())
	output := strings.TrimSpace(a.output.String())
	a.input.Reset()
	a.output.Reset()
	a.mu.Unlock()

	var entries []turnEntry
	if input != "" {
		entries = append(entries, turnEntry{Source: domain.LogSourceUser, Message: input})
	}
	if output != "" {
		entries = append(entries, turnEntry{Source: domain.LogSourceAssistant, Message: output})
	}

	kind := domain.TranscriptInput
	if output != "" {
		kind = domain.TranscriptOutput
	}
	return entries, kind, len(entries) > 0
}
