package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"holovox/internal/domain"
	"holovox/internal/ports"
)

// ActivityLog is the bounded, append-only record of lifecycle and
// transcript events. Entries past the capacity are silently discarded,
// oldest first.
type ActivityLog struct {
	mu       sync.Mutex
	entries  []domain.LogEntry
	capacity int

	events ports.EventSink
	now    func() time.Time
	newID  func() string
}

func NewActivityLog(capacity int, events ports.EventSink) *ActivityLog {
	if capacity <= 0 {
		capacity = 30
	}
	return &ActivityLog{
		capacity: capacity,
		events:   events,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Append records a new entry and notifies the rendering layer.
func (l *ActivityLog) Append(source domain.LogSource, message string) domain.LogEntry {
	l.mu.Lock()
	entry := domain.LogEntry{
		ID:        l.newID(),
		Timestamp: l.now(),
		Source:    source,
		Message:   message,
	}
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	l.mu.Unlock()

	l.events.LogAppended(entry)
	return entry
}

// Entries returns a snapshot copy of the current log window.
func (l *ActivityLog) Entries() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
