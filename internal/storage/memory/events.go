package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/models"
)

// EventLog is an in-memory implementation of interfaces.EventLog.
// Events are held in append order in a slice; the sequence counter is
// reset to zero by Clear so the first append of a new generation is 1.
type EventLog struct {
	mu     sync.RWMutex
	seq    uint64
	events []models.Event
}

// NewEventLog creates and returns an empty EventLog instance.
func NewEventLog() *EventLog {
	return &EventLog{
		events: make([]models.Event, 0),
	}
}

// Append assigns the next sequence number, a trace id and a timestamp,
// stores the event and returns the stored copy.
func (l *EventLog) Append(event models.Event) models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	event.Sequence = l.seq
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	l.events = append(l.events, event)
	return event
}

// ByAccount returns all events in which the account participates in any
// role, in append order.
func (l *EventLog) ByAccount(accountId string) []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []models.Event
	for _, e := range l.events {
		if e.Touches(accountId) {
			result = append(result, e)
		}
	}
	return result
}

// ByType returns all events of the given type, in append order.
func (l *EventLog) ByType(eventType models.EventType) []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []models.Event
	for _, e := range l.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// All returns a copy of the full log so external code cannot modify
// internal state.
func (l *EventLog) All() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]models.Event, len(l.events))
	copy(copied, l.events)
	return copied
}

// Clear empties the log and restarts the sequence counter.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq = 0
	l.events = make([]models.Event, 0)
}

// Compile-time check: ensure EventLog implements the interface.
var _ interfaces.EventLog = (*EventLog)(nil)
