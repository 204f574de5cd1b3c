package sim

import (
	"sync"
	"time"
)

// DefaultJournalSize is the number of events kept by the journal.
const DefaultJournalSize = 100

// Event is one recorded simulator transition.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Details   string    `json:"details"`
}

// Journal is a bounded in-memory log of the most recent events.
type Journal struct {
	mu     sync.Mutex
	events []Event
	size   int
	now    func() time.Time
}

// NewJournal creates a journal keeping at most size events.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{size: size, now: time.Now}
}

// Record appends an event, evicting the oldest when full.
func (j *Journal) Record(typ, details string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, Event{Timestamp: j.now().UTC(), Type: typ, Details: details})
	if over := len(j.events) - j.size; over > 0 {
		j.events = append(j.events[:0:0], j.events[over:]...)
	}
}

// Events returns a copy of the recorded events, oldest first.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}
