package reconcile

import (
	"sync"

	"classbridge/models"
)

const (
	DefaultChangeLogCapacity = 1000
	DefaultChangeLogRetain   = 500
)

// ChangeLog is a bounded, insertion-ordered log of detected booking changes.
// Once it grows past capacity it is trimmed to the newest retain entries.
type ChangeLog struct {
	mu       sync.RWMutex
	entries  []models.BookingChange
	capacity int
	retain   int
}

func NewChangeLog(capacity, retain int) *ChangeLog {
	if capacity <= 0 {
		capacity = DefaultChangeLogCapacity
	}
	if retain <= 0 || retain > capacity {
		retain = capacity / 2
	}
	return &ChangeLog{capacity: capacity, retain: retain}
}

func (l *ChangeLog) Append(changes ...models.BookingChange) {
	if len(changes) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, changes...)
	if len(l.entries) > l.capacity {
		trimmed := make([]models.BookingChange, l.retain)
		copy(trimmed, l.entries[len(l.entries)-l.retain:])
		l.entries = trimmed
	}
}

// Recent returns up to limit of the newest entries, oldest first.
// A non-positive limit returns everything.
func (l *ChangeLog) Recent(limit int) []models.BookingChange {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(l.entries) {
		start = len(l.entries) - limit
	}
	out := make([]models.BookingChange, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

func (l *ChangeLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
