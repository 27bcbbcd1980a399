package service

import (
	"sync"

	"github.com/jonny/mediq/internal/domain/model"
)

const DefaultHistoryCapacity = 15

// HistoryTracker keeps the most recent history entries in insertion order and
// evicts the oldest once capacity is reached.
type HistoryTracker struct {
	mu       sync.RWMutex
	capacity int
	entries  []model.HistoryEntry
}

func NewHistoryTracker(capacity int) *HistoryTracker {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryTracker{
		capacity: capacity,
		entries:  make([]model.HistoryEntry, 0, capacity),
	}
}

func (h *HistoryTracker) Append(entry model.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(entry)
}

// Seed appends entries oldest first, as if each had been appended in turn.
func (h *HistoryTracker) Seed(entries []model.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		h.appendLocked(e)
	}
}

// AppendSnapshot appends entry and returns a copy of the resulting window
// taken under the same lock.
func (h *HistoryTracker) AppendSnapshot(entry model.HistoryEntry) []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(entry)
	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryTracker) appendLocked(entry model.HistoryEntry) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy of the window, oldest first.
func (h *HistoryTracker) Entries() []model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryTracker) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *HistoryTracker) Capacity() int { return h.capacity }

// Trend compares the health scores of the two most recent entries.
func (h *HistoryTracker) Trend() model.Trend {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return TrendOf(h.entries)
}

// TrendOf derives the trend of an oldest-first entry list.
func TrendOf(entries []model.HistoryEntry) model.Trend {
	n := len(entries)
	if n < 2 {
		return model.TrendStable
	}
	last, prev := entries[n-1].HealthScore, entries[n-2].HealthScore
	switch {
	case last > prev:
		return model.TrendImproving
	case last < prev:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}
