package assist

import (
	"strings"
	"sync"
	"time"
)

// History is a bounded, keyed store of the most recent analysis result per
// flight, used to give subsequent prompts short-term context. It is the
// only mutable state shared between concurrent assist calls, so all access
// goes through the lock. Eviction is by insertion order once capacity is
// exceeded; TTL is optional and defaults to unbounded.
type History struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	entries  map[string]historyEntry
	order    []string
}

type historyEntry struct {
	result     AnalysisResult
	recordedAt time.Time
}

// NewHistory creates a history cache. Capacity must be positive; ttl of
// zero disables time-based expiry.
func NewHistory(capacity int, ttl time.Duration) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]historyEntry, capacity),
	}
}

// Record stores the most recent result for a flight, evicting the oldest
// entry once capacity is exceeded. Re-recording a flight refreshes its
// position in the eviction order.
func (h *History) Record(callsign string, result AnalysisResult) {
	key := normalizeKey(callsign)
	if key == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[key]; exists {
		h.removeFromOrder(key)
	}
	h.entries[key] = historyEntry{result: result, recordedAt: time.Now()}
	h.order = append(h.order, key)

	for len(h.order) > h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, oldest)
	}
}

// Lookup returns the most recent result for a flight, if one is cached and
// not expired
func (h *History) Lookup(callsign string) (AnalysisResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.entries[normalizeKey(callsign)]
	if !ok {
		return AnalysisResult{}, false
	}
	if h.ttl > 0 && time.Since(entry.recordedAt) > h.ttl {
		return AnalysisResult{}, false
	}
	return entry.result, true
}

// Len returns the number of cached entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) removeFromOrder(key string) {
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func normalizeKey(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}
