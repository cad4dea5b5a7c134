package delivery

import (
	"sync"
	"time"
)

const (
	// HistoryLimit is how many attempts a session keeps.
	HistoryLimit = 10
	// ExcerptLimit is how many characters of a response body are kept.
	ExcerptLimit = 500
)

// Record is one delivery attempt as shown to the operator.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Success     bool      `json:"success"`
	StatusCode  *int      `json:"status_code,omitempty"`
	Response    string    `json:"response_text,omitempty"`
	Error       string    `json:"error,omitempty"`
	PayloadSize int       `json:"payload_size"`
}

// History keeps the most recent attempts, newest first. Once full, adding a
// record evicts the oldest one.
type History struct {
	owner string
	limit int

	mu      sync.RWMutex
	records []Record
}

// NewHistory creates an empty history for owner (a session id).
func NewHistory(owner string, limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{owner: owner, limit: limit}
}

func (h *History) Owner() string { return h.owner }

// Add records r as the newest entry.
func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append([]Record{r}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
}

// List returns a copy of the records, newest first.
func (h *History) List() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Latest returns the newest record, if any.
func (h *History) Latest() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[0], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= ExcerptLimit {
		return s
	}
	return string(r[:ExcerptLimit])
}
