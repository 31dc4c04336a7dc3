package services

import (
	"math"
	"sync"

	"github.com/itish2003/guidedpath/models"
)

const statusWindow = 20

// ConversationHistory is a bounded FIFO of completed requests.
type ConversationHistory struct {
	mu       sync.Mutex
	records  []models.ConversationRecord
	capacity int
}

func NewConversationHistory(capacity int) *ConversationHistory {
	if capacity <= 0 {
		capacity = 100
	}
	return &ConversationHistory{capacity: capacity}
}

// Append adds a record and evicts the oldest ones beyond capacity.
func (h *ConversationHistory) Append(rec models.ConversationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if over := len(h.records) - h.capacity; over > 0 {
		h.records = append(h.records[:0:0], h.records[over:]...)
	}
}

func (h *ConversationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Recent returns up to limit of the newest records, oldest first. A
// non-positive limit returns everything.
func (h *ConversationHistory) Recent(limit int) []models.ConversationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := 0
	if limit > 0 && limit < len(h.records) {
		start = len(h.records) - limit
	}
	return append([]models.ConversationRecord(nil), h.records[start:]...)
}

func (h *ConversationHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

// AverageProcessingTime is the mean over the last 20 records, rounded to
// two decimals.
func (h *ConversationHistory) AverageProcessingTime() float64 {
	recent := h.Recent(statusWindow)
	if len(recent) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range recent {
		total += r.ProcessingTime
	}
	return round(total/float64(len(recent)), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
