package tabs

// DefaultClosedHistoryCap bounds the closed-tab history; the oldest record is
// evicted once the cap is reached.
const DefaultClosedHistoryCap = 10

// ClosedHistory is a bounded most-recent-first history of closed tabs.
type ClosedHistory struct {
	records []ClosedTab
	cap     int
}

func NewClosedHistory(capacity int) *ClosedHistory {
	if capacity <= 0 {
		capacity = DefaultClosedHistoryCap
	}
	return &ClosedHistory{cap: capacity}
}

// Push records a closed tab, evicting the oldest record at capacity.
func (h *ClosedHistory) Push(record ClosedTab) {
	h.records = append(h.records, record)
	if len(h.records) > h.cap {
		h.records = h.records[1:]
	}
}

// Peek returns the most recently closed record without removing it.
func (h *ClosedHistory) Peek() (ClosedTab, bool) {
	if len(h.records) == 0 {
		return ClosedTab{}, false
	}
	return h.records[len(h.records)-1], true
}

// Pop removes and returns the most recently closed record.
func (h *ClosedHistory) Pop() (ClosedTab, bool) {
	if len(h.records) == 0 {
		return ClosedTab{}, false
	}
	record := h.records[len(h.records)-1]
	h.records = h.records[:len(h.records)-1]
	return record, true
}

func (h *ClosedHistory) Len() int {
	return len(h.records)
}
