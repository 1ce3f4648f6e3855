// Package analytics tracks search and index activity. Events are published
// to Kafka by a buffered Collector and folded into in-memory statistics by
// an Aggregator consuming the same topic, so stats survive process
// boundaries when several oxidex instances share a broker.
package analytics

import "time"

// EventType discriminates the analytics event union.
type EventType string

const (
	EventSearch          EventType = "search"
	EventDocumentAdded   EventType = "document_added"
	EventDocumentRemoved EventType = "document_removed"
)

// Event is the single wire shape for all analytics events; fields that do
// not apply to a given Type are left zero.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	// Search fields.
	Term      string `json:"term,omitempty"`
	TotalHits int    `json:"total_hits,omitempty"`
	Returned  int    `json:"returned,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	CacheHit  bool   `json:"cache_hit,omitempty"`

	// Index fields.
	DocID      uint64 `json:"doc_id,omitempty"`
	Path       string `json:"path,omitempty"`
	TokenCount int    `json:"token_count,omitempty"`
}
