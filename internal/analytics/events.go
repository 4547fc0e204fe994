// Package analytics collects one event per solve request, ships them to a
// sink (Kafka or the in-process aggregator) in batches, and aggregates them
// into the figures served at /api/v1/analytics.
package analytics

import "time"

type EventType string

const (
	EventSolve           EventType = "solve"
	EventInvalidEncoding EventType = "invalid_encoding"
)

// SolveEvent describes one request. Letters is the canonical letter string,
// never the raw input.
type SolveEvent struct {
	Type              EventType `json:"type"`
	RequestID         string    `json:"request_id"`
	Letters           string    `json:"letters"`
	LetterCount       int       `json:"letter_count"`
	Encoding          string    `json:"encoding"`
	Results           int       `json:"results"`
	Truncated         bool      `json:"truncated"`
	Reason            string    `json:"reason,omitempty"`
	Nodes             int       `json:"nodes"`
	MemoHits          int       `json:"memo_hits"`
	LatencyUs         int64     `json:"latency_us"`
	DictionaryVersion uint64    `json:"dictionary_version"`
	Timestamp         time.Time `json:"timestamp"`
}
