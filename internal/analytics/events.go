// Package analytics records what users search for and how the index
// evolves, publishes the events to Kafka and aggregates them into the stats
// served at /api/v1/analytics.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch EventType = "search"
	EventIndex  EventType = "index"
)

// SearchEvent describes one executed query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Mode       string    `json:"mode"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  float64   `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexEvent describes one finished index build.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	Entries    int       `json:"entries"`
	Dropped    int       `json:"dropped"`
	Terms      int       `json:"terms"`
	LatencyMs  float64   `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type envelope struct {
	Type EventType `json:"type"`
}

// Decode parses a published event, dispatching on its type field. It
// returns *SearchEvent or *IndexEvent.
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}
	switch env.Type {
	case EventSearch:
		var e SearchEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return &e, nil
	case EventIndex:
		var e IndexEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding index event: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
