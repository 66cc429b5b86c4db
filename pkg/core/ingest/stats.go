package ingest

import (
	"sync"
	"sync/atomic"
)

// CallStats counts upstream requests made by one client.
type CallStats struct {
	total atomic.Int64

	mu         sync.Mutex
	byEndpoint map[string]int64
}

// StatsSnapshot is a point-in-time copy of CallStats.
type StatsSnapshot struct {
	Total      int64            `json:"total"`
	ByEndpoint map[string]int64 `json:"by_endpoint"`
}

func (s *CallStats) record(endpoint string) {
	s.total.Add(1)
	s.mu.Lock()
	if s.byEndpoint == nil {
		s.byEndpoint = make(map[string]int64)
	}
	s.byEndpoint[endpoint]++
	s.mu.Unlock()
}

// Snapshot copies the counters.
func (s *CallStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatsSnapshot{Total: s.total.Load(), ByEndpoint: make(map[string]int64, len(s.byEndpoint))}
	for k, v := range s.byEndpoint {
		out.ByEndpoint[k] = v
	}
	return out
}
