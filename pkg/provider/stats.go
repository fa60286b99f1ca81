package provider

import (
	"sort"
	"sync"
	"time"
)

// BackendStatistics is a read-only snapshot of one backend's counters.
// AverageDuration is derived at read time, never stored.
type BackendStatistics struct {
	Backend               string        `json:"backend"`
	RequestCount          int64         `json:"request_count"`
	SuccessCount          int64         `json:"success_count"`
	FailureCount          int64         `json:"failure_count"`
	TotalDuration         time.Duration `json:"total_duration"`
	AverageDuration       time.Duration `json:"average_duration"`
	TotalPromptTokens     int64         `json:"total_prompt_tokens"`
	TotalCompletionTokens int64         `json:"total_completion_tokens"`
	TotalTokens           int64         `json:"total_tokens"`
}

type backendCounters struct {
	requestCount          int64
	successCount          int64
	failureCount          int64
	totalDuration         time.Duration
	totalPromptTokens     int64
	totalCompletionTokens int64
	totalTokens           int64
}

// StatisticsStore accumulates per-backend counters. It is an explicitly
// owned value injected into the hub, safe for concurrent use. Counters only
// ever grow.
type StatisticsStore struct {
	mu    sync.RWMutex
	stats map[string]*backendCounters
}

// NewStatisticsStore creates an empty statistics store.
func NewStatisticsStore() *StatisticsStore {
	return &StatisticsStore{
		stats: make(map[string]*backendCounters),
	}
}

// RecordSuccess counts one successful request against a backend.
func (s *StatisticsStore) RecordSuccess(backend string, duration time.Duration, usage *Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreate(backend)
	c.requestCount++
	c.successCount++
	c.totalDuration += duration

	if usage != nil {
		c.totalPromptTokens += int64(usage.PromptTokens)
		c.totalCompletionTokens += int64(usage.CompletionTokens)
		c.totalTokens += int64(usage.TotalTokens)
	}
}

// RecordFailure counts one failed request against a backend. Duration is
// recorded regardless of the fault kind.
func (s *StatisticsStore) RecordFailure(backend string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreate(backend)
	c.requestCount++
	c.failureCount++
	c.totalDuration += duration
}

// Snapshot returns copies of the accumulated counters. When backend is
// non-empty the result is filtered to that key; an unknown key yields an
// empty slice.
func (s *StatisticsStore) Snapshot(backend string) []BackendStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if backend != "" {
		c, ok := s.stats[backend]
		if !ok {
			return []BackendStatistics{}
		}
		return []BackendStatistics{c.snapshot(backend)}
	}

	keys := make([]string, 0, len(s.stats))
	for key := range s.stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]BackendStatistics, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.stats[key].snapshot(key))
	}
	return out
}

func (s *StatisticsStore) getOrCreate(backend string) *backendCounters {
	if c, ok := s.stats[backend]; ok {
		return c
	}
	c := &backendCounters{}
	s.stats[backend] = c
	return c
}

func (c *backendCounters) snapshot(backend string) BackendStatistics {
	stats := BackendStatistics{
		Backend:               backend,
		RequestCount:          c.requestCount,
		SuccessCount:          c.successCount,
		FailureCount:          c.failureCount,
		TotalDuration:         c.totalDuration,
		TotalPromptTokens:     c.totalPromptTokens,
		TotalCompletionTokens: c.totalCompletionTokens,
		TotalTokens:           c.totalTokens,
	}
	if c.requestCount > 0 {
		stats.AverageDuration = c.totalDuration / time.Duration(c.requestCount)
	}
	return stats
}
