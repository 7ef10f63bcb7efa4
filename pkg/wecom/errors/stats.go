package errors

import (
	"sync"
	"time"
)

// Statistics accumulates delivery diagnostics for one orchestration run. The
// owning service creates it and passes it by reference into the delivery
// client; nothing here is process-global.
type Statistics struct {
	mu sync.Mutex

	byCode     map[int]int64
	byCategory map[Category]int64
	successes  int64
	failures   int64
	retries    int64
	startTime  time.Time
}

// StatisticsSnapshot is an immutable copy of the counters.
type StatisticsSnapshot struct {
	ByCode     map[int]int64      `json:"by_code"`
	ByCategory map[Category]int64 `json:"by_category"`
	Successes  int64              `json:"successes"`
	Failures   int64              `json:"failures"`
	Retries    int64              `json:"retries"`
	StartTime  time.Time          `json:"start_time"`
}

// NewStatistics creates an empty statistics accumulator.
func NewStatistics() *Statistics {
	return &Statistics{
		byCode:     make(map[int]int64),
		byCategory: make(map[Category]int64),
		startTime:  time.Now(),
	}
}

// RecordError counts a classified failure.
func (s *Statistics) RecordError(err *BotError) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.byCode[err.Code]++
	s.byCategory[err.Category]++
}

// RecordSuccess counts a successful delivery.
func (s *Statistics) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
}

// RecordRetry counts a retry attempt.
func (s *Statistics) RecordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
}

// Snapshot returns a copy of the current counters.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCode := make(map[int]int64, len(s.byCode))
	for k, v := range s.byCode {
		byCode[k] = v
	}
	byCategory := make(map[Category]int64, len(s.byCategory))
	for k, v := range s.byCategory {
		byCategory[k] = v
	}
	return StatisticsSnapshot{
		ByCode:     byCode,
		ByCategory: byCategory,
		Successes:  s.successes,
		Failures:   s.failures,
		Retries:    s.retries,
		StartTime:  s.startTime,
	}
}

// Reset clears all counters.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode = make(map[int]int64)
	s.byCategory = make(map[Category]int64)
	s.successes = 0
	s.failures = 0
	s.retries = 0
	s.startTime = time.Now()
}
