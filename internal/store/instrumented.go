package store

import (
	"sync/atomic"
	"time"

	"github.com/heysubinoy/kvs/pkg/kv"
)

// Metrics holds timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	GetCount    atomic.Uint64
	SetCount    atomic.Uint64
	RemoveCount atomic.Uint64
	Errors      atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs    atomic.Uint64
	SetLatencyNs    atomic.Uint64
	RemoveLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// This pattern works for both the in-memory and the journaled store.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.store.Get(key)
	s.record(&s.metrics.GetCount, &s.metrics.GetLatencyNs, start, err)

	return value, found, err
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(key, value string) error {
	start := time.Now()
	err := s.store.Set(key, value)
	s.record(&s.metrics.SetCount, &s.metrics.SetLatencyNs, start, err)

	return err
}

// Remove delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Remove(key string) error {
	start := time.Now()
	err := s.store.Remove(key)
	s.record(&s.metrics.RemoveCount, &s.metrics.RemoveLatencyNs, start, err)

	return err
}

func (s *InstrumentedStore) record(count, latency *atomic.Uint64, start time.Time, err error) {
	elapsed := time.Since(start).Nanoseconds()

	count.Add(1)
	latency.Add(uint64(elapsed))
	if err != nil {
		s.metrics.Errors.Add(1)
	}
}

// Metrics returns a snapshot of current metrics.
func (s *InstrumentedStore) Metrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()
	removeCount := s.metrics.RemoveCount.Load()

	return MetricsSnapshot{
		GetCount:         getCount,
		SetCount:         setCount,
		RemoveCount:      removeCount,
		ErrorCount:       s.metrics.Errors.Load(),
		GetAvgLatency:    avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency:    avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
		RemoveAvgLatency: avgLatency(s.metrics.RemoveLatencyNs.Load(), removeCount),
	}
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	GetCount         uint64
	SetCount         uint64
	RemoveCount      uint64
	ErrorCount       uint64
	GetAvgLatency    time.Duration
	SetAvgLatency    time.Duration
	RemoveAvgLatency time.Duration
}

// Fields flattens the snapshot into key/value pairs for a structured logger.
func (m MetricsSnapshot) Fields() []any {
	return []any{
		"get", m.GetCount,
		"set", m.SetCount,
		"remove", m.RemoveCount,
		"errors", m.ErrorCount,
		"get_avg", m.GetAvgLatency.String(),
		"set_avg", m.SetAvgLatency.String(),
		"remove_avg", m.RemoveAvgLatency.String(),
	}
}
