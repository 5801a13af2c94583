package tracker

import (
	"math"
	"sync"
	"sync/atomic"
)

// Record aggregates every span observed for one key during a session.
//
// Count and total are atomic adds and min/max are CAS loops, so concurrent
// writers never wait on each other. Writers hold the shared side of mu and
// stats() takes the exclusive side, which keeps a read from landing between
// the count and total updates of a single observation.
type Record struct {
	key  Key
	name string

	mu    sync.RWMutex
	count atomic.Int64
	total atomic.Int64
	min   atomic.Int64 // math.MaxInt64 until a positive duration is seen
	max   atomic.Int64
}

func newRecord(key Key, name string) *Record {
	r := &Record{key: key, name: name}
	r.min.Store(math.MaxInt64)
	return r
}

// observe adds one timed execution. Non-positive durations only count.
func (r *Record) observe(nanos int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.count.Add(1)
	if nanos <= 0 {
		return
	}
	r.total.Add(nanos)

	for {
		cur := r.max.Load()
		if nanos <= cur || r.max.CompareAndSwap(cur, nanos) {
			break
		}
	}
	for {
		cur := r.min.Load()
		if nanos >= cur || r.min.CompareAndSwap(cur, nanos) {
			break
		}
	}
}

// occur adds one execution without timing.
func (r *Record) occur() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.count.Add(1)
}

func (r *Record) stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Key:        r.key,
		Name:       r.name,
		Count:      r.count.Load(),
		TotalNanos: r.total.Load(),
		MaxNanos:   r.max.Load(),
	}
	if m := r.min.Load(); m != math.MaxInt64 {
		s.MinNanos = m
	}
	return s
}

// Stats is an immutable copy of a Record.
type Stats struct {
	Key
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	TotalNanos int64  `json:"total_ns"`
	MinNanos   int64  `json:"min_ns"`
	MaxNanos   int64  `json:"max_ns"`
}

// HasTiming reports whether at least one positive duration was recorded.
func (s Stats) HasTiming() bool {
	return s.MaxNanos > 0
}

// AvgMillis returns total time divided by execution count, in milliseconds.
func (s Stats) AvgMillis() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalNanos) / float64(s.Count) / 1e6
}

// TotalMillis returns the total time in milliseconds.
func (s Stats) TotalMillis() float64 {
	return float64(s.TotalNanos) / 1e6
}

// MaxMillis returns the largest observed duration in milliseconds.
func (s Stats) MaxMillis() float64 {
	return float64(s.MaxNanos) / 1e6
}

// MinMillis returns the smallest positive duration in milliseconds, or 0.
func (s Stats) MinMillis() float64 {
	return float64(s.MinNanos) / 1e6
}
