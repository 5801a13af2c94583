// Package tracker aggregates execution timings of script elements.
//
// A Tracker holds one Record per Key for the duration of a profiling session.
// Recording is safe from any number of goroutines; Snapshot can run
// concurrently with recording and returns a coherent, possibly slightly
// stale, copy.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	records map[Key]*Record
}

// Tracker is the execution aggregator of a profiling session.
type Tracker struct {
	logger zerolog.Logger
	now    func() time.Time

	shards [shardCount]shard

	// session is generation<<1 | active. Every Start and Stop bumps the
	// generation, so a write that observed one session cannot land in the next.
	session atomic.Uint64

	// mu guards the session timestamps and serialises Start/Stop/Reset.
	mu        sync.Mutex
	startedAt time.Time
	endedAt   time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the tracker logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger.With().Str("component", "tracker").Logger()
	}
}

// New creates an inactive tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	for i := range t.shards {
		t.shards[i].records = make(map[Key]*Record)
	}
	return t
}

// Start begins a session. It returns false if one is already active.
func (t *Tracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session.Load()
	if s&1 == 1 {
		return false
	}
	t.startedAt = t.now()
	t.endedAt = time.Time{}
	t.session.Store((s>>1+1)<<1 | 1)

	t.logger.Info().Msg("Execution tracking started")
	return true
}

// Stop ends the active session. It returns false if none is active.
func (t *Tracker) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session.Load()
	if s&1 == 0 {
		return false
	}
	t.session.Store((s>>1 + 1) << 1)
	t.endedAt = t.now()

	t.logger.Info().
		Dur("duration", t.endedAt.Sub(t.startedAt)).
		Int("records", t.Len()).
		Msg("Execution tracking stopped")
	return true
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool {
	return t.session.Load()&1 == 1
}

// Reset drops every record and the session timestamps.
// It is refused (returns false) while a session is active.
func (t *Tracker) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Active() {
		return false
	}
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		s.records = make(map[Key]*Record)
		s.mu.Unlock()
	}
	t.startedAt = time.Time{}
	t.endedAt = time.Time{}
	return true
}

// RecordSpan adds one timed execution of key. The record is created on first
// use with name as its element name. Durations of zero or less increment the
// count only. Spans recorded while no session is active are dropped, and so
// are spans racing with a Stop of the session they started in.
func (t *Tracker) RecordSpan(key Key, name string, durationNanos int64) {
	t.recordSpan(t.session.Load(), key, name, durationNanos)
}

func (t *Tracker) recordSpan(session uint64, key Key, name string, durationNanos int64) bool {
	if session&1 == 0 {
		return false
	}
	r := t.record(session, key, name)
	if r == nil {
		return false
	}
	r.observe(durationNanos)
	return true
}

// RecordDuration is RecordSpan for a time.Duration.
func (t *Tracker) RecordDuration(key Key, name string, d time.Duration) {
	t.RecordSpan(key, name, d.Nanoseconds())
}

// RecordOccurrence counts one execution of key without timing it.
//
// Occurrences lower the average (total/count) of the key, so do not mix them
// with RecordSpan for keys whose average matters.
func (t *Tracker) RecordOccurrence(key Key, name string) {
	session := t.session.Load()
	if session&1 == 0 {
		return
	}
	if r := t.record(session, key, name); r != nil {
		r.occur()
	}
}

// record returns the record of key, creating it if needed. It returns nil
// when the tracker is no longer in the given session. The check runs under
// the shard lock Reset takes, so a stale write never reaches a fresh map.
func (t *Tracker) record(session uint64, key Key, name string) *Record {
	s := &t.shards[key.hash()%shardCount]

	s.mu.RLock()
	if t.session.Load() != session {
		s.mu.RUnlock()
		return nil
	}
	r, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.session.Load() != session {
		return nil
	}
	if r, ok = s.records[key]; !ok {
		r = newRecord(key, name)
		s.records[key] = r
	}
	return r
}

// Snapshot copies every record. Each record is read atomically with respect
// to concurrent writers.
func (t *Tracker) Snapshot() Snapshot {
	var records []*Record
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for _, r := range s.records {
			records = append(records, r)
		}
		s.mu.RUnlock()
	}

	stats := make([]Stats, 0, len(records))
	for _, r := range records {
		stats = append(stats, r.stats())
	}
	return NewSnapshot(t.now(), stats)
}

// Len returns the current number of records.
func (t *Tracker) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}

// StartedAt returns the start of the current or last session.
func (t *Tracker) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// SessionDuration is end-start once stopped, now-start while active and
// zero if no session was started since the last reset.
func (t *Tracker) SessionDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.startedAt.IsZero():
		return 0
	case t.Active():
		return t.now().Sub(t.startedAt)
	default:
		return t.endedAt.Sub(t.startedAt)
	}
}

// SessionDurationMillis is SessionDuration in whole milliseconds.
func (t *Tracker) SessionDurationMillis() int64 {
	return t.SessionDuration().Milliseconds()
}
