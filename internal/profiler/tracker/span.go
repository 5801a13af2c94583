package tracker

import "time"

// SpanHandle marks the start of one execution. It is returned by BeginSpan
// and handed back to EndSpan, so no per-goroutine state is kept.
type SpanHandle struct {
	ID      string
	start   time.Time
	session uint64
}

// Valid reports whether the handle was issued during an active session.
func (h SpanHandle) Valid() bool {
	return !h.start.IsZero()
}

// SpanEnd identifies the element whose execution just finished.
type SpanEnd struct {
	File string
	Line int
	Kind ElementKind
	Name string
}

// BeginSpan starts timing an execution identified by id. Outside a session it
// returns an invalid handle that EndSpan ignores.
func (t *Tracker) BeginSpan(id string) SpanHandle {
	session := t.session.Load()
	if session&1 == 0 {
		return SpanHandle{ID: id}
	}
	return SpanHandle{ID: id, start: t.now(), session: session}
}

// EndSpan records the time elapsed since h was issued against the element
// described by end. It returns the measured duration and whether it was
// recorded. Handles issued in an earlier session are ignored.
func (t *Tracker) EndSpan(h SpanHandle, end SpanEnd) (time.Duration, bool) {
	if !h.Valid() || t.session.Load() != h.session {
		return 0, false
	}
	d := t.now().Sub(h.start)
	if !t.recordSpan(h.session, NewKey(end.File, end.Line, end.Kind), end.Name, d.Nanoseconds()) {
		return 0, false
	}
	return d, true
}
