package tracker

import (
	"slices"
	"time"
)

type fileLine struct {
	file string
	line int
}

// Snapshot is an immutable point-in-time copy of all records, ordered by key.
type Snapshot struct {
	takenAt time.Time
	records []Stats
	byLine  map[fileLine]int
}

// NewSnapshot builds a snapshot from record copies. The input is copied and
// sorted by key; when a key repeats, the last entry wins.
func NewSnapshot(takenAt time.Time, stats []Stats) Snapshot {
	dedup := make(map[Key]Stats, len(stats))
	for _, s := range stats {
		dedup[s.Key] = s
	}

	records := make([]Stats, 0, len(dedup))
	for _, s := range dedup {
		records = append(records, s)
	}
	slices.SortFunc(records, func(a, b Stats) int { return a.Key.Compare(b.Key) })

	snap := Snapshot{
		takenAt: takenAt,
		records: records,
		byLine:  make(map[fileLine]int, len(records)),
	}
	for i, s := range records {
		fl := fileLine{file: s.File, line: s.Line}
		if _, ok := snap.byLine[fl]; !ok {
			snap.byLine[fl] = i
		}
	}
	return snap
}

// TakenAt returns when the snapshot was taken.
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.records)
}

// Empty reports whether no element was recorded.
func (s Snapshot) Empty() bool {
	return len(s.records) == 0
}

// Records returns a copy of the records in key order.
func (s Snapshot) Records() []Stats {
	return slices.Clone(s.records)
}

// At returns the first record, in key order, whose file and line match
// exactly. There is no partial or fuzzy matching.
func (s Snapshot) At(file string, line int) (Stats, bool) {
	i, ok := s.byLine[fileLine{file: file, line: line}]
	if !ok {
		return Stats{}, false
	}
	return s.records[i], true
}

// TotalExecutions sums the execution count of every record.
func (s Snapshot) TotalExecutions() int64 {
	var n int64
	for _, r := range s.records {
		n += r.Count
	}
	return n
}

// TotalNanos sums the total time of every record.
func (s Snapshot) TotalNanos() int64 {
	var n int64
	for _, r := range s.records {
		n += r.TotalNanos
	}
	return n
}
