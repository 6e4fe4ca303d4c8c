package indexer

import "sync/atomic"

// Stats counts handled messages by outcome. The counters are the only
// state the coordinator shares across handlers.
type Stats struct {
	received    atomic.Int64
	indexed     atomic.Int64
	removed     atomic.Int64
	notFound    atomic.Int64
	malformed   atomic.Int64
	fetchFailed atomic.Int64
	writeFailed atomic.Int64
	dropped     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Received    int64 `json:"received"`
	Indexed     int64 `json:"indexed"`
	Removed     int64 `json:"removed"`
	NotFound    int64 `json:"not_found"`
	Malformed   int64 `json:"malformed"`
	FetchFailed int64 `json:"fetch_failed"`
	WriteFailed int64 `json:"write_failed"`
	// Dropped counts messages that arrived after shutdown began.
	Dropped int64 `json:"dropped"`
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomeIndexed:
		s.indexed.Add(1)
	case OutcomeRemoved:
		s.removed.Add(1)
	case OutcomeNotFound:
		s.notFound.Add(1)
	case OutcomeMalformed:
		s.malformed.Add(1)
	case OutcomeFetchFailed:
		s.fetchFailed.Add(1)
	case OutcomeWriteFailed:
		s.writeFailed.Add(1)
	}
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Received:    s.received.Load(),
		Indexed:     s.indexed.Load(),
		Removed:     s.removed.Load(),
		NotFound:    s.notFound.Load(),
		Malformed:   s.malformed.Load(),
		FetchFailed: s.fetchFailed.Load(),
		WriteFailed: s.writeFailed.Load(),
		Dropped:     s.dropped.Load(),
	}
}
