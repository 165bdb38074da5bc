// Episodic stream — append-only experience records with semantic retrieval.
package memory

import (
	"iter"
	"sort"

	"github.com/google/uuid"
)

// Record is one immutable entry in the episodic stream.
type Record struct {
	ID          string
	Topic       string
	Description string
	Timestamp   uint64
	Embedding   []float32
}

// Query selects and ranks episodic records. A non-empty Semantic string ranks
// by embedding similarity before recency; otherwise ordering is pure recency.
type Query struct {
	Topic    string // Exact topic filter, empty = all topics
	Semantic string // Free-text similarity query, empty = recency only
	Limit    int    // Max records, <= 0 = no limit
}

// StreamAppend records an experience and returns its stable identifier.
// Timestamps are strictly monotonic even when the clock stalls within a tick.
func (s *Store) StreamAppend(topic, description string) (string, error) {
	ts := s.clock()
	if len(s.records) > 0 && ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts

	r := Record{
		ID:          uuid.NewString(),
		Topic:       topic,
		Description: description,
		Timestamp:   ts,
		Embedding:   Embed(description),
	}
	s.records = append(s.records, r)
	return r.ID, nil
}

// StreamLen returns the number of records appended so far.
func (s *Store) StreamLen() int {
	return len(s.records)
}

// StreamQuery returns a finite, restartable sequence of matching records.
// Results are bounded to records present when the query was issued; later
// appends never leak in. Ranking is relevance (when semantic) then recency,
// and repeated iteration yields the same order.
func (s *Store) StreamQuery(q Query) iter.Seq[Record] {
	// Snapshot: the backing array is append-only, so a reslice is stable.
	snapshot := s.records[:len(s.records):len(s.records)]

	matched := make([]Record, 0, len(snapshot))
	for _, r := range snapshot {
		if q.Topic != "" && r.Topic != q.Topic {
			continue
		}
		matched = append(matched, r)
	}

	if q.Semantic != "" {
		qv := Embed(q.Semantic)
		scores := make(map[string]float64, len(matched))
		for _, r := range matched {
			scores[r.ID] = Cosine(qv, r.Embedding)
		}
		sort.SliceStable(matched, func(i, j int) bool {
			si, sj := scores[matched[i].ID], scores[matched[j].ID]
			if si != sj {
				return si > sj
			}
			return matched[i].Timestamp > matched[j].Timestamp
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Timestamp > matched[j].Timestamp
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return func(yield func(Record) bool) {
		for _, r := range matched {
			if !yield(r) {
				return
			}
		}
	}
}
