package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamStore(t *testing.T, clock func() uint64) *Store {
	t.Helper()
	s, err := NewStore(nil, clock)
	require.NoError(t, err)
	return s
}

func collect(seq func(func(Record) bool)) []Record {
	var out []Record
	seq(func(r Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

func TestStreamTimestampsMonotonic(t *testing.T) {
	tick := uint64(0)
	s := newStreamStore(t, func() uint64 { return tick })

	// Several appends within the same tick must still advance timestamps.
	_, err := s.StreamAppend("work", "started the morning shift")
	require.NoError(t, err)
	_, err = s.StreamAppend("work", "finished the morning shift")
	require.NoError(t, err)
	tick = 5
	_, err = s.StreamAppend("social", "chatted with a neighbor")
	require.NoError(t, err)

	all := collect(s.StreamQuery(Query{}))
	require.Len(t, all, 3)
	// Recency ordering: newest first.
	assert.True(t, all[0].Timestamp > all[1].Timestamp)
	assert.True(t, all[1].Timestamp > all[2].Timestamp)
}

func TestStreamTopicFilter(t *testing.T) {
	s := newStreamStore(t, nil)
	_, _ = s.StreamAppend("work", "assembled widgets at the plant")
	_, _ = s.StreamAppend("consume", "bought groceries")
	_, _ = s.StreamAppend("work", "overtime on the night shift")

	work := collect(s.StreamQuery(Query{Topic: "work"}))
	require.Len(t, work, 2)
	for _, r := range work {
		assert.Equal(t, "work", r.Topic)
	}
}

func TestStreamSemanticRanking(t *testing.T) {
	s := newStreamStore(t, nil)
	_, _ = s.StreamAppend("misc", "bought bread and milk at the market")
	_, _ = s.StreamAppend("misc", "repaired the workshop machinery")
	_, _ = s.StreamAppend("misc", "market prices for bread went up")

	got := collect(s.StreamQuery(Query{Semantic: "bread market prices", Limit: 2}))
	require.Len(t, got, 2)
	// Both top hits should be the bread/market records, not the machinery one.
	for _, r := range got {
		assert.NotContains(t, r.Description, "machinery")
	}
}

func TestStreamQueryIdempotent(t *testing.T) {
	s := newStreamStore(t, nil)
	_, _ = s.StreamAppend("a", "first event of the day")
	_, _ = s.StreamAppend("b", "second event of the day")
	_, _ = s.StreamAppend("a", "third event of the day")

	q := Query{Semantic: "event day"}
	first := collect(s.StreamQuery(q))
	second := collect(s.StreamQuery(q))
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestStreamQuerySnapshotBound(t *testing.T) {
	s := newStreamStore(t, nil)
	_, _ = s.StreamAppend("a", "before the query")

	seq := s.StreamQuery(Query{})

	// Records appended after the query was issued never leak in,
	// even across restarts of the sequence.
	_, _ = s.StreamAppend("a", "after the query")
	for range 2 {
		got := collect(seq)
		require.Len(t, got, 1)
		assert.Equal(t, "before the query", got[0].Description)
	}
}

func TestStreamAppendReturnsStableID(t *testing.T) {
	s := newStreamStore(t, nil)
	id, err := s.StreamAppend("work", "a memorable shift")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got := collect(s.StreamQuery(Query{Topic: "work"}))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestEmbedDeterministic(t *testing.T) {
	a := Embed("the quick brown fox")
	b := Embed("the quick brown fox")
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-9)
	assert.Equal(t, 0.0, Cosine(Embed("something"), nil))
}
