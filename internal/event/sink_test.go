package event

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewSink(path, nil)
	require.NoError(t, err)

	s.Record(Record{Kind: KindWakeDetected})
	s.Record(Record{Kind: KindUtteranceReceived, Text: "what time is it"})
	s.Record(Record{Kind: KindResponseSpoken, Text: "half past three", LatencyMS: 420})
	require.NoError(t, s.Close())

	records, _, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, KindWakeDetected, records[0].Kind)
	assert.Equal(t, "what time is it", records[1].Text)
	assert.InDelta(t, 420, records[2].LatencyMS, 0.01)

	for _, r := range records {
		assert.Equal(t, s.Session(), r.Session)
		assert.False(t, r.TS.IsZero())
	}
}

func TestSinkAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	first, err := NewSink(path, nil)
	require.NoError(t, err)
	first.Record(Record{Kind: KindStatus, Text: "run one"})
	require.NoError(t, first.Close())

	second, err := NewSink(path, nil)
	require.NoError(t, err)
	second.Record(Record{Kind: KindStatus, Text: "run two"})
	require.NoError(t, second.Close())

	records, _, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].Session, records[1].Session, "each run gets a fresh session id")
}
