package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailMissingFile(t *testing.T) {
	records, offset, err := Tail(filepath.Join(t.TempDir(), "absent.jsonl"), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, offset)
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"kind":"wake_detected"}`+"\n"+`{"kind":"utterance_received","text":"hi"}`+"\n"), 0o644))

	records, offset, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Nothing new yet.
	records, next, err := Tail(path, offset)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, offset, next)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"kind":"response_spoken","text":"hello"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, _, err = Tail(path, offset)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, KindResponseSpoken, records[0].Kind)
}

func TestTailLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"kind":"wake_detected"}`+"\n"+`{"kind":"utter`), 0o644))

	records, offset, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Complete the line; the next call picks it up whole.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`ance_received","text":"done"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, _, err = Tail(path, offset)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "done", records[0].Text)
}

func TestTailRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"kind":"wake_detected"}`+"\n"+`{"kind":"conversation_timeout"}`+"\n"), 0o644))

	_, offset, err := Tail(path, 0)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"status","text":"fresh"}`+"\n"), 0o644))

	records, _, err := Tail(path, offset)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].Text)
}

func TestTailSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte("not json at all\n"+`{"kind":"wake_detected"}`+"\n"), 0o644))

	records, _, err := Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, KindWakeDetected, records[0].Kind)
}
