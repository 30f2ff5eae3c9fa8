// Package event is the append-only observability log shared with the
// HUD process. Records are one JSON object per line so an external
// reader can tail the file without buffering it whole. The daemon
// never reads the log back; it is diagnostic, not state.
package event

import (
	"os"
	"path/filepath"
	"time"
)

type Kind string

const (
	KindWakeDetected        Kind = "wake_detected"
	KindUtteranceReceived   Kind = "utterance_received"
	KindModelInvoked        Kind = "model_invoked"
	KindToolInvoked         Kind = "tool_invoked"
	KindResponseSpoken      Kind = "response_spoken"
	KindConversationTimeout Kind = "conversation_timeout"
	KindError               Kind = "error"
	KindStatus              Kind = "status"
)

// Record is a single log line. Kind-specific fields are omitted when
// empty so every line stays independently parseable and small.
type Record struct {
	TS        time.Time `json:"ts"`
	Session   string    `json:"session"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Args      string    `json:"args,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMS float64   `json:"latency_ms,omitempty"`
}

// DefaultLogPath places the log under the user's state directory.
func DefaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "jarvis", "events.jsonl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "jarvis-events.jsonl")
	}
	return filepath.Join(home, ".local", "state", "jarvis", "events.jsonl")
}
