package hud

import (
	"time"

	"jarvis/internal/event"
)

// tickMsg drives the log poll loop.
type tickMsg time.Time

// eventsMsg carries records appended to the log since the last poll.
type eventsMsg struct {
	Records []event.Record
	Offset  int64
}

// readErrMsg is a transient failure tailing the log.
type readErrMsg struct {
	Err error
}
