package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const sinkBuffer = 256

// Sink appends records to the log file from a single writer
// goroutine. Record never blocks the caller and never surfaces write
// failures; a full buffer drops the record and counts it.
type Sink struct {
	session string
	file    *os.File
	ch      chan Record
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	log     *slog.Logger
}

func NewSink(path string, log *slog.Logger) (*Sink, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	s := &Sink{
		session: uuid.NewString(),
		file:    f,
		ch:      make(chan Record, sinkBuffer),
		done:    make(chan struct{}),
		log:     log,
	}
	go s.run()
	return s, nil
}

// Session is the id stamped on every record written by this process.
func (s *Sink) Session() string { return s.session }

// Record enqueues r, filling in timestamp and session id. Drops the
// record if the writer is behind.
func (s *Sink) Record(r Record) {
	if r.TS.IsZero() {
		r.TS = time.Now()
	}
	if r.Session == "" {
		r.Session = s.session
	}
	select {
	case s.ch <- r:
	default:
		if s.dropped.Add(1)%100 == 1 {
			s.log.Warn("event sink backlogged, dropping records", "dropped", s.dropped.Load())
		}
	}
}

// Close flushes buffered records and closes the file. Record must not
// be called after Close.
func (s *Sink) Close() error {
	s.once.Do(func() {
		close(s.ch)
	})
	<-s.done
	return s.file.Close()
}

func (s *Sink) run() {
	defer close(s.done)
	enc := json.NewEncoder(s.file)
	for r := range s.ch {
		if err := enc.Encode(r); err != nil {
			s.log.Warn("event write failed", "kind", r.Kind, "err", err)
		}
	}
}
