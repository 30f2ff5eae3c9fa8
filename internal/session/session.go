// Package session owns the wake-word/conversation lifecycle: when the
// assistant is passively waiting for its trigger word, when it is in
// an active conversation window, and how a recognized utterance moves
// through the model gateway and out of the speaker. All state is
// mutated from the single goroutine running Run.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jarvis/internal/event"
)

type State string

const (
	StateIdle       State = "idle"
	StateConversing State = "conversing"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one immutable exchange unit in the conversation history.
type Turn struct {
	Role    Role
	Content string
	Tool    string
	At      time.Time
}

var (
	// ErrNoSpeech is returned by a Source when the listen window
	// elapsed without a usable utterance.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrConversationDone is returned by a Source when the user
	// explicitly ended the conversation.
	ErrConversationDone = errors.New("conversation ended")
)

// Source supplies wake signals and recognized utterances. WaitWake
// blocks until the wake word is detected or ctx is cancelled. Listen
// blocks up to wait for an utterance and returns ErrNoSpeech when the
// window passes silently.
type Source interface {
	WaitWake(ctx context.Context) error
	Listen(ctx context.Context, wait time.Duration) (string, error)
}

// Gateway performs one model round-trip, including at most one round
// of tool calls, and returns the final text plus the turns to append.
type Gateway interface {
	Reply(ctx context.Context, history []Turn) (string, []Turn, error)
}

// Speaker renders text audibly and returns once playback finished, so
// the machine never listens to its own voice.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Config struct {
	// InactivityTimeout bounds the conversation window. Default 30s.
	InactivityTimeout time.Duration
	// ReplyTimeout bounds one gateway round-trip. Default 60s.
	ReplyTimeout time.Duration
	// Greeting is spoken on wake. Empty disables it.
	Greeting string
	// Fallback is spoken when the gateway fails.
	Fallback string
	// MaxTurns caps how much history is offered to the gateway.
	MaxTurns int
}

func (c *Config) setDefaults() {
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 30 * time.Second
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = 60 * time.Second
	}
	if c.Fallback == "" {
		c.Fallback = "I had a problem handling that."
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = 40
	}
}

// Machine is the session state machine. One Machine serves one
// process lifetime, cycling between Idle and Conversing.
type Machine struct {
	cfg  Config
	src  Source
	gw   Gateway
	spk  Speaker
	sink *event.Sink
	log  *slog.Logger

	now func() time.Time

	mu           sync.Mutex
	state        State
	history      []Turn
	lastActivity time.Time
}

func New(cfg Config, src Source, gw Gateway, spk Speaker, sink *event.Sink, log *slog.Logger) *Machine {
	cfg.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		cfg:   cfg,
		src:   src,
		gw:    gw,
		spk:   spk,
		sink:  sink,
		log:   log,
		now:   time.Now,
		state: StateIdle,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns a copy of the conversation history.
func (m *Machine) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.history...)
}

// Run drives the machine until ctx is cancelled. It is the only
// goroutine that mutates session state.
func (m *Machine) Run(ctx context.Context) error {
	m.sink.Record(event.Record{Kind: event.KindStatus, Text: "listening for wake word"})
	m.log.Info("session started", "timeout", m.cfg.InactivityTimeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.State() == StateIdle {
			if err := m.src.WaitWake(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.log.Warn("wake wait failed", "err", err)
				sleepCtx(ctx, time.Second)
				continue
			}
			m.wake(ctx)
			continue
		}

		wait := m.cfg.InactivityTimeout - m.now().Sub(m.lastActivityTime())
		if wait <= 0 {
			m.endConversation("timeout")
			continue
		}
		text, err := m.src.Listen(ctx, wait)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoSpeech):
			continue
		case errors.Is(err, ErrConversationDone):
			m.endConversation("ended")
			continue
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warn("listen failed", "err", err)
			sleepCtx(ctx, time.Second)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		m.processUtterance(ctx, text)
	}
}

// wake moves Idle -> Conversing. A duplicate wake while already
// conversing is a no-op.
func (m *Machine) wake(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateConversing {
		m.mu.Unlock()
		m.log.Debug("wake signal while already conversing, ignoring")
		return
	}
	m.state = StateConversing
	m.history = nil
	m.mu.Unlock()

	m.log.Info("wake word detected")
	m.sink.Record(event.Record{Kind: event.KindWakeDetected})

	if m.cfg.Greeting != "" {
		if err := m.spk.Speak(ctx, m.cfg.Greeting); err != nil {
			m.log.Warn("greeting failed", "err", err)
		}
	}
	m.touch()
}

// endConversation moves Conversing -> Idle, clearing history. Both the
// inactivity timeout and an explicit end take this path.
func (m *Machine) endConversation(reason string) {
	m.mu.Lock()
	m.state = StateIdle
	m.history = nil
	m.mu.Unlock()

	m.log.Info("conversation over", "reason", reason)
	m.sink.Record(event.Record{Kind: event.KindConversationTimeout, Reason: reason})
}

// processUtterance runs one utterance through the gateway and the
// speaker. Activity is recorded at both ends so a slow model call can
// never trip the inactivity timeout mid-flight.
func (m *Machine) processUtterance(ctx context.Context, text string) {
	m.touch()
	defer m.touch()

	m.append(Turn{Role: RoleUser, Content: text, At: m.now()})
	m.sink.Record(event.Record{Kind: event.KindUtteranceReceived, Text: text})
	m.log.Info("utterance received", "text", text)

	started := m.now()
	rctx, cancel := context.WithTimeout(ctx, m.cfg.ReplyTimeout)
	reply, turns, err := m.gw.Reply(rctx, m.recent())
	cancel()
	if err != nil {
		m.log.Error("gateway failed", "err", err)
		m.sink.Record(event.Record{Kind: event.KindError, Error: err.Error()})
		if serr := m.spk.Speak(ctx, m.cfg.Fallback); serr != nil {
			m.log.Error("fallback speech failed", "err", serr)
			m.sink.Record(event.Record{Kind: event.KindError, Error: serr.Error()})
		}
		return
	}

	for _, t := range turns {
		m.append(t)
	}
	latency := m.now().Sub(started)

	if serr := m.spk.Speak(ctx, reply); serr != nil {
		// The transition already happened; a TTS failure does not
		// undo it and the utterance counts as handled.
		m.log.Error("speech output failed", "err", serr)
		m.sink.Record(event.Record{Kind: event.KindError, Error: serr.Error()})
		return
	}
	m.sink.Record(event.Record{
		Kind:      event.KindResponseSpoken,
		Text:      reply,
		LatencyMS: float64(latency) / float64(time.Millisecond),
	})
	m.log.Info("response spoken", "latency", latency)
}

func (m *Machine) touch() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

func (m *Machine) lastActivityTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

func (m *Machine) append(t Turn) {
	m.mu.Lock()
	m.history = append(m.history, t)
	m.mu.Unlock()
}

// recent returns the most recent turns offered to the gateway,
// bounding prompt growth in long conversations.
func (m *Machine) recent() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history
	if len(h) > m.cfg.MaxTurns {
		h = h[len(h)-m.cfg.MaxTurns:]
	}
	return append([]Turn(nil), h...)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
