package listen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jarvis/internal/session"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/stt"
)

// BusMessage is the JSON frame a hub peer sends. Utterances carry
// either recognized text or a compressed audio payload to transcribe
// locally.
type BusMessage struct {
	From  string `json:"from,omitempty"`
	Kind  string `json:"kind"` // wake | utterance | end
	Text  string `json:"text,omitempty"`
	Audio []byte `json:"audio,omitempty"`
}

// Vars so tests can tighten the retry schedule.
var (
	busRedialAttempts = 5
	busRedialDelay    = 2 * time.Second
)

const busFrameBuffer = 16

// ErrBusClosed is returned once the connection is gone for good:
// redialing gave up or the source was shut down.
var ErrBusClosed = errors.New("bus connection lost")

// BusSource receives wake signals and utterances from a websocket hub.
// A single pump goroutine owns the connection and feeds frames into a
// channel; WaitWake and Listen only ever select on that channel, so a
// lapsed listen window never touches the socket. gorilla read errors
// are permanent on a connection, which is why the pump redials instead
// of letting a failed read surface to the consumer.
type BusSource struct {
	url    string
	tr     *stt.Transcriber // optional, for audio payloads
	log    *slog.Logger
	frames chan *BusMessage

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func DialBus(ctx context.Context, url string, tr *stt.Transcriber, log *slog.Logger) (*BusSource, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus %s: %w", url, err)
	}
	log.Info("connected to bus", "url", url)

	s := &BusSource{
		url:    url,
		tr:     tr,
		log:    log,
		frames: make(chan *BusMessage, busFrameBuffer),
		conn:   conn,
	}
	go s.pump(ctx)
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s, nil
}

// Close shuts the connection down; the pump exits and the frames
// channel closes.
func (s *BusSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *BusSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *BusSource) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// swapConn installs a freshly dialed connection. Returns false when
// the source was closed in the meantime.
func (s *BusSource) swapConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return false
	}
	s.conn.Close()
	s.conn = conn
	return true
}

// pump reads frames for the life of the source. A read error poisons
// the connection, never the consumer: the pump redials with bounded
// retries and only closes the frames channel when that fails too.
func (s *BusSource) pump(ctx context.Context) {
	defer close(s.frames)
	for {
		_, data, err := s.current().ReadMessage()
		if err != nil {
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			if !s.redial(ctx) {
				s.log.Error("bus connection lost", "err", err)
				return
			}
			continue
		}

		var msg BusMessage
		if jerr := json.Unmarshal(data, &msg); jerr != nil {
			s.log.Warn("undecodable bus frame", "err", jerr)
			continue
		}
		select {
		case s.frames <- &msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *BusSource) redial(ctx context.Context) bool {
	for attempt := 1; attempt <= busRedialAttempts; attempt++ {
		s.log.Warn("bus connection dropped, redialing", "attempt", attempt)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err == nil {
			return s.swapConn(conn)
		}
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(busRedialDelay):
		}
	}
	return false
}

func (s *BusSource) WaitWake(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.frames:
			if !ok {
				return ErrBusClosed
			}
			if msg.Kind == "wake" {
				return nil
			}
			s.log.Debug("ignoring bus message while idle", "kind", msg.Kind)
		}
	}
}

func (s *BusSource) Listen(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", session.ErrNoSpeech
		case msg, ok := <-s.frames:
			if !ok {
				return "", ErrBusClosed
			}
			switch msg.Kind {
			case "end":
				return "", session.ErrConversationDone
			case "wake":
				// Already conversing; no-op.
				continue
			case "utterance":
				text, err := s.utteranceText(ctx, msg)
				if err != nil {
					s.log.Warn("bad utterance payload", "err", err)
					continue
				}
				if text == "" {
					continue
				}
				return text, nil
			default:
				s.log.Debug("unknown bus message kind", "kind", msg.Kind)
			}
		}
	}
}

func (s *BusSource) utteranceText(ctx context.Context, msg *BusMessage) (string, error) {
	if strings.TrimSpace(msg.Text) != "" {
		return msg.Text, nil
	}
	if len(msg.Audio) == 0 {
		return "", nil
	}
	if s.tr == nil {
		return "", errors.New("audio payload but no transcriber configured")
	}
	pcm, err := audioconv.DecodePCM16k(msg.Audio)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	res, err := s.tr.TranscribePCM(ctx, pcm, stt.Options{Language: "auto"})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return res.Text, nil
}
