package listen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/session"
)

// newBusHub serves one websocket connection at a time, handing each
// accepted connection to handler on its own goroutine.
func newBusHub(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// scriptedHub keeps every accepted connection open and writes each
// pushed frame to the most recent one.
type scriptedHub struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *scriptedHub) accept(conn *websocket.Conn) {
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	// Hold the connection open; reading detects the client closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *scriptedHub) send(t *testing.T, msg BusMessage) {
	t.Helper()
	// The server side registers the connection asynchronously.
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.conn != nil
	}, 2*time.Second, 5*time.Millisecond, "no hub connection yet")

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NoError(t, h.conn.WriteJSON(msg))
}

func dialTestBus(t *testing.T, url string) *BusSource {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	src, err := DialBus(ctx, url, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		src.Close()
	})
	return src
}

func TestBusWaitWake(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	hub.send(t, BusMessage{Kind: "wake"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.WaitWake(ctx))
}

func TestBusListenSilentWindow(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	_, err := src.Listen(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, session.ErrNoSpeech)
}

func TestBusWakeAfterSilentWindow(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	hub.send(t, BusMessage{Kind: "wake"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.WaitWake(ctx))

	// Conversation lapses without an utterance.
	_, err := src.Listen(context.Background(), 50*time.Millisecond)
	require.ErrorIs(t, err, session.ErrNoSpeech)

	// The next wake must still come through.
	hub.send(t, BusMessage{Kind: "wake"})
	require.NoError(t, src.WaitWake(ctx))
}

func TestBusListenUtterance(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	hub.send(t, BusMessage{Kind: "utterance", Text: "what time is it"})

	text, err := src.Listen(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "what time is it", text)
}

func TestBusListenEnd(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	hub.send(t, BusMessage{Kind: "end"})

	_, err := src.Listen(context.Background(), 2*time.Second)
	assert.ErrorIs(t, err, session.ErrConversationDone)
}

func TestBusListenSwallowsWake(t *testing.T) {
	hub := &scriptedHub{}
	src := dialTestBus(t, newBusHub(t, hub.accept))

	hub.send(t, BusMessage{Kind: "wake"})
	hub.send(t, BusMessage{Kind: "utterance", Text: "still talking"})

	text, err := src.Listen(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "still talking", text)
}

func TestBusRedialsAfterConnectionDrop(t *testing.T) {
	hub := &scriptedHub{}
	var mu sync.Mutex
	conns := 0
	url := newBusHub(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		first := conns == 1
		mu.Unlock()
		if first {
			// Drop the first connection straight away.
			conn.Close()
			return
		}
		conn.WriteJSON(BusMessage{Kind: "wake"})
		hub.accept(conn)
	})
	src := dialTestBus(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, src.WaitWake(ctx))
}

func TestBusGivesUpWhenHubStaysDown(t *testing.T) {
	oldAttempts, oldDelay := busRedialAttempts, busRedialDelay
	busRedialAttempts, busRedialDelay = 2, 10*time.Millisecond
	t.Cleanup(func() { busRedialAttempts, busRedialDelay = oldAttempts, oldDelay })

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conn, err := upgrader.Upgrade(w, r, nil); err == nil {
			conn.Close()
		}
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src, err := DialBus(ctx, url, nil, nil)
	require.NoError(t, err)
	defer src.Close()

	// The hub disappears entirely; redials can no longer connect.
	srv.Close()

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	assert.ErrorIs(t, src.WaitWake(wctx), ErrBusClosed)
}
