// Package listen provides the recognition sources feeding the session
// machine: control-socket injection, the local microphone, and a
// websocket hub bus.
package listen

import (
	"context"
	"time"

	"jarvis/internal/session"
)

// PushSource is a channel-fed source driven by the IPC control plane
// (jarvis-ctl wake / say / end). It is also what the session tests
// script against.
type PushSource struct {
	wake  chan struct{}
	utter chan string
	end   chan struct{}
}

func NewPushSource() *PushSource {
	return &PushSource{
		wake:  make(chan struct{}, 1),
		utter: make(chan string, 1),
		end:   make(chan struct{}, 1),
	}
}

// Wake injects a wake signal. Duplicate signals collapse into one.
func (p *PushSource) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Say injects a recognized utterance. Returns false when the previous
// utterance has not been consumed yet; the caller is expected to
// withhold input while a turn is being processed.
func (p *PushSource) Say(text string) bool {
	select {
	case p.utter <- text:
		return true
	default:
		return false
	}
}

// End injects an explicit end-of-conversation signal.
func (p *PushSource) End() {
	select {
	case p.end <- struct{}{}:
	default:
	}
}

func (p *PushSource) WaitWake(ctx context.Context) error {
	// Utterances or end signals left over from a finished
	// conversation mean nothing while idle.
	p.drain()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.wake:
		return nil
	}
}

func (p *PushSource) Listen(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.end:
			p.drainWake()
			return "", session.ErrConversationDone
		case <-p.wake:
			// Wake signal mid-conversation is a no-op; swallow it so
			// it cannot fire after the conversation times out.
			continue
		case text := <-p.utter:
			p.drainWake()
			return text, nil
		case <-timer.C:
			return "", session.ErrNoSpeech
		}
	}
}

// drainWake drops a wake that arrived alongside an utterance or end
// signal, so it cannot restart a conversation later on its own.
func (p *PushSource) drainWake() {
	select {
	case <-p.wake:
	default:
	}
}

func (p *PushSource) drain() {
	for {
		select {
		case <-p.utter:
		case <-p.end:
		default:
			return
		}
	}
}
