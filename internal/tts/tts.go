// Package tts renders assistant text audibly. Engines block until
// playback finishes so the caller can resume listening without
// capturing the assistant's own voice. Calls are serialized by the
// session machine.
package tts

import (
	"context"
	"log/slog"
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Null logs instead of speaking, for headless or test runs.
type Null struct {
	Log *slog.Logger
}

func (n Null) Speak(_ context.Context, text string) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("jarvis says", "text", text)
	return nil
}
