package listen

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"jarvis/internal/audio"
	"jarvis/internal/notify"
	"jarvis/internal/session"
	"jarvis/pkg/stt"
)

type MicConfig struct {
	// Trigger is the wake word spotted in transcripts, e.g. "jarvis".
	Trigger string
	// Language passed to whisper; "auto" detects.
	Language string
	// ChimePath, when set, is an mp3 played on wake detection.
	ChimePath string
}

// MicSource recognizes speech from the local microphone: portaudio
// capture with silence detection, whisper transcription, and wake-word
// spotting by transcript matching.
type MicSource struct {
	rec *audio.Recorder
	tr  *stt.Transcriber
	cfg MicConfig
	log *slog.Logger
}

func NewMicSource(rec *audio.Recorder, tr *stt.Transcriber, cfg MicConfig, log *slog.Logger) *MicSource {
	if cfg.Trigger == "" {
		cfg.Trigger = "jarvis"
	}
	if cfg.Language == "" {
		cfg.Language = "auto"
	}
	if log == nil {
		log = slog.Default()
	}
	return &MicSource{rec: rec, tr: tr, cfg: cfg, log: log}
}

// WaitWake records and transcribes until the trigger word shows up.
func (s *MicSource) WaitWake(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := s.capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("wake capture failed", "err", err)
			time.Sleep(time.Second)
			continue
		}
		if text == "" {
			continue
		}
		s.log.Debug("heard", "text", text)
		if strings.Contains(strings.ToLower(text), strings.ToLower(s.cfg.Trigger)) {
			if s.cfg.ChimePath != "" {
				if err := notify.Chime(s.cfg.ChimePath); err != nil {
					s.log.Warn("chime failed", "err", err)
				}
			}
			return nil
		}
	}
}

// Listen records one utterance inside the remaining conversation
// window. Transcription itself is not bounded by the window; waiting
// for speech is.
func (s *MicSource) Listen(ctx context.Context, wait time.Duration) (string, error) {
	lctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	pcm, err := s.rec.Record(lctx)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if len(pcm) == 0 {
		return "", session.ErrNoSpeech
	}

	res, err := s.tr.TranscribePCM(ctx, pcm, stt.Options{Language: s.cfg.Language})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", session.ErrNoSpeech
	}
	return res.Text, nil
}

func (s *MicSource) capture(ctx context.Context) (string, error) {
	pcm, err := s.rec.Record(ctx)
	if err != nil || len(pcm) == 0 {
		return "", err
	}
	res, err := s.tr.TranscribePCM(ctx, pcm, stt.Options{
		Language:      s.cfg.Language,
		InitialPrompt: s.cfg.Trigger,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
