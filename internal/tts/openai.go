package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	openai "github.com/openai/openai-go/v3"
)

// OpenAI renders speech through the audio/speech endpoint and plays
// the mp3 stream as it arrives.
type OpenAI struct {
	Client openai.Client
	Voice  openai.AudioSpeechNewParamsVoice // default onyx
}

func (o OpenAI) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	voice := o.Voice
	if voice == "" {
		voice = openai.AudioSpeechNewParamsVoiceOnyx
	}

	resp, err := o.Client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelGPT4oMiniTTS,
		Voice:          voice,
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	streamer, format, err := mp3.Decode(resp.Body)
	if err != nil {
		return fmt.Errorf("decode speech mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
