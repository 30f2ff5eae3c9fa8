// Package audio captures microphone PCM for the recognizer. Output is
// mono float32 @ 16 kHz, which is what whisper wants.
package audio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms

	silenceThreshRMS = 0.015
	silenceDuration  = 600 * time.Millisecond
	maxUtterance     = 12 * time.Second
)

// Recorder opens capture streams on demand. Device < 0 selects the
// system default input.
type Recorder struct {
	device int
}

func NewRecorder(device int) *Recorder {
	return &Recorder{device: device}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures one utterance: it waits for speech, then stops after
// a sustained silence or the utterance cap. It returns an empty slice
// when ctx expires before any speech was heard.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	stream, err := r.open(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	var (
		out           = make([]float32, 0, sampleRate*3)
		speaking      bool
		silenceFrames int
	)
	const frameDur = frameSize * time.Second / sampleRate
	maxFrames := int(maxUtterance / frameDur)
	silenceLimit := int(silenceDuration / frameDur)

	for i := 0; i < maxFrames; i++ {
		if ctx.Err() != nil {
			if speaking {
				break // keep what was said before cancellation
			}
			return nil, nil
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silenceFrames++
			if silenceFrames >= silenceLimit {
				break
			}
			out = append(out, buf...)
		}
	}
	return out, nil
}

func (r *Recorder) open(buf []float32) (*portaudio.Stream, error) {
	if r.device < 0 {
		s, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
		if err != nil {
			return nil, fmt.Errorf("open default input: %w", err)
		}
		return s, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if r.device >= len(devices) {
		return nil, fmt.Errorf("input device %d out of range (%d devices)", r.device, len(devices))
	}
	params := portaudio.LowLatencyParameters(devices[r.device], nil)
	params.Input.Channels = 1
	params.SampleRate = sampleRate
	params.FramesPerBuffer = len(buf)
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open input %d: %w", r.device, err)
	}
	return s, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
