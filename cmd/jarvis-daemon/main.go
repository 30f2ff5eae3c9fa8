package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jarvis/internal/audio"
	"jarvis/internal/event"
	"jarvis/internal/gateway"
	"jarvis/internal/ipc"
	"jarvis/internal/listen"
	"jarvis/internal/proxy"
	"jarvis/internal/session"
	"jarvis/internal/tool"
	"jarvis/internal/tools"
	"jarvis/internal/tts"
	"jarvis/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, empty disables")
	input := cli.StringP("input", "i", "ctl", "Input source: ctl, mic or bus")
	busURL := cli.StringP("bus-url", "u", "ws://localhost:8092/ws", "Hub websocket url")
	model := cli.StringP("model", "m", "gpt-5-nano", "Chat model")
	baseURL := cli.String("base-url", "", "OpenAI-compatible API base url")
	timeout := cli.DurationP("timeout", "t", 30*time.Second, "Conversation inactivity timeout")
	trigger := cli.String("trigger", "jarvis", "Wake word")
	micDevice := cli.Int("mic-device", -1, "Portaudio input device index, -1 for default")
	voice := cli.StringP("tts", "s", "openai", "Speech engine: null, espeak or openai")
	whisperModel := cli.StringP("whisper-model", "w", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	eventsPath := cli.String("events", event.DefaultLogPath(), "Event log path")
	todoPath := cli.String("todo", "", "Todo sqlite path, empty disables todo tools")
	chimePath := cli.String("chime", "", "Wake chime mp3 path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	log.Debug("Loaded API Key")

	var httpClient *http.Client
	if *proxyAddr != "" {
		var err error
		httpClient, err = proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if *baseURL != "" {
		opts = append(opts, option.WithBaseURL(*baseURL))
	}
	client := openai.NewClient(opts...)

	sink, err := event.NewSink(*eventsPath, log.Default())
	if err != nil {
		log.Error("Failed to open event log", "path", *eventsPath, "err", err)
		os.Exit(1)
	}
	defer sink.Close()

	log.Debug("Loaded event log", "path", *eventsPath, "session", sink.Session())

	reg := tool.NewRegistry()
	if err := tools.Register(reg, tools.Config{
		TodoPath:   *todoPath,
		HTTPClient: httpClient,
	}); err != nil {
		log.Error("Failed to register tools", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded tools", "count", reg.Len())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, push, cleanup, err := buildSource(ctx, *input, *busURL, *trigger, *micDevice, *whisperModel, *chimePath)
	if err != nil {
		log.Error("Failed to set up input", "input", *input, "err", err)
		os.Exit(1)
	}
	defer cleanup()

	log.Debug("Loaded input source", "input", *input)

	spk, err := buildSpeaker(*voice, client)
	if err != nil {
		log.Error("Failed to set up speech", "tts", *voice, "err", err)
		os.Exit(1)
	}

	gw := gateway.New(client, *model, reg, sink, log.Default())

	machine := session.New(session.Config{
		InactivityTimeout: *timeout,
		Greeting:          "Yes sir?",
	}, src, gw, spk, sink, log.Default())

	go serveControl(ctx, machine, push, cancel)

	log.Info("Boot up - successful")

	if err := machine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Session loop failed", "err", err)
		os.Exit(1)
	}

	log.Info("Shutting down")
}

// buildSource picks exactly one input source. push is non-nil only in
// ctl mode; the ipc wake/say commands need it.
func buildSource(ctx context.Context, input, busURL, trigger string, micDevice int, whisperModel, chimePath string) (session.Source, *listen.PushSource, func(), error) {
	noop := func() {}

	switch input {
	case "ctl":
		push := listen.NewPushSource()
		return push, push, noop, nil

	case "mic":
		rec := audio.NewRecorder(micDevice)
		if err := rec.Init(); err != nil {
			return nil, nil, noop, fmt.Errorf("init audio: %w", err)
		}
		tr, err := stt.NewTranscriber(whisperModel)
		if err != nil {
			rec.Close()
			return nil, nil, noop, fmt.Errorf("init whisper: %w", err)
		}
		src := listen.NewMicSource(rec, tr, listen.MicConfig{
			Trigger:   trigger,
			Language:  "auto",
			ChimePath: chimePath,
		}, log.Default())
		cleanup := func() {
			tr.Close()
			rec.Close()
		}
		return src, nil, cleanup, nil

	case "bus":
		tr, err := stt.NewTranscriber(whisperModel)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("init whisper: %w", err)
		}
		src, err := listen.DialBus(ctx, busURL, tr, log.Default())
		if err != nil {
			tr.Close()
			return nil, nil, noop, fmt.Errorf("dial bus: %w", err)
		}
		return src, nil, func() { tr.Close() }, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown input source %q", input)
}

func buildSpeaker(engine string, client openai.Client) (session.Speaker, error) {
	switch engine {
	case "null":
		return tts.Null{Log: log.Default()}, nil
	case "espeak":
		return tts.Espeak{Language: "en"}, nil
	case "openai":
		return tts.OpenAI{Client: client}, nil
	}
	return nil, fmt.Errorf("unknown speech engine %q", engine)
}

func serveControl(ctx context.Context, machine *session.Machine, push *listen.PushSource, stop context.CancelFunc) {
	err := ipc.Serve(ctx, ipc.SocketPath, func(cmd ipc.Command) ipc.Response {
		switch cmd.Cmd {
		case "wake":
			if push == nil {
				return ipc.Response{Message: "wake needs --input ctl"}
			}
			push.Wake()
			return ipc.Response{OK: true, Message: "woken"}
		case "say":
			if push == nil {
				return ipc.Response{Message: "say needs --input ctl"}
			}
			if cmd.Text == "" {
				return ipc.Response{Message: "say needs text"}
			}
			if !push.Say(cmd.Text) {
				return ipc.Response{Message: "busy, try again"}
			}
			return ipc.Response{OK: true, Message: "accepted"}
		case "end":
			if push == nil {
				return ipc.Response{Message: "end needs --input ctl"}
			}
			push.End()
			return ipc.Response{OK: true, Message: "ending"}
		case "status":
			return ipc.Response{OK: true, Message: string(machine.State())}
		case "stop":
			stop()
			return ipc.Response{OK: true, Message: "stopping"}
		}
		return ipc.Response{Message: "unknown command " + cmd.Cmd}
	})
	if err != nil && ctx.Err() == nil {
		log.Error("Failed ipc server", "err", err)
	}
}
