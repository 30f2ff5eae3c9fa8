// Package tools contains the builtin tools offered to the model. Each
// constructor returns a tool.Spec; Register wires them up in a fixed
// order so the prompt stays deterministic across runs.
package tools

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"jarvis/internal/tool"
)

type Config struct {
	// TodoPath is the sqlite file backing the todo tools.
	TodoPath string
	// HTTPClient is used by network-facing tools.
	HTTPClient *http.Client
	// ScreenshotDir receives captured screenshots.
	ScreenshotDir string
}

func Register(reg *tool.Registry, cfg Config) error {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	specs := []tool.Spec{
		Clock(),
		SystemInsights(),
		OpenApp(),
		ReadClipboard(),
		WriteClipboard(),
		ToggleMute(),
		FindFile(nil),
		RecentDownloads(""),
		WebSearch(client),
		PrinterStatus(client),
		NetworkDevices(),
		Screenshot(cfg.ScreenshotDir),
	}
	if cfg.TodoPath != "" {
		todo, err := TodoTools(cfg.TodoPath)
		if err != nil {
			return fmt.Errorf("todo store: %w", err)
		}
		specs = append(specs, todo...)
	}

	for _, s := range specs {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// schema builds a JSON-schema object for string parameters.
func schema(params map[string]string, required ...string) map[string]any {
	props := make(map[string]any, len(params))
	for name, desc := range params {
		props[name] = map[string]any{"type": "string", "description": desc}
	}
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
