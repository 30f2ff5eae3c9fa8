package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"jarvis/internal/tool"
)

// runCmd executes a desktop helper and returns trimmed stdout.
func runCmd(ctx context.Context, name string, args ...string) (string, error) {
	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s: %s", name, msg)
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

func OpenApp() tool.Spec {
	return tool.Spec{
		Name:        "open_app",
		Description: "Open an application or file by name or path on the desktop.",
		Parameters: schema(map[string]string{
			"name": "Application name, file path, or URL to open.",
		}, "name"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name := stringArg(args, "name")
			if name == "" {
				return "", errors.New("missing name")
			}
			// Try it as a binary first, then hand it to the desktop.
			if path, err := exec.LookPath(name); err == nil {
				if err := exec.Command(path).Start(); err != nil {
					return "", fmt.Errorf("launch %s: %w", name, err)
				}
				return fmt.Sprintf("Launching %s.", name), nil
			}
			if err := exec.Command("xdg-open", name).Start(); err != nil {
				return "", fmt.Errorf("open %s: %w", name, err)
			}
			return fmt.Sprintf("Requested launch: %s.", name), nil
		},
	}
}

func ReadClipboard() tool.Spec {
	return tool.Spec{
		Name:        "read_clipboard",
		Description: "Return the current clipboard text.",
		Parameters:  schema(nil),
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			text, err := runCmd(ctx, "wl-paste", "--no-newline")
			if err != nil {
				// X11 fallback.
				text, err = runCmd(ctx, "xclip", "-selection", "clipboard", "-o")
				if err != nil {
					return "", err
				}
			}
			if text == "" {
				return "(clipboard empty)", nil
			}
			return text, nil
		},
	}
}

func WriteClipboard() tool.Spec {
	return tool.Spec{
		Name:        "write_clipboard",
		Description: "Set the clipboard to the provided text.",
		Parameters: schema(map[string]string{
			"text": "Text to place on the clipboard.",
		}, "text"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text := stringArg(args, "text")
			cmd := exec.CommandContext(ctx, "wl-copy")
			cmd.Stdin = strings.NewReader(text)
			if err := cmd.Run(); err != nil {
				cmd = exec.CommandContext(ctx, "xclip", "-selection", "clipboard")
				cmd.Stdin = strings.NewReader(text)
				if err := cmd.Run(); err != nil {
					return "", fmt.Errorf("clipboard write: %w", err)
				}
			}
			return "Copied to clipboard.", nil
		},
	}
}

func ToggleMute() tool.Spec {
	return tool.Spec{
		Name:        "toggle_system_mute",
		Description: "Toggle the system audio mute state.",
		Parameters:  schema(nil),
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			if _, err := runCmd(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"); err != nil {
				return "", err
			}
			return "Toggled system mute.", nil
		},
	}
}
