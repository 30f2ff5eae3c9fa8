package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jarvis/internal/tool"
)

// Screenshot captures the screen with grim (wayland) or scrot (X11)
// into dir (default: ~/Pictures).
func Screenshot(dir string) tool.Spec {
	return tool.Spec{
		Name:        "take_screenshot",
		Description: "Capture a screenshot of the current screen.",
		Parameters:  schema(nil),
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			target := dir
			if target == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return "", err
				}
				target = filepath.Join(home, "Pictures")
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			path := filepath.Join(target, time.Now().Format("screenshot-20060102-150405.png"))

			if _, err := runCmd(ctx, "grim", path); err != nil {
				if _, xerr := runCmd(ctx, "scrot", path); xerr != nil {
					return "", fmt.Errorf("no screenshot tool worked: %v", err)
				}
			}
			return fmt.Sprintf("Saved screenshot to %s.", path), nil
		},
	}
}
