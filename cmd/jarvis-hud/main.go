package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/spf13/pflag"

	"jarvis/internal/event"
	"jarvis/internal/hud"
)

func main() {
	logPath := cli.StringP("events", "f", event.DefaultLogPath(), "Event log path")
	cli.Parse()

	p := tea.NewProgram(hud.New(*logPath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "hud failed:", err)
		os.Exit(1)
	}
}
