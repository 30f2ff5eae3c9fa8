// Package hud renders live assistant status in the terminal. It is a
// pure consumer of the event log: it tails the JSONL file the daemon
// appends to and never writes anything back.
package hud

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/event"
)

const (
	pollInterval  = 500 * time.Millisecond
	maxTranscript = 200
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type transcriptLine struct {
	Role string // user | assistant | tool | system
	Text string
	At   time.Time
}

// Model is the root bubbletea model for the jarvis HUD.
type Model struct {
	logPath string
	offset  int64

	sessionID  string
	state      string // idle | conversing
	statusText string
	thinking   bool
	spinner    int

	transcript  []transcriptLine
	lastTool    string
	toolCalls   int
	utterances  int
	lastLatency float64
	lastError   string
	readError   string

	started time.Time
	width   int
	height  int
}

func New(logPath string) Model {
	return Model{
		logPath:    logPath,
		state:      "idle",
		statusText: "waiting for events...",
		started:    time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), readCmd(m.logPath, m.offset))
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// readCmd tails the event log from the last consumed offset.
func readCmd(path string, offset int64) tea.Cmd {
	return func() tea.Msg {
		records, next, err := event.Tail(path, offset)
		if err != nil {
			return readErrMsg{Err: err}
		}
		return eventsMsg{Records: records, Offset: next}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.spinner = (m.spinner + 1) % len(spinnerFrames)
		return m, tea.Batch(tickCmd(), readCmd(m.logPath, m.offset))

	case eventsMsg:
		m.offset = msg.Offset
		m.readError = ""
		for _, r := range msg.Records {
			m.apply(r)
		}

	case readErrMsg:
		m.readError = msg.Err.Error()
	}
	return m, nil
}

// apply folds one event record into the display state.
func (m *Model) apply(r event.Record) {
	if r.Session != "" {
		if m.sessionID != "" && m.sessionID != r.Session {
			// New daemon run; start the transcript over.
			m.transcript = nil
			m.utterances = 0
			m.toolCalls = 0
		}
		m.sessionID = r.Session
	}

	switch r.Kind {
	case event.KindWakeDetected:
		m.state = "conversing"
		m.statusText = "conversation started"
		m.appendLine("system", "• wake word detected", r.TS)
	case event.KindUtteranceReceived:
		m.utterances++
		m.thinking = false
		m.appendLine("user", r.Text, r.TS)
	case event.KindModelInvoked:
		m.thinking = true
		m.statusText = "thinking (" + r.Text + ")"
	case event.KindToolInvoked:
		m.toolCalls++
		m.lastTool = r.Tool
		label := r.Tool
		if r.Args != "" && r.Args != "{}" {
			label += " " + r.Args
		}
		m.appendLine("tool", "⚙ "+label, r.TS)
	case event.KindResponseSpoken:
		m.thinking = false
		m.lastLatency = r.LatencyMS
		m.statusText = "listening"
		m.appendLine("assistant", r.Text, r.TS)
	case event.KindConversationTimeout:
		m.state = "idle"
		m.thinking = false
		m.statusText = "waiting for wake word"
		m.appendLine("system", "• conversation over ("+r.Reason+")", r.TS)
	case event.KindError:
		m.thinking = false
		m.lastError = r.Error
		m.appendLine("system", "✗ "+r.Error, r.TS)
	case event.KindStatus:
		m.statusText = r.Text
	}
}

func (m *Model) appendLine(role, text string, at time.Time) {
	m.transcript = append(m.transcript, transcriptLine{Role: role, Text: text, At: at})
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Jarvis Operations HUD"))
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render("live status · event log: " + m.logPath))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.countersLine())
	b.WriteString("\n\n")

	b.WriteString(panelTitleStyle.Render("Conversation"))
	b.WriteString("\n")
	b.WriteString(m.transcriptView())
	b.WriteString("\n")

	if m.lastError != "" {
		b.WriteString(errorStyle.Render("last error: " + m.lastError))
		b.WriteString("\n")
	}
	if m.readError != "" {
		b.WriteString(errorStyle.Render("log read: " + m.readError))
		b.WriteString("\n")
	}

	b.WriteString(footerKeyStyle.Render("q") + dimStyle.Render(" quit"))
	return b.String()
}

func (m Model) statusLine() string {
	dot := idleDotStyle.Render("●")
	label := "idle"
	if m.state == "conversing" {
		dot = conversingDotStyle.Render("●")
		label = "conversing"
	}
	status := m.statusText
	if m.thinking {
		status = spinnerFrames[m.spinner] + " " + status
	}
	return fmt.Sprintf("%s %s  %s", dot, label, statusLabelStyle.Render(status))
}

func (m Model) countersLine() string {
	parts := []string{
		fmt.Sprintf("uptime %s", time.Since(m.started).Round(time.Second)),
		fmt.Sprintf("utterances %d", m.utterances),
		fmt.Sprintf("tool calls %d", m.toolCalls),
	}
	if m.lastTool != "" {
		parts = append(parts, "last tool "+m.lastTool)
	}
	if m.lastLatency > 0 {
		parts = append(parts, fmt.Sprintf("latency %.0fms", m.lastLatency))
	}
	if m.sessionID != "" {
		id := m.sessionID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, "session "+id)
	}
	return dimStyle.Render(strings.Join(parts, " · "))
}

func (m Model) transcriptView() string {
	if len(m.transcript) == 0 {
		return dimStyle.Render("  (nothing yet)")
	}

	visible := m.transcript
	if max := m.visibleLines(); len(visible) > max {
		visible = visible[len(visible)-max:]
	}

	var lines []string
	for _, l := range visible {
		ts := dimStyle.Render(l.At.Format("15:04:05"))
		var body string
		switch l.Role {
		case "user":
			body = userLineStyle.Render("you: " + l.Text)
		case "assistant":
			body = assistantLineStyle.Render("jarvis: " + l.Text)
		case "tool":
			body = toolLineStyle.Render(l.Text)
		default:
			body = dimStyle.Render(l.Text)
		}
		lines = append(lines, "  "+ts+" "+body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) visibleLines() int {
	// Header, status, counters, panel title, error/footer rows.
	if m.height <= 0 {
		return 20
	}
	n := m.height - 10
	if n < 3 {
		n = 3
	}
	return n
}
