// ABOUTME: Bubbletea model for the cartwall board
// ABOUTME: Pad grid, live instance rows, and key-driven triggers
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cartwall/cartwall-go/internal/engine"
)

// Pad is one cell in the board grid
type Pad struct {
	Index  int
	Key    string // trigger key, "" when unbound
	Name   string // clip display name
	ClipID string
	Volume float64
	Loop   bool
}

// CommandKind selects the engine action a key maps to
type CommandKind int

const (
	CmdTrigger CommandKind = iota
	CmdStopAll
	CmdPauseAll
	CmdResumeAll
)

// Command is a key-driven action for the app to run
type Command struct {
	Kind CommandKind
	Pad  Pad // set for CmdTrigger
}

// Control holds channels for board-to-app communication
type Control struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// BoardMsg carries a fresh engine snapshot into the model
type BoardMsg struct {
	Instances []engine.InstanceStatus
	Stats     engine.Stats
}

// Model represents the board state
type Model struct {
	pads    []Pad
	columns int

	instances []engine.InstanceStatus
	stats     engine.Stats

	control *Control

	quitting bool
	width    int
	height   int
}

// NewModel creates a board model
func NewModel(pads []Pad, columns int, control *Control) Model {
	if columns <= 0 {
		columns = 4
	}
	return Model{
		pads:    pads,
		columns: columns,
		control: control,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case BoardMsg:
		m.instances = msg.Instances
		m.stats = msg.Stats
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		if m.control != nil {
			select {
			case m.control.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ":
		m.sendCommand(Command{Kind: CmdStopAll})
		return m, nil
	case "p":
		m.sendCommand(Command{Kind: CmdPauseAll})
		return m, nil
	case "r":
		m.sendCommand(Command{Kind: CmdResumeAll})
		return m, nil
	}

	for _, pad := range m.pads {
		if pad.Key != "" && pad.Key == key {
			m.sendCommand(Command{Kind: CmdTrigger, Pad: pad})
			return m, nil
		}
	}

	return m, nil
}

// sendCommand queues a command without blocking the update loop
func (m Model) sendCommand(cmd Command) {
	if m.control == nil {
		return
	}
	select {
	case m.control.Commands <- cmd:
	default:
	}
}

// View renders the board
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	warnStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("Cartwall"))
	b.WriteString("\n\n")

	if m.stats.Degraded {
		b.WriteString(warnStyle.Render("⚠ audio device lost, commands still apply"))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	b.WriteString(m.renderInstances())
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("key:Trigger  space:Stop all  p:Pause all  r:Resume all  q:Quit"))

	return b.String()
}

// renderGrid renders the pad cells in rows of m.columns
func (m Model) renderGrid() string {
	if len(m.pads) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("  No clips loaded") + "\n"
	}

	const cellWidth = 20

	idleCell := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(cellWidth)

	activeCell := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Width(cellWidth)

	keyStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	var rows []string
	for start := 0; start < len(m.pads); start += m.columns {
		end := start + m.columns
		if end > len(m.pads) {
			end = len(m.pads)
		}

		cells := make([]string, 0, m.columns)
		for _, pad := range m.pads[start:end] {
			inst := m.latestInstance(pad.Name)

			key := " "
			if pad.Key != "" {
				key = pad.Key
			}
			label := fmt.Sprintf("%s %s", keyStyle.Render("["+key+"]"), truncate(pad.Name, cellWidth-5))

			status := strings.Repeat("░", 10)
			if inst != nil {
				status = fmt.Sprintf("%s %s", stateGlyph(inst.State), renderBar(inst.Position, inst.Length, 10))
			}

			style := idleCell
			if inst != nil && !inst.State.Terminal() {
				style = activeCell
			}
			cells = append(cells, style.Render(label+"\n"+status))
		}

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return strings.Join(rows, "\n") + "\n"
}

// renderInstances renders one row per live engine instance
func (m Model) renderInstances() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Instances (%d)", len(m.instances))))
	b.WriteString("\n")

	if len(m.instances) == 0 {
		b.WriteString(valueStyle.Render("  Nothing playing"))
		b.WriteString("\n")
		return b.String()
	}

	for _, in := range m.instances {
		flags := ""
		if in.Loop {
			flags += "L"
		}
		if in.Muted {
			flags += "M"
		}

		line := fmt.Sprintf("  %3d %s %-20s [%s] %s/%s vol %3.0f%% %s",
			in.ID,
			stateGlyph(in.State),
			truncate(in.Clip, 20),
			renderBar(in.Position, in.Length, 10),
			formatTime(in.Position, in.SampleRate),
			formatTime(in.Length, in.SampleRate),
			in.Volume*100,
			flags)

		if in.Failure != "" {
			line += " " + in.Failure
		}

		b.WriteString(valueStyle.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

// renderStats renders the engine counters line
func (m Model) renderStats() string {
	return lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf(
		"Active: %d  Periods: %d  Starved: %d  Limited: %d  Triggers: %d  Rejected: %d",
		m.stats.Active, m.stats.Periods, m.stats.Starved, m.stats.Limited,
		m.stats.Triggers, m.stats.Rejected))
}

// latestInstance finds the most recently triggered instance of a clip
func (m Model) latestInstance(clipName string) *engine.InstanceStatus {
	var found *engine.InstanceStatus
	for i := range m.instances {
		if m.instances[i].Clip == clipName {
			found = &m.instances[i]
		}
	}
	return found
}

// stateGlyph maps an instance state to a one-column marker
func stateGlyph(s engine.State) string {
	switch s {
	case engine.StatePending:
		return "·"
	case engine.StatePlaying:
		return "▶"
	case engine.StatePaused:
		return "‖"
	case engine.StateFinished:
		return "✓"
	case engine.StateStopped:
		return "■"
	case engine.StateFailed:
		return "✗"
	default:
		return "?"
	}
}

// renderBar renders playback progress as a fixed-width bar
func renderBar(pos, length int64, width int) string {
	filled := 0
	if length > 0 {
		filled = int(pos * int64(width) / length)
		if filled > width {
			filled = width
		}
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// formatTime renders a frame count at rate as m:ss
func formatTime(frames int64, rate int) string {
	if rate <= 0 || frames < 0 {
		return "-:--"
	}
	sec := frames / int64(rate)
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
