// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal UI for the projector",
	Long: `Control the projector via an interactive terminal UI.

The left panel shows live state from the poller; the event log records
every state change and command result. Arrow keys, enter, and escape are
forwarded as remote control presses, so the projector's own menus can be
driven from the terminal.`,
	RunE: runTui,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTui(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Disconnect()

	m := newTuiModel(c)
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsub := c.Subscribe(func(s *dila.DeviceState) {
		p.Send(tuiStateMsg{state: s})
	})
	defer unsub()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		p.Send(tuiConnMsg{err: c.Connect(ctx)})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// ============================================================
// Key Bindings
// ============================================================

type tuiKeyMap struct {
	Power key.Binding
	Input key.Binding
	Laser key.Binding
	Menu  key.Binding
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Ok    key.Binding
	Back  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func (k tuiKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Input, k.Menu, k.Help, k.Quit}
}

func (k tuiKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Input, k.Laser},
		{k.Menu, k.Up, k.Down, k.Left, k.Right},
		{k.Ok, k.Back, k.Help, k.Quit},
	}
}

var tuiKeys = tuiKeyMap{
	Power: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "power")),
	Input: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "input")),
	Laser: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "laser power")),
	Menu:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
	Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑↓←→", "navigate")),
	Down:  key.NewBinding(key.WithKeys("down")),
	Left:  key.NewBinding(key.WithKeys("left")),
	Right: key.NewBinding(key.WithKeys("right")),
	Ok:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ok")),
	Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ============================================================
// Model
// ============================================================

type tuiEventEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type tuiStateMsg struct{ state *dila.DeviceState }
type tuiConnMsg struct{ err error }
type tuiCmdMsg struct {
	label string
	err   error
}
type tuiTickMsg time.Time

type tuiModel struct {
	c         *dila.Client
	state     *dila.DeviceState
	prev      *dila.DeviceState
	connState dila.ConnState
	connErr   error

	events    []tuiEventEntry
	maxEvents int

	keys     tuiKeyMap
	help     help.Model
	width    int
	height   int
	quitting bool
}

func newTuiModel(c *dila.Client) tuiModel {
	return tuiModel{
		c:         c,
		state:     c.State(),
		keys:      tuiKeys,
		help:      help.New(),
		maxEvents: 100,
		width:     80,
		height:    24,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTickCmd()
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

// sendOp runs one client call off the UI goroutine and reports back.
func (m tuiModel) sendOp(label string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return tuiCmdMsg{label: label, err: fn(ctx)}
	}
}

func (m tuiModel) remote(button string) tea.Cmd {
	return m.sendOp("remote "+button, func(ctx context.Context) error {
		return m.c.RemoteCode(ctx, button)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Power):
			if m.state.Power == dila.PowerOn {
				return m, m.sendOp("power off", m.c.PowerOff)
			}
			return m, m.sendOp("power on", m.c.PowerOn)
		case key.Matches(msg, m.keys.Input):
			next := "hdmi1"
			if m.state.Input == "hdmi1" {
				next = "hdmi2"
			}
			return m, m.sendOp("input "+next, func(ctx context.Context) error {
				return m.c.Operation(ctx, dila.CmdInput, next)
			})
		case key.Matches(msg, m.keys.Laser):
			next := map[string]string{"low": "med", "med": "high", "high": "low"}[m.state.LaserPower]
			if next == "" {
				next = "low"
			}
			return m, m.sendOp("laser_power "+next, func(ctx context.Context) error {
				return m.c.Operation(ctx, dila.CmdLaserPower, next)
			})
		case key.Matches(msg, m.keys.Menu):
			return m, m.remote("menu")
		case key.Matches(msg, m.keys.Up):
			return m, m.remote("up")
		case key.Matches(msg, m.keys.Down):
			return m, m.remote("down")
		case key.Matches(msg, m.keys.Left):
			return m, m.remote("left")
		case key.Matches(msg, m.keys.Right):
			return m, m.remote("right")
		case key.Matches(msg, m.keys.Ok):
			return m, m.remote("ok")
		case key.Matches(msg, m.keys.Back):
			return m, m.remote("back")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tuiTickMsg:
		m.connState = m.c.ConnState()
		return m, tuiTickCmd()

	case tuiConnMsg:
		m.connErr = msg.err
		m.connState = m.c.ConnState()
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("connect failed: %v", msg.err), true)
		} else {
			m.addEvent("connected", false)
		}

	case tuiStateMsg:
		m.prev = m.state
		m.state = msg.state
		for _, ch := range msg.state.Diff(m.prev) {
			m.addEvent(fmt.Sprintf("%s: %s -> %s", ch.Field, ch.From, ch.To), false)
		}

	case tuiCmdMsg:
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("%s: %v", msg.label, msg.err), true)
		} else {
			m.addEvent(fmt.Sprintf("%s: ok", msg.label), false)
		}
	}

	return m, nil
}

func (m *tuiModel) addEvent(message string, isError bool) {
	m.events = append(m.events, tuiEventEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

// ============================================================
// View
// ============================================================

var (
	tuiTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	tuiHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	tuiValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	tuiErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	tuiBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	title := "DILACTL"
	if m.state.Model != "" {
		title += " - " + m.state.Model
	}
	s.WriteString(tuiTitleStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("Connection: %s", m.connState)))
	s.WriteString("\n\n")

	// State panel
	state := strings.Builder{}
	row := func(label, value string) {
		if value == "" {
			return
		}
		state.WriteString(fmt.Sprintf("%s %s\n", tuiLabelStyle.Render(label+":"), tuiValueStyle.Render(value)))
	}
	row("Power", m.state.Power)
	if m.state.Power == dila.PowerOn {
		row("Input", m.state.Input)
		row("Source", m.state.Source)
		row("Resolution", m.state.Resolution)
		row("Picture", m.state.PictureMode)
		row("Laser", m.state.LaserPower)
	}
	row("Light Hours", m.state.LightTime)
	if m.state.Stale {
		state.WriteString(tuiErrorStyle.Render("state is stale"))
		state.WriteString("\n")
	}
	if state.Len() == 0 {
		state.WriteString(tuiHeaderStyle.Render("(waiting for first poll)"))
	}
	s.WriteString(tuiBoxStyle.Render(strings.TrimRight(state.String(), "\n")))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(tuiLabelStyle.Render("Events:"))
	s.WriteString("\n")
	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}
	start := len(m.events) - logHeight
	if start < 0 {
		start = 0
	}
	log := strings.Builder{}
	if len(m.events) == 0 {
		log.WriteString(tuiHeaderStyle.Render("  (no events yet)"))
	} else {
		for _, e := range m.events[start:] {
			stamp := tuiHeaderStyle.Render(e.timestamp.Format("15:04:05"))
			msg := e.message
			if e.isError {
				msg = tuiErrorStyle.Render("✗ " + msg)
			}
			log.WriteString(fmt.Sprintf("%s %s\n", stamp, msg))
		}
	}
	s.WriteString(tuiBoxStyle.Width(m.width - 4).Render(strings.TrimRight(log.String(), "\n")))
	s.WriteString("\n")

	s.WriteString(m.help.View(m.keys))
	return s.String()
}
