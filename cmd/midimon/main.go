// midimon is a terminal monitor for MIDI traffic: transport state, BPM
// estimate, and the most recent CC and note events. Handy for checking
// what a controller actually sends before mapping it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"psiwave-matrix/midi"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c792ea"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	runStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	stopStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
)

const historyLen = 12

type tickMsg time.Time

type model struct {
	in    *midi.Input
	start time.Time

	ccLog   []string
	noteLog []string
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		t := time.Since(m.start).Seconds()
		for _, cc := range m.in.Drain(t) {
			m.ccLog = push(m.ccLog, fmt.Sprintf("t=%7.3fs ch=%2d cc=%3d val=%3d",
				cc.T, cc.Channel, cc.Control, cc.Value))
		}
		for _, n := range m.in.DrainNotes() {
			state := "off"
			if n.On {
				state = "on "
			}
			m.noteLog = push(m.noteLog, fmt.Sprintf("t=%7.3fs ch=%2d note=%3d vel=%3d %s",
				n.T, n.Channel, n.Note, n.Velocity, state))
		}
		return m, tick()
	}
	return m, nil
}

func push(log []string, line string) []string {
	log = append(log, line)
	if len(log) > historyLen {
		log = log[len(log)-historyLen:]
	}
	return log
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("midimon"))
	b.WriteString("\n\n")

	port := m.in.PortName()
	if !m.in.Enabled() {
		port = "(disabled)"
	}
	b.WriteString(labelStyle.Render("port      ") + valueStyle.Render(port) + "\n")

	dbg := m.in.ClockDebug()
	transport := stopStyle.Render("stopped")
	if dbg.Running {
		transport = runStyle.Render("running")
	}
	bpm := "--"
	if dbg.HasBPM {
		bpm = fmt.Sprintf("%.2f", dbg.BPM)
	}
	b.WriteString(labelStyle.Render("transport ") + transport + "\n")
	b.WriteString(labelStyle.Render("bpm       ") + valueStyle.Render(bpm) + "\n")
	b.WriteString(labelStyle.Render("ticks     ") + valueStyle.Render(fmt.Sprintf("%d", dbg.TickCount)) +
		labelStyle.Render(fmt.Sprintf("  win=%d", dbg.WindowLen)) + "\n")

	b.WriteString("\n" + titleStyle.Render("control changes") + "\n")
	if len(m.ccLog) == 0 {
		b.WriteString(statusStyle.Render("  (none yet)") + "\n")
	}
	for _, line := range m.ccLog {
		b.WriteString("  " + eventStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("notes") + "\n")
	if len(m.noteLog) == 0 {
		b.WriteString(statusStyle.Render("  (none yet)") + "\n")
	}
	for _, line := range m.noteLog {
		b.WriteString("  " + eventStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + statusStyle.Render("q to quit"))
	return b.String()
}

func main() {
	port := flag.String("port", "", "MIDI input port name (substring match)")
	flag.Parse()

	in := midi.NewInput(*port)
	defer in.Close()

	m := model{in: in, start: time.Now()}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
