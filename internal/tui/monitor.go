// SPDX-License-Identifier: MIT

// Package tui holds the terminal screens: a device picker and a live monitor
// of the frame loop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulse/internal/visualizer"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	monitorInterval = 100 * time.Millisecond
	meterWidth      = 40
)

var (
	labelStyle  = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#888888"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	beatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3366")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")).Bold(true)
)

// Status is what the monitor shows on each refresh.
type Status struct {
	Frame    visualizer.Frame
	HasFrame bool
	Volume   float64 // Mean frequency byte, 0..255.
	Paused   bool
	Clients  int
}

// StatusFunc samples the running system.
type StatusFunc func() Status

// Toggler pauses and resumes the frame loop. *visualizer.Visualizer
// satisfies it.
type Toggler interface {
	Toggle() bool
}

type tickMsg time.Time

// MonitorModel renders tempo, energy and hand state of the frame loop.
type MonitorModel struct {
	status  StatusFunc
	toggler Toggler
	current Status
	width   int
}

// NewMonitorModel polls status every 100ms. toggler may be nil.
func NewMonitorModel(status StatusFunc, toggler Toggler) MonitorModel {
	return MonitorModel{status: status, toggler: toggler, width: 80}
}

func tick() tea.Cmd {
	return tea.Tick(monitorInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.current = m.status()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, pauseKey):
			if m.toggler != nil {
				m.current.Paused = m.toggler.Toggle()
			}
		}
	}
	return m, nil
}

func (m MonitorModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Pulse Monitor"))
	sb.WriteString("\n\n")

	s := m.current
	if !s.HasFrame {
		sb.WriteString("Waiting for the first frame...\n")
	} else {
		f := s.Frame
		beat := "  "
		if f.IsBeat {
			beat = beatStyle.Render("● ")
		}
		fmt.Fprintf(&sb, "%s%s%d BPM\n", labelStyle.Render("Tempo"), beat, f.BPM)
		fmt.Fprintf(&sb, "%s%s %.3f\n", labelStyle.Render("Energy"), meter(f.Energy, 1), f.Energy)
		fmt.Fprintf(&sb, "%s%s %.0f\n", labelStyle.Render("Volume"), meter(s.Volume, 255), s.Volume)
		for _, b := range f.Bands {
			fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render(b.Name), meter(b.Level, 1))
		}
		fmt.Fprintf(&sb, "%s%d\n", labelStyle.Render("Particles"), f.Particles)
		fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render("Hands"), hands(f))
		fmt.Fprintf(&sb, "%s%d\n", labelStyle.Render("Clients"), s.Clients)
		fmt.Fprintf(&sb, "%s%d\n", labelStyle.Render("Frame"), f.Seq)
	}

	if s.Paused {
		sb.WriteString("\n")
		sb.WriteString(pausedStyle.Render("PAUSED"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("space/p: Pause/Resume • q: Quit"))
	return sb.String()
}

func meter(v, full float64) string {
	n := int(min(max(v/full, 0), 1) * meterWidth)
	return meterStyle.Render(strings.Repeat("█", n)) + strings.Repeat("░", meterWidth-n)
}

func hands(f visualizer.Frame) string {
	if len(f.Hands) == 0 {
		return "none"
	}
	parts := make([]string, len(f.Hands))
	for i, p := range f.Hands {
		parts[i] = fmt.Sprintf("(%.0f, %.0f)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

// RunMonitor runs the monitor until the user quits or ctx is cancelled.
func RunMonitor(ctx context.Context, status StatusFunc, toggler Toggler) error {
	p := tea.NewProgram(NewMonitorModel(status, toggler), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
