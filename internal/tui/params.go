// SPDX-License-Identifier: MIT
// Package tui holds the terminal front ends: the live parameter panel and
// the device browser.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"verb/internal/params"
	"verb/internal/transport"
)

const (
	FineStep   float32 = 0.01
	CoarseStep float32 = 0.1
	barWidth           = 24
	tickEvery          = 100 * time.Millisecond
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	recStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0245E")).
			Bold(true)
)

// Status is the live engine state shown under the parameters.
type Status interface {
	Peak() float32
	Recording() bool
}

type paramKeys struct {
	Up, Down, Left, Right, CoarseLeft, CoarseRight, Quit key.Binding
}

func (k paramKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.CoarseRight, k.Quit}
}

func (k paramKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultParamKeys = paramKeys{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-0.01")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+0.01")),
	CoarseLeft:  key.NewBinding(key.WithKeys("shift+left", "H")),
	CoarseRight: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift", "×10")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// ParamModel is the Bubble Tea model for the live parameter panel.
type ParamModel struct {
	store  *params.Store
	out    transport.Transport
	status Status
	title  string

	keys     paramKeys
	help     help.Model
	selected int32

	peak      float32
	recording bool
}

// NewParamModel creates a panel over store. Changes are published to out
// and status is polled for the meter; either may be nil.
func NewParamModel(title string, store *params.Store, out transport.Transport, status Status) ParamModel {
	return ParamModel{
		store:  store,
		out:    out,
		status: status,
		title:  title,
		keys:   defaultParamKeys,
		help:   help.New(),
	}
}

// Selected returns the index of the highlighted parameter.
func (m ParamModel) Selected() int32 {
	return m.selected
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the meter refresh.
func (m ParamModel) Init() tea.Cmd {
	if m.status == nil {
		return nil
	}
	return tick()
}

// Update handles key presses and meter ticks.
func (m ParamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		if m.status != nil {
			m.peak = m.status.Peak()
			m.recording = m.status.Recording()
			return m, tick()
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < m.store.Count()-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Left):
			m.adjust(-FineStep)
		case key.Matches(msg, m.keys.Right):
			m.adjust(FineStep)
		case key.Matches(msg, m.keys.CoarseLeft):
			m.adjust(-CoarseStep)
		case key.Matches(msg, m.keys.CoarseRight):
			m.adjust(CoarseStep)
		}
	}
	return m, nil
}

// adjust nudges the selected parameter, keeping it within 0..1.
func (m ParamModel) adjust(delta float32) {
	v := min(max(m.store.Get(m.selected)+delta, 0), 1)
	m.store.Set(m.selected, v)
	if m.out != nil {
		m.out.Send(m.store.Snapshot())
	}
}

// View renders the panel.
func (m ParamModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for _, p := range m.store.Snapshot() {
		cursor := " "
		if p.Index == m.selected {
			cursor = "▶"
		}
		line := fmt.Sprintf("%s %-10s %s %5s  (%.2f)", cursor, p.Name, bar(p.Value), p.Text, p.Value)
		if p.Index == m.selected {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if m.status != nil {
		status := infoStyle.Render(fmt.Sprintf("\nOutput %s %.3f", bar(m.peak), m.peak))
		if m.recording {
			status += "  " + recStyle.Render("● REC")
		}
		sb.WriteString(status)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// bar draws v in 0..1 as a fixed-width meter.
func bar(v float32) string {
	filled := int(min(max(v, 0), 1)*barWidth + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", barWidth-filled) + "]"
}

// RunParams runs the panel until the user quits or ctx is cancelled.
func RunParams(ctx context.Context, model ParamModel) error {
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
