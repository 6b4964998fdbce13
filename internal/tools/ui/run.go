package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	detailStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(2)
)

var ErrCancelled = errors.New("cancelled")

var spinnerFrames = []string{"|", "/", "-", "\\"}

type tickMsg time.Time

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	frame   int
	started time.Time
	done    bool
	details []string
	err     error
	cancel  context.CancelFunc
}

func newModel(title string, cancel context.CancelFunc) model {
	return model{title: title, started: time.Now(), cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	if !m.done {
		fmt.Fprintf(&b, "%s %s (%s)\n", spinnerFrames[m.frame], titleStyle.Render(m.title), time.Since(m.started).Round(time.Second))
		return b.String()
	}
	if m.err != nil {
		fmt.Fprintf(&b, "%s %s: %v\n", failStyle.Render("FAIL"), titleStyle.Render(m.title), m.err)
	} else {
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), titleStyle.Render(m.title))
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render(d))
		b.WriteString("\n")
	}
	return b.String()
}

// Run executes fn while rendering a terminal progress line, then prints its
// details. Pressing q or ctrl+c cancels the context handed to fn.
func Run(ctx context.Context, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(title, cancel))
	go func() {
		details, err := fn(ctx)
		p.Send(doneMsg{details: details, err: err})
	}()
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("render progress: %w", err)
	}
	m := final.(model)
	return m.details, m.err
}
