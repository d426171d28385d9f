package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type taskDoneMsg struct {
	err error
}

type spinnerModel struct {
	label   string
	spinner spinner.Model
	task    func() error
	err     error
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: task()}
	})
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// RunWithSpinner shows an inline spinner with label until task returns.
// Pressing ctrl+c stops waiting and returns context.Canceled; the caller is
// expected to cancel whatever context task uses.
func RunWithSpinner(label string, task func() error) error {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brandColor)

	p := tea.NewProgram(spinnerModel{label: label, spinner: s, task: task})
	result, err := p.Run()
	if err != nil {
		return err
	}
	return result.(spinnerModel).err
}
