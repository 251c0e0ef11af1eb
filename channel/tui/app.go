package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultLogRatio = 0.3

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// App is the root bubbletea model that orchestrates panels and layout.
type App struct {
	logPanel      Panel
	timelinePanel Panel
	inputPanel    Panel

	width, height int
	logRatio      float64
	status        StatusMsg

	// InputCh receives user input text from the input panel.
	InputCh chan string
}

// NewApp creates the root TUI model with default panels.
func NewApp() *App {
	return &App{
		logPanel:      NewLogPanel(),
		timelinePanel: NewTimelinePanel(),
		inputPanel:    NewInputPanel("hubchat> "),
		logRatio:      defaultLogRatio,
		InputCh:       make(chan string, 16),
	}
}

func (m *App) Init() tea.Cmd {
	return nil
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
		// All other keys go to input panel.
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p
		cmds = append(cmds, cmd)

	case InputSubmitMsg:
		// Send to channel consumer (non-blocking).
		select {
		case m.InputCh <- msg.Text:
		default:
		}

	case LogLineMsg:
		p, cmd := m.logPanel.Update(msg)
		m.logPanel = p
		cmds = append(cmds, cmd)

	case StatusMsg:
		m.status = msg

	case UserEchoMsg, TimelineMsg, TurnDoneMsg:
		p, cmd := m.timelinePanel.Update(msg)
		m.timelinePanel = p
		cmds = append(cmds, cmd)

	case PromptMsg:
		// The question shows in the timeline and retitles the input.
		p, cmd := m.timelinePanel.Update(msg)
		m.timelinePanel = p
		cmds = append(cmds, cmd)
		ip, icmd := m.inputPanel.Update(msg)
		m.inputPanel = ip
		cmds = append(cmds, icmd)

	default:
		// Broadcast unknown messages to input panel (e.g. blink cursor).
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *App) View() string {
	if m.width == 0 || m.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", m.width))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.logPanel.View(),
		sep,
		m.timelinePanel.View(),
		sep,
		m.statusLine(),
		m.inputPanel.View(),
	)
}

func (m *App) statusLine() string {
	parts := []string{}
	if m.status.ConversationID != "" {
		parts = append(parts, "conversation "+m.status.ConversationID)
	}
	if m.status.ContextTokens > 0 {
		parts = append(parts, fmt.Sprintf("~%d context tokens", m.status.ContextTokens))
	}
	if len(parts) == 0 {
		parts = append(parts, "new conversation")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

func (m *App) recalcLayout() {
	const inputH = 1
	const statusH = 1
	const sepLines = 2

	usable := max(m.height-inputH-statusH-sepLines, 2)
	logH := max(int(float64(usable)*m.logRatio), 1)
	timelineH := max(usable-logH, 1)

	m.logPanel.SetSize(m.width, logH)
	m.timelinePanel.SetSize(m.width, timelineH)
	m.inputPanel.SetSize(m.width, inputH)
}
