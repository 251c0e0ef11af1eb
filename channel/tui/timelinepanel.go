package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tidehub/hubchat/timeline"
)

var (
	userMsgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))  // cyan
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))  // yellow
	reasoningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray
	subAgentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))  // magenta
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))  // red
)

// TimelinePanel displays the conversation in a scrollable viewport: frozen
// lines from completed turns plus a live rendering of the message that is
// currently streaming.
type TimelinePanel struct {
	viewport viewport.Model
	history  []string
	current  []string
}

// NewTimelinePanel creates a timeline panel.
func NewTimelinePanel() *TimelinePanel {
	vp := viewport.New(0, 0)
	vp.SetContent("")
	return &TimelinePanel{viewport: vp}
}

func (p *TimelinePanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case UserEchoMsg:
		p.history = append(p.history, userMsgStyle.Render("> "+msg.Text))
		p.refresh()
		return p, nil

	case TimelineMsg:
		p.current = renderMessage(msg.Message)
		p.refresh()
		return p, nil

	case PromptMsg:
		p.current = append(p.current, questionStyle.Render("? "+msg.Prompt))
		p.refresh()
		return p, nil

	case TurnDoneMsg:
		lines := renderMessage(msg.Message)
		if msg.Aborted {
			lines = append(lines, reasoningStyle.Render("(aborted)"))
		}
		if msg.Err != nil {
			lines = append(lines, errorStyle.Render("error: "+msg.Err.Error()))
		}
		lines = append(lines, "")
		p.history = append(p.history, lines...)
		p.current = nil
		p.refresh()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *TimelinePanel) View() string {
	return p.viewport.View()
}

func (p *TimelinePanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

func (p *TimelinePanel) refresh() {
	lines := append(append([]string(nil), p.history...), p.current...)
	p.viewport.SetContent(strings.Join(lines, "\n"))
	p.viewport.GotoBottom()
}

// renderMessage turns a message's activity items into display lines in
// sequence order.
func renderMessage(msg *timeline.Message) []string {
	if msg == nil {
		return nil
	}
	var lines []string
	for _, it := range msg.Items {
		switch it.Kind {
		case timeline.KindText:
			lines = append(lines, strings.Split(it.Content, "\n")...)
		case timeline.KindTool:
			lines = append(lines, renderTool(it))
		case timeline.KindReasoning:
			lines = append(lines, reasoningStyle.Render("· "+oneLine(it.Content)))
		case timeline.KindSubAgent:
			lines = append(lines, renderSubAgent(it)...)
		case timeline.KindAskUser:
			lines = append(lines, renderAskUser(it)...)
		}
	}
	return lines
}

func renderTool(it *timeline.ActivityItem) string {
	if !it.Completed {
		return toolStyle.Render(fmt.Sprintf("⚙ %s ...", it.Name))
	}
	return toolStyle.Render(fmt.Sprintf("⚙ %s → %s", it.Name, oneLine(it.Output)))
}

func renderSubAgent(it *timeline.ActivityItem) []string {
	state := "finished"
	if it.Running {
		state = "running"
	}
	lines := []string{subAgentStyle.Render(fmt.Sprintf("↳ %s (%s)", it.AgentName, state))}
	for _, call := range it.ToolCalls {
		marker := "→"
		if call.Failed {
			marker = "✗"
		}
		if call.Output == "" {
			lines = append(lines, subAgentStyle.Render(fmt.Sprintf("    %s ...", call.Name)))
			continue
		}
		lines = append(lines, subAgentStyle.Render(fmt.Sprintf("    %s %s %s", call.Name, marker, oneLine(call.Output))))
	}
	if it.Content != "" {
		lines = append(lines, strings.Split(it.Content, "\n")...)
	}
	return lines
}

func renderAskUser(it *timeline.ActivityItem) []string {
	lines := []string{questionStyle.Render(fmt.Sprintf("? question group %s", it.GroupID))}
	for _, q := range it.Questions {
		line := "  - " + q.Prompt
		if it.Answered() {
			line += ": " + it.Responses[q.ID]
		}
		lines = append(lines, questionStyle.Render(line))
	}
	return lines
}

func oneLine(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	runes := []rune(s)
	if len(runes) > 120 {
		return string(runes[:120]) + "…"
	}
	return s
}
