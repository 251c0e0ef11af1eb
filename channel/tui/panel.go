// Package tui provides the terminal user interface for interactive chat.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tidehub/hubchat/timeline"
)

// Panel is a composable TUI region with its own state, update logic, and view.
// The root App model orchestrates panels without knowing their internals.
type Panel interface {
	Update(tea.Msg) (Panel, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// LogLineMsg carries a single log line from the logger writer.
type LogLineMsg struct{ Line string }

// UserEchoMsg echoes a submitted user message into the timeline panel.
type UserEchoMsg struct{ Text string }

// TimelineMsg carries the current streaming message after a reduced event;
// the timeline panel re-renders it in place.
type TimelineMsg struct{ Message *timeline.Message }

// TurnDoneMsg marks the end of a streaming turn. The rendered message is
// frozen into history.
type TurnDoneMsg struct {
	Message *timeline.Message
	Aborted bool
	Err     error
}

// StatusMsg updates the status bar.
type StatusMsg struct {
	ConversationID string
	ContextTokens  int
}

// PromptMsg shows an ask-user question in the timeline panel while the
// input panel collects the answer.
type PromptMsg struct{ Prompt string }

// InputSubmitMsg is emitted when the user presses Enter in the input panel.
type InputSubmitMsg struct{ Text string }
