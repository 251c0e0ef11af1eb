// Package channel provides the terminal front ends that drive a chat
// session: a plain scanner channel for pipes and scripts, and a bubbletea
// TUI for interactive terminals.
package channel

import (
	"context"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/timeline"
)

// Input is one user-submitted line.
type Input struct {
	ID   string
	Text string
}

// Channel is the interface for terminal front ends. Render receives every
// bus event the session controller publishes, in order, so the front end
// can show intermediate streaming state. AskUser blocks until the user has
// answered a pending question group.
type Channel interface {
	// Name returns the channel name (e.g. "cli", "tui").
	Name() string

	// Start begins reading user input.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Inputs returns the channel of user-submitted lines.
	Inputs() <-chan *Input

	// Render displays a timeline update.
	Render(ev *bus.Event)

	// Echo displays a submitted user message. The plain channel is a
	// no-op since the terminal already echoes typed input.
	Echo(text string)

	// Status updates the status display. A no-op for the plain channel.
	Status(conversationID string, contextTokens int)

	// AskUser collects answers for a pending question group.
	AskUser(ctx context.Context, group *timeline.PendingQuestionGroup) (map[string]string, error)
}
