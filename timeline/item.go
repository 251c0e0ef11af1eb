// Package timeline reconstructs an ordered activity timeline from the hub's
// flat chat event stream.
//
// The timeline is a list of ActivityItems ordered by a strictly increasing
// sequence number assigned at item creation. Renderers sort by Sequence and
// always reproduce arrival order.
package timeline

import "github.com/tidehub/hubchat/stream"

// ItemKind discriminates the ActivityItem union.
type ItemKind string

const (
	KindText      ItemKind = "text"
	KindTool      ItemKind = "tool"
	KindReasoning ItemKind = "reasoning"
	KindSubAgent  ItemKind = "sub_agent"
	KindAskUser   ItemKind = "ask_user"
)

// ToolOutputInterrupted is the sentinel output recorded on tool items that
// were still running when the stream terminated.
const ToolOutputInterrupted = "(interrupted)"

// SubAgentCall summarizes one nested tool invocation by a delegated agent.
type SubAgentCall struct {
	Name   string
	Output string
	Failed bool
}

// ActivityItem is one node of the timeline. Kind decides which fields are
// meaningful; the rest stay zero.
type ActivityItem struct {
	ID       string
	Sequence int
	Kind     ItemKind

	// KindText, KindReasoning. Text content grows while the item is the
	// open text item; reasoning content never mutates after creation.
	Content string

	// KindTool. Completed flips true exactly once, when a result arrives
	// or the stream terminates.
	Name      string
	CallID    string
	Arguments string
	Output    string
	Completed bool

	// KindSubAgent. Running flips false on a terminal nested event.
	AgentName string
	EventType string
	Running   bool
	ToolCalls []SubAgentCall
	Reasoning string

	// KindAskUser. Responses == nil means awaiting an answer.
	GroupID   string
	Questions []stream.Question
	Responses map[string]string
}

// Answered reports whether an ask-user item has received responses.
func (it *ActivityItem) Answered() bool {
	return it.Kind == KindAskUser && it.Responses != nil
}

// RunningTool reports whether a tool item is still awaiting its result.
func (it *ActivityItem) RunningTool() bool {
	return it.Kind == KindTool && !it.Completed
}

// PendingQuestionGroup is the caller-facing projection of an open ask-user
// item. It exists from the ask_user event until a response is submitted or
// the message ends, whichever comes first.
type PendingQuestionGroup struct {
	GroupID   string
	Questions []stream.Question
}
