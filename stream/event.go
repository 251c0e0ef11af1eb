// Package stream decodes the hub's Server-Sent-Events chat protocol.
//
// The hub streams one JSON object per "data: " frame, frames separated by a
// blank line. Event shapes are loosely validated: unknown event types and
// malformed frames are protocol noise, never errors.
package stream

import (
	"strings"

	"github.com/tidwall/gjson"
)

// EventType identifies a protocol event.
type EventType string

const (
	EventTextDelta       EventType = "text_delta"
	EventResponseCreated EventType = "response_created"
	EventToolCall        EventType = "tool_call"
	EventToolResult      EventType = "tool_result"
	EventReasoning       EventType = "reasoning"
	EventSubAgent        EventType = "sub_agent_event"
	EventAskUser         EventType = "ask_user"
	EventError           EventType = "error"
	EventDone            EventType = "done"
	EventKeepalive       EventType = "keepalive"
)

// Sub-agent nested event types carried in sub_agent_event frames.
const (
	SubEventStarted       = "started"
	SubEventToolCalled    = "tool_called"
	SubEventToolOutput    = "tool_output"
	SubEventToolError     = "tool_error"
	SubEventReasoning     = "reasoning"
	SubEventTextDelta     = "text_delta"
	SubEventMessageOutput = "message_output"
)

// Question is one entry of an ask_user question group.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}

// Event is the decoded envelope of one protocol frame. Fields are populated
// depending on Type; absent fields stay zero.
type Event struct {
	Type EventType

	// text_delta, reasoning
	Content string

	// tool_call, tool_result
	CallID    string
	Name      string
	Arguments string
	Output    string

	// sub_agent_event
	Agent        string
	SubEventType string
	Data         string // raw JSON payload of the nested event

	// ask_user
	GroupID   string
	Questions []Question

	// error
	Message string

	// done
	ConversationID string
}

// Terminal reports whether the event ends the streaming message.
func (e *Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// ParseEvent decodes one frame payload into an Event. It returns false for
// frames that are not valid JSON objects; callers treat those as noise.
// Unrecognized event types parse successfully so the reducer can no-op them.
func ParseEvent(payload string) (*Event, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" || !gjson.Valid(payload) {
		return nil, false
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, false
	}

	ev := &Event{Type: EventType(root.Get("type").String())}
	if ev.Type == "" {
		return nil, false
	}

	switch ev.Type {
	case EventTextDelta, EventReasoning:
		ev.Content = root.Get("content").String()
	case EventToolCall:
		ev.CallID = root.Get("call_id").String()
		ev.Name = root.Get("name").String()
		ev.Arguments = root.Get("arguments").Raw
	case EventToolResult:
		ev.CallID = root.Get("call_id").String()
		ev.Output = root.Get("output").String()
	case EventSubAgent:
		ev.Agent = root.Get("agent").String()
		ev.SubEventType = root.Get("event_type").String()
		ev.Data = root.Get("data").Raw
	case EventAskUser:
		ev.GroupID = root.Get("group_id").String()
		for _, q := range root.Get("questions").Array() {
			question := Question{
				ID:     q.Get("id").String(),
				Prompt: q.Get("prompt").String(),
			}
			for _, opt := range q.Get("options").Array() {
				question.Options = append(question.Options, opt.String())
			}
			ev.Questions = append(ev.Questions, question)
		}
	case EventError:
		ev.Message = root.Get("message").String()
	case EventDone:
		ev.ConversationID = root.Get("conversation_id").String()
	}

	return ev, true
}
