package timeline

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/tidehub/hubchat/logger"
	"github.com/tidehub/hubchat/stream"
)

// Reducer folds the ordered event sequence of one streaming session into a
// single assistant message. Apply is pure protocol state: no network I/O
// lives here, and events are processed strictly in the order given.
type Reducer struct {
	msg            *Message
	seq            int
	openTextID     string
	pending        *PendingQuestionGroup
	conversationID string
}

// NewReducer creates a reducer that mutates msg in place.
func NewReducer(msg *Message) *Reducer {
	return &Reducer{msg: msg}
}

// Message returns the message this reducer drives.
func (r *Reducer) Message() *Message { return r.msg }

// Pending returns the open question group, or nil.
func (r *Reducer) Pending() *PendingQuestionGroup { return r.pending }

// ConversationID returns the id recorded from the done event, if any.
func (r *Reducer) ConversationID() string { return r.conversationID }

// Apply folds one event into the timeline. Unrecognized event types and
// uncorrelatable events are no-ops, never errors.
func (r *Reducer) Apply(ev *stream.Event) {
	if ev == nil || !r.msg.Streaming {
		return
	}

	switch ev.Type {
	case stream.EventTextDelta:
		r.applyTextDelta(ev.Content)
	case stream.EventResponseCreated:
		// A new logical response turn (e.g. after a tool round). Closes the
		// open text item so the next delta starts a fresh one.
		r.openTextID = ""
	case stream.EventToolCall:
		r.applyToolCall(ev)
	case stream.EventToolResult:
		r.applyToolResult(ev)
	case stream.EventReasoning:
		r.applyReasoning(ev.Content)
	case stream.EventSubAgent:
		r.applySubAgent(ev)
	case stream.EventAskUser:
		r.applyAskUser(ev)
	case stream.EventError:
		r.applyError(ev.Message)
	case stream.EventDone:
		r.applyDone(ev.ConversationID)
	case stream.EventKeepalive:
		// Transport liveness only.
	default:
		logger.Debug("ignoring unrecognized event", "type", string(ev.Type))
	}
}

// Finish marks the message not-streaming without touching accumulated state.
// Used for user aborts and streams that end without a terminal event; the
// partial timeline is retained as-is.
func (r *Reducer) Finish() {
	r.msg.Streaming = false
	r.pending = nil
}

// Fail appends a visible error suffix to the message content and marks it
// not-streaming. Used by the session controller for failures that never
// reached the protocol layer (e.g. token acquisition).
func (r *Reducer) Fail(message string) {
	if message != "" && r.msg.Streaming {
		r.msg.Content += "\n\nError: " + message
	}
	r.Finish()
}

// AnswerGroup folds caller-supplied responses into the matching ask-user
// item and clears the pending projection. Returns false when groupID is
// unknown or already answered; that case is a no-op.
func (r *Reducer) AnswerGroup(groupID string, responses map[string]string) bool {
	for _, it := range r.msg.Items {
		if it.Kind != KindAskUser || it.GroupID != groupID {
			continue
		}
		if it.Answered() {
			return false
		}
		it.Responses = make(map[string]string, len(responses))
		for k, v := range responses {
			it.Responses[k] = v
		}
		if r.pending != nil && r.pending.GroupID == groupID {
			r.pending = nil
		}
		return true
	}
	return false
}

func (r *Reducer) nextItem(kind ItemKind) *ActivityItem {
	r.seq++
	it := &ActivityItem{
		ID:       fmt.Sprintf("%s-%d", kind, r.seq),
		Sequence: r.seq,
		Kind:     kind,
	}
	r.msg.Items = append(r.msg.Items, it)
	return it
}

func (r *Reducer) findItem(id string) *ActivityItem {
	for _, it := range r.msg.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (r *Reducer) applyTextDelta(content string) {
	if r.openTextID != "" {
		if it := r.findItem(r.openTextID); it != nil {
			it.Content += content
			r.msg.Content += content
			return
		}
	}
	it := r.nextItem(KindText)
	it.Content = content
	r.openTextID = it.ID
	r.msg.Content += content
}

func (r *Reducer) applyToolCall(ev *stream.Event) {
	r.openTextID = ""
	it := r.nextItem(KindTool)
	it.Name = ev.Name
	it.CallID = ev.CallID
	it.Arguments = ev.Arguments
}

// applyToolResult completes a running tool item. Match by call id first;
// when the event carries no call id, fall back to the oldest running item
// that recorded none. An unmatched result is dropped — backends that omit
// call ids depend on the fallback, and crashing on noise is worse than a
// lost output.
func (r *Reducer) applyToolResult(ev *stream.Event) {
	var target *ActivityItem
	for _, it := range r.msg.Items {
		if !it.RunningTool() {
			continue
		}
		if ev.CallID != "" && it.CallID == ev.CallID {
			target = it
			break
		}
		if ev.CallID == "" && it.CallID == "" && target == nil {
			target = it
		}
	}
	if target == nil {
		logger.Debug("dropping unmatched tool result", "callID", ev.CallID)
		return
	}
	target.Output = ev.Output
	target.Completed = true
}

func (r *Reducer) applyReasoning(content string) {
	r.openTextID = ""
	it := r.nextItem(KindReasoning)
	it.Content = content
}

// applySubAgent merges into the open sub-agent aggregate when the tail of
// the timeline is a running item for the same agent; any item created in
// between closes the aggregate and a new one is allocated.
func (r *Reducer) applySubAgent(ev *stream.Event) {
	r.openTextID = ""

	var it *ActivityItem
	if n := len(r.msg.Items); n > 0 {
		tail := r.msg.Items[n-1]
		if tail.Kind == KindSubAgent && tail.Running && tail.AgentName == ev.Agent {
			it = tail
		}
	}
	if it == nil {
		it = r.nextItem(KindSubAgent)
		it.AgentName = ev.Agent
		it.Running = true
	}
	it.EventType = ev.SubEventType

	data := gjson.Parse(ev.Data)
	switch ev.SubEventType {
	case stream.SubEventStarted:
		// Allocation above is the whole effect.
	case stream.SubEventToolCalled:
		it.ToolCalls = append(it.ToolCalls, SubAgentCall{
			Name: firstString(data, "tool", "name"),
		})
	case stream.SubEventToolOutput:
		if n := len(it.ToolCalls); n > 0 {
			it.ToolCalls[n-1].Output = firstString(data, "output", "content")
		}
	case stream.SubEventToolError:
		if n := len(it.ToolCalls); n > 0 {
			it.ToolCalls[n-1].Output = firstString(data, "error", "message")
			it.ToolCalls[n-1].Failed = true
		}
		it.Running = false
	case stream.SubEventReasoning:
		it.Reasoning += firstString(data, "content", "text")
	case stream.SubEventTextDelta:
		it.Content += firstString(data, "content", "text")
	case stream.SubEventMessageOutput:
		if out := firstString(data, "content", "message"); out != "" {
			it.Content = out
		}
		it.Running = false
	default:
		logger.Debug("ignoring unrecognized sub-agent event",
			"agent", ev.Agent, "eventType", ev.SubEventType)
	}
}

func (r *Reducer) applyAskUser(ev *stream.Event) {
	r.openTextID = ""

	// Exactly one ask-user item per group id.
	for _, existing := range r.msg.Items {
		if existing.Kind == KindAskUser && existing.GroupID == ev.GroupID {
			logger.Debug("ignoring duplicate ask-user group", "groupID", ev.GroupID)
			return
		}
	}

	it := r.nextItem(KindAskUser)
	it.GroupID = ev.GroupID
	it.Questions = append([]stream.Question(nil), ev.Questions...)

	r.pending = &PendingQuestionGroup{
		GroupID:   ev.GroupID,
		Questions: it.Questions,
	}
}

func (r *Reducer) applyError(message string) {
	if message == "" {
		message = "the assistant ended with an unspecified error"
	}
	suffix := "\n\nError: " + message
	if r.openTextID != "" {
		if it := r.findItem(r.openTextID); it != nil {
			it.Content += suffix
		}
	}
	r.msg.Content += suffix
	r.msg.Streaming = false
	r.pending = nil
}

func (r *Reducer) applyDone(conversationID string) {
	for _, it := range r.msg.RunningTools() {
		it.Output = ToolOutputInterrupted
		it.Completed = true
	}
	r.conversationID = conversationID
	r.msg.Streaming = false
	r.pending = nil
}

// firstString returns the first non-empty string value among keys in data.
func firstString(data gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := data.Get(key).String(); v != "" {
			return v
		}
	}
	return ""
}
