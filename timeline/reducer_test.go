package timeline

import (
	"testing"

	"github.com/tidehub/hubchat/stream"
)

func newTestReducer() (*Reducer, *Message) {
	msg := NewAssistantMessage("msg-1")
	return NewReducer(msg), msg
}

func textDelta(content string) *stream.Event {
	return &stream.Event{Type: stream.EventTextDelta, Content: content}
}

func TestTextDeltasAccumulateIntoOneItem(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("Hel"))
	r.Apply(textDelta("lo"))

	if len(msg.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(msg.Items))
	}
	if msg.Items[0].Content != "Hello" {
		t.Fatalf("unexpected item content: %q", msg.Items[0].Content)
	}
	if msg.Content != "Hello" {
		t.Fatalf("unexpected message content: %q", msg.Content)
	}
}

func TestResponseCreatedOpensFreshTextItem(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("first"))
	r.Apply(&stream.Event{Type: stream.EventResponseCreated})
	r.Apply(textDelta("second"))

	if len(msg.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(msg.Items))
	}
	if msg.Items[0].Content != "first" || msg.Items[1].Content != "second" {
		t.Fatalf("unexpected contents: %q / %q", msg.Items[0].Content, msg.Items[1].Content)
	}
}

func TestNonTextEventClosesOpenTextItem(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("before"))
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search"})
	r.Apply(textDelta("after"))

	if len(msg.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(msg.Items))
	}
	if msg.Items[2].Kind != KindText || msg.Items[2].Content != "after" {
		t.Fatalf("expected fresh text item after tool call, got %+v", msg.Items[2])
	}
}

func TestSequenceIsMonotonic(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("a"))
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search"})
	r.Apply(&stream.Event{Type: stream.EventReasoning, Content: "thinking"})
	r.Apply(textDelta("b"))

	for i, it := range msg.Items {
		if it.Sequence != i+1 {
			t.Fatalf("item %d has sequence %d", i, it.Sequence)
		}
	}
}

func TestToolResultCorrelatesByCallID(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search"})
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c2", Name: "fetch"})
	r.Apply(&stream.Event{Type: stream.EventToolResult, CallID: "c2", Output: "fetched"})

	if msg.Items[0].Completed {
		t.Fatal("first tool should still be running")
	}
	if !msg.Items[1].Completed || msg.Items[1].Output != "fetched" {
		t.Fatalf("second tool not completed correctly: %+v", msg.Items[1])
	}
}

func TestToolResultWithoutCallIDCompletesOldest(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventToolCall, Name: "first"})
	r.Apply(&stream.Event{Type: stream.EventToolCall, Name: "second"})
	r.Apply(&stream.Event{Type: stream.EventToolResult, Output: "done"})

	if !msg.Items[0].Completed || msg.Items[0].Output != "done" {
		t.Fatalf("oldest tool not completed: %+v", msg.Items[0])
	}
	if msg.Items[1].Completed {
		t.Fatal("newest tool should still be running")
	}
}

func TestUnmatchedToolResultIsDropped(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventToolResult, CallID: "ghost", Output: "x"})

	if len(msg.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(msg.Items))
	}
}

func TestDoneForceCompletesRunningTools(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search"})
	r.Apply(&stream.Event{Type: stream.EventDone, ConversationID: "conv-1"})

	it := msg.Items[0]
	if !it.Completed || it.Output != ToolOutputInterrupted {
		t.Fatalf("running tool not force-completed: %+v", it)
	}
	if msg.Streaming {
		t.Fatal("message should not be streaming after done")
	}
	if r.ConversationID() != "conv-1" {
		t.Fatalf("unexpected conversation id: %q", r.ConversationID())
	}
}

func TestEventsAfterTerminalAreIgnored(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("hello"))
	r.Apply(&stream.Event{Type: stream.EventDone})
	r.Apply(textDelta(" late"))

	if msg.Content != "hello" {
		t.Fatalf("post-terminal delta applied: %q", msg.Content)
	}
}

func TestErrorAppendsSuffixAndTerminates(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("partial"))
	r.Apply(&stream.Event{Type: stream.EventError, Message: "model overloaded"})

	want := "partial\n\nError: model overloaded"
	if msg.Content != want {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if msg.Items[0].Content != want {
		t.Fatalf("open text item missed suffix: %q", msg.Items[0].Content)
	}
	if msg.Streaming {
		t.Fatal("message should not be streaming after error")
	}
}

func TestReasoningItemsNeverMerge(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventReasoning, Content: "step 1"})
	r.Apply(&stream.Event{Type: stream.EventReasoning, Content: "step 2"})

	if len(msg.Items) != 2 {
		t.Fatalf("expected 2 reasoning items, got %d", len(msg.Items))
	}
}

func TestAskUserGroupLifecycle(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{
		Type:    stream.EventAskUser,
		GroupID: "g1",
		Questions: []stream.Question{
			{ID: "q1", Prompt: "Which region?", Options: []string{"us", "eu"}},
		},
	})

	group := r.Pending()
	if group == nil || group.GroupID != "g1" {
		t.Fatalf("pending group not surfaced: %+v", group)
	}

	// Duplicate group id is noise.
	r.Apply(&stream.Event{Type: stream.EventAskUser, GroupID: "g1"})
	if len(msg.Items) != 1 {
		t.Fatalf("duplicate group created an item, have %d", len(msg.Items))
	}

	if !r.AnswerGroup("g1", map[string]string{"q1": "eu"}) {
		t.Fatal("AnswerGroup returned false for open group")
	}
	if r.Pending() != nil {
		t.Fatal("pending group not cleared after answer")
	}
	if got := msg.Items[0].Responses["q1"]; got != "eu" {
		t.Fatalf("response not recorded: %q", got)
	}

	// Already answered: no-op.
	if r.AnswerGroup("g1", map[string]string{"q1": "us"}) {
		t.Fatal("AnswerGroup should be a no-op for answered group")
	}
	if got := msg.Items[0].Responses["q1"]; got != "eu" {
		t.Fatalf("answered group was overwritten: %q", got)
	}
}

func TestAnswerUnknownGroupIsNoOp(t *testing.T) {
	t.Parallel()

	r, _ := newTestReducer()
	if r.AnswerGroup("missing", map[string]string{"q": "a"}) {
		t.Fatal("AnswerGroup should return false for unknown group")
	}
}

func TestDoneClearsPendingGroup(t *testing.T) {
	t.Parallel()

	r, _ := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventAskUser, GroupID: "g1"})
	r.Apply(&stream.Event{Type: stream.EventDone})

	if r.Pending() != nil {
		t.Fatal("pending group should clear on done")
	}
}

func TestSubAgentEventsMergeIntoTailItem(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventSubAgent, Agent: "researcher", SubEventType: stream.SubEventStarted})
	r.Apply(&stream.Event{
		Type: stream.EventSubAgent, Agent: "researcher",
		SubEventType: stream.SubEventToolCalled, Data: `{"tool":"lookup"}`,
	})
	r.Apply(&stream.Event{
		Type: stream.EventSubAgent, Agent: "researcher",
		SubEventType: stream.SubEventToolOutput, Data: `{"output":"42"}`,
	})
	r.Apply(&stream.Event{
		Type: stream.EventSubAgent, Agent: "researcher",
		SubEventType: stream.SubEventMessageOutput, Data: `{"content":"the answer is 42"}`,
	})

	if len(msg.Items) != 1 {
		t.Fatalf("expected 1 merged sub-agent item, got %d", len(msg.Items))
	}
	it := msg.Items[0]
	if it.Running {
		t.Fatal("sub-agent should stop running after message_output")
	}
	if it.Content != "the answer is 42" {
		t.Fatalf("unexpected sub-agent content: %q", it.Content)
	}
	if len(it.ToolCalls) != 1 || it.ToolCalls[0].Name != "lookup" || it.ToolCalls[0].Output != "42" {
		t.Fatalf("unexpected tool calls: %+v", it.ToolCalls)
	}
}

func TestSubAgentMergeBreaksOnInterleavedItem(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventSubAgent, Agent: "researcher", SubEventType: stream.SubEventStarted})
	r.Apply(textDelta("interleaved"))
	r.Apply(&stream.Event{Type: stream.EventSubAgent, Agent: "researcher", SubEventType: stream.SubEventReasoning, Data: `{"content":"hm"}`})

	subAgents := 0
	for _, it := range msg.Items {
		if it.Kind == KindSubAgent {
			subAgents++
		}
	}
	if subAgents != 2 {
		t.Fatalf("expected 2 sub-agent items after interleave, got %d", subAgents)
	}
}

func TestSubAgentDifferentAgentsNeverMerge(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(&stream.Event{Type: stream.EventSubAgent, Agent: "a", SubEventType: stream.SubEventStarted})
	r.Apply(&stream.Event{Type: stream.EventSubAgent, Agent: "b", SubEventType: stream.SubEventStarted})

	if len(msg.Items) != 2 {
		t.Fatalf("expected 2 items for 2 agents, got %d", len(msg.Items))
	}
}

func TestFinishRetainsPartialState(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("partial"))
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search"})
	r.Finish()

	if msg.Streaming {
		t.Fatal("message should not be streaming after Finish")
	}
	if msg.Content != "partial" {
		t.Fatalf("Finish modified content: %q", msg.Content)
	}
	// Unlike done, an abort leaves the tool without a sentinel output.
	if msg.Items[1].Completed {
		t.Fatal("Finish should not force-complete tools")
	}
}

func TestFailAppendsVisibleError(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Fail("token acquisition failed: status 503")

	if msg.Content != "\n\nError: token acquisition failed: status 503" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if msg.Streaming {
		t.Fatal("message should not be streaming after Fail")
	}
}

func TestFullSession(t *testing.T) {
	t.Parallel()

	r, msg := newTestReducer()
	r.Apply(textDelta("Hello"))
	r.Apply(&stream.Event{Type: stream.EventToolCall, CallID: "c1", Name: "search", Arguments: `{"q":"weather"}`})
	r.Apply(&stream.Event{Type: stream.EventToolResult, CallID: "c1", Output: "sunny"})
	r.Apply(textDelta(" world"))
	r.Apply(&stream.Event{Type: stream.EventDone, ConversationID: "conv-9"})

	if msg.Content != "Hello world" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if len(msg.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(msg.Items))
	}
	kinds := []ItemKind{msg.Items[0].Kind, msg.Items[1].Kind, msg.Items[2].Kind}
	want := []ItemKind{KindText, KindTool, KindText}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("item %d kind %s, want %s", i, kinds[i], want[i])
		}
	}
	if msg.Streaming || r.ConversationID() != "conv-9" {
		t.Fatalf("terminal state wrong: streaming=%v conv=%q", msg.Streaming, r.ConversationID())
	}
}
