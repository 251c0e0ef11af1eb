package stream

import "testing"

func TestParseToolCallKeepsRawArguments(t *testing.T) {
	t.Parallel()

	ev, ok := ParseEvent(`{"type":"tool_call","call_id":"c1","name":"search","arguments":{"q":"weather","limit":3}}`)
	if !ok {
		t.Fatal("parse failed")
	}
	if ev.CallID != "c1" || ev.Name != "search" {
		t.Fatalf("unexpected envelope: %+v", ev)
	}
	if ev.Arguments != `{"q":"weather","limit":3}` {
		t.Fatalf("arguments not raw JSON: %q", ev.Arguments)
	}
}

func TestParseAskUserQuestions(t *testing.T) {
	t.Parallel()

	ev, ok := ParseEvent(`{"type":"ask_user","group_id":"g1","questions":[{"id":"q1","prompt":"Region?","options":["us","eu"]},{"id":"q2","prompt":"Why?"}]}`)
	if !ok {
		t.Fatal("parse failed")
	}
	if ev.GroupID != "g1" || len(ev.Questions) != 2 {
		t.Fatalf("unexpected group: %+v", ev)
	}
	if len(ev.Questions[0].Options) != 2 || ev.Questions[0].Options[1] != "eu" {
		t.Fatalf("options wrong: %+v", ev.Questions[0])
	}
	if ev.Questions[1].Options != nil {
		t.Fatalf("free-form question should have no options: %+v", ev.Questions[1])
	}
}

func TestParseUnrecognizedTypeSucceeds(t *testing.T) {
	t.Parallel()

	ev, ok := ParseEvent(`{"type":"totally_new_thing","payload":1}`)
	if !ok {
		t.Fatal("unrecognized types must parse so the reducer can no-op them")
	}
	if ev.Type != EventType("totally_new_thing") {
		t.Fatalf("unexpected type: %q", ev.Type)
	}
}

func TestParseRejectsNoise(t *testing.T) {
	t.Parallel()

	cases := []string{
		``,
		`   `,
		`{broken`,
		`[1,2]`,
		`"just a string"`,
		`{"content":"missing type"}`,
	}
	for _, in := range cases {
		if _, ok := ParseEvent(in); ok {
			t.Fatalf("expected parse failure for %q", in)
		}
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	if !(&Event{Type: EventDone}).Terminal() || !(&Event{Type: EventError}).Terminal() {
		t.Fatal("done and error are terminal")
	}
	if (&Event{Type: EventTextDelta}).Terminal() {
		t.Fatal("text_delta is not terminal")
	}
}
