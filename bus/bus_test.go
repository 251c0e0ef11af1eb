package bus

import (
	"testing"

	"github.com/tidehub/hubchat/timeline"
)

func publishN(b *Bus, types ...EventType) {
	for _, typ := range types {
		b.Publish(NewEvent(typ, timeline.NewAssistantMessage("m")))
	}
}

func TestPublishIsSynchronousAndOrdered(t *testing.T) {
	t.Parallel()

	b := New()
	var seen []EventType
	b.SubscribeAll(func(ev *Event) { seen = append(seen, ev.Type) })

	publishN(b, EventTimelineUpdated, EventQuestionPending, EventStreamDone)

	// No synchronization needed: Publish returns only after delivery.
	want := []EventType{EventTimelineUpdated, EventQuestionPending, EventStreamDone}
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d is %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestSubscribeFiltersByType(t *testing.T) {
	t.Parallel()

	b := New()
	count := 0
	b.Subscribe(EventStreamDone, func(*Event) { count++ })

	publishN(b, EventTimelineUpdated, EventStreamDone, EventStreamErrored, EventStreamDone)

	if count != 2 {
		t.Fatalf("expected 2 matching events, got %d", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	count := 0
	id := b.SubscribeAll(func(*Event) { count++ })

	publishN(b, EventTimelineUpdated)
	b.Unsubscribe(id)
	publishN(b, EventTimelineUpdated)

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	b := New()
	b.SubscribeAll(func(*Event) { panic("bad handler") })
	delivered := false
	b.SubscribeAll(func(*Event) { delivered = true })

	publishN(b, EventTimelineUpdated)

	if !delivered {
		t.Fatal("panic in one handler blocked the next")
	}
}

func TestReentrantPublish(t *testing.T) {
	t.Parallel()

	b := New()
	var seen []EventType
	b.SubscribeAll(func(ev *Event) {
		seen = append(seen, ev.Type)
		if ev.Type == EventQuestionPending {
			// An ask-user handler publishes the answered state from
			// within dispatch.
			publishN(b, EventTimelineUpdated)
		}
	})

	publishN(b, EventQuestionPending)

	if len(seen) != 2 || seen[1] != EventTimelineUpdated {
		t.Fatalf("re-entrant publish not delivered: %v", seen)
	}
}

func TestClosedBusDropsEvents(t *testing.T) {
	t.Parallel()

	b := New()
	count := 0
	b.SubscribeAll(func(*Event) { count++ })

	b.Close()
	publishN(b, EventTimelineUpdated)

	if count != 0 {
		t.Fatalf("closed bus delivered %d events", count)
	}
}
