// Package bus delivers timeline updates from the session controller to
// front-end observers.
package bus

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tidehub/hubchat/timeline"
)

// EventType represents the type of update published on the bus.
type EventType string

const (
	// EventTimelineUpdated fires after every reduced protocol event, so
	// observers see each intermediate state, not only the final one.
	EventTimelineUpdated EventType = "timeline.updated"
	// EventQuestionPending fires when an ask-user group opens.
	EventQuestionPending EventType = "timeline.question"
	// EventStreamDone fires on the terminal done event.
	EventStreamDone EventType = "stream.done"
	// EventStreamErrored fires on backend errors, transport failures, and
	// streams that end without a terminal event.
	EventStreamErrored EventType = "stream.errored"
	// EventStreamAborted fires on user-initiated cancellation.
	EventStreamAborted EventType = "stream.aborted"
)

// Event is one bus update. Message is always set; Group only accompanies
// EventQuestionPending, Err only EventStreamErrored.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   *timeline.Message
	Group     *timeline.PendingQuestionGroup
	Err       error
}

// NewEvent creates an event for the given message.
func NewEvent(eventType EventType, msg *timeline.Message) *Event {
	return &Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Message:   msg,
	}
}

var eventCounter atomic.Int64

func generateEventID() string {
	n := eventCounter.Add(1)
	return fmt.Sprintf("evt-%d-%d", time.Now().UnixMilli(), n)
}
