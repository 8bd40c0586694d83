package answers

import "github.com/desertthunder/trackguess/internal/models"

// EventKind identifies what changed.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventSlotAdded
	EventSlotRemoved
	EventPending
	EventSaved
	EventQuestionChanged
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventSlotAdded:
		return "slot_added"
	case EventSlotRemoved:
		return "slot_removed"
	case EventPending:
		return "pending"
	case EventSaved:
		return "saved"
	case EventQuestionChanged:
		return "question_changed"
	case EventFailed:
		return "failed"
	default:
		return ""
	}
}

// Event is published after every slot mutation.
//
// Slot is the affected slot after the change (its pre-removal value for [EventSlotRemoved]).
type Event struct {
	Kind      EventKind
	Index     int
	Slot      models.Slot
	Readiness Status
	Err       error
}

// sendEvent publishes without blocking; updates are dropped when the channel is full.
func sendEvent(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
