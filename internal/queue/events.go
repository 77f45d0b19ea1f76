package queue

import "github.com/kelpmedia/kelp/pkg/models"

// Event types published on the bus. Events for a given item are published
// from its owning worker, so per-item ordering matches the actual status
// changes; events across items interleave arbitrarily.
const (
	EventItemQueued    = "queue.item.queued"
	EventItemStarted   = "queue.item.started"
	EventItemProgress  = "queue.item.progress"
	EventItemCompleted = "queue.item.completed"
	EventItemFailed    = "queue.item.failed"
	EventItemCancelled = "queue.item.cancelled"
)

// ItemEvent carries a point-in-time snapshot of a queue item.
type ItemEvent struct {
	Type string
	Item models.QueueItem
}

// EventType implements events.Event.
func (e ItemEvent) EventType() string { return e.Type }
