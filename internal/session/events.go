package session

// EventKind names what changed.
type EventKind string

const (
	EventLoaded    EventKind = "loaded"
	EventPhase     EventKind = "phase"
	EventFeedback  EventKind = "feedback"
	EventCompleted EventKind = "completed"
	EventError     EventKind = "error"
	EventItem      EventKind = "item"
)

// Event is published to subscribers on every state change.
type Event struct {
	Kind     EventKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Subscribe returns a channel of events and a function to unsubscribe.
// Events are dropped for a subscriber whose buffer is full.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
}

func (c *Controller) publish(kind EventKind) {
	event := Event{Kind: kind, Snapshot: c.Snapshot()}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
