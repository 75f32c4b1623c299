package controller

// EventKind tags controller events.
type EventKind string

const (
	EventState    EventKind = "state"
	EventFinished EventKind = "finished"
	EventFailed   EventKind = "failed"
)

// Event is published to subscribers on every state change and capture
// outcome.
type Event struct {
	Kind    EventKind `json:"kind"`
	State   State     `json:"state"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Subscribe returns a channel receiving controller events. Slow
// subscribers miss events rather than block the controller.
func (c *Controller) Subscribe() chan Event {
	ch := make(chan Event, 16)
	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription
func (c *Controller) Unsubscribe(ch chan Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if _, ok := c.subscribers[ch]; ok {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) publish(ev Event) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
