package events

import "sync"

// History keeps the most recent events in a ring so the admin API can
// answer "what happened lately" without a live subscription.
type History struct {
	broker *Broker
	sub    Subscriber

	mu  sync.Mutex
	buf []*Event
	max int
}

// NewHistory subscribes to the broker and retains up to max events.
func NewHistory(broker *Broker, max int) *History {
	if max < 1 {
		max = 100
	}
	h := &History{
		broker: broker,
		sub:    broker.Subscribe(),
		max:    max,
	}
	go h.run()
	return h
}

func (h *History) run() {
	for event := range h.sub {
		h.mu.Lock()
		h.buf = append(h.buf, event)
		if len(h.buf) > h.max {
			h.buf = h.buf[len(h.buf)-h.max:]
		}
		h.mu.Unlock()
	}
}

// Recent returns up to limit events, newest first. A non-positive
// limit returns everything retained.
func (h *History) Recent(limit int) []*Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.buf)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Event, n)
	for i := 0; i < n; i++ {
		out[i] = h.buf[len(h.buf)-1-i]
	}
	return out
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buf)
}

// Close detaches from the broker. The retained events stay readable.
func (h *History) Close() {
	h.broker.Unsubscribe(h.sub)
}
