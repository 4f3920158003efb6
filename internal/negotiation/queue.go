package negotiation

import "sync"

// eventQueue is an unbounded FIFO with a single consumer. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return ev, true
}

// ready fires after at least one push since the last receive.
func (q *eventQueue) ready() <-chan struct{} {
	return q.notify
}
