package pcktsim

import "container/heap"

// eventHeap and its methods implement a min-priority heap on the event order.
// Every event remembers its index so that it can be removed by identity.
type eventHeap []*Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	evt := x.(*Event)
	evt.index = len(*h)
	*h = append(*h, evt)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	evt.index = -1
	*h = old[0 : n-1]
	return evt
}

// EventQueue holds the pending events in execution order
type EventQueue struct {
	events eventHeap
}

// NewEventQueue is a constructor
func NewEventQueue() *EventQueue {
	q := new(EventQueue)
	q.events = make(eventHeap, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the queue
func (q *EventQueue) Push(evt *Event) {
	heap.Push(&q.events, evt)
}

// Pop removes and returns the first event
func (q *EventQueue) Pop() *Event {
	return heap.Pop(&q.events).(*Event)
}

// Peek returns the first event without removing it, nil if the queue is empty
func (q *EventQueue) Peek() *Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// Remove takes evt out of the queue, reporting whether it was there
func (q *EventQueue) Remove(evt *Event) bool {
	idx := evt.index
	if idx < 0 || idx >= len(q.events) || q.events[idx] != evt {
		return false
	}
	heap.Remove(&q.events, idx)
	return true
}

// Len returns the number of queued events
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Clear discards every queued event
func (q *EventQueue) Clear() {
	for _, evt := range q.events {
		evt.index = -1
	}
	q.events = q.events[:0]
}
