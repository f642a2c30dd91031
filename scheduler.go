package pcktsim

// scheduler.go holds the global event queue and the loop that drives a
// simulation run.  Events are popped in order, checked against the
// simulation clock, and executed; execution may queue further events.
// The loop runs on the caller's goroutine and nothing in it is shared
// with other runs.

import (
	"fmt"
	"sort"
)

// RunStats counts what happened during a run
type RunStats struct {
	Executed  uint64            `json:"executed" yaml:"executed"`
	Hops      uint64            `json:"hops" yaml:"hops"`
	Delivered uint64            `json:"delivered" yaml:"delivered"`
	Discarded uint64            `json:"discarded" yaml:"discarded"`
	Dropped   map[string]uint64 `json:"dropped" yaml:"dropped"`
}

// TotalDropped sums the drops over every reason
func (rs RunStats) TotalDropped() uint64 {
	var n uint64
	for _, cnt := range rs.Dropped {
		n += cnt
	}
	return n
}

func (rs RunStats) String() string {
	reasons := make([]string, 0, len(rs.Dropped))
	for reason := range rs.Dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	str := fmt.Sprintf("executed %d, hops %d, delivered %d, discarded %d",
		rs.Executed, rs.Hops, rs.Delivered, rs.Discarded)
	for _, reason := range reasons {
		str += fmt.Sprintf(", dropped(%s) %d", reason, rs.Dropped[reason])
	}
	return str
}

// EventScheduler owns the simulation clock and the queue of pending events
type EventScheduler struct {
	*HookableBase

	topo  *Topology
	queue *EventQueue
	clock Time
	trace TraceSink

	verbose bool
	stopped bool
	stats   RunStats
}

// CreateEventScheduler is a constructor
func CreateEventScheduler(topo *Topology) *EventScheduler {
	es := new(EventScheduler)
	es.HookableBase = NewHookableBase()
	es.topo = topo
	es.queue = NewEventQueue()
	es.stats.Dropped = make(map[string]uint64)
	return es
}

// Topology returns the network the scheduler moves events over
func (es *EventScheduler) Topology() *Topology {
	return es.topo
}

// SetTraceSink directs the hop trace to sink; nil turns tracing off
func (es *EventScheduler) SetTraceSink(sink TraceSink) {
	es.trace = sink
}

// SetVerbose turns logging of drops and topology changes on or off
func (es *EventScheduler) SetVerbose(verbose bool) {
	es.verbose = verbose
}

// Now returns the simulation clock
func (es *EventScheduler) Now() Time {
	return es.clock
}

// Len returns the number of pending events
func (es *EventScheduler) Len() int {
	return es.queue.Len()
}

// Peek returns the next event to execute, or nil
func (es *EventScheduler) Peek() *Event {
	return es.queue.Peek()
}

// Stats returns a copy of the run counters
func (es *EventScheduler) Stats() RunStats {
	stats := es.stats
	stats.Dropped = make(map[string]uint64, len(es.stats.Dropped))
	for reason, cnt := range es.stats.Dropped {
		stats.Dropped[reason] = cnt
	}
	return stats
}

// Schedule queues events.  Either all of them are queued or, if one of them
// is invalid, none is: an event due before the simulation clock is a
// CausalityViolationError.
func (es *EventScheduler) Schedule(events ...*Event) error {
	for _, evt := range events {
		if evt == nil {
			return fmt.Errorf("cannot schedule a nil event")
		}
		if evt.Queued() {
			return fmt.Errorf("%v is already queued", evt)
		}
		if evt.time.IsDynamic() {
			return fmt.Errorf("%v has no resolved time", evt)
		}
		if evt.time < es.clock {
			return ErrCausalityViolation(evt.id, evt.time, es.clock)
		}
	}
	for _, evt := range events {
		es.queue.Push(evt)
	}
	return nil
}

// Remove cancels a queued event, reporting whether it was found
func (es *EventScheduler) Remove(evt *Event) bool {
	return es.queue.Remove(evt)
}

// Stop ends the run once the event being executed completes
func (es *EventScheduler) Stop() {
	es.stopped = true
}

// RunUntilDurationOrEmpty executes events in order until the queue is empty,
// Stop is called, or the next event is due after maxDuration.  Events past the
// horizon are discarded.  A non-nil error means the run was aborted.
func (es *EventScheduler) RunUntilDurationOrEmpty(maxDuration Time) error {
	es.stopped = false
	for es.queue.Len() > 0 && !es.stopped {
		evt := es.queue.Pop()
		if evt.time > maxDuration {
			es.stats.Discarded += uint64(es.queue.Len() + 1)
			es.queue.Clear()
			break
		}
		if evt.time < es.clock {
			return ErrCausalityViolation(evt.id, evt.time, es.clock)
		}
		es.clock = evt.time

		es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosBeforeEvent, Item: evt})
		if err := es.execute(evt); err != nil {
			return fmt.Errorf("executing %v: %w", evt, err)
		}
		es.stats.Executed++
		es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosAfterEvent, Item: evt})
	}
	return nil
}

// enqueue puts an event produced during execution back in the queue
func (es *EventScheduler) enqueue(evt *Event) error {
	if evt.time < es.clock {
		return ErrCausalityViolation(evt.id, evt.time, es.clock)
	}
	es.queue.Push(evt)
	return nil
}
