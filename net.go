package pcktsim

// net.go holds the state machine that moves a packet event through the
// network, one hop per execution.  Where the event is decides what happens:
//
//   - at its source, the packet is serialized onto the outgoing link of the
//     route (unless the source transmits in parallel) and propagates to the next node
//   - at an intermediate node, the node's processing delay is paid, then the
//     packet is serialized onto the next link and propagates
//   - at its destination, the packet waits for the destination agent to be
//     free, is processed, and is handed to the agent's generators, whose
//     reactions are scheduled
//
// An agent is busy until the time recorded in its availableAt field. An event
// that finds its agent busy is not blocked, it is stamped with the time the
// agent becomes available and put back in the queue.

import (
	"errors"
)

// DropReason tells why a packet was lost
type DropReason int

const (
	// DropLinkError is a loss drawn against the link's error probability
	DropLinkError DropReason = iota

	// DropNoRoute means no active path led to the destination
	DropNoRoute

	// DropNodeDown means the packet reached a failed node
	DropNodeDown
)

var dropNames = map[DropReason]string{
	DropLinkError: "link-error", DropNoRoute: "no-route", DropNodeDown: "node-down"}

func (r DropReason) String() string {
	return dropNames[r]
}

// HopRecord describes one traversal of a link
type HopRecord struct {
	EventID uint64    `json:"eventid" yaml:"eventid"`
	FlowID  uint64    `json:"flowid" yaml:"flowid"`
	Kind    EventKind `json:"kind" yaml:"kind"`
	From    int64     `json:"from" yaml:"from"`
	To      int64     `json:"to" yaml:"to"`

	// when the packet is ready to leave From, and when it reaches To
	Start Time `json:"start" yaml:"start"`
	End   Time `json:"end" yaml:"end"`
}

// Delivery describes the processing of a packet at its destination
type Delivery struct {
	Node    int64
	Arrival Time

	// time from the creation of the event to the end of its processing
	Latency Time
}

// Drop describes the loss of a packet
type Drop struct {
	Node   int64
	Next   int64
	Reason DropReason
}

// execute performs the work of one event
func (es *EventScheduler) execute(evt *Event) error {
	if evt.Kind == TopologyChangeEvent {
		return es.applyChange(evt)
	}
	node, err := es.topo.Node(evt.currentNode)
	if err != nil {
		return err
	}
	if !node.active {
		es.drop(evt, node.ID, -1, DropNodeDown)
		return es.released(evt)
	}
	if evt.currentNode == evt.Dest.ID {
		return es.deliver(evt, node)
	}
	atSource := evt.atSource()
	if !atSource {
		evt.time = evt.time.Add(node.processingDelay(evt, es.clock))
	}
	return es.forward(evt, node, atSource)
}

// forward puts the event on the next link of its route
func (es *EventScheduler) forward(evt *Event, node *NetworkNode, atSource bool) error {
	next, err := es.topo.NextHop(node.ID, evt.Dest.ID)
	if errors.Is(err, ErrNoRoute) {
		es.drop(evt, node.ID, -1, DropNoRoute)
		return es.released(evt)
	}
	if err != nil {
		return err
	}
	link := es.topo.Link(node.ID, next)
	if link == nil {
		return ErrUnknownLink(node.ID, next)
	}

	start := evt.time
	src := evt.Source
	if atSource && !src.parallel {
		// the source sends one packet at a time
		evt.time = maxTime(evt.time, src.availableAt)
		evt.time = evt.time.Add(TransmissionTime(evt.Packet.Size, link.Bandwidth))
		src.availableAt = evt.time
	} else if !atSource {
		evt.time = evt.time.Add(TransmissionTime(evt.Packet.Size, link.Bandwidth))
	}
	if atSource {
		src.setClock(evt.time)
		if err := es.released(evt); err != nil {
			return err
		}
	}

	if link.lost() {
		es.drop(evt, node.ID, next, DropLinkError)
		return nil
	}

	evt.time = evt.time.Add(link.Delay)
	evt.currentNode = next
	evt.hops++

	hop := HopRecord{EventID: evt.id, FlowID: evt.FlowID, Kind: evt.Kind,
		From: node.ID, To: next, Start: start, End: evt.time}
	es.stats.Hops++
	if es.trace != nil {
		es.trace.Track(FormatHop(hop))
	}
	es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosHop, Item: evt, Detail: hop})

	return es.enqueue(evt)
}

// deliver processes the event at its destination and schedules the reactions
// of the destination agent
func (es *EventScheduler) deliver(evt *Event, node *NetworkNode) error {
	if !evt.Arrived() {
		evt.arrival = evt.time
	}
	dst := evt.Dest
	if dst.availableAt > evt.time {
		evt.time = dst.availableAt
		return es.enqueue(evt)
	}

	done := evt.time.Add(node.processingDelay(evt, es.clock))
	dst.availableAt = done
	dst.setClock(evt.arrival)

	es.stats.Delivered++
	es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosDelivered, Item: evt,
		Detail: Delivery{Node: node.ID, Arrival: evt.arrival, Latency: done.Sub(evt.created)}})

	followups, err := dst.fire(done, evt)
	if err != nil {
		return err
	}
	for _, f := range followups {
		if err := es.enqueue(f); err != nil {
			return err
		}
	}
	return nil
}

// released is called when a request leaves its source, by transmission or by
// being dropped there.  The generator that sent it gets the chance to send again.
func (es *EventScheduler) released(evt *Event) error {
	if evt.Kind != RequestEvent || evt.gen == nil || !evt.atSource() {
		return nil
	}
	return es.redrive(evt.gen, evt.time)
}

// redrive runs gen, without trigger, at time now
func (es *EventScheduler) redrive(gen *TrafficGenerator, now Time) error {
	followups, err := gen.agent.drive(gen, now, nil)
	if err != nil {
		return err
	}
	for _, f := range followups {
		if err := es.enqueue(f); err != nil {
			return err
		}
	}
	return nil
}

func (es *EventScheduler) drop(evt *Event, nodeID, next int64, reason DropReason) {
	es.stats.Dropped[reason.String()]++
	if es.verbose {
		kernelLog.Printf("%v dropped at node %d: %s", evt, nodeID, reason)
	}
	es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosDrop, Item: evt,
		Detail: Drop{Node: nodeID, Next: next, Reason: reason}})
}
