package pcktsim

import (
	"fmt"
	"sync/atomic"
)

// EventKind distinguishes the work items held by the scheduler.  The order of
// the constants is the order in which same-time events are executed.
type EventKind int

const (
	TopologyChangeEvent EventKind = iota
	RequestEvent
	ResponseEvent
)

var kindNames = map[EventKind]string{
	TopologyChangeEvent: "topology", RequestEvent: "request", ResponseEvent: "response"}

func (k EventKind) String() string {
	return kindNames[k]
}

// traceFlag is the code written for the kind in hop trace lines
func (k EventKind) traceFlag() int {
	if k == ResponseEvent {
		return -1
	}
	return 1
}

// numberOfEvents counts the events created, and so provides the unique
// identities that break ordering ties
var numberOfEvents uint64

func nxtEventID() uint64 {
	return atomic.AddUint64(&numberOfEvents, 1)
}

// Event is one packet in motion, or a change to the topology.
// A packet event keeps its identity for the whole of its trip; its time and
// current node advance hop by hop.
type Event struct {
	id   uint64
	Kind EventKind

	time    Time
	arrival Time
	created Time

	Source *Agent
	Dest   *Agent

	currentNode int64
	hops        int

	Packet *Packet
	FlowID uint64

	change *TopologyChange

	// generator that created the event, if any
	gen *TrafficGenerator

	// position in the scheduler heap, -1 when not queued
	index int
}

func newEvent(kind EventKind, at Time) *Event {
	return &Event{id: nxtEventID(), Kind: kind, time: at, arrival: Dynamic, created: at, index: -1}
}

// NewRequest creates a request carrying pkt from src to dst, leaving src at time at.
// The packet must have a resolved size.
func NewRequest(src, dst *Agent, pkt *Packet, at Time, flowID uint64) (*Event, error) {
	if err := checkPacketEvent(src, dst, pkt); err != nil {
		return nil, err
	}
	evt := newEvent(RequestEvent, at)
	evt.Source, evt.Dest = src, dst
	evt.currentNode = src.ID
	evt.Packet = pkt
	evt.FlowID = flowID
	return evt, nil
}

// NewResponse creates the answer to req, leaving the request's destination at time at
func NewResponse(req *Event, pkt *Packet, at Time) (*Event, error) {
	if req == nil || req.Kind != RequestEvent {
		return nil, fmt.Errorf("a response must answer a request")
	}
	if err := checkPacketEvent(req.Dest, req.Source, pkt); err != nil {
		return nil, err
	}
	evt := newEvent(ResponseEvent, at)
	evt.Source, evt.Dest = req.Dest, req.Source
	evt.currentNode = req.Dest.ID
	evt.Packet = pkt
	evt.FlowID = req.FlowID
	return evt, nil
}

func checkPacketEvent(src, dst *Agent, pkt *Packet) error {
	if src == nil || dst == nil {
		return fmt.Errorf("packet event needs both a source and a destination agent")
	}
	if pkt == nil {
		return fmt.Errorf("packet event from agent %d carries no packet", src.ID)
	}
	if pkt.IsDynamic() {
		return ErrUnresolvedDynamicSize("")
	}
	return nil
}

func (evt *Event) ID() uint64 { return evt.id }

// Time is when the event is next due to be executed
func (evt *Event) Time() Time { return evt.time }

// Created is the time the event was created at
func (evt *Event) Created() Time { return evt.created }

// ArrivalTime is when the event first reached its destination, Dynamic if it has not
func (evt *Event) ArrivalTime() Time { return evt.arrival }

// Arrived reports whether the event has reached its destination
func (evt *Event) Arrived() bool { return !evt.arrival.IsDynamic() }

// CurrentNode is the node the event is at, or headed to
func (evt *Event) CurrentNode() int64 { return evt.currentNode }

// Hops is the number of links crossed so far
func (evt *Event) Hops() int { return evt.hops }

func (evt *Event) IsRequest() bool  { return evt.Kind == RequestEvent }
func (evt *Event) IsResponse() bool { return evt.Kind == ResponseEvent }

// Change returns the topology change carried by a TopologyChangeEvent
func (evt *Event) Change() *TopologyChange { return evt.change }

// Queued reports whether the event waits in a scheduler queue
func (evt *Event) Queued() bool { return evt.index >= 0 }

// atSource is true while the event has not left its source node
func (evt *Event) atSource() bool {
	return evt.hops == 0 && evt.currentNode == evt.Source.ID
}

// before is the total order of events: by time, then events not yet delivered
// ahead of delivered ones (earlier arrival first), then by kind, then by identity
func (evt *Event) before(other *Event) bool {
	if evt.time != other.time {
		return evt.time < other.time
	}
	a, b := evt.Arrived(), other.Arrived()
	if a != b {
		return !a
	}
	if a && evt.arrival != other.arrival {
		return evt.arrival < other.arrival
	}
	if evt.Kind != other.Kind {
		return evt.Kind < other.Kind
	}
	return evt.id < other.id
}

func (evt *Event) String() string {
	if evt.Kind == TopologyChangeEvent {
		return fmt.Sprintf("event %d (%s) at %v", evt.id, evt.change, evt.time)
	}
	return fmt.Sprintf("event %d (%s flow %d, %d->%d) at node %d, %v",
		evt.id, evt.Kind, evt.FlowID, evt.Source.ID, evt.Dest.ID, evt.currentNode, evt.time)
}
