package pcktsim

// external.go holds the events that change the topology while a simulation
// runs: a node or link is failed, or recovered, at a given time

import "fmt"

// ChangeTarget tells whether a change concerns a node or a link
type ChangeTarget int

const (
	LinkChange ChangeTarget = iota
	NodeChange
)

// TopologyChange fails (Active false) or recovers (Active true) a node or a link.
// For a node change only From is used.
type TopologyChange struct {
	Target   ChangeTarget
	From, To int64
	Active   bool
}

func (tc *TopologyChange) String() string {
	state := "down"
	if tc.Active {
		state = "up"
	}
	if tc.Target == NodeChange {
		return fmt.Sprintf("node %d %s", tc.From, state)
	}
	return fmt.Sprintf("link %d->%d %s", tc.From, tc.To, state)
}

// NewLinkChange creates the event setting the active flag of link from->to at time at
func NewLinkChange(at Time, from, to int64, active bool) *Event {
	evt := newEvent(TopologyChangeEvent, at)
	evt.change = &TopologyChange{Target: LinkChange, From: from, To: to, Active: active}
	return evt
}

// NewNodeChange creates the event setting the active flag of node id at time at
func NewNodeChange(at Time, id int64, active bool) *Event {
	evt := newEvent(TopologyChangeEvent, at)
	evt.change = &TopologyChange{Target: NodeChange, From: id, Active: active}
	return evt
}

// applyChange executes a topology change event
func (es *EventScheduler) applyChange(evt *Event) error {
	tc := evt.change
	var err error
	if tc.Target == NodeChange {
		err = es.topo.SetNodeActive(tc.From, tc.Active)
	} else {
		err = es.topo.SetLinkActive(tc.From, tc.To, tc.Active)
	}
	if err != nil {
		return err
	}
	if es.verbose {
		kernelLog.Printf("%v at %v", tc, es.clock)
	}
	es.InvokeHook(HookCtx{Now: es.clock, Pos: HookPosTopologyChange, Item: tc})
	return nil
}
