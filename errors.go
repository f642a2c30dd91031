package pcktsim

import (
	"errors"
	"fmt"
)

// ErrNoRoute is returned by routing when the destination is not reachable over
// active nodes and links.  It is not fatal: the packet is dropped.
var ErrNoRoute = errors.New("no route to destination")

// CausalityViolationError is raised when an event would execute before the
// simulation clock.  It always indicates a defect in the kernel or in a cost model.
type CausalityViolationError struct {
	EventID   uint64
	EventTime Time
	Clock     Time
}

func (e *CausalityViolationError) Error() string {
	return fmt.Sprintf("causality violation: event %d at %v precedes simulation clock %v",
		e.EventID, e.EventTime, e.Clock)
}

// UnknownNodeError signals a reference to a node id missing from the topology
type UnknownNodeError struct {
	NodeID int64
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %d", e.NodeID)
}

// UnknownLinkError signals a reference to a link missing from the topology
type UnknownLinkError struct {
	From, To int64
}

func (e *UnknownLinkError) Error() string {
	return fmt.Sprintf("unknown link %d -> %d", e.From, e.To)
}

// UnresolvedDynamicSizeError is raised when a packet of dynamic size is
// attached to an event
type UnresolvedDynamicSizeError struct {
	Generator string
}

func (e *UnresolvedDynamicSizeError) Error() string {
	if e.Generator == "" {
		return "packet size is dynamic and was not resolved before sending"
	}
	return fmt.Sprintf("generator %s: packet size is dynamic and was not resolved before sending", e.Generator)
}

// ErrCausalityViolation creates a CausalityViolationError
func ErrCausalityViolation(id uint64, evtTime, clock Time) error {
	return &CausalityViolationError{EventID: id, EventTime: evtTime, Clock: clock}
}

// ErrUnknownNode creates an UnknownNodeError
func ErrUnknownNode(id int64) error {
	return &UnknownNodeError{NodeID: id}
}

// ErrUnknownLink creates an UnknownLinkError
func ErrUnknownLink(from, to int64) error {
	return &UnknownLinkError{From: from, To: to}
}

// ErrUnresolvedDynamicSize creates an UnresolvedDynamicSizeError
func ErrUnresolvedDynamicSize(generator string) error {
	return &UnresolvedDynamicSizeError{Generator: generator}
}

// IsFatal reports whether err must abort a simulation run
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, ErrNoRoute) {
		return false
	}
	return true
}
