package pcktsim

// kind.go holds the closed set of node kinds, and the table of behaviors
// attached to each

import (
	"fmt"
	"strings"
)

// NodeKind identifies the role of a node in the topology
type NodeKind int

const (
	HostKind NodeKind = iota
	SwitchKind
	RouterKind
)

type kindBehavior struct {
	name string

	// processing delay used when a description does not give one
	defaultTcalc Time
}

var kindTable = map[NodeKind]kindBehavior{
	HostKind:   {name: "host", defaultTcalc: 0},
	SwitchKind: {name: "switch", defaultTcalc: 10},
	RouterKind: {name: "router", defaultTcalc: 100},
}

// ParseNodeKind maps "host", "switch" or "router" (any case) to a NodeKind.
// The empty string is a host.
func ParseNodeKind(name string) (NodeKind, error) {
	if name == "" {
		return HostKind, nil
	}
	for kind, behavior := range kindTable {
		if strings.EqualFold(behavior.name, name) {
			return kind, nil
		}
	}
	return HostKind, fmt.Errorf("unknown node kind %q", name)
}

func (k NodeKind) String() string {
	return kindTable[k].name
}

// DefaultTcalc is the processing delay given to nodes of this kind when none is configured
func (k NodeKind) DefaultTcalc() Time {
	return kindTable[k].defaultTcalc
}

// LinkKind tells whether a link description is one or two directional
type LinkKind int

const (
	Simplex LinkKind = iota
	Duplex
)

// ParseLinkKind accepts "simplex" (or "") and "duplex"
func ParseLinkKind(name string) (LinkKind, error) {
	switch strings.ToLower(name) {
	case "", "simplex":
		return Simplex, nil
	case "duplex":
		return Duplex, nil
	}
	return Simplex, fmt.Errorf("unknown link type %q", name)
}

func (k LinkKind) String() string {
	if k == Duplex {
		return "duplex"
	}
	return "simplex"
}
