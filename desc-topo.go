package pcktsim

// desc-topo.go holds the serializable description of a topology.  A TopoDesc
// is read from (or written to) a yaml or json file, and transformed into the
// Topology a simulation runs over.  Times in a description are in
// milliseconds, bandwidths in megabits (2^20 bits) per second.

import (
	"fmt"
)

// NodeDesc describes a node.  A missing delay selects the default
// processing delay of the node's kind.
type NodeDesc struct {
	ID    int64    `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Kind  string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Delay *float64 `json:"delay,omitempty" yaml:"delay,omitempty"`
	XPos  int      `json:"xPos,omitempty" yaml:"xPos,omitempty"`
	YPos  int      `json:"yPos,omitempty" yaml:"yPos,omitempty"`
}

// LinkDesc describes a link.  LinkType is "simplex" (the default) or "duplex".
type LinkDesc struct {
	FromID    int64   `json:"fromId" yaml:"fromId"`
	DestID    int64   `json:"destId" yaml:"destId"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Delay     float64 `json:"delay" yaml:"delay"`
	MTU       int     `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	ErrorRate float64 `json:"errorRate,omitempty" yaml:"errorRate,omitempty"`
	LinkType  string  `json:"linkType,omitempty" yaml:"linkType,omitempty"`
}

// TopoDesc is the serializable description of a topology
type TopoDesc struct {
	Name  string     `json:"name" yaml:"name"`
	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
	Links []LinkDesc `json:"links" yaml:"links"`
}

// CreateTopoDesc is a constructor
func CreateTopoDesc(name string) *TopoDesc {
	td := new(TopoDesc)
	td.Name = name
	td.Nodes = make([]NodeDesc, 0)
	td.Links = make([]LinkDesc, 0)
	return td
}

// AddNode appends a node description, rejecting a duplicated id
func (td *TopoDesc) AddNode(nd NodeDesc) error {
	for _, stored := range td.Nodes {
		if stored.ID == nd.ID {
			return fmt.Errorf("node id %d already described in %s", nd.ID, td.Name)
		}
	}
	td.Nodes = append(td.Nodes, nd)
	return nil
}

// AddLink appends a link description
func (td *TopoDesc) AddLink(ld LinkDesc) {
	td.Links = append(td.Links, ld)
}

// WriteToFile stores the TopoDesc to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (td *TopoDesc) WriteToFile(filename string) error {
	return writeDescFile(filename, td)
}

// ReadTopoDesc deserializes a byte slice holding a representation of a TopoDesc.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	td := CreateTopoDesc("")
	if err := readDescFile(filename, useYAML, dict, td); err != nil {
		return nil, fmt.Errorf("reading topology %s: %w", filename, err)
	}
	return td, nil
}

// BuildTopology transforms the description into a Topology
func (td *TopoDesc) BuildTopology() (*Topology, error) {
	topo := CreateTopology(td.Name)
	for _, nd := range td.Nodes {
		kind, err := ParseNodeKind(nd.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nd.ID, err)
		}
		tcalc := Time(-1)
		if nd.Delay != nil {
			tcalc = TimeOf(*nd.Delay, Millisecond)
		}
		node, err := topo.AddNode(nd.ID, nd.Name, kind, tcalc)
		if err != nil {
			return nil, err
		}
		node.XPos, node.YPos = nd.XPos, nd.YPos
	}
	for _, ld := range td.Links {
		kind, err := ParseLinkKind(ld.LinkType)
		if err != nil {
			return nil, fmt.Errorf("link %d->%d: %w", ld.FromID, ld.DestID, err)
		}
		spec := LinkSpec{
			From:      ld.FromID,
			To:        ld.DestID,
			Bandwidth: ld.Bandwidth * float64(Megabit),
			Delay:     TimeOf(ld.Delay, Millisecond),
			MTU:       ld.MTU,
			ErrorRate: ld.ErrorRate,
			Kind:      kind,
		}
		if _, err := topo.AddLink(spec); err != nil {
			return nil, err
		}
	}
	return topo, nil
}

// TransformTopology creates the description of a topology.  A duplex link is
// described once.
func TransformTopology(topo *Topology) *TopoDesc {
	td := CreateTopoDesc(topo.Name)
	for _, node := range topo.Nodes() {
		delay := node.Tcalc.Millis()
		td.Nodes = append(td.Nodes, NodeDesc{ID: node.ID, Name: node.Name, Kind: node.Kind.String(),
			Delay: &delay, XPos: node.XPos, YPos: node.YPos})
	}
	for _, link := range topo.Links() {
		if !link.primary {
			continue
		}
		td.Links = append(td.Links, LinkDesc{
			FromID:    link.From,
			DestID:    link.To,
			Bandwidth: link.Bandwidth / float64(Megabit),
			Delay:     link.Delay.Millis(),
			MTU:       link.MTU,
			ErrorRate: link.ErrorRate,
			LinkType:  link.Kind.String(),
		})
	}
	return td
}
