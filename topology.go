package pcktsim

// topology.go holds the nodes and links of the simulated network, the
// flags that let a model fail and recover them, and the version stamp that
// keeps cached routes honest when it does

import (
	"fmt"

	"github.com/iti/rngstream"
)

// defaultMTU is used for links whose description gives none
const defaultMTU = 1500

// A NodeHandler replaces a node's fixed processing delay with one computed
// for each packet that visits it
type NodeHandler interface {
	ProcessingDelay(node *NetworkNode, evt *Event, now Time) Time
}

// NodeHandlerFunc adapts a function to the NodeHandler interface
type NodeHandlerFunc func(node *NetworkNode, evt *Event, now Time) Time

func (f NodeHandlerFunc) ProcessingDelay(node *NetworkNode, evt *Event, now Time) Time {
	return f(node, evt, now)
}

// NetworkNode is a device of the topology: a host, switch or router
type NetworkNode struct {
	ID    int64
	Name  string
	Kind  NodeKind
	Tcalc Time

	// drawing position, carried through descriptions for external viewers
	XPos, YPos int

	active  bool
	index   int
	agent   *Agent
	handler NodeHandler
}

// Active reports whether the node currently takes part in routing
func (n *NetworkNode) Active() bool {
	return n.active
}

// Index is the position of the node in insertion order, stable for a topology build
func (n *NetworkNode) Index() int {
	return n.index
}

// Agent returns the agent bound to the node, or nil
func (n *NetworkNode) Agent() *Agent {
	return n.agent
}

// SetHandler registers a handler computing the node's processing delay
func (n *NetworkNode) SetHandler(h NodeHandler) {
	n.handler = h
}

// processingDelay is the time a packet spends in the node before moving on
func (n *NetworkNode) processingDelay(evt *Event, now Time) Time {
	if n.handler != nil {
		return maxTime(n.handler.ProcessingDelay(n, evt, now), Zero)
	}
	return n.Tcalc
}

// NetworkLink is one direction of a connection between two nodes
type NetworkLink struct {
	From, To int64

	// bits per second
	Bandwidth float64

	// propagation delay
	Delay Time

	MTU       int
	ErrorRate float64
	Kind      LinkKind

	active  bool
	reverse *NetworkLink

	// the record a duplex description created first
	primary bool

	rng *rngstream.RngStream
}

// Active reports whether the link currently carries traffic
func (l *NetworkLink) Active() bool {
	return l.active
}

// Reverse returns the opposite direction of a duplex link, or nil
func (l *NetworkLink) Reverse() *NetworkLink {
	return l.reverse
}

// lost draws against the link's error probability
func (l *NetworkLink) lost() bool {
	if l.ErrorRate <= 0 {
		return false
	}
	return l.rng.RandU01() < l.ErrorRate
}

func (l *NetworkLink) String() string {
	return fmt.Sprintf("%d->%d", l.From, l.To)
}

// LinkSpec gathers the parameters of a link to be added to a topology
type LinkSpec struct {
	From, To  int64
	Bandwidth float64
	Delay     Time
	MTU       int
	ErrorRate float64
	Kind      LinkKind
}

// Topology is the network over which events travel
type Topology struct {
	Name string

	nodes map[int64]*NetworkNode
	order []int64
	adj   map[int64][]*NetworkLink

	// incremented on every change that can alter a route
	version uint64

	routes routeCache
}

// CreateTopology is a constructor
func CreateTopology(name string) *Topology {
	topo := new(Topology)
	topo.Name = name
	topo.nodes = make(map[int64]*NetworkNode)
	topo.order = []int64{}
	topo.adj = make(map[int64][]*NetworkLink)
	topo.routes = newRouteCache()
	return topo
}

// AddNode creates a node and adds it to the topology.  A negative tcalc
// selects the default processing delay of the node's kind.
func (topo *Topology) AddNode(id int64, name string, kind NodeKind, tcalc Time) (*NetworkNode, error) {
	if _, present := topo.nodes[id]; present {
		return nil, fmt.Errorf("duplicated node id %d in topology %s", id, topo.Name)
	}
	if tcalc < 0 {
		tcalc = kind.DefaultTcalc()
	}
	if name == "" {
		name = fmt.Sprintf("%s-%d", kind, id)
	}
	node := &NetworkNode{ID: id, Name: name, Kind: kind, Tcalc: tcalc, active: true, index: len(topo.order)}
	topo.nodes[id] = node
	topo.order = append(topo.order, id)
	topo.version++
	return node, nil
}

// AddLink adds the link described by spec.  A duplex spec is materialized as
// two unidirectional records, each with its own active flag; both are returned.
func (topo *Topology) AddLink(spec LinkSpec) ([]*NetworkLink, error) {
	for _, id := range []int64{spec.From, spec.To} {
		if _, present := topo.nodes[id]; !present {
			return nil, ErrUnknownNode(id)
		}
	}
	if spec.Bandwidth <= 0 {
		return nil, fmt.Errorf("link %d->%d: bandwidth must be positive", spec.From, spec.To)
	}
	if spec.Delay < 0 {
		return nil, fmt.Errorf("link %d->%d: negative propagation delay", spec.From, spec.To)
	}
	if spec.ErrorRate < 0 || spec.ErrorRate > 1 {
		return nil, fmt.Errorf("link %d->%d: error rate %g outside [0,1]", spec.From, spec.To, spec.ErrorRate)
	}
	if spec.MTU <= 0 {
		spec.MTU = defaultMTU
	}

	fwd := topo.newLink(spec.From, spec.To, spec)
	fwd.primary = true
	links := []*NetworkLink{fwd}
	if spec.Kind == Duplex {
		rev := topo.newLink(spec.To, spec.From, spec)
		fwd.reverse, rev.reverse = rev, fwd
		links = append(links, rev)
	}
	topo.version++
	return links, nil
}

func (topo *Topology) newLink(from, to int64, spec LinkSpec) *NetworkLink {
	link := &NetworkLink{From: from, To: to, Bandwidth: spec.Bandwidth, Delay: spec.Delay,
		MTU: spec.MTU, ErrorRate: spec.ErrorRate, Kind: spec.Kind, active: true}
	link.rng = rngstream.New(fmt.Sprintf("%s:link:%d-%d:%d", topo.Name, from, to, len(topo.adj[from])))
	topo.adj[from] = append(topo.adj[from], link)
	return link
}

// Node returns the node with the given id
func (topo *Topology) Node(id int64) (*NetworkNode, error) {
	node, present := topo.nodes[id]
	if !present {
		return nil, ErrUnknownNode(id)
	}
	return node, nil
}

// Nodes returns all nodes in insertion order
func (topo *Topology) Nodes() []*NetworkNode {
	nodes := make([]*NetworkNode, 0, len(topo.order))
	for _, id := range topo.order {
		nodes = append(nodes, topo.nodes[id])
	}
	return nodes
}

// NumNodes returns the number of nodes in the topology
func (topo *Topology) NumNodes() int {
	return len(topo.order)
}

// OutLinks returns the links leaving node id, active or not
func (topo *Topology) OutLinks(id int64) []*NetworkLink {
	return topo.adj[id]
}

// Links returns every link record, grouped by source in node insertion order
func (topo *Topology) Links() []*NetworkLink {
	links := []*NetworkLink{}
	for _, id := range topo.order {
		links = append(links, topo.adj[id]...)
	}
	return links
}

// Link returns the active link from a to b, or nil if there is none
func (topo *Topology) Link(a, b int64) *NetworkLink {
	for _, link := range topo.adj[a] {
		if link.To == b && link.active {
			return link
		}
	}
	return nil
}

// linkRecord returns the first link from a to b regardless of its active flag
func (topo *Topology) linkRecord(a, b int64) *NetworkLink {
	for _, link := range topo.adj[a] {
		if link.To == b {
			return link
		}
	}
	return nil
}

// SetLinkActive fails or recovers every link record from a to b.  The
// opposite direction of a duplex link is not affected.
func (topo *Topology) SetLinkActive(a, b int64, active bool) error {
	if topo.linkRecord(a, b) == nil {
		return ErrUnknownLink(a, b)
	}
	for _, link := range topo.adj[a] {
		if link.To == b && link.active != active {
			link.active = active
			topo.version++
		}
	}
	return nil
}

// SetNodeActive fails or recovers a node
func (topo *Topology) SetNodeActive(id int64, active bool) error {
	node, err := topo.Node(id)
	if err != nil {
		return err
	}
	if node.active != active {
		node.active = active
		topo.version++
	}
	return nil
}

// Version identifies the current state of the topology; it changes whenever
// a node or link is added, failed or recovered
func (topo *Topology) Version() uint64 {
	return topo.version
}

// attachAgent binds agent to the node sharing its id
func (topo *Topology) attachAgent(agent *Agent) error {
	node, err := topo.Node(agent.ID)
	if err != nil {
		return err
	}
	if node.agent != nil && node.agent != agent {
		return fmt.Errorf("node %d already has an agent", agent.ID)
	}
	if agent.node != nil && agent.node != node {
		return fmt.Errorf("agent %d is already bound to another topology", agent.ID)
	}
	node.agent = agent
	agent.node = node
	return nil
}
