package pcktsim

// routes.go provides functions to create and access shortest path routes through the topology

import (
	"cmp"
	"math"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// The topology is converted into the weighted directed graph of the gonum graph
// package, holding only the active nodes and links.  The weight of an edge is the
// propagation delay of the link (in microseconds).  graph/path.DijkstraFrom computes
// the distance from a source to every reachable node; from those distances we
// extract, for every node, the predecessor on a shortest path.  Nodes are settled in
// order of distance; among equally short alternatives the settled predecessor with
// the lowest node id is taken, so that routes do not depend on map iteration order.
//
//   Predecessor tables are cached by source.  Each table remembers the topology
// version it was computed against; failing or recovering a node or link changes the
// version and so forces recomputation the next time a route from that source is needed.

// routeCache holds the gonum graph and the per-source predecessor tables
// computed for one topology version
type routeCache struct {
	version uint64
	valid   bool
	graph   *simple.WeightedDirectedGraph

	// key is the source node id, value maps a node id to its predecessor
	preds map[int64]map[int64]int64
}

func newRouteCache() routeCache {
	return routeCache{preds: make(map[int64]map[int64]int64)}
}

// linkWeight is the routing cost of a link
func linkWeight(link *NetworkLink) float64 {
	return float64(link.Delay)
}

// composeDist extends a distance by one edge, never shortening it
func composeDist(du, w float64) float64 {
	return math.Max(du, du+w)
}

// usable tells whether a link may carry routed traffic
func (topo *Topology) usable(link *NetworkLink) bool {
	if !link.active || link.From == link.To {
		return false
	}
	return topo.nodes[link.From].active && topo.nodes[link.To].active
}

// connGraph returns the gonum representation of the active part of the
// topology, rebuilding it (and dropping every cached route) if the topology
// changed since it was last built
func (topo *Topology) connGraph() *simple.WeightedDirectedGraph {
	rc := &topo.routes
	if rc.valid && rc.version == topo.version {
		return rc.graph
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, id := range topo.order {
		if topo.nodes[id].active {
			g.AddNode(simple.Node(id))
		}
	}
	for _, id := range topo.order {
		for _, link := range topo.adj[id] {
			if !topo.usable(link) {
				continue
			}
			// parallel links between the same pair: keep the cheapest
			w := linkWeight(link)
			if e := g.WeightedEdge(link.From, link.To); e != nil && e.Weight() <= w {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(link.From), T: simple.Node(link.To), W: w})
		}
	}

	rc.graph = g
	rc.version = topo.version
	rc.valid = true
	rc.preds = make(map[int64]map[int64]int64)
	return g
}

// predecessors returns the shortest path tree rooted in src, expressed as a
// map from each reachable node to its predecessor
func (topo *Topology) predecessors(src int64) map[int64]int64 {
	g := topo.connGraph()
	if preds, present := topo.routes.preds[src]; present {
		return preds
	}

	preds := make(map[int64]int64)
	topo.routes.preds[src] = preds
	if g.Node(src) == nil {
		return preds
	}

	spTree := path.DijkstraFrom(simple.Node(src), g)
	reached := make([]int64, 0, len(topo.order))
	for _, vid := range topo.order {
		if vid != src && g.Node(vid) != nil && !math.IsInf(spTree.WeightTo(vid), 1) {
			reached = append(reached, vid)
		}
	}
	slices.SortFunc(reached, func(a, b int64) int {
		if da, db := spTree.WeightTo(a), spTree.WeightTo(b); da != db {
			if da < db {
				return -1
			}
			return 1
		}
		return cmp.Compare(a, b)
	})

	// A node takes its predecessor among nodes whose own route is already
	// settled, so zero-delay links between equally distant nodes cannot
	// produce a cycle.
	settled := map[int64]bool{src: true}
	for lo := 0; lo < len(reached); {
		hi := lo
		for hi < len(reached) && spTree.WeightTo(reached[hi]) == spTree.WeightTo(reached[lo]) {
			hi++
		}
		pending := slices.Clone(reached[lo:hi])
		for len(pending) > 0 {
			progress := false
			for idx := 0; idx < len(pending); idx++ {
				vid := pending[idx]
				if best, found := settledPred(g, spTree, settled, vid); found {
					preds[vid] = best
					settled[vid] = true
					pending = slices.Delete(pending, idx, idx+1)
					progress = true
					break
				}
			}
			if !progress {
				break
			}
		}
		lo = hi
	}
	return preds
}

// settledPred returns the lowest-id settled neighbor of vid lying on a
// shortest path to it
func settledPred(g *simple.WeightedDirectedGraph, spTree path.Shortest,
	settled map[int64]bool, vid int64) (int64, bool) {

	dv := spTree.WeightTo(vid)
	best := int64(-1)
	found := false
	for nbrs := g.To(vid); nbrs.Next(); {
		uid := nbrs.Node().ID()
		if !settled[uid] {
			continue
		}
		w, _ := g.Weight(uid, vid)
		if composeDist(spTree.WeightTo(uid), w) != dv {
			continue
		}
		if !found || uid < best {
			best, found = uid, true
		}
	}
	return best, found
}

// NextHop returns the id of the node following src on a shortest path to dst.
// ErrNoRoute is returned when dst cannot be reached over active nodes and links.
func (topo *Topology) NextHop(src, dst int64) (int64, error) {
	route, err := topo.Route(src, dst)
	if err != nil {
		return -1, err
	}
	if len(route) == 1 {
		return dst, nil
	}
	return route[1], nil
}

// Route returns the sequence of node ids from src to dst, inclusive
func (topo *Topology) Route(src, dst int64) ([]int64, error) {
	if _, err := topo.Node(src); err != nil {
		return nil, err
	}
	if _, err := topo.Node(dst); err != nil {
		return nil, err
	}
	if src == dst {
		return []int64{src}, nil
	}

	preds := topo.predecessors(src)
	route := []int64{dst}
	for here := dst; here != src; {
		prev, present := preds[here]
		if !present {
			return nil, ErrNoRoute
		}
		route = append(route, prev)
		here = prev
	}
	slices.Reverse(route)
	return route, nil
}

// ShowPath returns a string that lists the names of all the nodes on the route
// from src to dst, separated by commas
func (topo *Topology) ShowPath(src, dst int64) (string, error) {
	route, err := topo.Route(src, dst)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(route))
	for _, id := range route {
		names = append(names, topo.nodes[id].Name)
	}
	return strings.Join(names, ","), nil
}

// RouteDelay returns the sum of the propagation delays along the route from src to dst
func (topo *Topology) RouteDelay(src, dst int64) (Time, error) {
	route, err := topo.Route(src, dst)
	if err != nil {
		return Zero, err
	}
	total := Zero
	for idx := 1; idx < len(route); idx++ {
		total = total.Add(topo.Link(route[idx-1], route[idx]).Delay)
	}
	return total, nil
}
