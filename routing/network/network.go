// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package network is the routing vocabulary shared by the model builders: nodes tagged with roles,
// directed arcs carrying distance, time and energy, and per-node time windows.
//
// A Network is immutable once built. New only rejects data that cannot describe any network
// (duplicates, dangling arcs, negative costs, inverted windows); the topology itself is trusted.
package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NodeID identifies a node.
type NodeID int

// Role is a bit set of node roles. A node may carry several roles.
type Role uint8

const (
	// Depot is where vehicles leave from and return to.
	Depot Role = 1 << iota
	// Demand nodes must be served: pit stops for the BSS model, mandatory visits for the UAV model.
	Demand
	// SwapPoint nodes offer a battery swap.
	SwapPoint
	// Transit nodes can be traversed but need no service.
	Transit
)

var roleNames = []struct {
	r    Role
	name string
}{{Depot, "depot"}, {Demand, "demand"}, {SwapPoint, "swap"}, {Transit, "transit"}}

func (r Role) String() string {
	var parts []string
	for _, rn := range roleNames {
		if r&rn.r != 0 {
			parts = append(parts, rn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseRole returns the role named `s`, as printed by Role.String.
func ParseRole(s string) (Role, error) {
	for _, rn := range roleNames {
		if rn.name == s {
			return rn.r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// TimeWindow is the closed interval `[Earliest, Latest]`.
type TimeWindow struct {
	Earliest int64
	Latest   int64
}

// Contains reports whether `v` lies in the window.
func (w TimeWindow) Contains(v int64) bool {
	return w.Earliest <= v && v <= w.Latest
}

// Node is a vertex of the network. Window is nil when the node has no time window.
type Node struct {
	ID     NodeID
	Roles  Role
	Window *TimeWindow
}

// Arc is a directed pair of nodes.
type Arc struct {
	From NodeID
	To   NodeID
}

func (a Arc) String() string {
	return fmt.Sprintf("(%d,%d)", a.From, a.To)
}

// ArcCost holds the non-negative costs of traversing an arc.
type ArcCost struct {
	Distance int64
	Time     int64
	Energy   int64
}

var (
	// ErrDuplicateNode is returned by New when two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrUnknownNode is returned by New when an arc references a node that does not exist.
	ErrUnknownNode = errors.New("arc references an unknown node")
	// ErrNegativeCost is returned by New when an arc has a negative cost.
	ErrNegativeCost = errors.New("negative arc cost")
	// ErrInvertedWindow is returned by New when a window ends before it starts.
	ErrInvertedWindow = errors.New("time window ends before it starts")
)

// Network is an immutable directed graph with roles, costs and windows.
type Network struct {
	nodes []Node
	index map[NodeID]int
	arcs  []Arc
	costs map[Arc]ArcCost
	succ  map[NodeID][]NodeID
	pred  map[NodeID][]NodeID
}

// New builds a Network. Nodes and arcs are copied.
func New(nodes []Node, arcs map[Arc]ArcCost) (*Network, error) {
	n := &Network{
		index: make(map[NodeID]int, len(nodes)),
		costs: make(map[Arc]ArcCost, len(arcs)),
		succ:  make(map[NodeID][]NodeID),
		pred:  make(map[NodeID][]NodeID),
	}
	for _, node := range nodes {
		if _, ok := n.index[node.ID]; ok {
			return nil, fmt.Errorf("node %d: %w", node.ID, ErrDuplicateNode)
		}
		if w := node.Window; w != nil {
			if w.Latest < w.Earliest {
				return nil, fmt.Errorf("node %d window [%d, %d]: %w", node.ID, w.Earliest, w.Latest, ErrInvertedWindow)
			}
			cp := *w
			node.Window = &cp
		}
		n.index[node.ID] = len(n.nodes)
		n.nodes = append(n.nodes, node)
	}
	sort.Slice(n.nodes, func(i, j int) bool { return n.nodes[i].ID < n.nodes[j].ID })
	for i, node := range n.nodes {
		n.index[node.ID] = i
	}

	for a, c := range arcs {
		if !n.Contains(a.From) || !n.Contains(a.To) {
			return nil, fmt.Errorf("arc %v: %w", a, ErrUnknownNode)
		}
		if c.Distance < 0 || c.Time < 0 || c.Energy < 0 {
			return nil, fmt.Errorf("arc %v cost %+v: %w", a, c, ErrNegativeCost)
		}
		n.arcs = append(n.arcs, a)
		n.costs[a] = c
	}
	sort.Slice(n.arcs, func(i, j int) bool {
		if n.arcs[i].From != n.arcs[j].From {
			return n.arcs[i].From < n.arcs[j].From
		}
		return n.arcs[i].To < n.arcs[j].To
	})
	for _, a := range n.arcs {
		n.succ[a.From] = append(n.succ[a.From], a.To)
		n.pred[a.To] = append(n.pred[a.To], a.From)
	}
	return n, nil
}

// Nodes returns every node sorted by ID.
func (n *Network) Nodes() []Node {
	return append([]Node(nil), n.nodes...)
}

// NodeIDs returns every node ID in increasing order.
func (n *Network) NodeIDs() []NodeID {
	ids := make([]NodeID, len(n.nodes))
	for i, node := range n.nodes {
		ids[i] = node.ID
	}
	return ids
}

// WithRole returns, in increasing order, the IDs of the nodes carrying any role of `r`.
func (n *Network) WithRole(r Role) []NodeID {
	var ids []NodeID
	for _, node := range n.nodes {
		if node.Roles&r != 0 {
			ids = append(ids, node.ID)
		}
	}
	return ids
}

// Depots returns the depot IDs.
func (n *Network) Depots() []NodeID { return n.WithRole(Depot) }

// Demand returns the demand node IDs.
func (n *Network) Demand() []NodeID { return n.WithRole(Demand) }

// SwapPoints returns the swap point IDs.
func (n *Network) SwapPoints() []NodeID { return n.WithRole(SwapPoint) }

// ServiceNodes returns the nodes that are swap points or demand nodes.
func (n *Network) ServiceNodes() []NodeID { return n.WithRole(SwapPoint | Demand) }

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int { return len(n.nodes) }

// NumArcs returns the number of arcs.
func (n *Network) NumArcs() int { return len(n.arcs) }

// Contains reports whether node `id` exists.
func (n *Network) Contains(id NodeID) bool {
	_, ok := n.index[id]
	return ok
}

// Has reports whether node `id` exists and carries role `r`.
func (n *Network) Has(id NodeID, r Role) bool {
	i, ok := n.index[id]
	return ok && n.nodes[i].Roles&r != 0
}

// Arcs returns every arc, sorted by tail then head.
func (n *Network) Arcs() []Arc {
	return append([]Arc(nil), n.arcs...)
}

// HasArc reports whether the arc `from -> to` exists.
func (n *Network) HasArc(from, to NodeID) bool {
	_, ok := n.costs[Arc{from, to}]
	return ok
}

// Cost returns the costs of arc `a`.
func (n *Network) Cost(a Arc) (ArcCost, bool) {
	c, ok := n.costs[a]
	return c, ok
}

// Successors returns the heads of the arcs leaving `id`, in increasing order.
func (n *Network) Successors(id NodeID) []NodeID { return n.succ[id] }

// Predecessors returns the tails of the arcs entering `id`, in increasing order.
func (n *Network) Predecessors(id NodeID) []NodeID { return n.pred[id] }

// Window returns the time window of `id`, if it has one.
func (n *Network) Window(id NodeID) (TimeWindow, bool) {
	i, ok := n.index[id]
	if !ok || n.nodes[i].Window == nil {
		return TimeWindow{}, false
	}
	return *n.nodes[i].Window, true
}

func (n *Network) extreme(cost func(ArcCost) int64, better func(a, b int64) bool) int64 {
	var best int64
	for i, a := range n.arcs {
		if v := cost(n.costs[a]); i == 0 || better(v, best) {
			best = v
		}
	}
	return best
}

func larger(a, b int64) bool  { return a > b }
func smaller(a, b int64) bool { return a < b }

// MaxDistance returns the largest arc distance, 0 without arcs.
func (n *Network) MaxDistance() int64 {
	return n.extreme(func(c ArcCost) int64 { return c.Distance }, larger)
}

// MaxTime returns the largest arc time, 0 without arcs.
func (n *Network) MaxTime() int64 {
	return n.extreme(func(c ArcCost) int64 { return c.Time }, larger)
}

// MaxEnergy returns the largest arc energy, 0 without arcs.
func (n *Network) MaxEnergy() int64 {
	return n.extreme(func(c ArcCost) int64 { return c.Energy }, larger)
}

// MinEnergy returns the smallest arc energy, 0 without arcs.
func (n *Network) MinEnergy() int64 {
	return n.extreme(func(c ArcCost) int64 { return c.Energy }, smaller)
}

// MaxLatest returns the largest window end over all nodes, 0 without windows.
func (n *Network) MaxLatest() int64 {
	var m int64
	for _, node := range n.nodes {
		if node.Window != nil && node.Window.Latest > m {
			m = node.Window.Latest
		}
	}
	return m
}
