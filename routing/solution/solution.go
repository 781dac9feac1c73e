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

// Package solution reshapes the flat values returned by a solve into class-indexed records.
//
// Decoding never transforms a value: a (node, class) key becomes values[class][node] and a
// (from, to, class) key becomes values[class][arc].
package solution

import (
	"fmt"
	"sort"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/L043N70/weave-public/routing/network"
)

// NodeKey indexes a per-node, per-class variable.
type NodeKey struct {
	Node  network.NodeID
	Class int
}

// ArcKey indexes a per-arc, per-class variable.
type ArcKey struct {
	From  network.NodeID
	To    network.NodeID
	Class int
}

// Arc returns the arc of the key.
func (k ArcKey) Arc() network.Arc { return network.Arc{From: k.From, To: k.To} }

// NodeValues is class -> node -> value.
type NodeValues map[int]map[network.NodeID]int64

// ArcValues is class -> arc -> value.
type ArcValues map[int]map[network.Arc]int64

// DecodeNodes reshapes (node, class) keyed values.
func DecodeNodes(flat map[NodeKey]int64) NodeValues {
	out := make(NodeValues)
	for k, v := range flat {
		if out[k.Class] == nil {
			out[k.Class] = make(map[network.NodeID]int64)
		}
		out[k.Class][k.Node] = v
	}
	return out
}

// DecodeArcs reshapes (from, to, class) keyed values.
func DecodeArcs(flat map[ArcKey]int64) ArcValues {
	out := make(ArcValues)
	for k, v := range flat {
		if out[k.Class] == nil {
			out[k.Class] = make(map[network.Arc]int64)
		}
		out[k.Class][k.Arc()] = v
	}
	return out
}

// Classes returns the classes present, in increasing order.
func (nv NodeValues) Classes() []int { return sortedClasses(nv) }

// Classes returns the classes present, in increasing order.
func (av ArcValues) Classes() []int { return sortedClasses(av) }

func sortedClasses[V any](m map[int]V) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

// Used returns the arcs of `class` whose value is 1, sorted by tail then head.
func (av ArcValues) Used(class int) []network.Arc {
	var used []network.Arc
	for a, v := range av[class] {
		if v == 1 {
			used = append(used, a)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if used[i].From != used[j].From {
			return used[i].From < used[j].From
		}
		return used[i].To < used[j].To
	})
	return used
}

// Route walks the used arcs of `class` from `start`, taking the smallest unused successor at each
// step, until it returns to `start` or gets stuck. The result starts with `start`.
func (av ArcValues) Route(class int, start network.NodeID) []network.NodeID {
	next := make(map[network.NodeID][]network.NodeID)
	for _, a := range av.Used(class) {
		next[a.From] = append(next[a.From], a.To)
	}
	route := []network.NodeID{start}
	cur := start
	for {
		succ := next[cur]
		if len(succ) == 0 {
			return route
		}
		n := succ[0]
		next[cur] = succ[1:]
		route = append(route, n)
		if n == start {
			return route
		}
		cur = n
	}
}

// Struct exports the values as {"<class>": {"<node>": value}}.
func (nv NodeValues) Struct() (*structpb.Struct, error) {
	m := make(map[string]any, len(nv))
	for class, nodes := range nv {
		inner := make(map[string]any, len(nodes))
		for id, v := range nodes {
			inner[strconv.Itoa(int(id))] = v
		}
		m[strconv.Itoa(class)] = inner
	}
	return structpb.NewStruct(m)
}

// Struct exports the values as {"<class>": {"(<from>,<to>)": value}}.
func (av ArcValues) Struct() (*structpb.Struct, error) {
	m := make(map[string]any, len(av))
	for class, arcs := range av {
		inner := make(map[string]any, len(arcs))
		for a, v := range arcs {
			inner[a.String()] = v
		}
		m[strconv.Itoa(class)] = inner
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("exporting arc values: %w", err)
	}
	return s, nil
}
