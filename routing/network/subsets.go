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

package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxSwapPoints caps the number of swap points a SubsetIndex enumerates. The index has
// 2^|swap points| - 1 entries per node.
const MaxSwapPoints = 12

// ErrTooManySwapPoints is returned by SubsetIndex past MaxSwapPoints.
var ErrTooManySwapPoints = errors.New("too many swap points to enumerate their subsets")

// Subset is a non-empty set of swap points. Key joins the members with "-", e.g. "1-4".
type Subset struct {
	Members []NodeID
	Key     string
}

// Len returns the cardinality of the subset.
func (s Subset) Len() int { return len(s.Members) }

// SubsetIndex maps each node to the candidate swap-point subsets that may have been visited
// before it. The lists are ordered by size, then by members.
type SubsetIndex map[NodeID][]Subset

// Subsets returns the candidate subsets of `id`.
func (x SubsetIndex) Subsets(id NodeID) []Subset { return x[id] }

// Len returns the total number of (node, subset) entries.
func (x SubsetIndex) Len() int {
	n := 0
	for _, s := range x {
		n += len(s)
	}
	return n
}

// SubsetIndex builds, for every node, the list of all non-empty subsets of the swap points.
func (n *Network) SubsetIndex() (SubsetIndex, error) {
	swaps := n.SwapPoints()
	if len(swaps) > MaxSwapPoints {
		return nil, fmt.Errorf("%d swap points, at most %d: %w", len(swaps), MaxSwapPoints, ErrTooManySwapPoints)
	}
	all := enumerate(swaps)
	index := make(SubsetIndex, len(n.nodes))
	for _, node := range n.nodes {
		own := make([]Subset, len(all))
		for i, s := range all {
			own[i] = Subset{Members: append([]NodeID(nil), s.Members...), Key: s.Key}
		}
		index[node.ID] = own
	}
	return index, nil
}

// enumerate lists the non-empty subsets of `items` by increasing size, each size in
// lexicographic order of positions.
func enumerate(items []NodeID) []Subset {
	var out []Subset
	var rec func(start, size int, cur []NodeID)
	rec = func(start, size int, cur []NodeID) {
		if len(cur) == size {
			out = append(out, newSubset(cur))
			return
		}
		for i := start; i < len(items); i++ {
			rec(i+1, size, append(cur, items[i]))
		}
	}
	for size := 1; size <= len(items); size++ {
		rec(0, size, make([]NodeID, 0, size))
	}
	return out
}

func newSubset(members []NodeID) Subset {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = strconv.Itoa(int(m))
	}
	return Subset{Members: append([]NodeID(nil), members...), Key: strings.Join(parts, "-")}
}
