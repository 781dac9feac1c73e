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

package uav

import (
	"fmt"
	"sort"

	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

// Variable groups, in the order the search branches on them.
const (
	groupX     = "x"
	groupW     = "w"
	groupZ     = "z"
	groupQ     = "q"
	groupR     = "r"
	groupNV    = "nv"
	groupFNV   = "fnv"
	groupFSV   = "fsv"
	groupSFSV  = "sfsv"
	groupBBar  = "b_bar"
	groupB     = "b"
	groupABar  = "a_bar"
	groupAC    = "ac"
	groupACM   = "acm"
	groupACMP  = "acmp"
	groupA     = "a"
	groupNSV   = "nsv"
	groupSVC   = "svc"
	groupNVSC  = "nvsc"
	groupNVFSC = "nvfsc"
)

var searchOrder = []string{
	groupX, groupW, groupZ, groupQ, groupR,
	groupNV, groupFNV, groupFSV, groupSFSV,
	groupBBar, groupB, groupABar, groupAC, groupACM, groupACMP, groupA,
	groupNSV, groupSVC, groupNVSC, groupNVFSC,
}

func nk(i network.NodeID, k int) solution.NodeKey { return solution.NodeKey{Node: i, Class: k} }

func ak(i, j network.NodeID, k int) solution.ArcKey {
	return solution.ArcKey{From: i, To: j, Class: k}
}

func (m *Model) newBool(group, name string) cpmodel.BoolVar {
	v := m.cp.NewBoolVar().WithName(name)
	m.groups[group] = append(m.groups[group], v.AsIntVar())
	return v
}

func (m *Model) newInt(group string, lb, ub int64, name string) cpmodel.IntVar {
	v := m.cp.NewIntVar(lb, ub).WithName(name)
	m.groups[group] = append(m.groups[group], v)
	return v
}

func (m *Model) findDepotNeighbours() {
	seen := make(map[network.NodeID]bool)
	for _, d := range m.net.Depots() {
		for _, j := range m.net.Successors(d) {
			if !seen[j] {
				seen[j] = true
				m.depotNeighbours = append(m.depotNeighbours, j)
			}
		}
	}
	sort.Slice(m.depotNeighbours, func(i, j int) bool { return m.depotNeighbours[i] < m.depotNeighbours[j] })
}

// addVariables creates every variable group, aircraft by aircraft.
func (m *Model) addVariables() {
	m.findDepotNeighbours()
	nodes := m.net.NodeIDs()
	swaps := m.net.SwapPoints()
	numNodes, numSwaps := int64(len(nodes)), int64(len(swaps))
	fleet := m.opts.Vehicles

	m.x = make(map[solution.ArcKey]cpmodel.BoolVar)
	for k := 0; k < fleet; k++ {
		for _, a := range m.net.Arcs() {
			m.x[ak(a.From, a.To, k)] = m.newBool(groupX, fmt.Sprintf("x(%d,%d)[%d]", a.From, a.To, k))
		}
	}

	m.w = make(map[solution.NodeKey]cpmodel.IntVar)
	m.q = make(map[solution.NodeKey]cpmodel.IntVar)
	m.nv = make(map[solution.NodeKey]cpmodel.BoolVar)
	m.acm = make(map[solution.NodeKey]cpmodel.IntVar)
	m.acmp = make(map[solution.NodeKey]cpmodel.BoolVar)
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			m.w[nk(i, k)] = m.newInt(groupW, 0, m.bounds.MaxTime, fmt.Sprintf("w(%d)[%d]", i, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			m.q[nk(i, k)] = m.newInt(groupQ, 0, m.bounds.MaxEnergy, fmt.Sprintf("q(%d)[%d]", i, k))
		}
	}

	m.z = make(map[solution.NodeKey]cpmodel.BoolVar)
	m.r = make(map[solution.NodeKey]cpmodel.IntVar)
	m.fsv = make(map[solution.NodeKey]cpmodel.BoolVar)
	m.sfsv = make(map[solution.NodeKey]cpmodel.BoolVar)
	m.nvsc = make(map[solution.NodeKey]cpmodel.IntVar)
	for k := 0; k < fleet; k++ {
		for _, s := range swaps {
			m.z[nk(s, k)] = m.newBool(groupZ, fmt.Sprintf("z(%d)[%d]", s, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, s := range swaps {
			m.r[nk(s, k)] = m.newInt(groupR, 0, m.bounds.MaxWaste, fmt.Sprintf("r(%d)[%d]", s, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			m.nv[nk(i, k)] = m.newBool(groupNV, fmt.Sprintf("nv(%d)[%d]", i, k))
		}
	}

	m.fnv = make(map[solution.NodeKey]cpmodel.BoolVar)
	for k := 0; k < fleet; k++ {
		for _, i := range m.depotNeighbours {
			m.fnv[nk(i, k)] = m.newBool(groupFNV, fmt.Sprintf("fnv(%d)[%d]", i, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, s := range swaps {
			m.fsv[nk(s, k)] = m.newBool(groupFSV, fmt.Sprintf("fsv(%d)[%d]", s, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, s := range swaps {
			m.sfsv[nk(s, k)] = m.newBool(groupSFSV, fmt.Sprintf("sfsv(%d)[%d]", s, k))
		}
	}

	m.bBar = make(map[solution.ArcKey]cpmodel.BoolVar)
	m.b = make(map[solution.ArcKey]cpmodel.BoolVar)
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			for _, j := range nodes {
				m.bBar[ak(i, j, k)] = m.newBool(groupBBar, fmt.Sprintf("b_bar(%d)(%d)[%d]", i, j, k))
			}
		}
	}
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			for _, j := range nodes {
				m.b[ak(i, j, k)] = m.newBool(groupB, fmt.Sprintf("b(%d)(%d)[%d]", i, j, k))
			}
		}
	}

	m.aBar = make(map[subsetKey]cpmodel.BoolVar)
	m.a = make(map[subsetKey]cpmodel.BoolVar)
	m.ac = make(map[subsetKey]cpmodel.IntVar)
	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		m.aBar[subsetKey{i, u.Key, k}] = m.newBool(groupABar, fmt.Sprintf("a_bar(%d)(%s)[%d]", i, u.Key, k))
	})
	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		m.ac[subsetKey{i, u.Key, k}] = m.newInt(groupAC, 0, numSwaps, fmt.Sprintf("ac(%d)(%s)[%d]", i, u.Key, k))
	})
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			m.acm[nk(i, k)] = m.newInt(groupACM, 0, numSwaps, fmt.Sprintf("acm(%d)[%d]", i, k))
		}
	}
	for k := 0; k < fleet; k++ {
		for _, i := range nodes {
			m.acmp[nk(i, k)] = m.newBool(groupACMP, fmt.Sprintf("acmp(%d)[%d]", i, k))
		}
	}
	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		m.a[subsetKey{i, u.Key, k}] = m.newBool(groupA, fmt.Sprintf("a(%d)(%s)[%d]", i, u.Key, k))
	})

	for k := 0; k < fleet; k++ {
		m.nsv = append(m.nsv, m.newBool(groupNSV, fmt.Sprintf("nsv[%d]", k)))
	}
	for k := 0; k < fleet; k++ {
		for _, s := range swaps {
			m.nvsc[nk(s, k)] = m.newInt(groupNVSC, 0, numNodes, fmt.Sprintf("nvsc(%d)[%d]", s, k))
		}
	}
	for k := 0; k < fleet; k++ {
		m.nvfsc = append(m.nvfsc, m.newInt(groupNVFSC, 0, numNodes, fmt.Sprintf("nvfsc[%d]", k)))
	}
	for k := 0; k < fleet; k++ {
		m.svc = append(m.svc, m.newInt(groupSVC, 0, numSwaps, fmt.Sprintf("svc[%d]", k)))
	}
}

// forEachSubset calls f for every aircraft, node and candidate swap-point subset of the node.
func (m *Model) forEachSubset(f func(k int, i network.NodeID, u network.Subset)) {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			for _, u := range m.subsets.Subsets(i) {
				f(k, i, u)
			}
		}
	}
}
