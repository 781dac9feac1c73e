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
	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

// addSwapBookkeeping relates swaps to visits and counts, per aircraft, the visited swap points
// (svc), the nodes visited after each swap point (nvsc) and the largest such count (nvfsc).
// nsv[k] holds when no node of k is preceded by a visited swap point.
func (m *Model) addSwapBookkeeping() {
	nodes := m.net.NodeIDs()
	swaps := m.net.SwapPoints()
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, s := range swaps {
			m.cp.AddEquality(m.z[nk(s, k)], constant(0)).OnlyEnforceIf(m.nv[nk(s, k)].Not())
		}

		visited := cpmodel.NewLinearExpr()
		for _, s := range swaps {
			visited.Add(m.nv[nk(s, k)])
		}
		m.cp.AddEquality(m.svc[k], visited)

		anyPrior := cpmodel.NewLinearExpr()
		for _, i := range nodes {
			anyPrior.Add(m.acmp[nk(i, k)])
		}
		m.cp.AddEquality(anyPrior, constant(0)).OnlyEnforceIf(m.nsv[k])
		m.cp.AddNotEqual(anyPrior, constant(0)).OnlyEnforceIf(m.nsv[k].Not())

		var after []cpmodel.LinearArgument
		for _, s := range swaps {
			nvsc, nv := m.nvsc[nk(s, k)], m.nv[nk(s, k)]
			m.cp.AddEquality(nvsc, constant(0)).OnlyEnforceIf(nv.Not())
			followers := cpmodel.NewLinearExpr()
			for _, i := range nodes {
				followers.Add(m.b[ak(i, s, k)])
			}
			m.cp.AddEquality(nvsc, followers).OnlyEnforceIf(nv)
			after = append(after, nvsc)
		}
		if len(after) > 0 {
			m.cp.AddMaxEquality(m.nvfsc[k], after...)
		} else {
			m.cp.AddEquality(m.nvfsc[k], constant(0))
		}
		m.cp.AddEquality(m.nvfsc[k], constant(0)).OnlyEnforceIf(m.nsv[k])

		// fsv[s] holds iff every other visited swap point comes after s; sfsv[s] iff k also swaps
		// there.
		for _, s := range swaps {
			later := cpmodel.NewLinearExpr()
			for _, i := range swaps {
				if i != s {
					later.Add(m.b[ak(i, s, k)])
				}
			}
			othersVisited := cpmodel.NewLinearExpr().Add(m.svc[k]).AddConstant(-1)
			fsv, sfsv := m.fsv[nk(s, k)], m.sfsv[nk(s, k)]
			m.cp.AddEquality(later, othersVisited).OnlyEnforceIf(fsv)
			m.cp.AddNotEqual(later, othersVisited).OnlyEnforceIf(fsv.Not())

			both := cpmodel.NewLinearExpr().Add(fsv).Add(m.z[nk(s, k)])
			m.cp.AddEquality(both, constant(2)).OnlyEnforceIf(sfsv)
			m.cp.AddNotEqual(both, constant(2)).OnlyEnforceIf(sfsv.Not())
		}
	}
}

// addOrderConstraints reifies the arrival order: b_bar[i,j] iff w[i] > w[j], and b[i,j] iff
// b_bar[i,j] and j is visited.
func (m *Model) addOrderConstraints() {
	nodes := m.net.NodeIDs()
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range nodes {
			for _, j := range nodes {
				bBar := m.bBar[ak(i, j, k)]
				m.cp.AddGreaterThan(m.w[nk(i, k)], m.w[nk(j, k)]).OnlyEnforceIf(bBar)
				m.cp.AddLessOrEqual(m.w[nk(i, k)], m.w[nk(j, k)]).OnlyEnforceIf(bBar.Not())
			}
		}
	}
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range nodes {
			for _, j := range nodes {
				b := m.b[ak(i, j, k)]
				both := cpmodel.NewLinearExpr().Add(m.bBar[ak(i, j, k)]).Add(m.nv[nk(j, k)])
				m.cp.AddEquality(both, constant(2)).OnlyEnforceIf(b)
				m.cp.AddNotEqual(both, constant(2)).OnlyEnforceIf(b.Not())
			}
		}
	}
}

// addSubsetConstraints selects, for every node, the largest subset of swap points visited
// before it.
func (m *Model) addSubsetConstraints() {
	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		key := subsetKey{i, u.Key, k}
		witnessed := cpmodel.NewLinearExpr()
		for _, s := range u.Members {
			witnessed.Add(m.b[ak(i, s, k)]).Add(m.nv[nk(s, k)])
		}
		full := constant(2 * int64(u.Len()))
		m.cp.AddEquality(witnessed, full).OnlyEnforceIf(m.aBar[key])
		m.cp.AddNotEqual(witnessed, full).OnlyEnforceIf(m.aBar[key].Not())
	})
	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		key := subsetKey{i, u.Key, k}
		m.cp.AddEquality(m.ac[key], constant(int64(u.Len()))).OnlyEnforceIf(m.aBar[key])
		m.cp.AddEquality(m.ac[key], constant(0)).OnlyEnforceIf(m.aBar[key].Not())
	})

	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			var sizes []cpmodel.LinearArgument
			for _, u := range m.subsets.Subsets(i) {
				sizes = append(sizes, m.ac[subsetKey{i, u.Key, k}])
			}
			acm := m.acm[nk(i, k)]
			if len(sizes) > 0 {
				m.cp.AddMaxEquality(acm, sizes...)
			} else {
				m.cp.AddEquality(acm, constant(0))
			}
			acmp := m.acmp[nk(i, k)]
			m.cp.AddGreaterThan(acm, constant(0)).OnlyEnforceIf(acmp)
			m.cp.AddLessOrEqual(acm, constant(0)).OnlyEnforceIf(acmp.Not())
		}
	}

	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		key := subsetKey{i, u.Key, k}
		m.cp.AddLessOrEqual(m.a[key], m.aBar[key])
	})

	for k := 0; k < m.opts.Vehicles; k++ {
		selected := cpmodel.NewLinearExpr()
		for _, i := range m.net.NodeIDs() {
			perNode := cpmodel.NewLinearExpr()
			for _, u := range m.subsets.Subsets(i) {
				perNode.Add(m.a[subsetKey{i, u.Key, k}])
			}
			selected.Add(perNode)
			m.cp.AddLessOrEqual(perNode, constant(1))
		}
		m.cp.AddEquality(selected, m.nvfsc[k]).OnlyEnforceIf(m.nsv[k].Not())
	}

	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		key := subsetKey{i, u.Key, k}
		m.cp.AddEquality(m.ac[key], m.acm[nk(i, k)]).OnlyEnforceIf(m.a[key]).OnlyEnforceIf(m.acmp[nk(i, k)])
	})
}
