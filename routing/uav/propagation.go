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

func (m *Model) cost(i, j network.NodeID) network.ArcCost {
	c, _ := m.net.Cost(network.Arc{From: i, To: j})
	return c
}

// addPropagationConstraints carries time and energy along used arcs leaving mandatory nodes and
// swap points. A swap at i costs the swap time and lets r[i] absorb the wasted energy.
func (m *Model) addPropagationConstraints() {
	T := m.opts.SwapTime
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range m.net.Arcs() {
			i, j := a.From, a.To
			isSwap := m.net.Has(i, network.SwapPoint)
			if !isSwap && !m.net.Has(i, network.Demand) {
				continue
			}
			c := m.cost(i, j)
			x := m.x[ak(i, j, k)]

			arrival := cpmodel.NewLinearExpr().Add(m.w[nk(i, k)]).AddConstant(c.Time)
			energy := cpmodel.NewLinearExpr().Add(m.q[nk(i, k)]).AddConstant(c.Energy)
			if isSwap {
				arrival.AddTerm(m.z[nk(i, k)], T)
				energy.Add(m.r[nk(i, k)])
			}
			m.cp.AddLessOrEqual(arrival, m.w[nk(j, k)]).OnlyEnforceIf(x)
			m.cp.AddLessOrEqual(energy, m.q[nk(j, k)]).OnlyEnforceIf(x)
		}
		for _, s := range m.net.SwapPoints() {
			m.cp.AddGreaterOrEqual(m.inflow(s, k), m.z[nk(s, k)])
		}
	}
}

// addEnergyBounds caps the consumed energy by the capacity, plus one capacity per swap of the
// selected preceding subset, and lower-bounds the waste of every swap.
func (m *Model) addEnergyBounds() {
	Q := m.opts.Capacity
	capacity := constant(Q)
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			m.cp.AddLessOrEqual(m.q[nk(i, k)], capacity).OnlyEnforceIf(m.nsv[k])
		}
		for _, i := range m.depotNeighbours {
			m.cp.AddLessOrEqual(m.q[nk(i, k)], capacity).OnlyEnforceIf(m.fnv[nk(i, k)])
		}
		for _, s := range m.net.SwapPoints() {
			m.cp.AddLessOrEqual(m.q[nk(s, k)], capacity).OnlyEnforceIf(m.fsv[nk(s, k)])
		}
	}

	m.forEachSubset(func(k int, i network.NodeID, u network.Subset) {
		bound := cpmodel.NewConstant(Q)
		for _, s := range u.Members {
			bound.AddTerm(m.z[nk(s, k)], Q)
		}
		m.cp.AddLessOrEqual(m.q[nk(i, k)], bound).OnlyEnforceIf(m.a[subsetKey{i, u.Key, k}])
	})

	for k := 0; k < m.opts.Vehicles; k++ {
		for _, s := range m.net.SwapPoints() {
			// Q·z[s] - q[s] <= r[s] on the first swap.
			topUp := cpmodel.NewLinearExpr().AddTerm(m.z[nk(s, k)], Q).AddTerm(m.q[nk(s, k)], -1)
			m.cp.AddLessOrEqual(topUp, m.r[nk(s, k)]).OnlyEnforceIf(m.sfsv[nk(s, k)])
		}
	}
	m.forEachSubset(func(k int, s network.NodeID, u network.Subset) {
		if !m.net.Has(s, network.SwapPoint) {
			return
		}
		topUp := cpmodel.NewLinearExpr().AddTerm(m.z[nk(s, k)], Q).AddTerm(m.q[nk(s, k)], -1)
		for _, i := range u.Members {
			topUp.AddTerm(m.z[nk(i, k)], Q)
		}
		m.cp.AddLessOrEqual(topUp, m.r[nk(s, k)]).OnlyEnforceIf(m.a[subsetKey{s, u.Key, k}])
	})
}

// addPinning zeroes the state of unvisited nodes, seeds the state of the first hop out of a depot
// and enforces the time windows of visited mandatory nodes.
func (m *Model) addPinning() {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, d := range m.net.Depots() {
			for _, j := range m.net.Successors(d) {
				x := m.x[ak(d, j, k)]
				m.cp.AddNotEqual(m.w[nk(j, k)], constant(0)).OnlyEnforceIf(x)
				m.cp.AddNotEqual(m.q[nk(j, k)], constant(0)).OnlyEnforceIf(x)
			}
		}
		for _, i := range m.net.NodeIDs() {
			unvisited := m.nv[nk(i, k)].Not()
			m.cp.AddEquality(m.q[nk(i, k)], constant(0)).OnlyEnforceIf(unvisited)
			m.cp.AddEquality(m.w[nk(i, k)], constant(0)).OnlyEnforceIf(unvisited)
		}
		for _, d := range m.net.Depots() {
			for _, j := range m.net.Successors(d) {
				c := m.cost(d, j)
				first := m.fnv[nk(j, k)]
				m.cp.AddLessOrEqual(constant(c.Energy), m.q[nk(j, k)]).OnlyEnforceIf(first)
				m.cp.AddLessOrEqual(constant(c.Time), m.w[nk(j, k)]).OnlyEnforceIf(first)
			}
		}
		for _, i := range m.net.Demand() {
			tw, ok := m.net.Window(i)
			if !ok {
				continue
			}
			m.cp.AddLinearConstraint(m.w[nk(i, k)], tw.Earliest, tw.Latest).OnlyEnforceIf(m.nv[nk(i, k)])
		}
	}
}
