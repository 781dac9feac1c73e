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

func constant(c int64) *cpmodel.LinearExpr { return cpmodel.NewConstant(c) }

// inflow returns Σ_j x[j,i,k].
func (m *Model) inflow(i network.NodeID, k int) *cpmodel.LinearExpr {
	e := cpmodel.NewLinearExpr()
	for _, j := range m.net.Predecessors(i) {
		e.Add(m.x[ak(j, i, k)])
	}
	return e
}

// outflow returns Σ_j x[i,j,k].
func (m *Model) outflow(i network.NodeID, k int) *cpmodel.LinearExpr {
	e := cpmodel.NewLinearExpr()
	for _, j := range m.net.Successors(i) {
		e.Add(m.x[ak(i, j, k)])
	}
	return e
}

// addVisitConstraints ties the visit flags to the arcs: nv[i,k] holds iff k enters i, and fnv[i,k]
// mirrors the use of the depot arc into i.
func (m *Model) addVisitConstraints() {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			nv := m.nv[nk(i, k)]
			m.cp.AddGreaterOrEqual(m.inflow(i, k), constant(1)).OnlyEnforceIf(nv)
			m.cp.AddEquality(m.inflow(i, k), constant(0)).OnlyEnforceIf(nv.Not())
		}
		for _, d := range m.net.Depots() {
			for _, i := range m.net.Successors(d) {
				m.cp.AddEquality(m.x[ak(d, i, k)], m.fnv[nk(i, k)])
			}
		}
	}
}

// addRoutingConstraints adds coverage, flow conservation and depot departures.
func (m *Model) addRoutingConstraints() {
	for _, i := range m.net.Demand() {
		e := cpmodel.NewLinearExpr()
		for k := 0; k < m.opts.Vehicles; k++ {
			e.Add(m.outflow(i, k))
		}
		m.cp.AddEquality(e, constant(1)).WithName("visit_once")
	}

	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			if m.net.Has(i, network.Depot) {
				continue
			}
			flow := m.outflow(i, k).AddTerm(m.inflow(i, k), -1)
			m.cp.AddEquality(flow, constant(0))
		}
	}

	for k := 0; k < m.opts.Vehicles; k++ {
		departures := cpmodel.NewLinearExpr()
		for _, d := range m.net.Depots() {
			for _, j := range m.net.Successors(d) {
				if m.net.Has(j, network.Demand) {
					departures.Add(m.x[ak(d, j, k)])
				}
			}
		}
		if m.opts.useAll() {
			m.cp.AddEquality(departures, constant(1))
		} else {
			m.cp.AddLessOrEqual(departures, constant(1))
		}
	}
}
