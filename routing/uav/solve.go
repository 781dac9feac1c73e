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
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

// addObjective minimizes Σ_k weight_k Σ_(i,j) c(i,j)·q[i,k].
func (m *Model) addObjective() {
	obj := cpmodel.NewLinearExpr()
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range m.net.Arcs() {
			obj.AddTerm(m.q[nk(a.From, k)], m.weights[k]*m.cost(a.From, a.To).Energy)
		}
	}
	m.cp.Minimize(obj)
}

func (m *Model) addDecisionStrategy() {
	var vars []cpmodel.IntVar
	for _, g := range searchOrder {
		vars = append(vars, m.groups[g]...)
	}
	m.cp.AddDecisionStrategy(vars, cpmodel.ChooseFirst, cpmodel.SelectMinValue)
}

// DefaultParameters branches on the model's decision order and enumerates every solution.
func DefaultParameters() *cpmodel.SolverParameters {
	return &cpmodel.SolverParameters{
		SearchBranching:       cpmodel.FixedSearch,
		EnumerateAllSolutions: true,
	}
}

// Solve runs the engine on the model. Only an optimal solve yields a Result.
func (m *Model) Solve() (*Result, error) {
	model, err := m.cp.Model()
	if err != nil {
		return nil, err
	}
	params := m.opts.Params
	if params == nil {
		params = DefaultParameters()
	}
	engine := m.opts.Engine
	if engine == nil {
		engine = cpmodel.DefaultEngine
	}

	runID := uuid.NewString()
	start := time.Now()
	res, err := cpmodel.SolveCpModelWithEngine(model, params, engine)
	elapsed := time.Since(start)
	if err != nil {
		m.opts.Metrics.ObserveSolve(problem, "ERROR", elapsed)
		return nil, fmt.Errorf("uav run %s: %w", runID, err)
	}
	m.opts.Metrics.ObserveSolve(problem, res.Status.String(), elapsed)
	log.Infof("uav run %s: %v in %v", runID, res.Status, elapsed)

	switch res.Status {
	case cpmodel.Optimal:
	case cpmodel.Feasible:
		return nil, ErrNotProvenOptimal
	case cpmodel.Infeasible:
		return nil, ErrInfeasible
	default:
		return nil, &StatusError{Status: res.Status}
	}

	arcs := make(map[solution.ArcKey]int64, len(m.x))
	for key, x := range m.x {
		arcs[key] = boolValue(res, x)
	}
	return &Result{
		RunID:      runID,
		Objective:  int64(res.ObjectiveValue),
		ArcUse:     solution.DecodeArcs(arcs),
		Time:       intValues(res, m.w),
		Swap:       boolValues(res, m.z),
		Energy:     intValues(res, m.q),
		Waste:      intValues(res, m.r),
		PriorSwaps: intValues(res, m.acm),
		WallTime:   elapsed,
	}, nil
}

func boolValue(res *cpmodel.CpSolverResponse, b cpmodel.BoolVar) int64 {
	if cpmodel.SolutionBooleanValue(res, b) {
		return 1
	}
	return 0
}

func intValues(res *cpmodel.CpSolverResponse, vars map[solution.NodeKey]cpmodel.IntVar) solution.NodeValues {
	flat := make(map[solution.NodeKey]int64, len(vars))
	for key, v := range vars {
		flat[key] = cpmodel.SolutionIntegerValue(res, v)
	}
	return solution.DecodeNodes(flat)
}

func boolValues(res *cpmodel.CpSolverResponse, vars map[solution.NodeKey]cpmodel.BoolVar) solution.NodeValues {
	flat := make(map[solution.NodeKey]int64, len(vars))
	for key, v := range vars {
		flat[key] = boolValue(res, v)
	}
	return solution.DecodeNodes(flat)
}
