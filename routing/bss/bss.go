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

// Package bss formulates the battery-swap-service vehicle routing problem as an integer program.
//
// Vehicle classes leave the depots, serve every demand node at least once inside its time window
// and come back. Each arc of class k carries a 0-1 use variable y[i,j,k] and each node a schedule
// value v[i,k] >= 1 that orders the visits through big-M constraints:
//
//	coverage          Σ_k Σ_j y[i,j,k] >= 1                      for every demand node i
//	depot outflow     Σ_k Σ_{i∈D, j∈S} y[i,j,k] >= 1
//	flow              Σ_j y[i,j,k] - Σ_j y[j,i,k] = 0            for every class k, non-depot node i
//	depot balance     Σ_k Σ y[D→S] - Σ_k Σ y[S→D] = 0
//	schedule          v[i,k] + d(i,j) - v[j,k] <= (1-y[i,j,k])·M  for i a swap point, not demand
//	service           v[i,k] + d(i,j) + T - v[j,k] <= (1-y[i,j,k])·M  for i a demand node
//	windows           earliest(i) <= v[i,k] <= latest(i)         for every demand node with a window
//	fleet use         Σ y[D→S, k] <= 1                            for every class k
//
// where S holds the swap points and demand nodes. The schedule values range over [1, U] with
// U = max(|A|·max d + |P|·T, latest window end), and M = U - 1 + max d + T so that the schedule
// rows of unused arcs never bind. The objective is
// Σ_k w_k (Σ_i v[i,k] + Σ_(i,j) d(i,j)·y[i,j,k]) with increasing class weights w_k.
package bss

import (
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/L043N70/weave-public/internal/metrics"
	"github.com/L043N70/weave-public/linearsolver"
	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

const problem = "bss"

var (
	// ErrInfeasible is returned when the engine proves that no routing exists.
	ErrInfeasible = errors.New("no optimal solution for the BSS problem")
	// ErrNoVehicles is returned by Build when Options.Vehicles is not positive.
	ErrNoVehicles = errors.New("at least one vehicle class is required")
)

// StatusError reports a solve that ended neither optimal nor infeasible.
type StatusError struct {
	Status linearsolver.ResultStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("no solution for the BSS problem, status %v", e.Status)
}

// DefaultClassWeights are the cost weights of the first five vehicle classes. Further classes
// keep doubling.
var DefaultClassWeights = []int64{1, 2, 4, 8, 16}

// Options configures a BSS model.
type Options struct {
	// Vehicles is the number of vehicle classes K2.
	Vehicles int
	// SwapTime is the service duration T spent at each demand node.
	SwapTime int64
	// ClassWeights overrides DefaultClassWeights. Missing entries keep doubling the last one.
	ClassWeights []int64
	// Engine defaults to cpmodel.DefaultEngine.
	Engine cpmodel.Engine
	Params *cpmodel.SolverParameters
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// classWeights returns `k` weights, extending `base` by doubling.
func classWeights(base []int64, k int) []int64 {
	if len(base) == 0 {
		base = DefaultClassWeights
	}
	w := make([]int64, k)
	for i := range w {
		switch {
		case i < len(base):
			w[i] = base[i]
		case i == 0:
			w[i] = 1
		default:
			w[i] = 2 * w[i-1]
		}
	}
	return w
}

// Result is an optimal BSS routing.
type Result struct {
	RunID     string
	Objective int64
	// TravelCost is the weighted distance part of the objective.
	TravelCost int64
	// ArcUse holds y: class -> arc -> 0/1.
	ArcUse solution.ArcValues
	// Schedule holds v: class -> node -> schedule value.
	Schedule solution.NodeValues
	WallTime time.Duration
}

// Model is a built BSS integer program, ready to be solved once.
type Model struct {
	net     *network.Network
	opts    Options
	weights []int64
	maxTime int64
	// vMax bounds the schedule values; bigM relaxes the schedule rows of unused arcs.
	vMax, bigM int64

	solver *linearsolver.LinearSolver
	y      map[solution.ArcKey]*linearsolver.Variable
	v      map[solution.NodeKey]*linearsolver.Variable
}

// MaxTime returns |A|·max d + |P|·T, the worst case length of a schedule.
func (m *Model) MaxTime() int64 { return m.maxTime }

// BigM returns the relaxation constant of the schedule constraints.
func (m *Model) BigM() int64 { return m.bigM }

// Solver exposes the underlying integer program.
func (m *Model) Solver() *linearsolver.LinearSolver { return m.solver }

// Build formulates the BSS problem on `net`.
func Build(net *network.Network, opts Options) (*Model, error) {
	if opts.Vehicles < 1 {
		return nil, fmt.Errorf("%d vehicle classes: %w", opts.Vehicles, ErrNoVehicles)
	}
	solver, err := linearsolver.New("bss", linearsolver.CPSATIntegerProgramming)
	if err != nil {
		return nil, err
	}
	maxTime := int64(net.NumArcs())*net.MaxDistance() + int64(len(net.Demand()))*opts.SwapTime
	// Schedule values must be bounded for the integer engine; windows may reach past MaxTime.
	vMax := max(maxTime, net.MaxLatest(), 1)
	m := &Model{
		net:     net,
		opts:    opts,
		weights: classWeights(opts.ClassWeights, opts.Vehicles),
		maxTime: maxTime,
		vMax:    vMax,
		bigM:    vMax - 1 + net.MaxDistance() + opts.SwapTime,
		solver:  solver,
		y:       make(map[solution.ArcKey]*linearsolver.Variable),
		v:       make(map[solution.NodeKey]*linearsolver.Variable),
	}
	for _, step := range []func() error{
		m.addVariables,
		m.addObjective,
		m.addCoverage,
		m.addFlow,
		m.addSchedule,
		m.addWindows,
		m.addFleetUse,
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	log.V(1).Infof("bss model: %d classes, %d variables, %d rows, M=%d",
		opts.Vehicles, solver.NumVariables(), solver.NumConstraints(), m.bigM)
	opts.Metrics.ObserveModel(problem, solver.NumVariables(), solver.NumConstraints())
	return m, nil
}

func (m *Model) addVariables() error {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range m.net.Arcs() {
			y, err := m.solver.MakeBoolVar(fmt.Sprintf("y(%d,%d)[%d]", a.From, a.To, k))
			if err != nil {
				return err
			}
			m.y[solution.ArcKey{From: a.From, To: a.To, Class: k}] = y
		}
		for _, i := range m.net.NodeIDs() {
			v, err := m.solver.MakeIntVar(1, float64(m.vMax), fmt.Sprintf("v(%d)[%d]", i, k))
			if err != nil {
				return err
			}
			m.v[solution.NodeKey{Node: i, Class: k}] = v
		}
	}
	return nil
}

func (m *Model) arcVar(from, to network.NodeID, k int) *linearsolver.Variable {
	return m.y[solution.ArcKey{From: from, To: to, Class: k}]
}

func (m *Model) nodeVar(i network.NodeID, k int) *linearsolver.Variable {
	return m.v[solution.NodeKey{Node: i, Class: k}]
}

func (m *Model) distance(a network.Arc) int64 {
	c, _ := m.net.Cost(a)
	return c.Distance
}

func (m *Model) addObjective() error {
	o := m.solver.Objective()
	o.SetMinimization()
	for k := 0; k < m.opts.Vehicles; k++ {
		w := float64(m.weights[k])
		for _, i := range m.net.NodeIDs() {
			o.SetCoefficient(m.nodeVar(i, k), w)
		}
		for _, a := range m.net.Arcs() {
			o.SetCoefficient(m.arcVar(a.From, a.To, k), float64(m.distance(a))*w)
		}
	}
	return nil
}

// depotArcs returns the arcs from a depot to a service node and back.
func (m *Model) depotArcs() (out, in []network.Arc) {
	for _, a := range m.net.Arcs() {
		switch {
		case m.net.Has(a.From, network.Depot) && m.net.Has(a.To, network.SwapPoint|network.Demand):
			out = append(out, a)
		case m.net.Has(a.From, network.SwapPoint|network.Demand) && m.net.Has(a.To, network.Depot):
			in = append(in, a)
		}
	}
	return out, in
}

func (m *Model) addCoverage() error {
	for _, i := range m.net.Demand() {
		c, err := m.solver.MakeRowConstraint(1, linearsolver.Infinity(), fmt.Sprintf("visit_pit_stop_%d", i))
		if err != nil {
			return err
		}
		for k := 0; k < m.opts.Vehicles; k++ {
			for _, j := range m.net.Successors(i) {
				c.SetCoefficient(m.arcVar(i, j, k), 1)
			}
		}
	}
	out, _ := m.depotArcs()
	c, err := m.solver.MakeRowConstraint(1, linearsolver.Infinity(), "bss_from_depots")
	if err != nil {
		return err
	}
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range out {
			c.SetCoefficient(m.arcVar(a.From, a.To, k), 1)
		}
	}
	return nil
}

func (m *Model) addFlow() error {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.NodeIDs() {
			if m.net.Has(i, network.Depot) {
				continue
			}
			c, err := m.solver.MakeRowConstraint(0, 0, fmt.Sprintf("flow_node_%d_bss_%d", i, k))
			if err != nil {
				return err
			}
			for _, j := range m.net.Successors(i) {
				c.SetCoefficient(m.arcVar(i, j, k), 1)
			}
			for _, j := range m.net.Predecessors(i) {
				c.SetCoefficient(m.arcVar(j, i, k), -1)
			}
		}
	}
	out, in := m.depotArcs()
	c, err := m.solver.MakeRowConstraint(0, 0, "flow_depots")
	if err != nil {
		return err
	}
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range out {
			c.SetCoefficient(m.arcVar(a.From, a.To, k), 1)
		}
		for _, a := range in {
			c.SetCoefficient(m.arcVar(a.From, a.To, k), -1)
		}
	}
	return nil
}

// addSchedule writes v_i + d + s - v_j <= (1 - y)·M as v_i - v_j + M·y <= M - d - s.
func (m *Model) addSchedule() error {
	big := float64(m.bigM)
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, a := range m.net.Arcs() {
			var service int64
			switch {
			case m.net.Has(a.From, network.Demand):
				service = m.opts.SwapTime
			case m.net.Has(a.From, network.SwapPoint):
			default:
				continue
			}
			name := fmt.Sprintf("schedule_edge_%d_%d_bss_%d", a.From, a.To, k)
			c, err := m.solver.MakeRowConstraint(-linearsolver.Infinity(), big-float64(m.distance(a)+service), name)
			if err != nil {
				return err
			}
			c.SetCoefficient(m.nodeVar(a.From, k), 1)
			c.SetCoefficient(m.nodeVar(a.To, k), -1)
			c.SetCoefficient(m.arcVar(a.From, a.To, k), big)
		}
	}
	return nil
}

func (m *Model) addWindows() error {
	for k := 0; k < m.opts.Vehicles; k++ {
		for _, i := range m.net.Demand() {
			w, ok := m.net.Window(i)
			if !ok {
				continue
			}
			c, err := m.solver.MakeRowConstraint(float64(w.Earliest), float64(w.Latest), fmt.Sprintf("time_window_node_%d_bss_%d", i, k))
			if err != nil {
				return err
			}
			c.SetCoefficient(m.nodeVar(i, k), 1)
		}
	}
	return nil
}

func (m *Model) addFleetUse() error {
	out, _ := m.depotArcs()
	for k := 0; k < m.opts.Vehicles; k++ {
		c, err := m.solver.MakeRowConstraint(-linearsolver.Infinity(), 1, fmt.Sprintf("limit_use_bss_%d", k))
		if err != nil {
			return err
		}
		for _, a := range out {
			c.SetCoefficient(m.arcVar(a.From, a.To, k), 1)
		}
	}
	return nil
}

// Solve runs the engine on the model. Only an optimal solve yields a Result.
func (m *Model) Solve() (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	status := m.solver.SolveWithParameters(linearsolver.Parameters{Engine: m.opts.Engine, Params: m.opts.Params})
	elapsed := time.Since(start)
	m.opts.Metrics.ObserveSolve(problem, status.String(), elapsed)
	log.Infof("bss run %s: %v in %v", runID, status, elapsed)

	switch status {
	case linearsolver.Optimal:
	case linearsolver.Infeasible:
		return nil, ErrInfeasible
	default:
		return nil, &StatusError{Status: status}
	}

	arcs := make(map[solution.ArcKey]int64, len(m.y))
	var travel int64
	for key, y := range m.y {
		val := y.SolutionValue()
		arcs[key] = val
		travel += val * m.distance(key.Arc()) * m.weights[key.Class]
	}
	nodes := make(map[solution.NodeKey]int64, len(m.v))
	for key, v := range m.v {
		nodes[key] = v.SolutionValue()
	}
	return &Result{
		RunID:      runID,
		Objective:  int64(m.solver.Objective().Value()),
		TravelCost: travel,
		ArcUse:     solution.DecodeArcs(arcs),
		Schedule:   solution.DecodeNodes(nodes),
		WallTime:   elapsed,
	}, nil
}

// Solve builds and solves the BSS problem on `net`.
func Solve(net *network.Network, opts Options) (*Result, error) {
	m, err := Build(net, opts)
	if err != nil {
		return nil, err
	}
	return m.Solve()
}
