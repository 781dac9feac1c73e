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

// Package uav formulates the unmanned aerial vehicle routing problem as a CP model.
//
// Every aircraft k leaves a depot, visits mandatory nodes (each exactly once over the whole
// fleet) and may swap its battery at swap points. Along a used arc (i, j), arrival time w and
// consumed energy q grow by the arc time and energy; a swap at i adds the swap time T and lets the
// waste term r[i] absorb the energy thrown away by topping up a non-empty battery.
//
// The energy bound at node i depends on how many swap points the aircraft visited before i. The
// model reconstructs that count declaratively: b_bar[i,j] orders arrival times, b[i,j] restricts
// the order to visited nodes, a_bar[i,U] witnesses that every swap point of the subset U precedes
// i, acm[i] is the size of the largest witnessed subset, and a[i,U] selects at most one subset of
// that size to bound q[i] <= Q + Q·Σ_{s∈U} z[s]. Subsets come from a network.SubsetIndex built
// before any constraint, so the model grows as 2^|B| with the number of swap points B.
package uav

import (
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"

	"github.com/L043N70/weave-public/internal/metrics"
	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

const problem = "uav"

var (
	// ErrInfeasible is returned when the engine proves that no routing exists.
	ErrInfeasible = errors.New("the UAV problem was proven infeasible")
	// ErrNotProvenOptimal is returned when the engine found a solution without proving it optimal.
	ErrNotProvenOptimal = errors.New("a feasible solution for the UAV problem was found, but optimality is not proven")
	// ErrNoVehicles is returned by Build when Options.Vehicles is not positive.
	ErrNoVehicles = errors.New("at least one aircraft is required")
	// ErrClassWeights is returned by Build when fewer weights than aircraft are given.
	ErrClassWeights = errors.New("one class weight per aircraft is required")
)

// StatusError reports a solve that ended with an unexpected status.
type StatusError struct {
	Status cpmodel.CpSolverStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("no solution was found for the UAV problem, status %v", e.Status)
}

// Options configures a UAV model.
type Options struct {
	// Vehicles is the number of aircraft K1.
	Vehicles int
	// Capacity is the battery capacity Q.
	Capacity int64
	// SwapTime is the duration T of a battery swap.
	SwapTime int64
	// ClassWeights scales the energy cost of each aircraft. Defaults to 1 for every aircraft.
	ClassWeights []int64
	// UseAllVehicles requires every aircraft to leave a depot exactly once. When false an aircraft
	// may stay home. Defaults to true.
	UseAllVehicles *bool
	// Engine defaults to cpmodel.DefaultEngine.
	Engine cpmodel.Engine
	// Params overrides the fixed search configuration of the model.
	Params *cpmodel.SolverParameters
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

func (o Options) useAll() bool {
	return o.UseAllVehicles == nil || *o.UseAllVehicles
}

// Bounds are the instance-derived domain bounds of the time, waste and energy variables.
type Bounds struct {
	MaxTime   int64
	MaxWaste  int64
	MaxEnergy int64
}

// ComputeBounds derives the bounds from the worst case traversal of every node. Swaps only
// widen the bounds when a traversal could exhaust the capacity.
func ComputeBounds(net *network.Network, capacity, swapTime int64) Bounds {
	nodes := int64(net.NumNodes())
	swaps := int64(len(net.SwapPoints()))
	maxCost := nodes * net.MaxEnergy()
	maxTime := nodes * net.MaxTime()

	var b Bounds
	if maxCost <= capacity {
		b.MaxTime = maxTime
	} else {
		b.MaxTime = maxTime + swaps*swapTime
		b.MaxWaste = capacity - net.MinEnergy()
		if b.MaxWaste < 0 {
			b.MaxWaste = 0
		}
	}
	b.MaxEnergy = maxCost + swaps*b.MaxWaste
	return b
}

// Result is an optimal UAV routing. Every value group is indexed by aircraft first.
type Result struct {
	RunID     string
	Objective int64
	// ArcUse holds x: aircraft -> arc -> 0/1.
	ArcUse solution.ArcValues
	// Time holds the arrival times w.
	Time solution.NodeValues
	// Swap holds the swap flags z of the swap points.
	Swap solution.NodeValues
	// Energy holds the consumed energy q.
	Energy solution.NodeValues
	// Waste holds the wasted energy r of the swap points.
	Waste solution.NodeValues
	// PriorSwaps holds acm, the number of swap points visited before each node.
	PriorSwaps solution.NodeValues
	WallTime   time.Duration
}

// subsetKey indexes a per-node, per-subset, per-aircraft variable.
type subsetKey struct {
	Node   network.NodeID
	Subset string
	Class  int
}

// Model is a built UAV CP model.
type Model struct {
	net     *network.Network
	opts    Options
	bounds  Bounds
	weights []int64
	subsets network.SubsetIndex

	cp *cpmodel.Builder
	// groups lists the variables of each group in creation order.
	groups map[string][]cpmodel.IntVar

	x                  map[solution.ArcKey]cpmodel.BoolVar
	w, q, r            map[solution.NodeKey]cpmodel.IntVar
	z                  map[solution.NodeKey]cpmodel.BoolVar
	nv, fnv, fsv, sfsv map[solution.NodeKey]cpmodel.BoolVar
	bBar, b            map[solution.ArcKey]cpmodel.BoolVar
	aBar, a            map[subsetKey]cpmodel.BoolVar
	ac                 map[subsetKey]cpmodel.IntVar
	acm                map[solution.NodeKey]cpmodel.IntVar
	acmp               map[solution.NodeKey]cpmodel.BoolVar
	nsv                []cpmodel.BoolVar
	svc, nvfsc         []cpmodel.IntVar
	nvsc               map[solution.NodeKey]cpmodel.IntVar

	// depotNeighbours are the heads of the arcs leaving a depot.
	depotNeighbours []network.NodeID
}

// Bounds returns the bounds used by the model.
func (m *Model) Bounds() Bounds { return m.bounds }

// NumVariables returns the number of variables of the model.
func (m *Model) NumVariables() int { return m.cp.NumVariables() }

// NumConstraints returns the number of constraints of the model.
func (m *Model) NumConstraints() int { return m.cp.NumConstraints() }

// CpModel returns the underlying CP model.
func (m *Model) CpModel() (*cpmodel.CpModel, error) { return m.cp.Model() }

// Build formulates the UAV problem on `net`.
func Build(net *network.Network, opts Options) (*Model, error) {
	if opts.Vehicles < 1 {
		return nil, fmt.Errorf("%d aircraft: %w", opts.Vehicles, ErrNoVehicles)
	}
	weights := opts.ClassWeights
	if weights == nil {
		weights = make([]int64, opts.Vehicles)
		for k := range weights {
			weights[k] = 1
		}
	}
	if len(weights) < opts.Vehicles {
		return nil, fmt.Errorf("%d weights for %d aircraft: %w", len(weights), opts.Vehicles, ErrClassWeights)
	}
	subsets, err := net.SubsetIndex()
	if err != nil {
		return nil, err
	}

	m := &Model{
		net:     net,
		opts:    opts,
		bounds:  ComputeBounds(net, opts.Capacity, opts.SwapTime),
		weights: weights,
		subsets: subsets,
		cp:      cpmodel.NewCpModelBuilder(),
		groups:  make(map[string][]cpmodel.IntVar),
	}
	m.cp.SetName(problem)
	m.addVariables()
	m.addVisitConstraints()
	m.addSwapBookkeeping()
	m.addOrderConstraints()
	m.addSubsetConstraints()
	m.addRoutingConstraints()
	m.addPropagationConstraints()
	m.addEnergyBounds()
	m.addPinning()
	m.addObjective()
	m.addDecisionStrategy()

	if _, err := m.cp.Model(); err != nil {
		return nil, fmt.Errorf("building the UAV model: %w", err)
	}
	log.V(1).Infof("uav model: %d aircraft, %d swap subsets, %d variables, %d constraints, bounds %+v",
		opts.Vehicles, subsets.Len(), m.NumVariables(), m.NumConstraints(), m.bounds)
	opts.Metrics.ObserveModel(problem, m.NumVariables(), m.NumConstraints())
	return m, nil
}

// Solve builds and solves the UAV problem on `net`.
func Solve(net *network.Network, opts Options) (*Result, error) {
	m, err := Build(net, opts)
	if err != nil {
		return nil, err
	}
	return m.Solve()
}
