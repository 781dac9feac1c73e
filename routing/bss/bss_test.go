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

package bss

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/L043N70/weave-public/internal/metrics"
	"github.com/L043N70/weave-public/linearsolver"
	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/sat/cpmodel"
)

func mustNetwork(t *testing.T, nodes []network.Node, arcs map[network.Arc]network.ArcCost) *network.Network {
	t.Helper()
	n, err := network.New(nodes, arcs)
	if err != nil {
		t.Fatalf("network.New() err = %v, want nil", err)
	}
	return n
}

// singleStop is a depot and one pit stop with an ample window.
func singleStop(t *testing.T) *network.Network {
	return mustNetwork(t,
		[]network.Node{
			{ID: 0, Roles: network.Depot},
			{ID: 1, Roles: network.Demand, Window: &network.TimeWindow{Earliest: 1, Latest: 100}},
		},
		map[network.Arc]network.ArcCost{
			{From: 0, To: 1}: {Distance: 5},
			{From: 1, To: 0}: {Distance: 5},
		})
}

// triangle has two pit stops reachable from the depot and from each other.
func triangle(t *testing.T, d int64, w1, w2 network.TimeWindow) *network.Network {
	arcs := make(map[network.Arc]network.ArcCost)
	for i := network.NodeID(0); i < 3; i++ {
		for j := network.NodeID(0); j < 3; j++ {
			if i != j {
				arcs[network.Arc{From: i, To: j}] = network.ArcCost{Distance: d}
			}
		}
	}
	return mustNetwork(t,
		[]network.Node{
			{ID: 0, Roles: network.Depot},
			{ID: 1, Roles: network.Demand, Window: &w1},
			{ID: 2, Roles: network.Demand, Window: &w2},
		}, arcs)
}

func TestClassWeights(t *testing.T) {
	testCases := []struct {
		base []int64
		k    int
		want []int64
	}{
		{base: nil, k: 3, want: []int64{1, 2, 4}},
		{base: nil, k: 7, want: []int64{1, 2, 4, 8, 16, 32, 64}},
		{base: []int64{3}, k: 3, want: []int64{3, 6, 12}},
		{base: []int64{5, 1}, k: 2, want: []int64{5, 1}},
	}
	for _, test := range testCases {
		if diff := cmp.Diff(test.want, classWeights(test.base, test.k)); diff != "" {
			t.Errorf("classWeights(%v, %d) returned with unexpected diff (-want+got);\n%s", test.base, test.k, diff)
		}
	}
}

func TestBuild(t *testing.T) {
	m, err := Build(singleStop(t), Options{Vehicles: 1, SwapTime: 2})
	if err != nil {
		t.Fatalf("Build() err = %v, want nil", err)
	}
	if got := m.MaxTime(); got != 2*5+1*2 {
		t.Errorf("MaxTime() = %d, want 12", got)
	}
	// The largest schedule gap 100 - 1 plus the longest arc and the service time.
	if got := m.BigM(); got != 99+5+2 {
		t.Errorf("BigM() = %d, want 106", got)
	}
	// Two arc uses and two schedule values.
	if got := m.Solver().NumVariables(); got != 4 {
		t.Errorf("NumVariables() = %d, want 4", got)
	}
	// Coverage, depot outflow, flow at 1, depot balance, one schedule edge, one window, fleet use.
	if got := m.Solver().NumConstraints(); got != 7 {
		t.Errorf("NumConstraints() = %d, want 7", got)
	}
	if ub := m.Solver().LookupVar("v(0)[0]").UB(); ub != 100 {
		t.Errorf("v(0)[0] UB = %v, want the latest window end 100", ub)
	}
	if _, err := Build(singleStop(t), Options{}); !errors.Is(err, ErrNoVehicles) {
		t.Errorf("Build(no vehicles) err = %v, want %v", err, ErrNoVehicles)
	}
}

func TestSolve_SingleStop(t *testing.T) {
	res, err := Solve(singleStop(t), Options{Vehicles: 1, SwapTime: 2})
	if err != nil {
		t.Fatalf("Solve() err = %v, want nil", err)
	}
	wantArcs := solution.ArcValues{0: {{From: 0, To: 1}: 1, {From: 1, To: 0}: 1}}
	if diff := cmp.Diff(wantArcs, res.ArcUse); diff != "" {
		t.Errorf("ArcUse returned with unexpected diff (-want+got);\n%s", diff)
	}
	// The return to the depot waits for travel and service: v0 >= v1 + 5 + 2.
	wantSchedule := solution.NodeValues{0: {0: 8, 1: 1}}
	if diff := cmp.Diff(wantSchedule, res.Schedule); diff != "" {
		t.Errorf("Schedule returned with unexpected diff (-want+got);\n%s", diff)
	}
	if res.Objective != 19 || res.TravelCost != 10 {
		t.Errorf("(Objective, TravelCost) = (%d, %d), want (19, 10)", res.Objective, res.TravelCost)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if diff := cmp.Diff([]network.NodeID{0, 1, 0}, res.ArcUse.Route(0, 0)); diff != "" {
		t.Errorf("Route(0, 0) returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestSolve_DisjointWindowsInfeasible(t *testing.T) {
	// Either order needs a gap of at least d + T = 12 between the two visits.
	net := triangle(t, 10, network.TimeWindow{Earliest: 1, Latest: 5}, network.TimeWindow{Earliest: 7, Latest: 9})
	_, err := Solve(net, Options{Vehicles: 1, SwapTime: 2})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("Solve() err = %v, want %v", err, ErrInfeasible)
	}
	// Same instance, same answer.
	if _, err := Solve(net, Options{Vehicles: 1, SwapTime: 2}); !errors.Is(err, ErrInfeasible) {
		t.Errorf("second Solve() err = %v, want %v", err, ErrInfeasible)
	}
}

func TestSolve_LateWindow(t *testing.T) {
	// The second window ends far past |A|·max d + |P|·T = 8.
	net := triangle(t, 1, network.TimeWindow{Earliest: 1, Latest: 5}, network.TimeWindow{Earliest: 60, Latest: 70})
	m, err := Build(net, Options{Vehicles: 1, SwapTime: 1})
	if err != nil {
		t.Fatalf("Build() err = %v, want nil", err)
	}
	if got := m.BigM(); got != 69+1+1 {
		t.Errorf("BigM() = %d, want 71", got)
	}
	res, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() err = %v, want nil", err)
	}
	if diff := cmp.Diff([]network.NodeID{0, 1, 2, 0}, res.ArcUse.Route(0, 0)); diff != "" {
		t.Errorf("Route(0, 0) returned with unexpected diff (-want+got);\n%s", diff)
	}
	wantSchedule := solution.NodeValues{0: {0: 62, 1: 1, 2: 60}}
	if diff := cmp.Diff(wantSchedule, res.Schedule); diff != "" {
		t.Errorf("Schedule returned with unexpected diff (-want+got);\n%s", diff)
	}
	if res.Objective != 62+1+60+3 {
		t.Errorf("Objective = %d, want 126", res.Objective)
	}
}

func TestSolve_Properties(t *testing.T) {
	window := network.TimeWindow{Earliest: 1, Latest: 50}
	net := triangle(t, 2, window, window)
	res, err := Solve(net, Options{Vehicles: 2, SwapTime: 1})
	if err != nil {
		t.Fatalf("Solve() err = %v, want nil", err)
	}
	covered := make(map[network.NodeID]bool)
	for _, k := range res.ArcUse.Classes() {
		in := make(map[network.NodeID]int)
		out := make(map[network.NodeID]int)
		for _, a := range res.ArcUse.Used(k) {
			out[a.From]++
			in[a.To]++
			covered[a.From] = true
		}
		for _, i := range net.NodeIDs() {
			if net.Has(i, network.Depot) {
				continue
			}
			if in[i] != out[i] {
				t.Errorf("class %d node %d: in-degree %d != out-degree %d", k, i, in[i], out[i])
			}
			if out[i] > 0 {
				w, _ := net.Window(i)
				if v := res.Schedule[k][i]; !w.Contains(v) {
					t.Errorf("class %d node %d: schedule %d outside %+v", k, i, v, w)
				}
			}
		}
	}
	for _, i := range net.Demand() {
		if !covered[i] {
			t.Errorf("demand node %d is not served", i)
		}
	}
	// One vehicle suffices; the heavier class stays home.
	if used := res.ArcUse.Used(1); len(used) != 0 {
		t.Errorf("class 1 uses %v, want no arc", used)
	}
}

type stuckEngine struct{}

func (stuckEngine) Solve(*cpmodel.CpModel, *cpmodel.SolverParameters) (*cpmodel.CpSolverResponse, error) {
	return &cpmodel.CpSolverResponse{Status: cpmodel.Unknown}, nil
}

func TestSolve_OtherStatus(t *testing.T) {
	_, err := Solve(singleStop(t), Options{Vehicles: 1, Engine: stuckEngine{}})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Solve() err = %v, want *StatusError", err)
	}
	if se.Status != linearsolver.NotSolved {
		t.Errorf("StatusError.Status = %v, want NOT_SOLVED", se.Status)
	}
}

func TestSolve_Metrics(t *testing.T) {
	rec, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewRecorder() err = %v, want nil", err)
	}
	if _, err := Solve(singleStop(t), Options{Vehicles: 1, Metrics: rec}); err != nil {
		t.Fatalf("Solve() err = %v, want nil", err)
	}
	if got := testutil.ToFloat64(rec.Solves.WithLabelValues("bss", "OPTIMAL")); got != 1 {
		t.Errorf("solves{bss,OPTIMAL} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.Variables.WithLabelValues("bss")); got != 4 {
		t.Errorf("variables{bss} = %v, want 4", got)
	}
}
