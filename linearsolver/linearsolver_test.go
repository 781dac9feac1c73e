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

package linearsolver

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/L043N70/weave-public/sat/cpmodel"
)

func newSolver(t *testing.T) *LinearSolver {
	t.Helper()
	solver, err := New("ip", CPSATIntegerProgramming)
	if err != nil {
		t.Fatalf("New(CPSAT) err = %v, want nil", err)
	}
	return solver
}

func TestNew(t *testing.T) {
	if _, err := New("lp", GLOPLinearProgramming); err == nil {
		t.Error("New(GLOP) err = nil, want not supported type error")
	}
	solver := newSolver(t)
	if solver.Name() != "ip" {
		t.Errorf("Name() = %q, want %q", solver.Name(), "ip")
	}
	if solver.ProblemType() != CPSATIntegerProgramming {
		t.Errorf("ProblemType() = %v, want %v", solver.ProblemType(), CPSATIntegerProgramming)
	}
	if status := solver.Solve(); status != Optimal {
		t.Errorf("Solve(empty) = %v, want OPTIMAL", status)
	}
	if v := solver.Objective().Value(); v != 0 {
		t.Errorf("Objective().Value() = %v, want 0", v)
	}
}

func TestObjective(t *testing.T) {
	solver := newSolver(t)
	o := solver.Objective()
	if !o.Minimization() {
		t.Error("Objective Minimization() = false, want true")
	}
	o.SetMaximization()
	if !o.Maximization() {
		t.Error("Objective Maximization() = false, want true")
	}
	o.SetOffset(2)
	if o.Offset() != 2 {
		t.Errorf("Objective Offset() = %f, want 2", o.Offset())
	}
	x, err := solver.MakeIntVar(0, 1, "x")
	if err != nil {
		t.Fatalf("MakeIntVar(x) err = %v, want nil", err)
	}
	if o.Coefficient(x) != 0 {
		t.Errorf("Variable coefficient = %f, want 0", o.Coefficient(x))
	}
	o.SetCoefficient(x, 5)
	if o.Coefficient(x) != 5 {
		t.Errorf("Variable coefficient = %f, want 5", o.Coefficient(x))
	}
	o.Clear()
	if o.Offset() != 0 || o.Maximization() || o.Coefficient(x) != 0 {
		t.Errorf("Clear() left (offset, maximize, coeff) = (%v, %v, %v)", o.Offset(), o.Maximization(), o.Coefficient(x))
	}
}

func TestVariables(t *testing.T) {
	solver := newSolver(t)
	v, err := solver.MakeIntVar(0, 2, "x")
	if err != nil {
		t.Errorf("MakeIntVar(x) err = %v, want nil", err)
	}
	if _, err := solver.MakeIntVar(0, 2, "x"); !errors.Is(err, errDuplicateID) {
		t.Errorf("MakeIntVar(x) err = %v, want duplicate var error", err)
	}
	if _, err := solver.MakeVar(0, 2.5, false, "y"); !errors.Is(err, errContinuous) {
		t.Errorf("MakeVar(continuous) err = %v, want %v", err, errContinuous)
	}
	if v.Name() != "x" || v.Index() != 0 || !v.Integer() {
		t.Errorf("Variable = (%q, %d, %v), want (x, 0, true)", v.Name(), v.Index(), v.Integer())
	}
	x := solver.LookupVar("x")
	if x.LB() != 0 {
		t.Errorf("Variable LB() = %f, want 0", x.LB())
	}
	if solver.LookupVar("y") != nil {
		t.Error("LookupVar(y) != nil, want nil")
	}
	x.SetUB(3)
	if x.UB() != 3 {
		t.Errorf("Variable UB() = %f, want 3", x.UB())
	}
	b, err := solver.MakeBoolVar("")
	if err != nil {
		t.Fatalf("MakeBoolVar() err = %v, want nil", err)
	}
	if b.Name() == "" || b.UB() != 1 {
		t.Errorf("MakeBoolVar() = (%q, ub %v), want a generated name and ub 1", b.Name(), b.UB())
	}
	if got := solver.NumVariables(); got != 2 {
		t.Errorf("NumVariables() = %d, want 2", got)
	}
}

func TestConstraints(t *testing.T) {
	solver := newSolver(t)
	x, _ := solver.MakeIntVar(0, 10, "x")
	c, err := solver.MakeRowConstraint(-Infinity(), 4, "ct")
	if err != nil {
		t.Fatalf("MakeRowConstraint(ct) err = %v, want nil", err)
	}
	if _, err := solver.MakeRowConstraint(0, 1, "ct"); err == nil {
		t.Error("MakeRowConstraint(ct) err = nil, want duplicate constraint error")
	}
	c.SetCoefficient(x, 2)
	c.SetCoefficient(x, 3)
	if c.Coefficient(x) != 3 {
		t.Errorf("Coefficient(x) = %v, want 3", c.Coefficient(x))
	}
	if lb, ub := c.Bounds(); !math.IsInf(lb, -1) || ub != 4 {
		t.Errorf("Bounds() = (%v, %v), want (-inf, 4)", lb, ub)
	}
	if solver.LookupConstraint("ct") != c || solver.NumConstraints() != 1 {
		t.Error("LookupConstraint(ct) did not return the row")
	}

	m, err := solver.Model()
	if err != nil {
		t.Fatalf("Model() err = %v, want nil", err)
	}
	want := &cpmodel.LinearConstraint{Vars: []cpmodel.VarIndex{0}, Coeffs: []int64{3}, Domain: []int64{math.MinInt64, 4}}
	if diff := cmp.Diff(want, m.Constraints[0].Linear); diff != "" {
		t.Errorf("Model() row returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestSolve(t *testing.T) {
	// max 3x + 2y s.t. x + y <= 4, x + 3y <= 6, x <= 3.
	solver := newSolver(t)
	x, _ := solver.MakeIntVar(0, 3, "x")
	y, _ := solver.MakeIntVar(0, 10, "y")
	c1, _ := solver.MakeRowConstraint(-Infinity(), 4, "c1")
	c1.SetCoefficient(x, 1)
	c1.SetCoefficient(y, 1)
	c2, _ := solver.MakeRowConstraint(-Infinity(), 6, "c2")
	c2.SetCoefficient(x, 1)
	c2.SetCoefficient(y, 3)
	o := solver.Objective()
	o.SetCoefficient(x, 3)
	o.SetCoefficient(y, 2)
	o.SetMaximization()

	if status := solver.Solve(); status != Optimal {
		t.Fatalf("Solve() = %v, want OPTIMAL", status)
	}
	if got := []int64{x.SolutionValue(), y.SolutionValue()}; !cmp.Equal(got, []int64{3, 1}) {
		t.Errorf("SolutionValue() of (x, y) = %v, want [3 1]", got)
	}
	if o.Value() != 11 {
		t.Errorf("Objective().Value() = %v, want 11", o.Value())
	}
	if solver.Status() != Optimal {
		t.Errorf("Status() = %v, want OPTIMAL", solver.Status())
	}
}

func TestSolveStatuses(t *testing.T) {
	testCases := []struct {
		name  string
		build func(*LinearSolver)
		want  ResultStatus
	}{
		{
			name: "infeasible",
			build: func(s *LinearSolver) {
				x, _ := s.MakeIntVar(0, 3, "x")
				c, _ := s.MakeRowConstraint(5, Infinity(), "c")
				c.SetCoefficient(x, 1)
			},
			want: Infeasible,
		},
		{
			name: "unbounded variable",
			build: func(s *LinearSolver) {
				x, _ := s.MakeIntVar(0, Infinity(), "x")
				s.Objective().SetCoefficient(x, 1)
			},
			want: ModelInvalid,
		},
		{
			name: "fractional coefficient",
			build: func(s *LinearSolver) {
				x, _ := s.MakeIntVar(0, 3, "x")
				c, _ := s.MakeRowConstraint(0, 2, "c")
				c.SetCoefficient(x, 0.5)
			},
			want: ModelInvalid,
		},
	}
	for _, test := range testCases {
		solver := newSolver(t)
		test.build(solver)
		if got := solver.Solve(); got != test.want {
			t.Errorf("%s: Solve() = %v, want %v", test.name, got, test.want)
		}
	}
}

type failingEngine struct{}

func (failingEngine) Solve(*cpmodel.CpModel, *cpmodel.SolverParameters) (*cpmodel.CpSolverResponse, error) {
	return nil, errors.New("engine down")
}

func TestSolveWithParameters(t *testing.T) {
	solver := newSolver(t)
	x, _ := solver.MakeIntVar(0, 3, "x")
	solver.Objective().SetCoefficient(x, 1)

	if got := solver.SolveWithParameters(Parameters{Engine: failingEngine{}}); got != Abnormal {
		t.Errorf("SolveWithParameters(failing engine) = %v, want ABNORMAL", got)
	}
	if x.SolutionValue() != 0 {
		t.Errorf("SolutionValue() after failure = %v, want 0", x.SolutionValue())
	}
	got := solver.SolveWithParameters(Parameters{Params: &cpmodel.SolverParameters{StopAfterFirstSolution: true}})
	if got != Feasible && got != Optimal {
		t.Errorf("SolveWithParameters(first solution) = %v, want FEASIBLE or OPTIMAL", got)
	}
}
