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

// Package linearsolver is a row-oriented integer programming API: variables with bounds, rows
// `lb <= sum(coeff * var) <= ub` and a linear objective. Models are lowered onto cpmodel and
// solved by a cpmodel.Engine.
package linearsolver

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"

	"github.com/L043N70/weave-public/sat/cpmodel"
)

// SolverType selects the solving backend.
type SolverType int

const (
	// CPSATIntegerProgramming solves pure integer programs with a cpmodel engine.
	CPSATIntegerProgramming SolverType = iota
	// GLOPLinearProgramming is a continuous LP backend. Not linked in this module.
	GLOPLinearProgramming
	// SCIPMixedIntegerProgramming is a MIP backend. Not linked in this module.
	SCIPMixedIntegerProgramming
)

func (t SolverType) String() string {
	switch t {
	case CPSATIntegerProgramming:
		return "CP_SAT_INTEGER_PROGRAMMING"
	case GLOPLinearProgramming:
		return "GLOP_LINEAR_PROGRAMMING"
	case SCIPMixedIntegerProgramming:
		return "SCIP_MIXED_INTEGER_PROGRAMMING"
	}
	return fmt.Sprintf("SolverType(%d)", int(t))
}

// ResultStatus is the outcome of Solve.
type ResultStatus int

const (
	// NotSolved means Solve was not called, or the engine stopped without a conclusion.
	NotSolved ResultStatus = iota
	Optimal
	Feasible
	Infeasible
	Unbounded
	// Abnormal means the engine failed.
	Abnormal
	// ModelInvalid means the model cannot be lowered, for instance because a variable is unbounded.
	ModelInvalid
)

func (s ResultStatus) String() string {
	switch s {
	case NotSolved:
		return "NOT_SOLVED"
	case Optimal:
		return "OPTIMAL"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Unbounded:
		return "UNBOUNDED"
	case Abnormal:
		return "ABNORMAL"
	case ModelInvalid:
		return "MODEL_INVALID"
	}
	return fmt.Sprintf("ResultStatus(%d)", int(s))
}

var (
	errUnbounded   = errors.New("variable must have finite bounds")
	errFractional  = errors.New("coefficient must be integral")
	errContinuous  = errors.New("continuous variables need a linear programming solver type")
	errDuplicateID = errors.New("name already exists")
)

// Infinity is the bound used for unbounded rows.
func Infinity() float64 {
	return math.Inf(1)
}

// SupportsProblemType returns whether the given solver type is available.
func SupportsProblemType(t SolverType) bool {
	return t == CPSATIntegerProgramming
}

// Parameters configures SolveWithParameters. Zero values mean the cpmodel defaults.
type Parameters struct {
	Engine cpmodel.Engine
	Params *cpmodel.SolverParameters
}

// LinearSolver holds an integer program and the result of its last solve.
type LinearSolver struct {
	name        string
	problemType SolverType
	vars        []*Variable
	constraints []*Constraint
	varNames    map[string]*Variable
	consNames   map[string]*Constraint
	objective   *Objective

	res      *cpmodel.CpSolverResponse
	status   ResultStatus
	wallTime time.Duration
}

// New initializes a new linear solver, given a name and a solver type.
func New(name string, t SolverType) (*LinearSolver, error) {
	if !SupportsProblemType(t) {
		return nil, fmt.Errorf("problem type %v not supported", t)
	}
	ls := &LinearSolver{
		name:        name,
		problemType: t,
		varNames:    make(map[string]*Variable),
		consNames:   make(map[string]*Constraint),
	}
	ls.objective = &Objective{coeffs: make(map[*Variable]float64)}
	return ls, nil
}

// Name returns the name given to New.
func (ls *LinearSolver) Name() string { return ls.name }

// ProblemType returns the solver type selected.
func (ls *LinearSolver) ProblemType() SolverType { return ls.problemType }

// NumVariables returns the number of variables.
func (ls *LinearSolver) NumVariables() int { return len(ls.vars) }

// NumConstraints returns the number of rows.
func (ls *LinearSolver) NumConstraints() int { return len(ls.constraints) }

// Variable is a column of the model.
type Variable struct {
	index   int
	name    string
	lb, ub  float64
	integer bool
	ls      *LinearSolver
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Index returns the position of the variable in the model.
func (v *Variable) Index() int { return v.index }

// LB returns the lower bound.
func (v *Variable) LB() float64 { return v.lb }

// UB returns the upper bound.
func (v *Variable) UB() float64 { return v.ub }

// SetLB sets the lower bound.
func (v *Variable) SetLB(lb float64) { v.lb = lb }

// SetUB sets the upper bound.
func (v *Variable) SetUB(ub float64) { v.ub = ub }

// Integer reports whether the variable is integral.
func (v *Variable) Integer() bool { return v.integer }

// SolutionValue returns the value of the variable in the last solution, or 0 if the last solve
// found none.
func (v *Variable) SolutionValue() int64 {
	res := v.ls.res
	if res == nil || v.index >= len(res.Solution) {
		return 0
	}
	return res.Solution[v.index]
}

// MakeVar creates and returns a new variable.
//
// Make `name` an empty string if you would like a unique variable name to be generated.
// Otherwise an error is returned if the provided `name` already exists as a variable name.
func (ls *LinearSolver) MakeVar(lb, ub float64, integer bool, name string) (*Variable, error) {
	if !integer && ls.problemType == CPSATIntegerProgramming {
		return nil, fmt.Errorf("variable %q: %w", name, errContinuous)
	}
	if name == "" {
		name = fmt.Sprintf("auto_v_%09d", len(ls.vars))
	}
	if ls.LookupVar(name) != nil {
		return nil, fmt.Errorf("variable %s: %w", name, errDuplicateID)
	}
	v := &Variable{index: len(ls.vars), name: name, lb: lb, ub: ub, integer: integer, ls: ls}
	ls.vars = append(ls.vars, v)
	ls.varNames[name] = v
	return v, nil
}

// MakeIntVar creates an integer variable in `[lb, ub]`.
func (ls *LinearSolver) MakeIntVar(lb, ub float64, name string) (*Variable, error) {
	return ls.MakeVar(lb, ub, true, name)
}

// MakeBoolVar creates a 0-1 variable.
func (ls *LinearSolver) MakeBoolVar(name string) (*Variable, error) {
	return ls.MakeVar(0, 1, true, name)
}

// LookupVar returns the variable with the given name, or nil if not found.
func (ls *LinearSolver) LookupVar(name string) *Variable {
	return ls.varNames[name]
}

// Constraint is a row `lb <= sum(coeff * var) <= ub`.
type Constraint struct {
	index  int
	name   string
	lb, ub float64
	coeffs map[*Variable]float64
	order  []*Variable
}

// Name returns the row name.
func (c *Constraint) Name() string { return c.name }

// Index returns the position of the row in the model.
func (c *Constraint) Index() int { return c.index }

// Bounds returns the row bounds.
func (c *Constraint) Bounds() (lb, ub float64) { return c.lb, c.ub }

// SetBounds replaces the row bounds.
func (c *Constraint) SetBounds(lb, ub float64) { c.lb, c.ub = lb, ub }

// SetCoefficient sets the coefficient on a variable in a constraint. Setting a coefficient twice
// overwrites it.
func (c *Constraint) SetCoefficient(v *Variable, coef float64) {
	if _, ok := c.coeffs[v]; !ok {
		c.order = append(c.order, v)
	}
	c.coeffs[v] = coef
}

// Coefficient gets the coefficient on a variable in a constraint.
func (c *Constraint) Coefficient(v *Variable) float64 {
	return c.coeffs[v]
}

// MakeRowConstraint creates and returns a new row with bounds `[lb, ub]`. Use -Infinity() or
// Infinity() for a one sided row.
//
// Make `name` an empty string if you would like a unique constraint name to be generated.
// Otherwise an error is returned if the provided `name` already exists as a constraint name.
func (ls *LinearSolver) MakeRowConstraint(lb, ub float64, name string) (*Constraint, error) {
	if name == "" {
		name = fmt.Sprintf("auto_c_%09d", len(ls.constraints))
	}
	if ls.LookupConstraint(name) != nil {
		return nil, fmt.Errorf("constraint %s: %w", name, errDuplicateID)
	}
	c := &Constraint{index: len(ls.constraints), name: name, lb: lb, ub: ub, coeffs: make(map[*Variable]float64)}
	ls.constraints = append(ls.constraints, c)
	ls.consNames[name] = c
	return c, nil
}

// LookupConstraint returns the constraint with the given name, or nil if not found.
func (ls *LinearSolver) LookupConstraint(name string) *Constraint {
	return ls.consNames[name]
}

// Objective is the linear objective of the model. It is minimized unless SetMaximization is
// called.
type Objective struct {
	coeffs   map[*Variable]float64
	order    []*Variable
	offset   float64
	maximize bool
	value    float64
}

// Objective returns the model's objective.
func (ls *LinearSolver) Objective() *Objective {
	return ls.objective
}

// SetCoefficient sets the coefficient on a variable in the objective.
func (o *Objective) SetCoefficient(v *Variable, coef float64) {
	if _, ok := o.coeffs[v]; !ok {
		o.order = append(o.order, v)
	}
	o.coeffs[v] = coef
}

// Coefficient gets the coefficient on a variable in the objective.
func (o *Objective) Coefficient(v *Variable) float64 { return o.coeffs[v] }

// SetOffset sets the constant term.
func (o *Objective) SetOffset(offset float64) { o.offset = offset }

// Offset returns the constant term.
func (o *Objective) Offset() float64 { return o.offset }

// SetMinimization makes the objective a minimization.
func (o *Objective) SetMinimization() { o.maximize = false }

// SetMaximization makes the objective a maximization.
func (o *Objective) SetMaximization() { o.maximize = true }

// Minimization reports whether the objective is minimized.
func (o *Objective) Minimization() bool { return !o.maximize }

// Maximization reports whether the objective is maximized.
func (o *Objective) Maximization() bool { return o.maximize }

// Clear removes every term and resets the direction to minimization.
func (o *Objective) Clear() {
	o.coeffs = make(map[*Variable]float64)
	o.order = nil
	o.offset = 0
	o.maximize = false
}

// Value returns the objective value of the last solution.
func (o *Objective) Value() float64 { return o.value }

func toInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%v: %w", f, errFractional)
	}
	return int64(f), nil
}

func rowBound(f float64, round func(float64) float64) int64 {
	switch {
	case f <= -1<<62:
		return math.MinInt64
	case f >= 1<<62:
		return math.MaxInt64
	}
	return int64(round(f))
}

func (ls *LinearSolver) lower() (*cpmodel.Builder, []cpmodel.IntVar, error) {
	b := cpmodel.NewCpModelBuilder()
	b.SetName(ls.name)
	ivs := make([]cpmodel.IntVar, len(ls.vars))
	for i, v := range ls.vars {
		if math.IsInf(v.lb, 0) || math.IsInf(v.ub, 0) || math.Abs(v.lb) > 1<<53 || math.Abs(v.ub) > 1<<53 {
			return nil, nil, fmt.Errorf("variable %s [%v, %v]: %w", v.name, v.lb, v.ub, errUnbounded)
		}
		ivs[i] = b.NewIntVar(int64(math.Ceil(v.lb)), int64(math.Floor(v.ub))).WithName(v.name)
	}
	for _, c := range ls.constraints {
		expr := cpmodel.NewLinearExpr()
		for _, v := range c.order {
			coeff, err := toInt64(c.coeffs[v])
			if err != nil {
				return nil, nil, fmt.Errorf("constraint %s, variable %s: %w", c.name, v.name, err)
			}
			if coeff != 0 {
				expr.AddTerm(ivs[v.index], coeff)
			}
		}
		b.AddLinearConstraint(expr, rowBound(c.lb, math.Ceil), rowBound(c.ub, math.Floor)).WithName(c.name)
	}
	o := ls.objective
	if len(o.order) > 0 || o.offset != 0 {
		offset, err := toInt64(o.offset)
		if err != nil {
			return nil, nil, fmt.Errorf("objective offset: %w", err)
		}
		expr := cpmodel.NewLinearExpr().AddConstant(offset)
		for _, v := range o.order {
			coeff, err := toInt64(o.coeffs[v])
			if err != nil {
				return nil, nil, fmt.Errorf("objective, variable %s: %w", v.name, err)
			}
			if coeff != 0 {
				expr.AddTerm(ivs[v.index], coeff)
			}
		}
		if o.maximize {
			b.Maximize(expr)
		} else {
			b.Minimize(expr)
		}
	}
	return b, ivs, nil
}

// Model lowers the integer program to a CP model. It fails when a variable is unbounded or a
// coefficient is not integral.
func (ls *LinearSolver) Model() (*cpmodel.CpModel, error) {
	b, _, err := ls.lower()
	if err != nil {
		return nil, err
	}
	return b.Model()
}

// Solve solves the model with the default engine and returns a status.
func (ls *LinearSolver) Solve() ResultStatus {
	return ls.SolveWithParameters(Parameters{})
}

// SolveWithParameters is the same as Solve() except it takes Parameters.
func (ls *LinearSolver) SolveWithParameters(p Parameters) ResultStatus {
	ls.res = nil
	ls.objective.value = 0
	m, err := ls.Model()
	if err != nil {
		log.Warningf("linear solver %q: %v", ls.name, err)
		ls.status = ModelInvalid
		return ls.status
	}
	engine := p.Engine
	if engine == nil {
		engine = cpmodel.DefaultEngine
	}
	log.V(1).Infof("linear solver %q: %d variables, %d rows", ls.name, len(ls.vars), len(ls.constraints))
	res, err := cpmodel.SolveCpModelWithEngine(m, p.Params, engine)
	if err != nil {
		log.Errorf("linear solver %q: %v", ls.name, err)
		ls.status = Abnormal
		return ls.status
	}
	switch res.Status {
	case cpmodel.Optimal:
		ls.status = Optimal
	case cpmodel.Feasible:
		ls.status = Feasible
	case cpmodel.Infeasible:
		ls.status = Infeasible
	case cpmodel.ModelInvalid:
		ls.status = ModelInvalid
	default:
		ls.status = NotSolved
	}
	if ls.status == Optimal || ls.status == Feasible {
		ls.res = res
		ls.objective.value = res.ObjectiveValue
	}
	ls.wallTime = res.WallTime
	return ls.status
}

// WallTime returns the duration of the last solve.
func (ls *LinearSolver) WallTime() time.Duration { return ls.wallTime }

// Status returns the status of the last solve.
func (ls *LinearSolver) Status() ResultStatus { return ls.status }
