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

package cpmodel

import (
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
)

// CpSolverStatus is the terminal status of a solve.
type CpSolverStatus int

const (
	// Unknown means the search stopped before reaching any conclusion.
	Unknown CpSolverStatus = iota
	// ModelInvalid means the model failed validation and was not solved.
	ModelInvalid
	// Feasible means a solution was found but its optimality was not proven.
	Feasible
	// Infeasible means the engine proved that no assignment satisfies the model.
	Infeasible
	// Optimal means an optimal solution was found, or any solution for a model without objective.
	Optimal
)

func (s CpSolverStatus) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case ModelInvalid:
		return "MODEL_INVALID"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Optimal:
		return "OPTIMAL"
	}
	return fmt.Sprintf("CpSolverStatus(%d)", int(s))
}

// SearchBranching selects how the engine branches.
type SearchBranching int

const (
	// AutomaticSearch lets the engine choose.
	AutomaticSearch SearchBranching = iota
	// FixedSearch follows the model's decision strategies.
	FixedSearch
)

// SolverParameters configures a solve. A nil *SolverParameters means defaults.
type SolverParameters struct {
	SearchBranching SearchBranching
	// EnumerateAllSolutions asks the engine to visit every improving solution instead of
	// pruning aggressively. The returned optimum is the same.
	EnumerateAllSolutions bool
	// StopAfterFirstSolution returns the first solution found with a Feasible status.
	StopAfterFirstSolution bool
}

// CpSolverResponse is the result of a solve. Solution holds one value per model variable and is
// empty unless Status is Feasible or Optimal.
type CpSolverResponse struct {
	Status         CpSolverStatus
	Solution       []int64
	ObjectiveValue float64
	WallTime       time.Duration
	SolutionInfo   string
}

// Engine solves a CpModel. Implementations must return a response for every terminal outcome
// (including an invalid model) and reserve the error for transport or internal failures.
type Engine interface {
	Solve(m *CpModel, params *SolverParameters) (*CpSolverResponse, error)
}

// DefaultEngine is used by SolveCpModel and SolveCpModelWithParameters.
var DefaultEngine Engine = PseudoBooleanEngine{}

// SolveCpModel solves a CP Model with the default engine and parameters.
func SolveCpModel(input *CpModel) (*CpSolverResponse, error) {
	return SolveCpModelWithParameters(input, nil)
}

// SolveCpModelWithParameters solves a CP Model with the default engine and the given solver
// parameters.
func SolveCpModelWithParameters(input *CpModel, params *SolverParameters) (*CpSolverResponse, error) {
	return SolveCpModelWithEngine(input, params, DefaultEngine)
}

// SolveCpModelWithEngine validates the model and solves it with `e`.
func SolveCpModelWithEngine(input *CpModel, params *SolverParameters, e Engine) (*CpSolverResponse, error) {
	if params == nil {
		params = &SolverParameters{}
	}
	if err := ValidateModel(input); err != nil {
		log.Warningf("model %q is invalid: %v", input.Name, err)
		return &CpSolverResponse{Status: ModelInvalid, SolutionInfo: err.Error()}, nil
	}
	start := time.Now()
	res, err := e.Solve(input, params)
	if err != nil {
		return nil, fmt.Errorf("solving model %q: %w", input.Name, err)
	}
	if res.WallTime == 0 {
		res.WallTime = time.Since(start)
	}
	log.V(1).Infof("model %q: status %v, objective %v, %v", input.Name, res.Status, res.ObjectiveValue, res.WallTime)
	return res, nil
}

var errInvalidModel = errors.New("invalid model")

// ValidateModel checks that every variable has a non-empty, well formed domain and that every
// constraint, objective term and strategy only references existing variables.
func ValidateModel(m *CpModel) error {
	if m == nil {
		return fmt.Errorf("nil model: %w", errInvalidModel)
	}
	n := VarIndex(len(m.Variables))
	for i, v := range m.Variables {
		d := v.Domain
		if len(d) == 0 || len(d)%2 != 0 {
			return fmt.Errorf("variable #%d %q has malformed domain %v: %w", i, v.Name, d, errInvalidModel)
		}
		for j := 0; j < len(d); j += 2 {
			if d[j] > d[j+1] || (j > 0 && d[j] <= d[j-1]) {
				return fmt.Errorf("variable #%d %q has empty or unsorted domain %v: %w", i, v.Name, d, errInvalidModel)
			}
		}
	}
	checkVar := func(what string, ind VarIndex) error {
		if p := ind.positiveIndex(); p >= n {
			return fmt.Errorf("%s references unknown variable %d: %w", what, ind, errInvalidModel)
		}
		return nil
	}
	checkLiteral := func(what string, ind VarIndex) error {
		if err := checkVar(what, ind); err != nil {
			return err
		}
		d := m.Variables[ind.positiveIndex()].Domain
		if d[0] < 0 || d[len(d)-1] > 1 {
			return fmt.Errorf("%s uses non Boolean variable %d as literal: %w", what, ind, errInvalidModel)
		}
		return nil
	}
	checkExpr := func(what string, e *LinearExpression) error {
		if e == nil || len(e.Vars) != len(e.Coeffs) {
			return fmt.Errorf("%s has a malformed expression: %w", what, errInvalidModel)
		}
		for _, v := range e.Vars {
			if v < 0 {
				return fmt.Errorf("%s has negative variable index %d: %w", what, v, errInvalidModel)
			}
			if err := checkVar(what, v); err != nil {
				return err
			}
		}
		return nil
	}
	for i, ct := range m.Constraints {
		what := fmt.Sprintf("constraint #%d %q", i, ct.Name)
		if ct.bodies() != 1 {
			return fmt.Errorf("%s must have exactly one body: %w", what, errInvalidModel)
		}
		for _, l := range ct.EnforcementLiteral {
			if err := checkLiteral(what, l); err != nil {
				return err
			}
		}
		switch {
		case ct.Linear != nil:
			lin := ct.Linear
			if err := checkExpr(what, &LinearExpression{Vars: lin.Vars, Coeffs: lin.Coeffs}); err != nil {
				return err
			}
			if len(lin.Domain)%2 != 0 {
				return fmt.Errorf("%s has malformed domain %v: %w", what, lin.Domain, errInvalidModel)
			}
		case ct.LinMax != nil:
			if len(ct.LinMax.Exprs) == 0 {
				return fmt.Errorf("%s: %w", what, ErrEmptyMax)
			}
			if err := checkExpr(what, ct.LinMax.Target); err != nil {
				return err
			}
			for _, e := range ct.LinMax.Exprs {
				if err := checkExpr(what, e); err != nil {
					return err
				}
			}
		default:
			for _, arg := range []*BoolArgument{ct.BoolOr, ct.BoolAnd, ct.AtMostOne, ct.ExactlyOne} {
				if arg == nil {
					continue
				}
				for _, l := range arg.Literals {
					if err := checkLiteral(what, l); err != nil {
						return err
					}
				}
			}
		}
	}
	if o := m.Objective; o != nil {
		if err := checkExpr("objective", &LinearExpression{Vars: o.Vars, Coeffs: o.Coeffs}); err != nil {
			return err
		}
	}
	for i, s := range m.SearchStrategy {
		for _, v := range s.Variables {
			if err := checkVar(fmt.Sprintf("strategy #%d", i), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SolutionBooleanValue returns the value of BoolVar `bv` in the response.
func SolutionBooleanValue(r *CpSolverResponse, bv BoolVar) bool {
	return bv.evaluateSolutionValue(r) != 0
}

// SolutionIntegerValue returns the value of LinearArgument `la` in the response.
func SolutionIntegerValue(r *CpSolverResponse, la LinearArgument) int64 {
	return la.evaluateSolutionValue(r)
}

// ObjectiveValue evaluates the objective of `m` on `values`. A model without objective has value 0.
func ObjectiveValue(m *CpModel, values []int64) float64 {
	o := m.Objective
	if o == nil {
		return 0
	}
	var sum int64
	for i, v := range o.Vars {
		sum += o.Coeffs[i] * values[v]
	}
	scale := o.ScalingFactor
	if scale == 0 {
		scale = 1
	}
	return scale * (float64(sum) + o.Offset)
}

func evalExpr(e *LinearExpression, values []int64) int64 {
	s := e.Offset
	for i, v := range e.Vars {
		s += e.Coeffs[i] * values[v]
	}
	return s
}

func literalValue(l VarIndex, values []int64) bool {
	if l < 0 {
		return values[l.positiveIndex()] == 0
	}
	return values[l] == 1
}

// CheckSolution verifies that `values` is an assignment satisfying every variable domain and every
// enforced constraint of `m`. It returns the first violation found.
func CheckSolution(m *CpModel, values []int64) error {
	if len(values) != len(m.Variables) {
		return fmt.Errorf("got %d values for %d variables", len(values), len(m.Variables))
	}
	for i, v := range m.Variables {
		d, err := FromFlatIntervals(v.Domain)
		if err != nil {
			return err
		}
		if !d.Contains(values[i]) {
			return fmt.Errorf("variable #%d %q = %d outside its domain %v", i, v.Name, values[i], v.Domain)
		}
	}
	for i, ct := range m.Constraints {
		enforced := true
		for _, l := range ct.EnforcementLiteral {
			enforced = enforced && literalValue(l, values)
		}
		if !enforced {
			continue
		}
		ok := true
		switch {
		case ct.Linear != nil:
			s := evalExpr(&LinearExpression{Vars: ct.Linear.Vars, Coeffs: ct.Linear.Coeffs}, values)
			d, err := FromFlatIntervals(ct.Linear.Domain)
			if err != nil {
				return err
			}
			ok = d.Contains(s)
		case ct.LinMax != nil:
			target := evalExpr(ct.LinMax.Target, values)
			best := evalExpr(ct.LinMax.Exprs[0], values)
			for _, e := range ct.LinMax.Exprs[1:] {
				if v := evalExpr(e, values); v > best {
					best = v
				}
			}
			ok = target == best
		default:
			count := 0
			var lits []VarIndex
			switch {
			case ct.BoolOr != nil:
				lits = ct.BoolOr.Literals
			case ct.BoolAnd != nil:
				lits = ct.BoolAnd.Literals
			case ct.AtMostOne != nil:
				lits = ct.AtMostOne.Literals
			case ct.ExactlyOne != nil:
				lits = ct.ExactlyOne.Literals
			}
			for _, l := range lits {
				if literalValue(l, values) {
					count++
				}
			}
			switch {
			case ct.BoolOr != nil:
				ok = count >= 1
			case ct.BoolAnd != nil:
				ok = count == len(lits)
			case ct.AtMostOne != nil:
				ok = count <= 1
			case ct.ExactlyOne != nil:
				ok = count == 1
			}
		}
		if !ok {
			return fmt.Errorf("constraint #%d %q is violated", i, ct.Name)
		}
	}
	return nil
}
