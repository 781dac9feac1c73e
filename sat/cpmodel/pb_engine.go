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
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/crillab/gophersat/solver"
	log "github.com/golang/glog"
)

// maxEncodedBits bounds the width of a variable domain, keeping every weight of the encoding far
// from int64 overflow.
const maxEncodedBits = 30

// PseudoBooleanEngine solves a CpModel with the gophersat pseudo-Boolean solver.
//
// Each variable with domain [lb, ub] becomes lb + sum(2^b * bit_b); every linear row becomes one
// or more pseudo-Boolean `>=` constraints over those bits. Enforcement literals are folded in with
// a big-M equal to the exact slack of the row, so the encoding adds no spurious solutions.
// Decision strategies are kept in the model but the engine branches with its own heuristics; it
// is deterministic, so the same model always yields the same optimum.
type PseudoBooleanEngine struct{}

// Solve implements Engine.
func (PseudoBooleanEngine) Solve(m *CpModel, params *SolverParameters) (*CpSolverResponse, error) {
	start := time.Now()
	if params == nil {
		params = &SolverParameters{}
	}

	enc, err := newPBEncoder(m)
	if err != nil {
		return &CpSolverResponse{Status: ModelInvalid, SolutionInfo: err.Error()}, nil
	}
	enc.encode()
	if enc.unsat {
		return &CpSolverResponse{Status: Infeasible, WallTime: time.Since(start), SolutionInfo: "infeasible at encoding"}, nil
	}
	constrs := enc.finish()
	log.V(2).Infof("model %q: %d variables encoded as %d literals and %d pseudo-Boolean constraints", m.Name, len(m.Variables), enc.nextVar-1, len(constrs))
	if params.SearchBranching == FixedSearch && len(m.SearchStrategy) > 0 {
		log.V(2).Infof("model %q: %d decision strategies recorded, branching is engine-defined", m.Name, len(m.SearchStrategy))
	}

	pb := solver.ParsePBConstrs(constrs)
	if pb.Status == solver.Unsat {
		return &CpSolverResponse{Status: Infeasible, WallTime: time.Since(start)}, nil
	}
	costLits, costWeights := enc.costFunction()
	hasCost := len(costLits) > 0
	if hasCost {
		pb.SetCostFunc(costLits, costWeights)
	}
	s := solver.New(pb)

	var status CpSolverStatus
	if hasCost && !params.StopAfterFirstSolution {
		if s.Minimize() < 0 {
			status = Infeasible
		} else {
			status = Optimal
		}
	} else {
		switch s.Solve() {
		case solver.Sat:
			status = Optimal
			if hasCost {
				status = Feasible
			}
		case solver.Unsat:
			status = Infeasible
		default:
			status = Unknown
		}
	}

	res := &CpSolverResponse{Status: status}
	if status == Optimal || status == Feasible {
		values := enc.decode(s.Model())
		if err := CheckSolution(m, values); err != nil {
			return nil, fmt.Errorf("pseudo-Boolean engine returned an invalid assignment: %w", err)
		}
		res.Solution = values
		res.ObjectiveValue = ObjectiveValue(m, values)
	}
	res.WallTime = time.Since(start)
	return res, nil
}

// pbSum is `sum(w[lit] * lit) + c` over positive gophersat variables.
type pbSum struct {
	w map[int]int64
	c int64
}

func (s pbSum) clone() pbSum {
	w := make(map[int]int64, len(s.w))
	for k, v := range s.w {
		w[k] = v
	}
	return pbSum{w: w, c: s.c}
}

func (s pbSum) negate() pbSum {
	n := s.clone()
	for k, v := range n.w {
		n.w[k] = -v
	}
	n.c = -n.c
	return n
}

func (s pbSum) bounds() (lo, hi int64) {
	lo, hi = s.c, s.c
	for _, w := range s.w {
		if w < 0 {
			lo += w
		} else {
			hi += w
		}
	}
	return lo, hi
}

type pbEncoder struct {
	m       *CpModel
	nextVar int
	bits    [][]int
	base    []int64
	domains []Domain
	constrs []solver.PBConstr
	unsat   bool
}

func newPBEncoder(m *CpModel) (*pbEncoder, error) {
	e := &pbEncoder{
		m:       m,
		nextVar: 1,
		bits:    make([][]int, len(m.Variables)),
		base:    make([]int64, len(m.Variables)),
		domains: make([]Domain, len(m.Variables)),
	}
	for i, v := range m.Variables {
		d, err := FromFlatIntervals(v.Domain)
		if err != nil {
			return nil, err
		}
		lo, _ := d.Min()
		hi, _ := d.Max()
		width := uint64(hi - lo)
		if lo >= 0 && hi <= 1 {
			lo, width = 0, 1
		}
		n := bits.Len64(width)
		if n > maxEncodedBits || hi-lo < 0 {
			return nil, fmt.Errorf("variable #%d %q has domain [%d, %d], too wide to encode", i, v.Name, lo, hi)
		}
		e.base[i] = lo
		e.domains[i] = d
		for b := 0; b < n; b++ {
			e.bits[i] = append(e.bits[i], e.newVar())
		}
	}
	return e, nil
}

func (e *pbEncoder) newVar() int {
	v := e.nextVar
	e.nextVar++
	return v
}

func (e *pbEncoder) literal(l VarIndex) int {
	v := e.bits[l.positiveIndex()][0]
	if l < 0 {
		return -v
	}
	return v
}

func (e *pbEncoder) negatedLiterals(ls []VarIndex) []int {
	out := make([]int, 0, len(ls))
	for _, l := range ls {
		out = append(out, -e.literal(l))
	}
	return out
}

func (e *pbEncoder) addVar(s *pbSum, v VarIndex, coeff int64) {
	s.c += coeff * e.base[v]
	for b, lit := range e.bits[v] {
		s.w[lit] += coeff << uint(b)
	}
}

func (e *pbEncoder) linear(vars []VarIndex, coeffs []int64, offset int64) pbSum {
	s := pbSum{w: make(map[int]int64), c: offset}
	for i, v := range vars {
		e.addVar(&s, v, coeffs[i])
	}
	return s
}

func (e *pbEncoder) expr(le *LinearExpression) pbSum {
	return e.linear(le.Vars, le.Coeffs, le.Offset)
}

func (e *pbEncoder) literalSum(ls []VarIndex) pbSum {
	s := pbSum{w: make(map[int]int64)}
	for _, l := range ls {
		lit := e.literal(l)
		if lit > 0 {
			s.w[lit]++
		} else {
			s.w[-lit]--
			s.c++
		}
	}
	return s
}

// atLeast adds `s >= rhs`, only when every literal of `enf` is true.
func (e *pbEncoder) atLeast(s pbSum, rhs int64, enf []int) {
	lo, _ := s.bounds()
	if lo >= rhs {
		return
	}
	slack := rhs - lo
	s = s.clone()
	for _, l := range enf {
		// slack * not(l) is slack - slack*l for a positive literal.
		if l > 0 {
			s.w[l] -= slack
			s.c += slack
		} else {
			s.w[-l] += slack
		}
	}
	e.emit(s, rhs)
}

// atMost adds `s <= rhs`, only when every literal of `enf` is true.
func (e *pbEncoder) atMost(s pbSum, rhs int64, enf []int) {
	e.atLeast(s.negate(), -rhs, enf)
}

func (e *pbEncoder) emit(s pbSum, rhs int64) {
	keys := make([]int, 0, len(s.w))
	for k, w := range s.w {
		if w != 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	lits := make([]int, 0, len(keys))
	weights := make([]int, 0, len(keys))
	for _, k := range keys {
		lits = append(lits, k)
		weights = append(weights, int(s.w[k]))
	}
	lo, hi := s.bounds()
	switch {
	case lo >= rhs:
		return
	case hi < rhs:
		e.unsat = true
		return
	}
	e.constrs = append(e.constrs, saturate(solver.GtEq(lits, weights, int(rhs-s.c))))
}

// saturate caps every weight at the right-hand side. The constraint keeps the same models, and
// the optimizer relies on no weight exceeding AtLeast.
func saturate(c solver.PBConstr) solver.PBConstr {
	if c.AtLeast <= 0 {
		return c
	}
	for i, w := range c.Weights {
		if w > c.AtLeast {
			c.Weights[i] = c.AtLeast
		}
	}
	return c
}

func (e *pbEncoder) clause(lits []int) {
	if len(lits) == 0 {
		e.unsat = true
		return
	}
	e.constrs = append(e.constrs, solver.PropClause(lits...))
}

// inDomain adds `s in d`, only when every literal of `enf` is true. A domain with several
// intervals gets one selector literal per interval.
func (e *pbEncoder) inDomain(s pbSum, d Domain, enf []int) {
	lo, hi := s.bounds()
	itvs := d.Clip(lo, hi).Intervals()
	notEnf := make([]int, 0, len(enf))
	for _, l := range enf {
		notEnf = append(notEnf, -l)
	}
	switch len(itvs) {
	case 0:
		e.clause(notEnf)
	case 1:
		e.atLeast(s, itvs[0].Start, enf)
		e.atMost(s, itvs[0].End, enf)
	default:
		sel := make([]int, len(itvs))
		for j := range itvs {
			sel[j] = e.newVar()
		}
		e.clause(append(notEnf, sel...))
		for j, itv := range itvs {
			e.atLeast(s, itv.Start, []int{sel[j]})
			e.atMost(s, itv.End, []int{sel[j]})
		}
	}
}

func (e *pbEncoder) encode() {
	for i := range e.m.Variables {
		s := e.linear([]VarIndex{VarIndex(i)}, []int64{1}, 0)
		lo, hi := s.bounds()
		if full := NewDomain(lo, hi); len(e.domains[i].intervals) != 1 || e.domains[i].intervals[0] != full.intervals[0] {
			e.inDomain(s, e.domains[i], nil)
		}
	}
	for _, ct := range e.m.Constraints {
		if e.unsat {
			return
		}
		e.encodeConstraint(ct)
	}
}

func (e *pbEncoder) encodeConstraint(ct *ConstraintSpec) {
	enf := make([]int, 0, len(ct.EnforcementLiteral))
	for _, l := range ct.EnforcementLiteral {
		enf = append(enf, e.literal(l))
	}
	notEnf := e.negatedLiterals(ct.EnforcementLiteral)

	switch {
	case ct.Linear != nil:
		d, _ := FromFlatIntervals(ct.Linear.Domain)
		e.inDomain(e.linear(ct.Linear.Vars, ct.Linear.Coeffs, 0), d, enf)
	case ct.BoolOr != nil:
		lits := append([]int(nil), notEnf...)
		for _, l := range ct.BoolOr.Literals {
			lits = append(lits, e.literal(l))
		}
		e.clause(lits)
	case ct.BoolAnd != nil:
		for _, l := range ct.BoolAnd.Literals {
			e.clause(append(append([]int(nil), notEnf...), e.literal(l)))
		}
	case ct.AtMostOne != nil:
		e.atMost(e.literalSum(ct.AtMostOne.Literals), 1, enf)
	case ct.ExactlyOne != nil:
		e.inDomain(e.literalSum(ct.ExactlyOne.Literals), NewSingleDomain(1), enf)
	case ct.LinMax != nil:
		target := e.expr(ct.LinMax.Target)
		sel := make([]int, len(ct.LinMax.Exprs))
		diffs := make([]pbSum, len(ct.LinMax.Exprs))
		for i, x := range ct.LinMax.Exprs {
			diff := target.clone()
			ex := e.expr(x)
			for k, w := range ex.w {
				diff.w[k] -= w
			}
			diff.c -= ex.c
			diffs[i] = diff
			e.atLeast(diff, 0, enf)
			sel[i] = e.newVar()
		}
		e.clause(append(append([]int(nil), notEnf...), sel...))
		for i, diff := range diffs {
			e.atMost(diff, 0, []int{sel[i]})
		}
	}
}

// finish appends an always-true anchor on the last allocated literal so that the parsed problem
// covers every literal, including the ones only used by the cost function.
func (e *pbEncoder) finish() []solver.PBConstr {
	anchor := e.newVar()
	return append(e.constrs, solver.PropClause(anchor))
}

// costFunction returns the objective as positive weights over literals. The constant part is
// dropped; the objective value is recomputed on the decoded assignment.
func (e *pbEncoder) costFunction() ([]solver.Lit, []int) {
	o := e.m.Objective
	if o == nil {
		return nil, nil
	}
	s := e.linear(o.Vars, o.Coeffs, 0)
	keys := make([]int, 0, len(s.w))
	for k, w := range s.w {
		if w != 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	var lits []solver.Lit
	var weights []int
	for _, k := range keys {
		w := s.w[k]
		if w > 0 {
			lits = append(lits, solver.IntToLit(int32(k)))
			weights = append(weights, int(w))
		} else {
			lits = append(lits, solver.IntToLit(int32(-k)))
			weights = append(weights, int(-w))
		}
	}
	return lits, weights
}

func (e *pbEncoder) decode(model []bool) []int64 {
	values := make([]int64, len(e.m.Variables))
	for i := range values {
		v := e.base[i]
		for b, lit := range e.bits[i] {
			if lit-1 < len(model) && model[lit-1] {
				v += int64(1) << uint(b)
			}
		}
		values[i] = v
	}
	return values
}
