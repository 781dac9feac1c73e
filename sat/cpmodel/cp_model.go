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

// Package cpmodel offers a user-friendly API to build integer constraint models and hand them to
// a solving engine.
//
// The `Builder` struct owns a `CpModel` and provides helper methods for adding constraints and
// variables to the model.
// The `IntVar` and `BoolVar` structs are references to specific variables in the model and
// provide helpful methods for interacting with those variables.
// `LinearExpr` accumulates weighted terms for constraints and objectives.
// Any constraint can be reified with `OnlyEnforceIf`.
package cpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

var (
	// ErrMixedModels is recorded when a variable from another Builder is used.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrEmptyMax holds the error when a max or min equality has no expressions.
	ErrEmptyMax = errors.New("max/min equality needs at least one expression")
	// ErrNotPositive holds the error when a negated literal is used where a variable is expected.
	ErrNotPositive = errors.New("negated literal cannot be used as a variable")
)

type (
	// VarIndex locates a variable in CpModel.Variables. A negative value -i-1 is the
	// negated literal of Boolean variable i.
	VarIndex int32
	// ConstrIndex locates a constraint in CpModel.Constraints.
	ConstrIndex int32
)

func (v VarIndex) positiveIndex() VarIndex {
	if v < 0 {
		return ^v
	}
	return v
}

// LinearArgument is anything that can appear in a linear expression: a BoolVar,
// an IntVar or a *LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c int64)
	// asLinearExpression returns the LinearArgument as a LinearExpression.
	asLinearExpression() *LinearExpression
	evaluateSolutionValue(r *CpSolverResponse) int64
}

// LinearExpr is `sum(coeff * var) + offset`. The zero value is the constant 0.
type LinearExpr struct {
	terms  []term
	offset int64
}

type term struct {
	ind   VarIndex
	coeff int64
}

// NewLinearExpr returns an expression with no terms.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant returns the expression `c`.
func NewConstant(c int64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add appends `la` and returns the receiver for chaining.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	return l.AddTerm(la, 1)
}

// AddConstant shifts the offset by `c`.
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm appends `coeff * la`.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff int64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum appends every argument with coefficient 1.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		la.addToLinearExpr(l, 1)
	}
	return l
}

// AddWeightedSum appends `coeffs[i] * las[i]` for every i. The slices must have
// the same length.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []int64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("AddWeightedSum: %d arguments but %d coefficients", len(las), len(coeffs))
	}
	for i := range las {
		las[i].addToLinearExpr(l, coeffs[i])
	}
	return l
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c int64) {
	for _, t := range l.terms {
		e.terms = append(e.terms, term{ind: t.ind, coeff: t.coeff * c})
	}
	e.offset += c * l.offset
}

func (l *LinearExpr) asLinearExpression() *LinearExpression {
	expr := &LinearExpression{Offset: l.offset}
	for _, t := range l.terms {
		expr.Vars = append(expr.Vars, t.ind)
		expr.Coeffs = append(expr.Coeffs, t.coeff)
	}
	return expr
}

func (l *LinearExpr) evaluateSolutionValue(r *CpSolverResponse) int64 {
	v := l.offset
	for _, t := range l.terms {
		v += t.coeff * r.Solution[t.ind]
	}
	return v
}

// IntVar refers to an integer variable of a Builder's model.
type IntVar struct {
	ind VarIndex
	cpb *Builder
}

// Name is the variable name, possibly empty.
func (i IntVar) Name() string {
	return i.cpb.model.Variables[i.ind].Name
}

// Domain decodes the variable's domain.
func (i IntVar) Domain() (Domain, error) {
	return FromFlatIntervals(i.cpb.model.Variables[i.ind].Domain)
}

// Index is the position of the variable in the model.
func (i IntVar) Index() VarIndex {
	return i.ind
}

// WithName names the variable and returns it.
func (i IntVar) WithName(s string) IntVar {
	i.cpb.model.Variables[i.ind].Name = s
	return i
}

func (i IntVar) addToLinearExpr(e *LinearExpr, c int64) {
	e.terms = append(e.terms, term{i.ind, c})
}

func (i IntVar) asLinearExpression() *LinearExpression {
	return &LinearExpression{Vars: []VarIndex{i.ind}, Coeffs: []int64{1}}
}

func (i IntVar) evaluateSolutionValue(r *CpSolverResponse) int64 {
	return r.Solution[i.ind]
}

// BoolVar refers to a Boolean variable of a Builder's model, or to its negation.
type BoolVar struct {
	ind VarIndex
	cpb *Builder
}

// Not returns the negated literal. Not().Not() gives back `b`.
func (b BoolVar) Not() BoolVar {
	return BoolVar{ind: ^b.ind, cpb: b.cpb}
}

// Name is the name of the underlying variable.
func (b BoolVar) Name() string {
	return b.cpb.model.Variables[b.ind.positiveIndex()].Name
}

// Domain decodes the domain of the underlying variable.
func (b BoolVar) Domain() (Domain, error) {
	return FromFlatIntervals(b.cpb.model.Variables[b.ind.positiveIndex()].Domain)
}

// Index is the literal index, negative for a negated literal.
func (b BoolVar) Index() VarIndex {
	return b.ind
}

// WithName names the underlying variable and returns the literal.
func (b BoolVar) WithName(s string) BoolVar {
	b.cpb.model.Variables[b.ind.positiveIndex()].Name = s
	return b
}

// AsIntVar returns the 0-1 integer view of a positive Boolean variable, for use in decision
// strategies. Calling it on a negated literal records ErrNotPositive on the builder.
func (b BoolVar) AsIntVar() IntVar {
	if b.ind < 0 {
		b.cpb.setErrorf("AsIntVar called on negated literal %v: %w", b.ind, ErrNotPositive)
		return IntVar{ind: b.ind.positiveIndex(), cpb: b.cpb}
	}
	return IntVar{ind: b.ind, cpb: b.cpb}
}

// literal returns (coeff, offset) such that the literal equals coeff*v + offset
// for its underlying variable v.
func (b BoolVar) literal() (int64, int64) {
	if b.ind < 0 {
		return -1, 1
	}
	return 1, 0
}

func (b BoolVar) addToLinearExpr(e *LinearExpr, c int64) {
	coeff, offset := b.literal()
	e.terms = append(e.terms, term{b.ind.positiveIndex(), coeff * c})
	e.offset += offset * c
}

func (b BoolVar) asLinearExpression() *LinearExpression {
	coeff, offset := b.literal()
	return &LinearExpression{
		Vars:   []VarIndex{b.ind.positiveIndex()},
		Coeffs: []int64{coeff},
		Offset: offset,
	}
}

func (b BoolVar) evaluateSolutionValue(r *CpSolverResponse) int64 {
	coeff, offset := b.literal()
	return coeff*r.Solution[b.ind.positiveIndex()] + offset
}

func asNegatedLinearExpression(la LinearArgument) *LinearExpression {
	result := la.asLinearExpression()

	for i := range result.Coeffs {
		result.Coeffs[i] *= -1
	}
	result.Offset *= -1
	return result
}

// Constraint refers to a constraint of a Builder's model.
type Constraint struct {
	ind ConstrIndex
	cpb *Builder
}

// WithName names the constraint and returns it.
func (c Constraint) WithName(s string) Constraint {
	c.cpb.model.Constraints[c.ind].Name = s
	return c
}

// Name is the constraint name, possibly empty.
func (c Constraint) Name() string {
	return c.cpb.model.Constraints[c.ind].Name
}

// Index is the position of the constraint in the model.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// OnlyEnforceIf makes the constraint conditional on every literal in `bvs`.
// Repeated calls add to the existing literals.
func (c Constraint) OnlyEnforceIf(bvs ...BoolVar) Constraint {
	ct := c.cpb.model.Constraints[c.ind]
	for _, bv := range bvs {
		if !c.cpb.checkSameModelAndSetErrorf(bv.cpb, "invalid enforcement literal %v added to Constraint %v", bv.Index(), c.Index()) {
			return c
		}
		ct.EnforcementLiteral = append(ct.EnforcementLiteral, bv.ind)
	}
	return c
}

// checkSameModelAndSetErrorf reports whether `other` is `cp`, recording an
// ErrMixedModels error built from `format` when it is not.
func (cp *Builder) checkSameModelAndSetErrorf(other *Builder, format string, a ...any) bool {
	if cp == other {
		return true
	}
	cp.setErrorf(format+": %w", append(a[:len(a):len(a)], ErrMixedModels)...)
	return false
}

// setErrorf logs the error and keeps it if it is the first one.
func (cp *Builder) setErrorf(format string, a ...any) {
	err := fmt.Errorf(format, a...)
	log.Errorf("cpmodel: %v", err)
	if cp.err == nil {
		cp.err = err
	}
}

// Builder assembles a CpModel. Misuse is recorded rather than returned at each
// call; Model reports the first error.
type Builder struct {
	model *CpModel
	// Interned fixed variables, by value.
	fixed map[int64]VarIndex
	err   error
}

// NewCpModelBuilder returns a Builder over an empty model.
func NewCpModelBuilder() *Builder {
	return &Builder{model: &CpModel{}, fixed: make(map[int64]VarIndex)}
}

// SetName names the model.
func (cp *Builder) SetName(name string) {
	cp.model.Name = name
}

// NumVariables returns the number of variables created so far.
func (cp *Builder) NumVariables() int {
	return len(cp.model.Variables)
}

// NumConstraints returns the number of constraints added so far.
func (cp *Builder) NumConstraints() int {
	return len(cp.model.Constraints)
}

func (cp *Builder) appendVariable(domain []int64) VarIndex {
	ind := VarIndex(len(cp.model.Variables))
	cp.model.Variables = append(cp.model.Variables, &IntegerVariable{Domain: domain})
	return ind
}

// NewIntVar creates a new IntVar with domain `[lb, ub]` in the model.
func (cp *Builder) NewIntVar(lb, ub int64) IntVar {
	return IntVar{cpb: cp, ind: cp.appendVariable([]int64{lb, ub})}
}

// NewIntVarFromDomain creates a new IntVar with the given domain in the model.
func (cp *Builder) NewIntVarFromDomain(d Domain) IntVar {
	return IntVar{cpb: cp, ind: cp.appendVariable(d.FlattenedIntervals())}
}

// NewBoolVar creates a new BoolVar in the model.
func (cp *Builder) NewBoolVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.appendVariable([]int64{0, 1})}
}

// NewConstant returns the variable fixed to `v`, creating it on first use.
func (cp *Builder) NewConstant(v int64) IntVar {
	ind, ok := cp.fixed[v]
	if !ok {
		ind = cp.appendVariable([]int64{v, v})
		cp.fixed[v] = ind
	}
	return IntVar{cpb: cp, ind: ind}
}

// TrueVar returns the literal fixed to true.
func (cp *Builder) TrueVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.NewConstant(1).ind}
}

// FalseVar returns the literal fixed to false.
func (cp *Builder) FalseVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.NewConstant(0).ind}
}

func (cp *Builder) appendConstraint(ct *ConstraintSpec) Constraint {
	i := ConstrIndex(len(cp.model.Constraints))
	cp.model.Constraints = append(cp.model.Constraints, ct)
	return Constraint{cpb: cp, ind: i}
}

func buildBoolArgument(cp *Builder, bvs ...BoolVar) *BoolArgument {
	var literals []VarIndex
	for _, b := range bvs {
		cp.checkSameModelAndSetErrorf(b.cpb, "BoolVar %v added to Constraint %v", b.Index(), len(cp.model.Constraints))
		literals = append(literals, b.ind)
	}
	return &BoolArgument{Literals: literals}
}

// AddBoolOr requires at least one literal to be true.
func (cp *Builder) AddBoolOr(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(&ConstraintSpec{BoolOr: buildBoolArgument(cp, bvs...)})
}

// AddBoolAnd requires every literal to be true.
func (cp *Builder) AddBoolAnd(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(&ConstraintSpec{BoolAnd: buildBoolArgument(cp, bvs...)})
}

// AddAtLeastOne is AddBoolOr.
func (cp *Builder) AddAtLeastOne(bvs ...BoolVar) Constraint { return cp.AddBoolOr(bvs...) }

// AddAtMostOne allows at most one literal to be true.
func (cp *Builder) AddAtMostOne(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(&ConstraintSpec{AtMostOne: buildBoolArgument(cp, bvs...)})
}

// AddExactlyOne requires exactly one literal to be true.
func (cp *Builder) AddExactlyOne(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(&ConstraintSpec{ExactlyOne: buildBoolArgument(cp, bvs...)})
}

// AddImplication requires `b` whenever `a`.
func (cp *Builder) AddImplication(a, b BoolVar) Constraint { return cp.AddBoolOr(a.Not(), b) }

// split separates the variable part of `le` from its offset.
func (le *LinearExpr) split() ([]VarIndex, []int64) {
	var vars []VarIndex
	var coeffs []int64
	for _, t := range le.terms {
		vars = append(vars, t.ind)
		coeffs = append(coeffs, t.coeff)
	}
	return vars, coeffs
}

// addLinearConstraint requires `le` to lie in the union of `intervals`, which
// must already be sorted and disjoint. The offset of `le` moves to the bounds.
func (cp *Builder) addLinearConstraint(le *LinearExpr, intervals ...ClosedInterval) Constraint {
	vars, coeffs := le.split()
	var domain []int64
	for _, itv := range intervals {
		itv = itv.Offset(-le.offset)
		domain = append(domain, itv.Start, itv.End)
	}
	return cp.appendConstraint(&ConstraintSpec{
		Linear: &LinearConstraint{Vars: vars, Coeffs: coeffs, Domain: domain},
	})
}

// compare constrains `lhs - rhs` to `intervals`.
func (cp *Builder) compare(lhs, rhs LinearArgument, intervals ...ClosedInterval) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), intervals...)
}

// AddLinearConstraintForDomain requires `expr` to take a value in `domain`.
func (cp *Builder) AddLinearConstraintForDomain(expr LinearArgument, domain Domain) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(expr), domain.intervals...)
}

// AddLinearConstraint requires `lb <= expr <= ub`.
func (cp *Builder) AddLinearConstraint(expr LinearArgument, lb, ub int64) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(expr), ClosedInterval{lb, ub})
}

// AddEquality requires `lhs == rhs`.
func (cp *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{0, 0})
}

// AddLessOrEqual requires `lhs <= rhs`.
func (cp *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{math.MinInt64, 0})
}

// AddLessThan requires `lhs < rhs`.
func (cp *Builder) AddLessThan(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{math.MinInt64, -1})
}

// AddGreaterOrEqual requires `lhs >= rhs`.
func (cp *Builder) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{0, math.MaxInt64})
}

// AddGreaterThan requires `lhs > rhs`.
func (cp *Builder) AddGreaterThan(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{1, math.MaxInt64})
}

// AddNotEqual requires `lhs != rhs`.
func (cp *Builder) AddNotEqual(lhs, rhs LinearArgument) Constraint {
	return cp.compare(lhs, rhs, ClosedInterval{math.MinInt64, -1}, ClosedInterval{1, math.MaxInt64})
}

// addLinMax appends `target == max(exprs)` after passing every side through `conv`.
func (cp *Builder) addLinMax(name string, conv func(LinearArgument) *LinearExpression, target LinearArgument, exprs []LinearArgument) Constraint {
	if len(exprs) == 0 {
		cp.setErrorf("%s on constraint %v: %w", name, len(cp.model.Constraints), ErrEmptyMax)
	}
	spec := &LinearArgumentSpec{Target: conv(target)}
	for _, e := range exprs {
		spec.Exprs = append(spec.Exprs, conv(e))
	}
	return cp.appendConstraint(&ConstraintSpec{LinMax: spec})
}

// AddMinEquality requires `target == min(exprs)`. It is stored as
// `-target == max(-exprs)`.
func (cp *Builder) AddMinEquality(target LinearArgument, exprs ...LinearArgument) Constraint {
	return cp.addLinMax("AddMinEquality", asNegatedLinearExpression, target, exprs)
}

// AddMaxEquality requires `target == max(exprs)`.
func (cp *Builder) AddMaxEquality(target LinearArgument, exprs ...LinearArgument) Constraint {
	return cp.addLinMax("AddMaxEquality", LinearArgument.asLinearExpression, target, exprs)
}

// setObjective stores `sign * obj` as a minimization, keeping `sign` as the
// scaling factor so reported values use the caller's orientation.
func (cp *Builder) setObjective(obj LinearArgument, sign int64) {
	o := NewLinearExpr().AddTerm(obj, sign)
	vars, coeffs := o.split()
	cp.model.Objective = &Objective{
		Vars:          vars,
		Coeffs:        coeffs,
		Offset:        float64(o.offset),
		ScalingFactor: float64(sign),
	}
}

// Minimize sets the objective to minimize `obj`, replacing any earlier one.
func (cp *Builder) Minimize(obj LinearArgument) { cp.setObjective(obj, 1) }

// Maximize sets the objective to maximize `obj`, replacing any earlier one.
func (cp *Builder) Maximize(obj LinearArgument) { cp.setObjective(obj, -1) }

// AddDecisionStrategy appends a search strategy over `vars`.
func (cp *Builder) AddDecisionStrategy(vars []IntVar, vs VariableSelectionStrategy, ds DomainReductionStrategy) {
	var indices []VarIndex
	for _, v := range vars {
		if !cp.checkSameModelAndSetErrorf(v.cpb, "decision strategy variable %v", v.Index()) {
			return
		}
		indices = append(indices, v.ind)
	}
	cp.model.SearchStrategy = append(cp.model.SearchStrategy, &DecisionStrategy{
		Variables:                 indices,
		VariableSelectionStrategy: vs,
		DomainReductionStrategy:   ds,
	})
}

// Model returns the model, or the first error recorded while building it.
// The result aliases the Builder's state.
func (cp *Builder) Model() (*CpModel, error) {
	if cp.err != nil {
		return nil, cp.err
	}
	return cp.model, nil
}
