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

// CpModel is the solver-facing description of a model: a flat list of variables, constraints
// referencing them by index, an optional objective and the search strategies. It is what a Builder
// produces and what an Engine consumes.
type CpModel struct {
	Name           string
	Variables      []*IntegerVariable
	Constraints    []*ConstraintSpec
	Objective      *Objective
	SearchStrategy []*DecisionStrategy
}

// IntegerVariable holds the name and the flattened domain `[lb0, ub0, lb1, ub1, ...]` of a
// variable.
type IntegerVariable struct {
	Name   string
	Domain []int64
}

// LinearExpression is `sum(Coeffs[i] * Vars[i]) + Offset`. Vars are always positive indices.
type LinearExpression struct {
	Vars   []VarIndex
	Coeffs []int64
	Offset int64
}

// LinearConstraint enforces `sum(Coeffs[i] * Vars[i])` to lie in the flattened Domain.
type LinearConstraint struct {
	Vars   []VarIndex
	Coeffs []int64
	Domain []int64
}

// BoolArgument is the list of literals of a Boolean constraint.
type BoolArgument struct {
	Literals []VarIndex
}

// LinearArgumentSpec is `Target == max(Exprs)`.
type LinearArgumentSpec struct {
	Target *LinearExpression
	Exprs  []*LinearExpression
}

// ConstraintSpec is one constraint of a CpModel. Exactly one of the body fields is set. The
// constraint only applies when every enforcement literal is true.
type ConstraintSpec struct {
	Name               string
	EnforcementLiteral []VarIndex

	Linear     *LinearConstraint
	BoolOr     *BoolArgument
	BoolAnd    *BoolArgument
	AtMostOne  *BoolArgument
	ExactlyOne *BoolArgument
	LinMax     *LinearArgumentSpec
}

// bodies returns how many body fields are set.
func (c *ConstraintSpec) bodies() int {
	n := 0
	if c.Linear != nil {
		n++
	}
	if c.BoolOr != nil {
		n++
	}
	if c.BoolAnd != nil {
		n++
	}
	if c.AtMostOne != nil {
		n++
	}
	if c.ExactlyOne != nil {
		n++
	}
	if c.LinMax != nil {
		n++
	}
	return n
}

// Objective is `ScalingFactor * (sum(Coeffs[i] * Vars[i]) + Offset)`, always minimized. A
// maximization is stored negated with a ScalingFactor of -1.
type Objective struct {
	Vars          []VarIndex
	Coeffs        []int64
	Offset        float64
	ScalingFactor float64
}

// VariableSelectionStrategy picks the next variable to branch on.
type VariableSelectionStrategy int

const (
	ChooseFirst VariableSelectionStrategy = iota
	ChooseLowestMin
	ChooseHighestMax
	ChooseMinDomainSize
	ChooseMaxDomainSize
)

// DomainReductionStrategy picks the value tried first on the selected variable.
type DomainReductionStrategy int

const (
	SelectMinValue DomainReductionStrategy = iota
	SelectMaxValue
	SelectLowerHalf
	SelectUpperHalf
)

// DecisionStrategy is an ordered list of variables with the way they should be branched on.
type DecisionStrategy struct {
	Variables                 []VarIndex
	VariableSelectionStrategy VariableSelectionStrategy
	DomainReductionStrategy   DomainReductionStrategy
}
