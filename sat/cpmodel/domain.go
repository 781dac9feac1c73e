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
	"math"
	"slices"
)

// ClosedInterval is `[Start, End]`. It is empty when Start > End.
type ClosedInterval struct {
	Start int64
	End   int64
}

// saturatingAdd treats MinInt64 and MaxInt64 as infinities that absorb any delta.
func saturatingAdd(v, delta int64) int64 {
	switch {
	case v == math.MinInt64 || v == math.MaxInt64:
		return v
	case delta > 0 && v > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && v < math.MinInt64-delta:
		return math.MinInt64
	}
	return v + delta
}

// Offset shifts both bounds by `delta`, saturating at the int64 limits.
// Infinite bounds stay infinite.
func (c ClosedInterval) Offset(delta int64) ClosedInterval {
	return ClosedInterval{saturatingAdd(c.Start, delta), saturatingAdd(c.End, delta)}
}

func (c ClosedInterval) empty() bool { return c.Start > c.End }

// Domain is a set of int64 values kept as sorted, disjoint, non-adjacent
// intervals.
type Domain struct {
	intervals []ClosedInterval
}

// normalized drops empty intervals, then sorts and merges the rest.
func normalized(itvs []ClosedInterval) Domain {
	itvs = slices.DeleteFunc(itvs, ClosedInterval.empty)
	if len(itvs) == 0 {
		return Domain{}
	}
	slices.SortFunc(itvs, func(a, b ClosedInterval) int {
		if a.Start != b.Start {
			return compare(a.Start, b.Start)
		}
		return compare(a.End, b.End)
	})
	out := itvs[:1]
	for _, next := range itvs[1:] {
		last := &out[len(out)-1]
		// MaxInt64 guards the +1 against overflow.
		if last.End != math.MaxInt64 && last.End+1 < next.Start {
			out = append(out, next)
			continue
		}
		last.End = max(last.End, next.End)
	}
	return Domain{out}
}

func compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NewEmptyDomain returns the domain with no values.
func NewEmptyDomain() Domain {
	return Domain{}
}

// NewSingleDomain returns `{val}`.
func NewSingleDomain(val int64) Domain {
	return Domain{[]ClosedInterval{{val, val}}}
}

// NewDomain returns `[left, right]`, or the empty domain if left > right.
func NewDomain(left, right int64) Domain {
	if left > right {
		return Domain{}
	}
	return Domain{[]ClosedInterval{{left, right}}}
}

// FromValues returns the domain holding exactly `values`, in any order and
// with repeats allowed.
func FromValues(values []int64) Domain {
	itvs := make([]ClosedInterval, len(values))
	for i, v := range values {
		itvs[i] = ClosedInterval{v, v}
	}
	return normalized(itvs)
}

// FromIntervals returns the union of `intervals`. The argument is not modified.
func FromIntervals(intervals []ClosedInterval) Domain {
	return normalized(slices.Clone(intervals))
}

// FromFlatIntervals reads `[s0, e0, s1, e1, ...]` as a union of intervals.
func FromFlatIntervals(values []int64) (Domain, error) {
	if len(values)%2 != 0 {
		return Domain{}, fmt.Errorf("len(values)=%v must be a multiple of 2", len(values))
	}
	itvs := make([]ClosedInterval, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		itvs = append(itvs, ClosedInterval{values[i], values[i+1]})
	}
	return normalized(itvs), nil
}

// FlattenedIntervals is the inverse of FromFlatIntervals: `[0,2][5,5]` gives
// `[0,2,5,5]`.
func (d Domain) FlattenedIntervals() []int64 {
	var flat []int64
	for _, c := range d.intervals {
		flat = append(flat, c.Start, c.End)
	}
	return flat
}

// Intervals returns a copy of the intervals.
func (d Domain) Intervals() []ClosedInterval {
	return slices.Clone(d.intervals)
}

// Min is the smallest value. ok is false for the empty domain.
func (d Domain) Min() (v int64, ok bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[0].Start, true
}

// Max is the largest value. ok is false for the empty domain.
func (d Domain) Max() (v int64, ok bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[len(d.intervals)-1].End, true
}

// Contains reports whether `v` is in the domain.
func (d Domain) Contains(v int64) bool {
	i, _ := slices.BinarySearchFunc(d.intervals, v, func(c ClosedInterval, v int64) int {
		return compare(c.End, v)
	})
	return i < len(d.intervals) && d.intervals[i].Start <= v
}

// Clip intersects the domain with `[lo, hi]`.
func (d Domain) Clip(lo, hi int64) Domain {
	var out []ClosedInterval
	for _, c := range d.intervals {
		c = ClosedInterval{max(c.Start, lo), min(c.End, hi)}
		if !c.empty() {
			out = append(out, c)
		}
	}
	return Domain{out}
}
