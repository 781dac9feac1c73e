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
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var domainOpts = cmp.AllowUnexported(Domain{}, ClosedInterval{})

func TestDomain_Constructors(t *testing.T) {
	testCases := []struct {
		name string
		got  Domain
		want Domain
	}{
		{name: "empty", got: NewEmptyDomain(), want: Domain{}},
		{name: "single", got: NewSingleDomain(-1), want: Domain{[]ClosedInterval{{-1, -1}}}},
		{name: "interval", got: NewDomain(-5, 10), want: Domain{[]ClosedInterval{{-5, 10}}}},
		{name: "inverted interval", got: NewDomain(10, -1), want: Domain{}},
		{name: "no values", got: FromValues(nil), want: Domain{}},
		{name: "repeated values", got: FromValues([]int64{1, 1, 3, 1, 2, 3}), want: Domain{[]ClosedInterval{{1, 3}}}},
		{
			name: "scattered values",
			got:  FromValues([]int64{1, 2, 3, 5, 4, 6, 10, 12, 11, 15, 8}),
			want: Domain{[]ClosedInterval{{1, 6}, {8, 8}, {10, 12}, {15, 15}}},
		},
		{
			name: "overlapping intervals",
			got:  FromIntervals([]ClosedInterval{{0, 1}, {0, 10}, {-4, -2}}),
			want: Domain{[]ClosedInterval{{-4, -2}, {0, 10}}},
		},
		{
			name: "empty interval dropped",
			got:  FromIntervals([]ClosedInterval{{0, 10}, {11, 5}}),
			want: Domain{[]ClosedInterval{{0, 10}}},
		},
		{
			name: "unbounded interval absorbs the rest",
			got:  FromIntervals([]ClosedInterval{{1, math.MaxInt64}, {5, 7}}),
			want: Domain{[]ClosedInterval{{1, math.MaxInt64}}},
		},
	}

	for _, test := range testCases {
		if diff := cmp.Diff(test.want, test.got, domainOpts); diff != "" {
			t.Errorf("%s: domain has unexpected diff (-want+got);\n%s", test.name, diff)
		}
	}
}

func TestDomain_FromFlatIntervals(t *testing.T) {
	testCases := []struct {
		flat      []int64
		want      Domain
		wantError string
	}{
		{flat: nil, want: Domain{}},
		{flat: []int64{1}, wantError: "must be a multiple of 2"},
		{flat: []int64{-1, 1, 3, 3, 5, 10}, want: Domain{[]ClosedInterval{{-1, 1}, {3, 3}, {5, 10}}}},
		{flat: []int64{3, 5, 6, 10}, want: Domain{[]ClosedInterval{{3, 10}}}},
		{flat: []int64{5, 3, 4, -1}, want: Domain{}},
	}

	for _, test := range testCases {
		got, err := FromFlatIntervals(test.flat)
		if test.wantError != "" {
			if err == nil || !strings.Contains(err.Error(), test.wantError) {
				t.Errorf("FromFlatIntervals(%v) returned error %v, want %q substring", test.flat, err, test.wantError)
			}
			continue
		}
		if err != nil {
			t.Errorf("FromFlatIntervals(%v) returned unexpected error %v", test.flat, err)
		}
		if diff := cmp.Diff(test.want, got, domainOpts); diff != "" {
			t.Errorf("FromFlatIntervals(%v) returned with unexpected diff (-want+got);\n%s", test.flat, diff)
		}
		if diff := cmp.Diff(test.want.FlattenedIntervals(), got.FlattenedIntervals()); diff != "" {
			t.Errorf("FlattenedIntervals() returned with unexpected diff (-want+got);\n%s", diff)
		}
	}
}

func TestDomain_Bounds(t *testing.T) {
	d := FromIntervals([]ClosedInterval{{5, 10}, {3, 3}, {-1, 1}})
	if got, ok := d.Min(); got != -1 || !ok {
		t.Errorf("Min() = (%v, %v), want (-1, true)", got, ok)
	}
	if got, ok := d.Max(); got != 10 || !ok {
		t.Errorf("Max() = (%v, %v), want (10, true)", got, ok)
	}

	empty := NewEmptyDomain()
	if got, ok := empty.Min(); got != 0 || ok {
		t.Errorf("empty Min() = (%v, %v), want (0, false)", got, ok)
	}
	if got, ok := empty.Max(); got != 0 || ok {
		t.Errorf("empty Max() = (%v, %v), want (0, false)", got, ok)
	}
}

func TestDomain_Contains(t *testing.T) {
	d := FromIntervals([]ClosedInterval{{-1, 1}, {3, 3}, {5, 10}})
	for v, want := range map[int64]bool{-2: false, -1: true, 0: true, 2: false, 3: true, 4: false, 10: true, 11: false} {
		if got := d.Contains(v); got != want {
			t.Errorf("Contains(%v) = %v, want %v", v, got, want)
		}
	}
	if NewEmptyDomain().Contains(0) {
		t.Error("empty domain Contains(0) = true, want false")
	}
}

func TestDomain_Clip(t *testing.T) {
	d := FromIntervals([]ClosedInterval{{math.MinInt64, -1}, {1, math.MaxInt64}})
	testCases := []struct {
		lo, hi int64
		want   Domain
	}{
		{lo: -3, hi: 4, want: Domain{[]ClosedInterval{{-3, -1}, {1, 4}}}},
		{lo: 0, hi: 4, want: Domain{[]ClosedInterval{{1, 4}}}},
		{lo: 0, hi: 0, want: Domain{}},
	}
	for _, test := range testCases {
		if diff := cmp.Diff(test.want, d.Clip(test.lo, test.hi), domainOpts); diff != "" {
			t.Errorf("Clip(%v, %v) returned with unexpected diff (-want+got);\n%s", test.lo, test.hi, diff)
		}
	}
}

func TestDomain_Offset(t *testing.T) {
	testCases := []struct {
		interval ClosedInterval
		delta    int64
		want     ClosedInterval
	}{
		{interval: ClosedInterval{1, 2}, delta: -2, want: ClosedInterval{-1, 0}},
		{interval: ClosedInterval{math.MinInt64, 2}, delta: -2, want: ClosedInterval{math.MinInt64, 0}},
		{interval: ClosedInterval{1, math.MaxInt64}, delta: 2, want: ClosedInterval{3, math.MaxInt64}},
		{interval: ClosedInterval{-1, 5}, delta: math.MaxInt64, want: ClosedInterval{math.MaxInt64 - 1, math.MaxInt64}},
		{interval: ClosedInterval{-1, 5}, delta: math.MinInt64, want: ClosedInterval{math.MinInt64, math.MinInt64 + 5}},
	}

	for _, test := range testCases {
		if got := test.interval.Offset(test.delta); got != test.want {
			t.Errorf("%#v.Offset(%v) = %#v, want %#v", test.interval, test.delta, got, test.want)
		}
	}
}
