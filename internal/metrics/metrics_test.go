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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() err = %v, want nil", err)
	}
	r.ObserveModel("bss", 12, 30)
	r.ObserveSolve("bss", "OPTIMAL", 20*time.Millisecond)
	r.ObserveSolve("bss", "OPTIMAL", time.Second)
	r.ObserveSolve("uav", "INFEASIBLE", time.Second)

	if got := testutil.ToFloat64(r.Solves.WithLabelValues("bss", "OPTIMAL")); got != 2 {
		t.Errorf("weave_solves_total{bss,OPTIMAL} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.Solves.WithLabelValues("uav", "INFEASIBLE")); got != 1 {
		t.Errorf("weave_solves_total{uav,INFEASIBLE} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Variables.WithLabelValues("bss")); got != 12 {
		t.Errorf("weave_model_variables{bss} = %v, want 12", got)
	}
	if got := testutil.ToFloat64(r.Constraints.WithLabelValues("bss")); got != 30 {
		t.Errorf("weave_model_constraints{bss} = %v, want 30", got)
	}
	if got := testutil.CollectAndCount(r.Duration); got != 2 {
		t.Errorf("weave_solve_duration_seconds series = %d, want 2", got)
	}
}

func TestNewRecorder_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() err = %v, want nil", err)
	}
	second, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() second err = %v, want nil", err)
	}
	second.ObserveSolve("uav", "OPTIMAL", time.Millisecond)
	if got := testutil.ToFloat64(first.Solves.WithLabelValues("uav", "OPTIMAL")); got != 1 {
		t.Errorf("first recorder sees %v solves, want 1", got)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.ObserveModel("bss", 1, 1)
	r.ObserveSolve("bss", "OPTIMAL", time.Second)
}
