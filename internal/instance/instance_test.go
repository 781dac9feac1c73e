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

package instance

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/L043N70/weave-public/routing/network"
)

const twoStops = `
name: two-stops
nodes:
  - {id: 0, roles: [depot]}
  - {id: 1, roles: [demand, swap], window: [1, 100]}
  - {id: 2, roles: [transit]}
arcs:
  - {from: 0, to: 1, distance: 5, time: 3, energy: 2}
  - {from: 1, to: 0, distance: 5, time: 3, energy: 2}
  - {from: 1, to: 2, distance: 1}
fleet: 2
capacity: 10
swap_time: 1
class_weights: [1, 3]
use_all_vehicles: false
`

func TestLoad(t *testing.T) {
	inst, err := Load(strings.NewReader(twoStops))
	if err != nil {
		t.Fatalf("Load() err = %v, want nil", err)
	}
	if inst.Name != "two-stops" || inst.Fleet != 2 || inst.Capacity != 10 || inst.SwapTime != 1 {
		t.Errorf("Load() header = (%q, %d, %d, %d), want (two-stops, 2, 10, 1)", inst.Name, inst.Fleet, inst.Capacity, inst.SwapTime)
	}
	if diff := cmp.Diff([]int64{1, 3}, inst.ClassWeights); diff != "" {
		t.Errorf("ClassWeights returned with unexpected diff (-want+got);\n%s", diff)
	}
	if inst.UseAllVehicles == nil || *inst.UseAllVehicles {
		t.Errorf("UseAllVehicles = %v, want false", inst.UseAllVehicles)
	}
	net := inst.Network
	if !net.Has(1, network.Demand) || !net.Has(1, network.SwapPoint) || !net.Has(2, network.Transit) {
		t.Error("roles were not parsed")
	}
	if w, ok := net.Window(1); !ok || w != (network.TimeWindow{Earliest: 1, Latest: 100}) {
		t.Errorf("Window(1) = (%+v, %v), want ({1 100}, true)", w, ok)
	}
	if c, _ := net.Cost(network.Arc{From: 0, To: 1}); c != (network.ArcCost{Distance: 5, Time: 3, Energy: 2}) {
		t.Errorf("Cost((0,1)) = %+v, want {5 3 2}", c)
	}
	if net.NumArcs() != 3 {
		t.Errorf("NumArcs() = %d, want 3", net.NumArcs())
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "bad window",
			yaml: "nodes: [{id: 0, window: [1]}]",
			want: ErrBadWindow,
		},
		{
			name: "duplicate arc",
			yaml: "nodes: [{id: 0}, {id: 1}]\narcs: [{from: 0, to: 1}, {from: 0, to: 1}]",
			want: ErrDuplicateArc,
		},
		{
			name: "unknown node",
			yaml: "nodes: [{id: 0}]\narcs: [{from: 0, to: 1}]",
			want: network.ErrUnknownNode,
		},
	}
	for _, test := range testCases {
		if _, err := Load(strings.NewReader(test.yaml)); !errors.Is(err, test.want) {
			t.Errorf("%s: Load() err = %v, want %v", test.name, err, test.want)
		}
	}
	for _, bad := range []string{"nodes: [{id: 0, roles: [hub]}]", "fleet: 1\ncolour: red"} {
		if _, err := Load(strings.NewReader(bad)); err == nil {
			t.Errorf("Load(%q) err = nil, want error", bad)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.yaml")
	if err := os.WriteFile(path, []byte(twoStops), 0o644); err != nil {
		t.Fatalf("WriteFile() err = %v", err)
	}
	inst, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() err = %v, want nil", err)
	}
	if inst.Network.NumNodes() != 3 {
		t.Errorf("NumNodes() = %d, want 3", inst.Network.NumNodes())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) err = nil, want error")
	}
}
