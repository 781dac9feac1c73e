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

// Package instance reads routing instances from YAML.
//
// An instance file looks like:
//
//	name: two-stops
//	nodes:
//	  - {id: 0, roles: [depot]}
//	  - {id: 1, roles: [demand, swap], window: [1, 100]}
//	arcs:
//	  - {from: 0, to: 1, distance: 5, time: 3, energy: 2}
//	  - {from: 1, to: 0, distance: 5, time: 3, energy: 2}
//	fleet: 1
//	capacity: 10
//	swap_time: 1
//	class_weights: [1, 2]
//	use_all_vehicles: true
package instance

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/L043N70/weave-public/routing/network"
)

var (
	// ErrBadWindow is returned when a window does not have exactly two bounds.
	ErrBadWindow = errors.New("a window needs exactly [earliest, latest]")
	// ErrDuplicateArc is returned when an arc is listed twice.
	ErrDuplicateArc = errors.New("duplicate arc")
)

type nodeSpec struct {
	ID     int      `yaml:"id"`
	Roles  []string `yaml:"roles"`
	Window []int64  `yaml:"window"`
}

type arcSpec struct {
	From     int   `yaml:"from"`
	To       int   `yaml:"to"`
	Distance int64 `yaml:"distance"`
	Time     int64 `yaml:"time"`
	Energy   int64 `yaml:"energy"`
}

type fileSpec struct {
	Name           string     `yaml:"name"`
	Nodes          []nodeSpec `yaml:"nodes"`
	Arcs           []arcSpec  `yaml:"arcs"`
	Fleet          int        `yaml:"fleet"`
	Capacity       int64      `yaml:"capacity"`
	SwapTime       int64      `yaml:"swap_time"`
	ClassWeights   []int64    `yaml:"class_weights"`
	UseAllVehicles *bool      `yaml:"use_all_vehicles"`
}

// Instance is a network plus the fleet parameters of both models.
type Instance struct {
	Name    string
	Network *network.Network
	// Fleet is the number of vehicle classes or aircraft.
	Fleet          int
	Capacity       int64
	SwapTime       int64
	ClassWeights   []int64
	UseAllVehicles *bool
}

// Load decodes an instance. Unknown fields are rejected.
func Load(r io.Reader) (*Instance, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var spec fileSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decoding instance: %w", err)
	}

	nodes := make([]network.Node, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		node := network.Node{ID: network.NodeID(ns.ID)}
		for _, name := range ns.Roles {
			r, err := network.ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", ns.ID, err)
			}
			node.Roles |= r
		}
		if ns.Window != nil {
			if len(ns.Window) != 2 {
				return nil, fmt.Errorf("node %d window %v: %w", ns.ID, ns.Window, ErrBadWindow)
			}
			node.Window = &network.TimeWindow{Earliest: ns.Window[0], Latest: ns.Window[1]}
		}
		nodes = append(nodes, node)
	}

	arcs := make(map[network.Arc]network.ArcCost, len(spec.Arcs))
	for _, as := range spec.Arcs {
		a := network.Arc{From: network.NodeID(as.From), To: network.NodeID(as.To)}
		if _, ok := arcs[a]; ok {
			return nil, fmt.Errorf("arc %v: %w", a, ErrDuplicateArc)
		}
		arcs[a] = network.ArcCost{Distance: as.Distance, Time: as.Time, Energy: as.Energy}
	}

	net, err := network.New(nodes, arcs)
	if err != nil {
		return nil, fmt.Errorf("instance %q: %w", spec.Name, err)
	}
	return &Instance{
		Name:           spec.Name,
		Network:        net,
		Fleet:          spec.Fleet,
		Capacity:       spec.Capacity,
		SwapTime:       spec.SwapTime,
		ClassWeights:   spec.ClassWeights,
		UseAllVehicles: spec.UseAllVehicles,
	}, nil
}

// LoadFile reads the instance stored at `path`.
func LoadFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
