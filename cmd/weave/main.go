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

// The weave command solves a BSS or UAV routing instance and prints a JSON report.
//
//	weave -instance=two_stops.yaml -model=uav
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/L043N70/weave-public/internal/instance"
	"github.com/L043N70/weave-public/internal/metrics"
	"github.com/L043N70/weave-public/routing/bss"
	"github.com/L043N70/weave-public/routing/network"
	"github.com/L043N70/weave-public/routing/solution"
	"github.com/L043N70/weave-public/routing/uav"
)

var (
	instancePath = flag.String("instance", "", "Path to the YAML instance.")
	modelName    = flag.String("model", "uav", "Model to solve: bss or uav.")
	printMetrics = flag.Bool("metrics", false, "Print the solve metrics in the Prometheus text format to stderr.")
)

type config struct {
	model    string
	recorder *metrics.Recorder
}

type group struct {
	name   string
	values interface{ Struct() (*structpb.Struct, error) }
}

// report assembles the JSON report of a solve.
func report(inst *instance.Instance, model, runID string, objective int64, wall time.Duration, groups []group, routes map[string]any) (*structpb.Struct, error) {
	fields := map[string]any{
		"instance":  inst.Name,
		"model":     model,
		"run_id":    runID,
		"objective": objective,
		"wall_time": wall.String(),
		"routes":    routes,
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		v, err := g.values.Struct()
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.name, err)
		}
		s.Fields[g.name] = structpb.NewStructValue(v)
	}
	return s, nil
}

// routes lists, per class, the walk of the used arcs from every depot the class leaves.
func routes(net *network.Network, arcUse solution.ArcValues) map[string]any {
	out := make(map[string]any)
	for _, k := range arcUse.Classes() {
		var walks []any
		for _, d := range net.Depots() {
			walk := arcUse.Route(k, d)
			if len(walk) < 2 {
				continue
			}
			ids := make([]any, len(walk))
			for i, id := range walk {
				ids[i] = int64(id)
			}
			walks = append(walks, ids)
		}
		if len(walks) > 0 {
			out[fmt.Sprint(k)] = walks
		}
	}
	return out
}

func run(w io.Writer, inst *instance.Instance, cfg config) error {
	var s *structpb.Struct
	var err error
	switch cfg.model {
	case "bss":
		res, serr := bss.Solve(inst.Network, bss.Options{
			Vehicles:     inst.Fleet,
			SwapTime:     inst.SwapTime,
			ClassWeights: inst.ClassWeights,
			Metrics:      cfg.recorder,
		})
		if serr != nil {
			return serr
		}
		s, err = report(inst, cfg.model, res.RunID, res.Objective, res.WallTime, []group{
			{"arc_use", res.ArcUse},
			{"schedule", res.Schedule},
		}, routes(inst.Network, res.ArcUse))
	case "uav":
		res, serr := uav.Solve(inst.Network, uav.Options{
			Vehicles:       inst.Fleet,
			Capacity:       inst.Capacity,
			SwapTime:       inst.SwapTime,
			ClassWeights:   inst.ClassWeights,
			UseAllVehicles: inst.UseAllVehicles,
			Metrics:        cfg.recorder,
		})
		if serr != nil {
			return serr
		}
		s, err = report(inst, cfg.model, res.RunID, res.Objective, res.WallTime, []group{
			{"arc_use", res.ArcUse},
			{"time", res.Time},
			{"swap", res.Swap},
			{"energy", res.Energy},
			{"waste", res.Waste},
			{"prior_swaps", res.PriorSwaps},
		}, routes(inst.Network, res.ArcUse))
	default:
		return fmt.Errorf("unknown model %q, want bss or uav", cfg.model)
	}
	if err != nil {
		return fmt.Errorf("building the report: %w", err)
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// writeMetrics writes every metric family of `g` in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Parse()
	defer log.Flush()
	if *instancePath == "" {
		log.Exit("-instance is required")
	}
	inst, err := instance.LoadFile(*instancePath)
	if err != nil {
		log.Exitf("Loading %s returned with error: %v", *instancePath, err)
	}
	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Exitf("Registering metrics returned with error: %v", err)
	}
	cfg := config{model: *modelName, recorder: recorder}
	if err := run(os.Stdout, inst, cfg); err != nil {
		log.Exitf("Solving %s returned with error: %v", inst.Name, err)
	}
	if *printMetrics {
		if err := writeMetrics(os.Stderr, reg); err != nil {
			log.Exitf("Writing metrics returned with error: %v", err)
		}
	}
}
