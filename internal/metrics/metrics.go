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

// Package metrics exposes Prometheus collectors describing model solves.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts solves and tracks their duration and model size. A nil *Recorder records
// nothing.
type Recorder struct {
	Solves      *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Variables   *prometheus.GaugeVec
	Constraints *prometheus.GaugeVec
}

// NewRecorder registers the solve collectors against `reg`, or the default registerer when nil.
// Registering twice against the same registerer returns the existing collectors.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weave_solves_total",
		Help: "Number of model solves by problem and final status.",
	}, []string{"problem", "status"}), "weave_solves_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weave_solve_duration_seconds",
		Help:    "Wall time of model solves.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
	}, []string{"problem"}), "weave_solve_duration_seconds")
	if err != nil {
		return nil, err
	}
	vars, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "weave_model_variables",
		Help: "Number of variables of the last model built.",
	}, []string{"problem"}), "weave_model_variables")
	if err != nil {
		return nil, err
	}
	cons, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "weave_model_constraints",
		Help: "Number of constraints of the last model built.",
	}, []string{"problem"}), "weave_model_constraints")
	if err != nil {
		return nil, err
	}
	return &Recorder{Solves: solves, Duration: duration, Variables: vars, Constraints: cons}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}

// ObserveModel records the size of a freshly built model.
func (r *Recorder) ObserveModel(problem string, numVars, numConstraints int) {
	if r == nil {
		return
	}
	r.Variables.WithLabelValues(problem).Set(float64(numVars))
	r.Constraints.WithLabelValues(problem).Set(float64(numConstraints))
}

// ObserveSolve records one solve ending with `status` after `d`.
func (r *Recorder) ObserveSolve(problem, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.Solves.WithLabelValues(problem, status).Inc()
	r.Duration.WithLabelValues(problem).Observe(d.Seconds())
}
