// Copyright (c) The ClusterLink Authors.
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

// Package metrics holds the prometheus collectors of the core systems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arrowhead"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeEmpty    = "empty"
	OutcomeNoMatch  = "no_match"
	OutcomeRejected = "rejected"
)

var (
	// LocatorResolutions counts service resolutions by tier and outcome.
	LocatorResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locator",
			Name:      "resolutions_total",
			Help:      "Number of core service resolution attempts by tier and outcome.",
		},
		[]string{"service", "tier", "outcome"},
	)

	// LocatorProbes counts liveness probes by outcome.
	LocatorProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locator",
			Name:      "probes_total",
			Help:      "Number of liveness probes of cached endpoints by outcome.",
		},
		[]string{"outcome"},
	)

	// OrchestrationRequests counts orchestration requests by decision path and outcome.
	OrchestrationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Number of orchestration requests by decision path and outcome.",
		},
		[]string{"path", "outcome"},
	)

	// OrchestrationDuration observes orchestration request latency by decision path.
	OrchestrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "request_duration_seconds",
			Help:      "Latency of orchestration requests by decision path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// QoSRejections counts candidates dropped by the QoS admission filter by reason.
	QoSRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qos",
			Name:      "rejections_total",
			Help:      "Number of orchestration candidates dropped by the QoS filter by reason.",
		},
		[]string{"reason"},
	)

	// PingCacheRefreshes counts ping measurement cache refreshes by outcome.
	PingCacheRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qos",
			Name:      "ping_cache_refreshes_total",
			Help:      "Number of ping measurement fetches from the QoS Monitor by outcome.",
		},
		[]string{"outcome"},
	)

	// Matchmaking counts relay matchmaking attempts by policy and outcome.
	Matchmaking = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "matchmaking_total",
			Help:      "Number of relay matchmaking attempts by policy and outcome.",
		},
		[]string{"policy", "outcome"},
	)

	// Negotiations counts inter-cloud negotiations handled by the gatekeeper by role and outcome.
	Negotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "negotiations_total",
			Help:      "Number of inter-cloud negotiations by role (requester, responder) and outcome.",
		},
		[]string{"role", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		LocatorResolutions,
		LocatorProbes,
		OrchestrationRequests,
		OrchestrationDuration,
		QoSRejections,
		PingCacheRefreshes,
		Matchmaking,
		Negotiations,
	)
}
