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

package store

import (
	"github.com/clusterlink-net/arrowhead/pkg/api"
)

const (
	ruleStoreName        = "rule"
	reservationStoreName = "reservation"

	ruleStructVersion        = 1
	reservationStructVersion = 1
)

// Rule is a persisted orchestration store rule.
type Rule struct {
	api.StoreRule
	// Version of the struct when object was created.
	Version uint32
}

// NewRule creates a new rule.
func NewRule(rule *api.StoreRule) *Rule {
	return &Rule{
		StoreRule: *rule,
		Version:   ruleStructVersion,
	}
}

// Reservation is a persisted QoS reservation.
type Reservation struct {
	api.QoSReservation
	// Version of the struct when object was created.
	Version uint32
}

// NewReservation creates a new reservation.
func NewReservation(reservation *api.QoSReservation) *Reservation {
	return &Reservation{
		QoSReservation: *reservation,
		Version:        reservationStructVersion,
	}
}
