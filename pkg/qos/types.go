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

package qos

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

// QoS requirement keys.
const (
	RequirementMaxResponseTime     = "maxResponseTimeThreshold"
	RequirementAverageResponseTime = "averageResponseTimeThreshold"
	RequirementJitter              = "jitterThreshold"
	RequirementRecentPacketLoss    = "recentPacketLossThreshold"
	RequirementPacketLoss          = "packetLossThreshold"
)

// Rejection reasons.
const (
	reasonReserved       = "reserved"
	reasonNoRecord       = "no_record"
	reasonUnavailable    = "unavailable"
	reasonThreshold      = "threshold"
	reasonServiceTime    = "service_time"
	reasonBadServiceTime = "bad_service_time"
)

// Settings of the admission filter.
type Settings struct {
	// PingMeasurementCacheThreshold is the age beyond which a cached ping measurement is refreshed.
	PingMeasurementCacheThreshold time.Duration
	// DefaultAcceptNoRecord accepts providers which were never measured.
	DefaultAcceptNoRecord bool
	// LeasePadding is added to negotiated lease durations.
	LeasePadding time.Duration
	// LeaseWarningMinutes is the lease duration below which a TTL_EXPIRING warning is attached.
	LeaseWarningMinutes int
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{
		PingMeasurementCacheThreshold: 600 * time.Second,
		LeasePadding:                  30 * time.Second,
		LeaseWarningMinutes:           2,
	}
}

// ReservationStore holds the exclusivity claims on provider services.
type ReservationStore interface {
	// Reservations returns all reservations, including expired ones.
	Reservations() ([]api.QoSReservation, error)
	// Reserve adds or replaces the reservation of a provider service.
	Reserve(reservation *api.QoSReservation) error
	// Release removes the reservation of a provider service.
	Release(key string) error
}

// PingMonitor provides network health measurements of providers.
type PingMonitor interface {
	GetPingMeasurement(systemID int64) (*api.PingMeasurement, error)
}

// Requirements are parsed ping requirements. Nil fields are not required.
type Requirements struct {
	MaxResponseTime     *int64
	AverageResponseTime *int64
	Jitter              *int64
	RecentPacketLoss    *int64
	PacketLoss          *int64
}

// Empty returns true if no ping requirement is set.
func (r *Requirements) Empty() bool {
	return r.MaxResponseTime == nil && r.AverageResponseTime == nil && r.Jitter == nil &&
		r.RecentPacketLoss == nil && r.PacketLoss == nil
}

// ParseRequirements parses the ping requirements of an orchestration request.
// Every present value must be a non-negative integer. Unknown keys are ignored.
func ParseRequirements(values map[string]string) (*Requirements, error) {
	r := &Requirements{}
	targets := map[string]**int64{
		RequirementMaxResponseTime:     &r.MaxResponseTime,
		RequirementAverageResponseTime: &r.AverageResponseTime,
		RequirementJitter:              &r.Jitter,
		RequirementRecentPacketLoss:    &r.RecentPacketLoss,
		RequirementPacketLoss:          &r.PacketLoss,
	}

	for key, value := range values {
		target, ok := targets[key]
		if !ok {
			continue
		}

		parsed, err := parseNonNegative(value)
		if err != nil {
			return nil, api.BadRequest("qosRequirements."+key, "%v", err)
		}
		*target = &parsed
	}

	return r, nil
}

func parseNonNegative(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value '%s' is not a valid integer", value)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value '%s' must not be negative", value)
	}
	return parsed, nil
}
