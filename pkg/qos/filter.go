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
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
)

// recommendedTimeTolerance is the factor by which a requested exclusivity may exceed the
// provider recommended orchestration time.
const recommendedTimeTolerance = 1.1

// Config of a Filter.
type Config struct {
	// Reservations holds the active reservations.
	Reservations ReservationStore
	// Monitor provides ping measurements.
	Monitor PingMonitor
	// Settings of the filter.
	Settings Settings
	// Clock of the filter, the real clock if unset.
	Clock clock.PassiveClock
}

// Filter is the QoS admission filter of orchestration candidates.
// Candidates go through the reservation filter, the ping verifier and the service time negotiator.
type Filter struct {
	reservations ReservationStore
	pings        *PingCache
	settings     atomic.Pointer[Settings]
	clock        clock.PassiveClock

	logger *logrus.Entry
}

// Settings returns the current settings.
func (f *Filter) Settings() Settings {
	return *f.settings.Load()
}

// SetSettings replaces the settings used by subsequent requests.
func (f *Filter) SetSettings(settings Settings) {
	f.logger.Infof("Using settings: %+v.", settings)
	f.settings.Store(&settings)
}

// PingCache returns the ping measurement cache.
func (f *Filter) PingCache() *PingCache {
	return f.pings
}

// FilterCandidates returns the candidates admitted for the requester, in their original order.
// Admitted candidates carry the negotiated lease in their metadata.
// Malformed requirements or commands fail with a BadRequest error; collaborator failures
// fail the whole call.
func (f *Filter) FilterCandidates(requester *api.System, candidates []api.OrchestrationResult,
	requirements, commands map[string]string,
) ([]api.OrchestrationResult, error) {
	reqs, err := ParseRequirements(requirements)
	if err != nil {
		return nil, err
	}

	exclusivity, err := ExclusivityTime(commands)
	if err != nil {
		return nil, err
	}

	settings := f.Settings()
	now := f.clock.Now()

	reserved, err := f.reservedByOthers(requester, now)
	if err != nil {
		return nil, err
	}

	admitted := make([]api.OrchestrationResult, 0, len(candidates))
	for i := range candidates {
		candidate := candidates[i]
		logger := f.logger.WithFields(logrus.Fields{
			"provider": candidate.Provider.Identity(),
			"service":  candidate.Service.ServiceDefinition,
		})

		if reserved[api.ReservationKey(&candidate.Provider, candidate.Service.ServiceDefinition)] {
			logger.Debug("Rejected: reserved by another consumer.")
			metrics.QoSRejections.WithLabelValues(reasonReserved).Inc()
			continue
		}

		if !reqs.Empty() {
			reason, err := f.verifyPing(&candidate, reqs, &settings, now)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				logger.Debugf("Rejected: ping verification (%s).", reason)
				metrics.QoSRejections.WithLabelValues(reason).Inc()
				continue
			}
		}

		if reason := negotiateServiceTime(&candidate, exclusivity, &settings); reason != "" {
			logger.Debugf("Rejected: service time negotiation (%s).", reason)
			metrics.QoSRejections.WithLabelValues(reason).Inc()
			continue
		}

		admitted = append(admitted, candidate)
	}

	f.logger.Debugf("Admitted %d of %d candidates.", len(admitted), len(candidates))
	return admitted, nil
}

// reservedByOthers returns the keys of active reservations held by consumers other than the requester.
func (f *Filter) reservedByOthers(requester *api.System, now time.Time) (map[string]bool, error) {
	reserved := make(map[string]bool)
	if f.reservations == nil {
		return reserved, nil
	}

	reservations, err := f.reservations.Reservations()
	if err != nil {
		return nil, api.Unavailable(err, "unable to get reservations")
	}

	for i := range reservations {
		reservation := &reservations[i]
		if !reservation.ReservedTo.After(now) || reservation.Consumer.SameIdentity(requester) {
			continue
		}
		reserved[reservation.Key()] = true
	}

	return reserved, nil
}

// verifyPing returns the rejection reason of a candidate, empty if accepted.
func (f *Filter) verifyPing(candidate *api.OrchestrationResult, reqs *Requirements,
	settings *Settings, now time.Time,
) (string, error) {
	if f.pings == nil {
		return "", api.ConfigurationError("ping requirements set but no QoS Monitor is configured")
	}

	measurement, err := f.pings.Get(candidate.Provider.ID, settings.PingMeasurementCacheThreshold, now)
	if err != nil {
		return "", err
	}

	if measurement == nil || !measurement.HasRecord {
		if settings.DefaultAcceptNoRecord {
			return "", nil
		}
		return reasonNoRecord, nil
	}

	if !measurement.Available {
		return reasonUnavailable, nil
	}

	if exceedsThresholds(measurement, reqs) {
		return reasonThreshold, nil
	}
	return "", nil
}

// exceedsThresholds returns true if any present requirement is strictly exceeded.
func exceedsThresholds(m *api.PingMeasurement, reqs *Requirements) bool {
	exceeds := func(value int64, threshold *int64) bool {
		return threshold != nil && value > *threshold
	}

	return exceeds(int64(m.MaxResponseTime), reqs.MaxResponseTime) ||
		exceeds(int64(m.MeanResponseTimeWithoutTimeout), reqs.AverageResponseTime) ||
		exceeds(int64(m.JitterWithoutTimeout), reqs.Jitter) ||
		lossExceeds(m.Sent, m.Received, reqs.RecentPacketLoss) ||
		lossExceeds(m.SentAll, m.ReceivedAll, reqs.PacketLoss)
}

// lossExceeds returns true if the loss ratio 1 - received/sent exceeds percent/100.
// Computed as (sent - received) * 100 > percent * sent to stay exact.
func lossExceeds(sent, received int64, percent *int64) bool {
	if percent == nil || sent <= 0 {
		return false
	}
	return (sent-received)*100 > *percent*sent
}

// negotiateServiceTime writes the lease of a candidate into its metadata.
// It returns the rejection reason, empty if accepted.
func negotiateServiceTime(candidate *api.OrchestrationResult, exclusivity *int64, settings *Settings) string {
	raw, ok := candidate.Metadata[api.MetadataRecommendedTime]
	if !ok {
		return ""
	}

	recommended, err := parseNonNegative(raw)
	if err != nil {
		return reasonBadServiceTime
	}

	lease := recommended
	if exclusivity != nil {
		if float64(*exclusivity) > math.Floor(float64(recommended)*recommendedTimeTolerance+0.5) {
			return reasonServiceTime
		}
		if *exclusivity > lease {
			lease = *exclusivity
		}
	}
	lease += int64(settings.LeasePadding / time.Second)

	metadata := make(map[string]string, len(candidate.Metadata)+1)
	for k, v := range candidate.Metadata {
		metadata[k] = v
	}
	metadata[api.MetadataReservedTime] = strconv.FormatInt(lease, 10)
	candidate.Metadata = metadata

	if lease < int64(settings.LeaseWarningMinutes)*60 {
		candidate.Warnings = append([]api.OrchestratorWarning(nil), candidate.Warnings...)
		candidate.RemoveWarning(api.WarningTTLUnknown)
		candidate.AddWarning(api.WarningTTLExpiring)
	}

	return ""
}

// ExclusivityTime parses the requested exclusivity duration (seconds) of the commands, nil if absent.
func ExclusivityTime(commands map[string]string) (*int64, error) {
	raw, ok := commands[api.CommandExclusivityTime]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	value, err := parseNonNegative(raw)
	if err != nil {
		return nil, api.BadRequest("commands."+api.CommandExclusivityTime, "%v", err)
	}
	return &value, nil
}

// Reserve grants the requester an exclusive lease on the selected candidate.
// The lease duration is the negotiated one, or the requested exclusivity if none was negotiated.
func (f *Filter) Reserve(requester *api.System, candidate *api.OrchestrationResult, exclusivity int64) error {
	if f.reservations == nil {
		return api.ConfigurationError("no reservation store is configured")
	}

	lease := exclusivity
	if raw, ok := candidate.Metadata[api.MetadataReservedTime]; ok {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			lease = parsed
		}
	}

	reservation := &api.QoSReservation{
		Provider:          candidate.Provider,
		ServiceDefinition: candidate.Service.ServiceDefinition,
		Consumer:          *requester,
		ReservedTo:        f.clock.Now().Add(time.Duration(lease) * time.Second),
	}

	f.logger.Infof("Reserving '%s' for '%s' until %v.",
		reservation.Key(), requester.Identity(), reservation.ReservedTo)

	if err := f.reservations.Reserve(reservation); err != nil {
		return fmt.Errorf("unable to reserve '%s': %w", reservation.Key(), err)
	}
	return nil
}

// Release removes the reservation of a provider service.
func (f *Filter) Release(provider *api.System, serviceDefinition string) error {
	if f.reservations == nil {
		return nil
	}
	return f.reservations.Release(api.ReservationKey(provider, serviceDefinition))
}

// NewFilter returns a new admission filter.
// Without a monitor, requests carrying ping requirements fail with a configuration error.
func NewFilter(config *Config) *Filter {
	f := &Filter{
		reservations: config.Reservations,
		clock:        config.Clock,
		logger:       logrus.WithField("component", "qos.filter"),
	}

	if config.Monitor != nil {
		f.pings = NewPingCache(config.Monitor)
	}
	if f.clock == nil {
		f.clock = clock.RealClock{}
	}

	settings := config.Settings
	f.settings.Store(&settings)

	return f
}
