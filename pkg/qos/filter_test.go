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

package qos_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
)

type monitor struct {
	lock         sync.Mutex
	measurements map[int64]*api.PingMeasurement
	err          error
	calls        map[int64]int
}

func newMonitor() *monitor {
	return &monitor{
		measurements: make(map[int64]*api.PingMeasurement),
		calls:        make(map[int64]int),
	}
}

func (m *monitor) GetPingMeasurement(systemID int64) (*api.PingMeasurement, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.calls[systemID]++
	if m.err != nil {
		return nil, m.err
	}
	if measurement, ok := m.measurements[systemID]; ok {
		copied := *measurement
		return &copied, nil
	}
	return &api.PingMeasurement{SystemID: systemID}, nil
}

type reservations struct {
	lock  sync.Mutex
	items map[string]api.QoSReservation
}

func newReservations() *reservations {
	return &reservations{items: make(map[string]api.QoSReservation)}
}

func (r *reservations) Reservations() ([]api.QoSReservation, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var all []api.QoSReservation
	for _, reservation := range r.items {
		all = append(all, reservation)
	}
	return all, nil
}

func (r *reservations) Reserve(reservation *api.QoSReservation) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.items[reservation.Key()] = *reservation
	return nil
}

func (r *reservations) Release(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.items, key)
	return nil
}

var (
	now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	requester = api.System{SystemName: "consumer", Address: "10.0.0.10", Port: 8080}
	other     = api.System{SystemName: "other-consumer", Address: "10.0.0.11", Port: 8080}
)

func candidate(id int64) api.OrchestrationResult {
	return api.OrchestrationResult{
		Provider:   api.System{ID: id, SystemName: "provider", Address: "10.0.1.1", Port: 9000 + int(id)},
		Service:    api.ServiceDefinition{ServiceDefinition: "temperature"},
		ServiceURI: "/temperature",
		Secure:     api.SecureNone,
		Interfaces: []api.Interface{{InterfaceName: "HTTP-INSECURE-JSON"}},
	}
}

func measured(id int64) *api.PingMeasurement {
	return &api.PingMeasurement{
		SystemID:                       id,
		HasRecord:                      true,
		Available:                      true,
		MaxResponseTime:                100,
		MeanResponseTimeWithoutTimeout: 50,
		JitterWithoutTimeout:           10,
		Sent:                           100,
		Received:                       100,
		SentAll:                        1000,
		ReceivedAll:                    1000,
		LastAccessAt:                   now,
	}
}

func newFilter(m *monitor, r *reservations) *qos.Filter {
	config := &qos.Config{
		Settings: qos.DefaultSettings(),
		Clock:    testingclock.NewFakePassiveClock(now),
	}
	if m != nil {
		config.Monitor = m
	}
	if r != nil {
		config.Reservations = r
	}
	return qos.NewFilter(config)
}

func TestMaxResponseTimeBoundary(t *testing.T) {
	m := newMonitor()
	m.measurements[1] = measured(1)
	filter := newFilter(m, nil)

	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementMaxResponseTime: "100"}, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)

	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementMaxResponseTime: "99"}, nil)
	require.Nil(t, err)
	require.Empty(t, admitted)
}

func TestThresholds(t *testing.T) {
	m := newMonitor()
	m.measurements[1] = measured(1)
	filter := newFilter(m, nil)

	for requirements, accepted := range map[[2]string]bool{
		{qos.RequirementAverageResponseTime, "50"}: true,
		{qos.RequirementAverageResponseTime, "49"}: false,
		{qos.RequirementJitter, "10"}:              true,
		{qos.RequirementJitter, "9"}:               false,
		{qos.RequirementPacketLoss, "0"}:           true,
	} {
		admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
			map[string]string{requirements[0]: requirements[1]}, nil)
		require.Nil(t, err)
		require.Equal(t, accepted, len(admitted) == 1, requirements)
	}
}

func TestPacketLoss(t *testing.T) {
	m := newMonitor()
	measurement := measured(1)
	measurement.Sent = 100
	measurement.Received = 80
	m.measurements[1] = measurement
	filter := newFilter(m, nil)

	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementRecentPacketLoss: "25"}, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)

	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementRecentPacketLoss: "15"}, nil)
	require.Nil(t, err)
	require.Empty(t, admitted)

	// exactly at the threshold
	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementRecentPacketLoss: "20"}, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)

	// lifetime loss
	filter.PingCache().Reset()
	measurement.SentAll = 1000
	measurement.ReceivedAll = 700
	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementPacketLoss: "25"}, nil)
	require.Nil(t, err)
	require.Empty(t, admitted)
}

func TestNoRecordAndUnavailable(t *testing.T) {
	m := newMonitor()
	unavailable := measured(2)
	unavailable.Available = false
	m.measurements[2] = unavailable
	filter := newFilter(m, nil)

	requirements := map[string]string{qos.RequirementMaxResponseTime: "1000"}
	candidates := []api.OrchestrationResult{candidate(1), candidate(2)}

	admitted, err := filter.FilterCandidates(&requester, candidates, requirements, nil)
	require.Nil(t, err)
	require.Empty(t, admitted)

	settings := filter.Settings()
	settings.DefaultAcceptNoRecord = true
	filter.SetSettings(settings)

	admitted, err = filter.FilterCandidates(&requester, candidates, requirements, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)
	require.Equal(t, int64(1), admitted[0].Provider.ID)
}

func TestMalformedRequirement(t *testing.T) {
	m := newMonitor()
	filter := newFilter(m, nil)

	for _, value := range []string{"fast", "-1", "1.5"} {
		_, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
			map[string]string{qos.RequirementJitter: value}, nil)
		require.NotNil(t, err)
		require.True(t, api.IsKind(err, api.KindBadRequest))
		require.Contains(t, err.Error(), qos.RequirementJitter)
	}

	// validated before any candidate is looked at
	require.Empty(t, m.calls)
}

func TestMonitorErrorFailsWholeCall(t *testing.T) {
	m := newMonitor()
	m.err = errors.New("monitor down")
	filter := newFilter(m, nil)

	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementJitter: "10"}, nil)
	require.Nil(t, admitted)
	require.True(t, api.IsKind(err, api.KindUnavailable))
}

func TestNoMonitorWithRequirements(t *testing.T) {
	filter := newFilter(nil, nil)

	_, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)},
		map[string]string{qos.RequirementJitter: "10"}, nil)
	require.True(t, api.IsKind(err, api.KindConfiguration))

	// no requirements, nothing to verify
	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1)}, nil, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)
}

func TestReservationExclusion(t *testing.T) {
	r := newReservations()
	filter := newFilter(nil, r)

	c := candidate(1)
	require.Nil(t, filter.Reserve(&other, &c, 60))

	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1), candidate(2)}, nil, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 1)
	require.Equal(t, int64(2), admitted[0].Provider.ID)

	// own reservation remains visible
	admitted, err = filter.FilterCandidates(&other, []api.OrchestrationResult{candidate(1), candidate(2)}, nil, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 2)

	// expired reservations are ignored
	require.Nil(t, r.Reserve(&api.QoSReservation{
		Provider:          candidate(2).Provider,
		ServiceDefinition: "temperature",
		Consumer:          other,
		ReservedTo:        now.Add(-time.Second),
	}))
	released := candidate(1).Provider
	require.Nil(t, filter.Release(&released, "temperature"))

	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(1), candidate(2)}, nil, nil)
	require.Nil(t, err)
	require.Len(t, admitted, 2)
}

func TestServiceTimeNegotiation(t *testing.T) {
	filter := newFilter(nil, nil)

	c := candidate(1)
	c.Metadata = map[string]string{api.MetadataRecommendedTime: "60"}
	c.Warnings = []api.OrchestratorWarning{api.WarningTTLUnknown}

	// 66 = round(60 * 1.1) is the longest acceptable exclusivity
	admitted, err := filter.FilterCandidates(&requester, []api.OrchestrationResult{c}, nil,
		map[string]string{api.CommandExclusivityTime: "66"})
	require.Nil(t, err)
	require.Len(t, admitted, 1)
	require.Equal(t, "96", admitted[0].Metadata[api.MetadataReservedTime])
	require.Equal(t, []api.OrchestratorWarning{api.WarningTTLExpiring}, admitted[0].Warnings)

	// input candidate is left untouched
	require.NotContains(t, c.Metadata, api.MetadataReservedTime)
	require.Equal(t, []api.OrchestratorWarning{api.WarningTTLUnknown}, c.Warnings)

	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{c}, nil,
		map[string]string{api.CommandExclusivityTime: "67"})
	require.Nil(t, err)
	require.Empty(t, admitted)

	// shorter exclusivity, the recommended time wins
	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{c}, nil,
		map[string]string{api.CommandExclusivityTime: "10"})
	require.Nil(t, err)
	require.Equal(t, "90", admitted[0].Metadata[api.MetadataReservedTime])

	// long leases do not warn
	c.Metadata[api.MetadataRecommendedTime] = "3600"
	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{c}, nil, nil)
	require.Nil(t, err)
	require.Equal(t, "3630", admitted[0].Metadata[api.MetadataReservedTime])
	require.Equal(t, []api.OrchestratorWarning{api.WarningTTLUnknown}, admitted[0].Warnings)

	// no recommended time, no lease
	admitted, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{candidate(2)}, nil,
		map[string]string{api.CommandExclusivityTime: "100000"})
	require.Nil(t, err)
	require.Len(t, admitted, 1)
	require.NotContains(t, admitted[0].Metadata, api.MetadataReservedTime)

	_, err = filter.FilterCandidates(&requester, []api.OrchestrationResult{c}, nil,
		map[string]string{api.CommandExclusivityTime: "soon"})
	require.True(t, api.IsKind(err, api.KindBadRequest))
}

func TestReserveUsesNegotiatedLease(t *testing.T) {
	r := newReservations()
	filter := newFilter(nil, r)

	c := candidate(1)
	c.Metadata = map[string]string{api.MetadataReservedTime: "140"}
	require.Nil(t, filter.Reserve(&requester, &c, 110))

	all, err := r.Reservations()
	require.Nil(t, err)
	require.Len(t, all, 1)
	require.Equal(t, now.Add(140*time.Second), all[0].ReservedTo)
	require.Equal(t, requester, all[0].Consumer)
}
