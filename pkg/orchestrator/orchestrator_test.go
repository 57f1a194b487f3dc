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

package orchestrator_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
)

var (
	now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	consumer    = api.System{SystemName: "consumer", Address: "10.0.0.5", Port: 8080}
	registryEP  = api.Endpoint{Scheme: "http", Host: "127.0.0.1", Port: 8443}
	remoteCloud = api.Cloud{Operator: "aitia", Name: "testcloud2", Neighbor: true}
	otherCloud  = api.Cloud{Operator: "aitia", Name: "testcloud3", Neighbor: true}
)

type resolver struct{}

func (resolver) Resolve(service api.CoreService) (api.Endpoint, error) {
	return registryEP.WithPath(service.URI), nil
}

type registry struct {
	lock    sync.Mutex
	entries []api.ServiceRegistryEntry
	err     error
	forms   []api.ServiceQueryForm
}

func (r *registry) Query(endpoint api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if endpoint.Path != api.ServiceRegistryQuery.URI {
		return nil, errors.New("unexpected endpoint " + endpoint.String())
	}

	r.forms = append(r.forms, *form)
	if r.err != nil {
		return nil, r.err
	}

	var matched []api.ServiceRegistryEntry
	for _, entry := range r.entries {
		if entry.ServiceDefinition.ServiceDefinition == form.ServiceDefinitionRequirement {
			matched = append(matched, entry)
		}
	}
	return &api.ServiceQueryResult{ServiceQueryData: matched, UnfilteredHits: len(r.entries)}, nil
}

type rules struct {
	rules []api.StoreRule
}

func (r *rules) Lookup(consumer *api.System, serviceDefinition string, _ []string) []api.StoreRule {
	var matched []api.StoreRule
	for _, rule := range r.rules {
		if rule.Consumer.SameIdentity(consumer) &&
			(serviceDefinition == "" || rule.ServiceDefinition == serviceDefinition) {
			matched = append(matched, rule)
		}
	}
	return matched
}

type gatekeeper struct {
	known     bool
	discovery *api.GSDResult
	results   map[string]*api.ICNResult
	requests  []api.ICNRequest
	verified  []api.Cloud
}

func (g *gatekeeper) VerifyCloud(cloud *api.Cloud) (bool, error) {
	g.verified = append(g.verified, *cloud)
	return g.known, nil
}

func (g *gatekeeper) GlobalServiceDiscovery(*api.ServiceQueryForm) (*api.GSDResult, error) {
	if g.discovery == nil {
		return &api.GSDResult{}, nil
	}
	return g.discovery, nil
}

func (g *gatekeeper) InterCloudNegotiate(request *api.ICNRequest) (*api.ICNResult, error) {
	g.requests = append(g.requests, *request)
	result, ok := g.results[request.TargetCloud.Key()]
	if !ok {
		return nil, api.NoMatch("no relay to cloud '%s'", request.TargetCloud.Key())
	}
	return result, nil
}

type monitor struct {
	measurements map[int64]*api.PingMeasurement
}

func (m *monitor) GetPingMeasurement(systemID int64) (*api.PingMeasurement, error) {
	if measurement, ok := m.measurements[systemID]; ok {
		return measurement, nil
	}
	return &api.PingMeasurement{SystemID: systemID}, nil
}

type reservations struct {
	items map[string]api.QoSReservation
}

func (r *reservations) Reservations() ([]api.QoSReservation, error) {
	var all []api.QoSReservation
	for _, reservation := range r.items {
		all = append(all, reservation)
	}
	return all, nil
}

func (r *reservations) Reserve(reservation *api.QoSReservation) error {
	r.items[reservation.Key()] = *reservation
	return nil
}

func (r *reservations) Release(key string) error {
	delete(r.items, key)
	return nil
}

func provider(id int64) api.System {
	return api.System{ID: id, SystemName: "provider", Address: "10.0.1.1", Port: 9000 + int(id)}
}

func registered(id int64, service string) api.ServiceRegistryEntry {
	validity := now.Add(time.Hour)
	return api.ServiceRegistryEntry{
		ID:                id,
		ServiceDefinition: api.ServiceDefinition{ServiceDefinition: service},
		Provider:          provider(id),
		ServiceURI:        "/" + service,
		EndOfValidity:     &validity,
		Secure:            api.SecureNone,
		Interfaces:        []api.Interface{{InterfaceName: "HTTP-INSECURE-JSON"}},
	}
}

func request(service string, flags api.OrchestrationFlags) *api.OrchestrationForm {
	requester := consumer
	return &api.OrchestrationForm{
		RequesterSystem:    &requester,
		RequestedService:   &api.ServiceQueryForm{ServiceDefinitionRequirement: service},
		OrchestrationFlags: flags,
	}
}

type fixture struct {
	registry     *registry
	rules        *rules
	gatekeeper   *gatekeeper
	monitor      *monitor
	reservations *reservations
}

func newFixture() *fixture {
	return &fixture{
		registry:     &registry{},
		rules:        &rules{},
		gatekeeper:   &gatekeeper{known: true, results: make(map[string]*api.ICNResult)},
		monitor:      &monitor{measurements: make(map[int64]*api.PingMeasurement)},
		reservations: &reservations{items: make(map[string]api.QoSReservation)},
	}
}

func (f *fixture) newOrchestrator(withGatekeeper bool) *orchestrator.Orchestrator {
	config := &orchestrator.Config{
		Locator:  resolver{},
		Registry: f.registry,
		Rules:    f.rules,
		QoS: qos.NewFilter(&qos.Config{
			Reservations: f.reservations,
			Monitor:      f.monitor,
			Settings:     qos.DefaultSettings(),
			Clock:        testingclock.NewFakePassiveClock(now),
		}),
		Clock: testingclock.NewFakePassiveClock(now),
	}
	if withGatekeeper {
		config.Gatekeeper = f.gatekeeper
	}
	return orchestrator.NewOrchestrator(config)
}

func providerIDs(response *api.OrchestrationResponse) []int64 {
	ids := make([]int64, 0, len(response.Response))
	for _, result := range response.Response {
		ids = append(ids, result.Provider.ID)
	}
	return ids
}

func TestEndToEndJitter(t *testing.T) {
	f := newFixture()
	f.registry.entries = []api.ServiceRegistryEntry{
		registered(1, "X"), registered(2, "X"), registered(3, "X"), registered(4, "Y"),
	}
	for id, jitter := range map[int64]int{1: 40, 2: 5, 3: 25} {
		f.monitor.measurements[id] = &api.PingMeasurement{
			SystemID: id, HasRecord: true, Available: true,
			JitterWithoutTimeout: jitter, Sent: 10, Received: 10, SentAll: 10, ReceivedAll: 10,
			LastAccessAt: now,
		}
	}

	form := request("X", api.OrchestrationFlags{api.FlagEnableQoS: true})
	form.QoSRequirements = map[string]string{qos.RequirementJitter: "10"}

	response, err := f.newOrchestrator(false).Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{2}, providerIDs(response))
	require.Equal(t, "/X", response.Response[0].ServiceURI)
}

func TestDynamicPath(t *testing.T) {
	f := newFixture()
	expiring := now.Add(time.Minute)
	expired := now.Add(-time.Minute)

	unknownTTL := registered(2, "X")
	unknownTTL.EndOfValidity = nil
	expiringTTL := registered(3, "X")
	expiringTTL.EndOfValidity = &expiring
	expiredTTL := registered(4, "X")
	expiredTTL.EndOfValidity = &expired

	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X"), unknownTTL, expiringTTL, expiredTTL}

	form := request("X", api.OrchestrationFlags{api.FlagOverrideStore: true, api.FlagPingProviders: true})
	form.RequestedService.MetadataRequirements = map[string]string{"unit": "celsius"}

	response, err := f.newOrchestrator(false).Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2, 3}, providerIDs(response))
	require.Empty(t, response.Response[0].Warnings)
	require.Equal(t, []api.OrchestratorWarning{api.WarningTTLUnknown}, response.Response[1].Warnings)
	require.Equal(t, []api.OrchestratorWarning{api.WarningTTLExpiring}, response.Response[2].Warnings)

	// metadata requirements are only forwarded with metadataSearch
	require.Len(t, f.registry.forms, 1)
	require.True(t, f.registry.forms[0].PingProviders)
	require.Nil(t, f.registry.forms[0].MetadataRequirements)

	form.OrchestrationFlags[api.FlagMetadataSearch] = true
	_, err = f.newOrchestrator(false).Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, "celsius", f.registry.forms[1].MetadataRequirements["unit"])
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	f := newFixture()
	response, err := f.newOrchestrator(false).Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Empty(t, response.Response)
}

func TestRegistryFailure(t *testing.T) {
	f := newFixture()
	f.registry.err = api.Unavailable(errors.New("connection refused"), "service-query")

	_, err := f.newOrchestrator(false).Orchestrate(request("X", nil))
	require.True(t, api.IsKind(err, api.KindUnavailable))
}

func TestPreferredProviders(t *testing.T) {
	f := newFixture()
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X"), registered(2, "X"), registered(3, "X")}

	preferred := provider(3)
	preferred.ID = 0
	form := request("X", api.OrchestrationFlags{api.FlagOverrideStore: true})
	form.PreferredProviders = []api.PreferredProvider{
		{ProviderSystem: &preferred},
		{ProviderCloud: &remoteCloud, ProviderSystem: &api.System{SystemName: "remote", Address: "r", Port: 1}},
	}

	o := f.newOrchestrator(false)
	response, err := o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{3, 1, 2}, providerIDs(response))

	form.OrchestrationFlags[api.FlagOnlyPreferred] = true
	response, err = o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{3}, providerIDs(response))

	form.OrchestrationFlags[api.FlagMatchmaking] = true
	form.OrchestrationFlags[api.FlagOnlyPreferred] = false
	response, err = o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{3}, providerIDs(response))
}

func TestStorePath(t *testing.T) {
	f := newFixture()
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X"), registered(2, "X")}
	f.rules.rules = []api.StoreRule{
		{Name: "second", Consumer: consumer, ServiceDefinition: "X", Provider: provider(2), Priority: 1},
		{Name: "gone", Consumer: consumer, ServiceDefinition: "X", Provider: provider(9), Priority: 2},
	}

	o := f.newOrchestrator(false)
	response, err := o.Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Equal(t, []int64{2}, providerIDs(response))

	// overrideStore bypasses the rules
	response, err = o.Orchestrate(request("X", api.OrchestrationFlags{api.FlagOverrideStore: true}))
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2}, providerIDs(response))

	// rules without a registered provider fall through to dynamic orchestration
	f.rules.rules = f.rules.rules[1:]
	response, err = o.Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2}, providerIDs(response))
}

func TestStorePathRequestedInterfaces(t *testing.T) {
	f := newFixture()
	mqtt := registered(2, "X")
	mqtt.Interfaces = []api.Interface{{InterfaceName: "MQTT-SECURE-JSON"}}
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X"), mqtt}
	f.rules.rules = []api.StoreRule{
		{Name: "first", Consumer: consumer, ServiceDefinition: "X", Provider: provider(1), Priority: 1},
		{Name: "second", Consumer: consumer, ServiceDefinition: "X", Provider: provider(2), Priority: 2},
	}

	o := f.newOrchestrator(false)
	response, err := o.Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2}, providerIDs(response))

	// rules without an interface still require one of the requested interfaces
	form := request("X", nil)
	form.RequestedService.InterfaceRequirements = []string{"http-insecure-json"}
	response, err = o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{1}, providerIDs(response))

	form.RequestedService.InterfaceRequirements = []string{"coap", "mqtt-secure-json"}
	response, err = o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{2}, providerIDs(response))
}

func TestStorePathForeignRule(t *testing.T) {
	f := newFixture()
	remoteProvider := api.System{SystemName: "remote", Address: "192.168.0.1", Port: 9000}
	f.rules.rules = []api.StoreRule{{
		Name: "remote", Consumer: consumer, ServiceDefinition: "X",
		Provider: remoteProvider, ProviderCloud: &remoteCloud,
	}}
	f.gatekeeper.results[remoteCloud.Key()] = &api.ICNResult{
		Response: []api.OrchestrationResult{
			{Provider: api.System{SystemName: "other", Address: "192.168.0.2", Port: 9000}},
			{Provider: remoteProvider, ServiceURI: "/X"},
		},
	}

	response, err := f.newOrchestrator(true).Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Len(t, response.Response, 1)
	require.True(t, response.Response[0].Provider.SameIdentity(&remoteProvider))
	require.True(t, response.Response[0].HasWarning(api.WarningFromOtherCloud))

	require.Len(t, f.gatekeeper.requests, 1)
	require.True(t, f.gatekeeper.requests[0].NegotiationFlags.Get(api.FlagOnlyPreferred))
	require.Equal(t, []api.System{remoteProvider}, f.gatekeeper.requests[0].PreferredSystems)

	// without a gatekeeper foreign rules are skipped
	response, err = f.newOrchestrator(false).Orchestrate(request("X", nil))
	require.Nil(t, err)
	require.Empty(t, response.Response)
}

func TestInterCloudPath(t *testing.T) {
	f := newFixture()
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X")}
	f.gatekeeper.discovery = &api.GSDResult{Results: []api.GSDPollResponse{
		{ProviderCloud: otherCloud, NumOfProviders: 1},
		{ProviderCloud: remoteCloud, NumOfProviders: 2},
	}}
	f.gatekeeper.results[remoteCloud.Key()] = &api.ICNResult{
		Response: []api.OrchestrationResult{
			{Provider: api.System{SystemName: "a", Address: "192.168.0.1", Port: 1}},
			{Provider: api.System{SystemName: "b", Address: "192.168.0.2", Port: 1}},
		},
	}

	o := f.newOrchestrator(true)
	form := request("X", api.OrchestrationFlags{api.FlagTriggerInterCloud: true})
	response, err := o.Orchestrate(form)
	require.Nil(t, err)
	require.Len(t, response.Response, 2)
	require.True(t, response.Response[0].HasWarning(api.WarningFromOtherCloud))

	// the first discovered cloud has no relay, the second answers
	require.Len(t, f.gatekeeper.requests, 2)
	require.Equal(t, otherCloud.Key(), f.gatekeeper.requests[0].TargetCloud.Key())
	require.Equal(t, remoteCloud.Key(), f.gatekeeper.requests[1].TargetCloud.Key())
	require.False(t, f.gatekeeper.requests[1].NegotiationFlags.Get(api.FlagTriggerInterCloud))

	// local providers are not consulted
	require.Empty(t, f.registry.forms)

	form.OrchestrationFlags[api.FlagMatchmaking] = true
	response, err = o.Orchestrate(form)
	require.Nil(t, err)
	require.Len(t, response.Response, 1)
	require.Equal(t, "a", response.Response[0].Provider.SystemName)
}

func TestInterCloudPreferredClouds(t *testing.T) {
	f := newFixture()
	f.gatekeeper.discovery = &api.GSDResult{Results: []api.GSDPollResponse{{ProviderCloud: otherCloud}}}
	f.gatekeeper.results[remoteCloud.Key()] = &api.ICNResult{
		Response: []api.OrchestrationResult{{Provider: api.System{SystemName: "a", Address: "192.168.0.1", Port: 1}}},
	}

	form := request("X", api.OrchestrationFlags{api.FlagTriggerInterCloud: true})
	form.PreferredProviders = []api.PreferredProvider{{ProviderCloud: &remoteCloud}}

	response, err := f.newOrchestrator(true).Orchestrate(form)
	require.Nil(t, err)
	require.Len(t, response.Response, 1)
	require.Len(t, f.gatekeeper.requests, 1)
	require.Equal(t, remoteCloud.Key(), f.gatekeeper.requests[0].TargetCloud.Key())
}

func TestEnableInterCloudFallback(t *testing.T) {
	f := newFixture()
	f.gatekeeper.discovery = &api.GSDResult{Results: []api.GSDPollResponse{{ProviderCloud: remoteCloud}}}
	f.gatekeeper.results[remoteCloud.Key()] = &api.ICNResult{
		Response: []api.OrchestrationResult{{Provider: api.System{SystemName: "a", Address: "192.168.0.1", Port: 1}}},
	}

	form := request("X", api.OrchestrationFlags{api.FlagOverrideStore: true, api.FlagEnableInterCloud: true})
	response, err := f.newOrchestrator(true).Orchestrate(form)
	require.Nil(t, err)
	require.Len(t, response.Response, 1)
	require.True(t, response.Response[0].HasWarning(api.WarningFromOtherCloud))

	// local providers win
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X")}
	f.gatekeeper.requests = nil
	response, err = f.newOrchestrator(true).Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{1}, providerIDs(response))
	require.Empty(t, f.gatekeeper.requests)
}

func TestExternalServiceRequest(t *testing.T) {
	f := newFixture()
	f.registry.entries = []api.ServiceRegistryEntry{registered(1, "X")}
	f.rules.rules = []api.StoreRule{
		{Name: "r", Consumer: consumer, ServiceDefinition: "X", Provider: provider(9)},
	}

	form := request("X", api.OrchestrationFlags{api.FlagExternalServiceRequest: true})
	form.RequesterCloud = &remoteCloud

	o := f.newOrchestrator(true)
	response, err := o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{1}, providerIDs(response))
	require.Equal(t, []api.Cloud{remoteCloud}, f.gatekeeper.verified)

	// the form of the caller is left untouched
	require.True(t, form.OrchestrationFlags.Get(api.FlagExternalServiceRequest))

	f.gatekeeper.known = false
	_, err = o.Orchestrate(form)
	require.True(t, api.IsKind(err, api.KindBadRequest))
	require.Contains(t, err.Error(), remoteCloud.Key())
}

func TestExclusiveReservation(t *testing.T) {
	f := newFixture()
	entry := registered(1, "X")
	entry.Metadata = map[string]string{api.MetadataRecommendedTime: "600"}
	f.registry.entries = []api.ServiceRegistryEntry{entry, registered(2, "X")}

	form := request("X", api.OrchestrationFlags{api.FlagEnableQoS: true, api.FlagMatchmaking: true})
	form.Commands = map[string]string{api.CommandExclusivityTime: "300"}

	o := f.newOrchestrator(false)
	response, err := o.Orchestrate(form)
	require.Nil(t, err)
	require.Equal(t, []int64{1}, providerIDs(response))
	require.Equal(t, "630", response.Response[0].Metadata[api.MetadataReservedTime])

	require.Len(t, f.reservations.items, 1)
	for _, reservation := range f.reservations.items {
		require.True(t, reservation.Consumer.SameIdentity(&consumer))
		require.True(t, reservation.ReservedTo.Equal(now.Add(630*time.Second)))
	}

	// another consumer does not get the reserved provider
	other := request("X", api.OrchestrationFlags{api.FlagEnableQoS: true})
	other.RequesterSystem.SystemName = "other"
	response, err = o.Orchestrate(other)
	require.Nil(t, err)
	require.Equal(t, []int64{2}, providerIDs(response))
}

func TestMissingQoSFilter(t *testing.T) {
	f := newFixture()
	o := orchestrator.NewOrchestrator(&orchestrator.Config{Locator: resolver{}, Registry: f.registry})

	_, err := o.Orchestrate(request("X", api.OrchestrationFlags{api.FlagEnableQoS: true}))
	require.True(t, api.IsKind(err, api.KindConfiguration))
}
