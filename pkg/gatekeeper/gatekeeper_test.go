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

package gatekeeper_test

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/store"
	"github.com/clusterlink-net/arrowhead/pkg/relay"
	"github.com/clusterlink-net/arrowhead/pkg/store/kv"
	"github.com/clusterlink-net/arrowhead/pkg/store/kv/bolt"
)

var (
	consumer = api.System{SystemName: "consumer", Address: "10.0.0.5", Port: 8080}
	provider = api.System{ID: 3, SystemName: "provider", Address: "10.2.0.1", Port: 9001}
)

type resolver struct{}

func (resolver) Resolve(service api.CoreService) (api.Endpoint, error) {
	return api.Endpoint{Host: "127.0.0.1", Port: 8443, Path: service.URI}, nil
}

type registry struct {
	entries []api.ServiceRegistryEntry
}

func (r *registry) Query(_ api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error) {
	result := &api.ServiceQueryResult{}
	for _, entry := range r.entries {
		if entry.ServiceDefinition.ServiceDefinition == form.ServiceDefinitionRequirement {
			result.ServiceQueryData = append(result.ServiceQueryData, entry)
		}
	}
	return result, nil
}

type orchestrator struct {
	lock  sync.Mutex
	forms []*api.OrchestrationForm
}

func (o *orchestrator) Orchestrate(_ api.Endpoint, form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.forms = append(o.forms, form)

	return &api.OrchestrationResponse{Response: []api.OrchestrationResult{{
		Provider:   provider,
		Service:    api.ServiceDefinition{ServiceDefinition: form.RequestedService.ServiceDefinitionRequirement},
		ServiceURI: "/temperature",
		Secure:     api.SecureNone,
	}}}, nil
}

// network delivers requests to the gatekeepers reached through each relay address.
type network struct {
	lock     sync.Mutex
	services map[string]*gatekeeper.Service
}

func (n *network) Send(r *api.Relay, path string, request, response any) error {
	n.lock.Lock()
	service, ok := n.services[r.Address]
	n.lock.Unlock()
	if !ok {
		return api.Unavailable(fmt.Errorf("connection refused"), "relay %s", r.Address)
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		return err
	}

	var result any
	switch path {
	case gatekeeper.PollPath:
		var poll api.GSDPollRequest
		if err := json.Unmarshal(encoded, &poll); err != nil {
			return err
		}
		result, err = service.AnswerPoll(&poll)
	case gatekeeper.ExternalPath:
		var proposal api.ICNProposal
		if err := json.Unmarshal(encoded, &proposal); err != nil {
			return err
		}
		result, err = service.ExternalServiceRequest(&proposal)
	default:
		return fmt.Errorf("unknown path '%s'", path)
	}
	if err != nil {
		return err
	}

	encoded, err = json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, response)
}

type cloud struct {
	service      *gatekeeper.Service
	clouds       *store.Clouds
	relays       *store.Relays
	registry     *registry
	orchestrator *orchestrator
}

func newCloud(t *testing.T, transport gatekeeper.Transport, own api.Cloud, policy relay.Policy,
	gatewayRequired bool,
) *cloud {
	kvStore, err := bolt.Open(filepath.Join(t.TempDir(), "store.db"))
	require.Nil(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	manager := kv.NewManager(kvStore)
	clouds, err := store.NewClouds(manager)
	require.Nil(t, err)
	relays, err := store.NewRelays(manager)
	require.Nil(t, err)

	own.OwnCloud = true
	require.Nil(t, clouds.Create(store.NewCloud(&own)))

	c := &cloud{
		clouds:       clouds,
		relays:       relays,
		registry:     &registry{},
		orchestrator: &orchestrator{},
	}
	c.service = gatekeeper.NewService(&gatekeeper.Config{
		Clouds:          clouds,
		Relays:          relays,
		Locator:         resolver{},
		Registry:        c.registry,
		Orchestrator:    c.orchestrator,
		Transport:       transport,
		GatewayPolicy:   policy,
		GatewayRequired: gatewayRequired,
		Clock:           testingclock.NewFakePassiveClock(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)),
	})
	return c
}

func (c *cloud) addRelay(t *testing.T, r api.Relay) int64 {
	stored := store.NewRelay(&r)
	require.Nil(t, c.relays.Create(stored))
	return stored.ID
}

func (c *cloud) addNeighbor(t *testing.T, neighbor api.Cloud) {
	neighbor.Neighbor = true
	require.Nil(t, c.clouds.Create(store.NewCloud(&neighbor)))
}

var (
	cloudA = api.Cloud{Operator: "aitia", Name: "a"}
	cloudB = api.Cloud{Operator: "aitia", Name: "b"}
	cloudC = api.Cloud{Operator: "aitia", Name: "c"}
)

// newPair returns clouds a and b, where b is reached from a through relay "relay-b".
func newPair(t *testing.T, gatewayRequired bool) (*cloud, *cloud, *network) {
	net := &network{services: make(map[string]*gatekeeper.Service)}

	a := newCloud(t, net, cloudA, relay.PolicyExclusiveThenPublic, false)
	b := newCloud(t, net, cloudB, relay.PolicyExclusiveThenPublic, gatewayRequired)
	net.services["relay-b"] = b.service

	neighborB := cloudB
	neighborB.GatekeeperRelayIDs = []int64{
		a.addRelay(t, api.Relay{Address: "relay-general", Port: 61616, Type: api.RelayGeneral}),
		a.addRelay(t, api.Relay{Address: "relay-b", Port: 61616, Type: api.RelayGatekeeper}),
	}
	a.addNeighbor(t, neighborB)
	b.addNeighbor(t, cloudA)

	return a, b, net
}

func TestInterCloudNegotiation(t *testing.T) {
	a, b, _ := newPair(t, false)

	// b bridges a through an exclusive gateway relay
	gatewayID := b.addRelay(t, api.Relay{Address: "gateway-a", Port: 443, Exclusive: true, Type: api.RelayGateway})
	require.Nil(t, b.clouds.Update(cloudA.Key(), func(c *store.Cloud) *store.Cloud {
		c.GatewayRelayIDs = []int64{gatewayID}
		return c
	}))

	preferred := provider
	result, err := a.service.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      cloudB,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		RequesterSystem:  consumer,
		PreferredSystems: []api.System{preferred},
		NegotiationFlags: api.OrchestrationFlags{api.FlagMatchmaking: true},
	})
	require.Nil(t, err)
	require.Len(t, result.Response, 1)
	require.True(t, result.Response[0].Provider.SameIdentity(&provider))

	// the dedicated gatekeeper relay is always preferred over the general one
	require.Equal(t, "relay-b", result.GatekeeperRelay.Address)
	require.NotNil(t, result.GatewayRelay)
	require.Equal(t, "gateway-a", result.GatewayRelay.Address)

	require.Len(t, b.orchestrator.forms, 1)
	form := b.orchestrator.forms[0]
	require.True(t, form.OrchestrationFlags.Get(api.FlagExternalServiceRequest))
	require.True(t, form.OrchestrationFlags.Get(api.FlagMatchmaking))
	require.True(t, form.RequesterCloud.SameCloud(&cloudA))
	require.True(t, form.RequesterSystem.SameIdentity(&consumer))
	require.Len(t, form.PreferredProviders, 1)
	require.True(t, form.PreferredProviders[0].IsLocal())
	require.True(t, form.PreferredProviders[0].ProviderSystem.SameIdentity(&provider))
	require.Empty(t, a.orchestrator.forms)
}

func TestNegotiationWithoutGatekeeperRelay(t *testing.T) {
	a, _, _ := newPair(t, false)
	a.addNeighbor(t, cloudC)

	_, err := a.service.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      cloudC,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		RequesterSystem:  consumer,
	})
	require.True(t, api.IsKind(err, api.KindNoMatch))
	require.Contains(t, err.Error(), "aitia.c")
}

func TestNegotiationWithUnknownCloud(t *testing.T) {
	a, _, _ := newPair(t, false)

	_, err := a.service.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      cloudC,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		RequesterSystem:  consumer,
	})
	require.True(t, api.IsKind(err, api.KindBadRequest))
	require.Contains(t, err.Error(), "targetCloud")
}

func TestGatewayRequired(t *testing.T) {
	a, b, _ := newPair(t, true)

	_, err := a.service.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      cloudB,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		RequesterSystem:  consumer,
	})
	require.True(t, api.IsKind(err, api.KindNoMatch))
	require.Empty(t, b.orchestrator.forms)

	// a public gateway relay known to both clouds
	b.addRelay(t, api.Relay{Address: "public-gateway", Port: 443, Type: api.RelayGateway})

	result, err := a.service.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      cloudB,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		RequesterSystem:  consumer,
	})
	require.Nil(t, err)
	require.Equal(t, "public-gateway", result.GatewayRelay.Address)
}

func TestExternalServiceRequestValidation(t *testing.T) {
	_, b, _ := newPair(t, false)

	_, err := b.service.ExternalServiceRequest(&api.ICNProposal{
		RequestID:      "not-a-uuid",
		RequesterCloud: cloudA,
	})
	require.True(t, api.IsKind(err, api.KindBadRequest))
	require.Contains(t, err.Error(), "requestId")

	_, err = b.service.ExternalServiceRequest(&api.ICNProposal{
		RequestID:      "5b1d3f4e-8f7a-4c55-9a3b-2d1e0f9c8b7a",
		RequesterCloud: cloudC,
	})
	require.True(t, api.IsKind(err, api.KindBadRequest))
	require.Contains(t, err.Error(), "requesterCloud")
}

func TestGlobalServiceDiscovery(t *testing.T) {
	a, b, net := newPair(t, false)

	validity := time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)
	b.registry.entries = []api.ServiceRegistryEntry{
		{
			ID:                1,
			ServiceDefinition: api.ServiceDefinition{ServiceDefinition: "temperature"},
			Provider:          provider,
			Interfaces:        []api.Interface{{InterfaceName: "HTTP-SECURE-JSON"}},
		},
		{
			ID:                2,
			ServiceDefinition: api.ServiceDefinition{ServiceDefinition: "temperature"},
			Provider:          api.System{SystemName: "backup", Address: "10.2.0.2", Port: 9001},
			Interfaces:        []api.Interface{{InterfaceName: "HTTP-SECURE-JSON"}, {InterfaceName: "COAP-INSECURE-JSON"}},
		},
		{
			ID:                3,
			ServiceDefinition: api.ServiceDefinition{ServiceDefinition: "temperature"},
			Provider:          api.System{SystemName: "expired", Address: "10.2.0.3", Port: 9001},
			EndOfValidity:     &validity,
			Interfaces:        []api.Interface{{InterfaceName: "MQTT-INSECURE-JSON"}},
		},
	}

	// c is reachable but has no providers
	c := newCloud(t, net, cloudC, relay.PolicyExclusiveThenPublic, false)
	c.addNeighbor(t, cloudA)
	net.services["relay-c"] = c.service

	neighborC := cloudC
	relayC := a.addRelay(t, api.Relay{Address: "relay-c", Port: 61616, Type: api.RelayGatekeeper})
	neighborC.GatekeeperRelayIDs = []int64{relayC}
	a.addNeighbor(t, neighborC)

	// d cannot be reached
	neighborD := api.Cloud{Operator: "aitia", Name: "d"}
	relayD := a.addRelay(t, api.Relay{Address: "relay-d", Port: 61616, Type: api.RelayGatekeeper})
	neighborD.GatekeeperRelayIDs = []int64{relayD}
	a.addNeighbor(t, neighborD)

	result, err := a.service.GlobalServiceDiscovery(&api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"})
	require.Nil(t, err)
	require.Len(t, result.Results, 1)
	require.True(t, result.Results[0].ProviderCloud.SameCloud(&cloudB))
	require.Equal(t, 2, result.Results[0].NumOfProviders)
	require.Equal(t, []string{"HTTP-SECURE-JSON", "COAP-INSECURE-JSON"}, result.Results[0].AvailableInterfaces)
}

func TestAnswerPollFromUnknownCloud(t *testing.T) {
	a, _, _ := newPair(t, false)

	_, err := a.service.AnswerPoll(&api.GSDPollRequest{
		RequesterCloud:   cloudC,
		RequestedService: api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
	})
	require.True(t, api.IsKind(err, api.KindBadRequest))
}

func TestVerifyCloud(t *testing.T) {
	a, _, _ := newPair(t, false)

	known, err := a.service.VerifyCloud(&api.Cloud{Operator: "AITIA", Name: "B"})
	require.Nil(t, err)
	require.True(t, known)

	known, err = a.service.VerifyCloud(&cloudC)
	require.Nil(t, err)
	require.False(t, known)

	// the local cloud is not a neighbor of itself
	known, err = a.service.VerifyCloud(&cloudA)
	require.Nil(t, err)
	require.False(t, known)

	public, err := a.service.PublicRelays()
	require.Nil(t, err)
	require.Len(t, public, 2)
}

func TestMissingOwnCloud(t *testing.T) {
	kvStore, err := bolt.Open(filepath.Join(t.TempDir(), "store.db"))
	require.Nil(t, err)
	defer func() { _ = kvStore.Close() }()

	manager := kv.NewManager(kvStore)
	clouds, err := store.NewClouds(manager)
	require.Nil(t, err)
	relays, err := store.NewRelays(manager)
	require.Nil(t, err)

	service := gatekeeper.NewService(&gatekeeper.Config{Clouds: clouds, Relays: relays})
	_, err = service.GlobalServiceDiscovery(&api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"})
	require.True(t, api.IsKind(err, api.KindConfiguration))
}
