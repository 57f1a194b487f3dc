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

package gatekeeper

import (
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/store"
	"github.com/clusterlink-net/arrowhead/pkg/relay"
)

// Paths served by a gatekeeper to the gatekeepers of neighbor clouds.
const (
	// PollPath answers global service discovery polls.
	PollPath = "/gatekeeper/gsd/poll"
	// ExternalPath answers inter-cloud negotiation proposals.
	ExternalPath = "/gatekeeper/external"
)

// Resolver resolves core services to endpoints.
type Resolver interface {
	Resolve(service api.CoreService) (api.Endpoint, error)
}

// RegistryClient queries the local Service Registry.
type RegistryClient interface {
	Query(endpoint api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error)
}

// OrchestrationClient sends orchestration requests to the local orchestrator.
type OrchestrationClient interface {
	Orchestrate(endpoint api.Endpoint, form *api.OrchestrationForm) (*api.OrchestrationResponse, error)
}

// Config of a gatekeeper Service.
type Config struct {
	// Clouds holds the local cloud and its neighbors.
	Clouds *store.Clouds
	// Relays holds the relays known to the local cloud.
	Relays *store.Relays
	// Locator resolves the local core services.
	Locator Resolver
	// Registry queries the local Service Registry.
	Registry RegistryClient
	// Orchestrator serves requests of neighbor clouds.
	Orchestrator OrchestrationClient
	// Transport reaches the gatekeepers of neighbor clouds.
	Transport Transport
	// GatewayPolicy selects the gateway relay of a negotiation.
	GatewayPolicy relay.Policy
	// GatewayRequired fails negotiations for which no gateway relay is matched.
	GatewayRequired bool
	// Clock of the service, the real clock if unset.
	Clock clock.PassiveClock
}

// Service negotiates orchestration with neighbor clouds.
type Service struct {
	clouds       *store.Clouds
	relays       *store.Relays
	locator      Resolver
	registry     RegistryClient
	orchestrator OrchestrationClient
	transport    Transport

	gatekeeperMatchmaker *relay.Matchmaker
	gatewayMatchmaker    *relay.Matchmaker
	gatewayRequired      bool
	clock                clock.PassiveClock

	logger *logrus.Entry
}

// VerifyCloud returns true if the cloud is a known neighbor.
func (s *Service) VerifyCloud(cloud *api.Cloud) (bool, error) {
	known := s.clouds.IsNeighbor(cloud)
	s.logger.Debugf("Verified cloud '%s': %v.", cloud.Key(), known)
	return known, nil
}

// PublicRelays returns the public relay inventory of the local cloud.
func (s *Service) PublicRelays() ([]api.Relay, error) {
	return s.relays.PublicRelays()
}

// ownCloud returns the local cloud, or a configuration error if unset.
func (s *Service) ownCloud() (*api.Cloud, error) {
	own := s.clouds.Own()
	if own == nil {
		return nil, api.ConfigurationError("the local cloud is not configured")
	}
	return own, nil
}

// neighbor returns the stored record of a neighbor cloud.
func (s *Service) neighbor(field string, cloud *api.Cloud) (*api.Cloud, error) {
	stored := s.clouds.Get(cloud.Key())
	if stored == nil || !stored.Neighbor || stored.OwnCloud {
		return nil, api.BadRequest(field, "cloud '%s' is not a known neighbor", cloud.Key())
	}
	neighbor := stored.Cloud
	return &neighbor, nil
}

// cloudRelays returns the relays associated with a cloud, in association order.
func (s *Service) cloudRelays(cloud *api.Cloud) relay.CloudRelays {
	return relay.CloudRelays{
		Cloud:            *cloud,
		GatekeeperRelays: s.relays.Resolve(cloud.GatekeeperRelayIDs),
		GatewayRelays:    s.relays.Resolve(cloud.GatewayRelayIDs),
	}
}

// gatekeeperRelay matches the relay through which the gatekeeper of a neighbor cloud is reached.
func (s *Service) gatekeeperRelay(cloud *api.Cloud, seed int64) (*api.Relay, error) {
	matched, err := s.gatekeeperMatchmaker.DoMatchmaking(&relay.Params{
		Cloud: s.cloudRelays(cloud),
		Seed:  seed,
	})
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, api.NoMatch("no gatekeeper relay can reach cloud '%s'", cloud.Key())
	}
	return matched, nil
}

// knownRelays returns the public relays usable by gateways.
func (s *Service) knownRelays() ([]api.Relay, error) {
	public, err := s.relays.PublicRelays()
	if err != nil {
		return nil, err
	}

	var known []api.Relay
	for _, r := range public {
		if r.Type == api.RelayGateway || r.Type == api.RelayGeneral {
			known = append(known, r)
		}
	}
	return known, nil
}

// NewService returns a new gatekeeper service.
func NewService(config *Config) *Service {
	clk := config.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Service{
		clouds:               config.Clouds,
		relays:               config.Relays,
		locator:              config.Locator,
		registry:             config.Registry,
		orchestrator:         config.Orchestrator,
		transport:            config.Transport,
		gatekeeperMatchmaker: relay.NewMatchmaker(relay.PolicyDedicatedFirst, config.Relays),
		gatewayMatchmaker:    relay.NewMatchmaker(config.GatewayPolicy, config.Relays),
		gatewayRequired:      config.GatewayRequired,
		clock:                clk,
		logger:               logrus.WithField("component", "gatekeeper"),
	}
}
