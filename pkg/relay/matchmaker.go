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

package relay

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
)

// Matchmaker picks a single relay bridging the local cloud and another cloud.
// Selection is deterministic given the seed of the matchmaking parameters.
type Matchmaker struct {
	policy    Policy
	inventory PublicRelayInventory

	logger *logrus.Entry
}

// Policy returns the matchmaking policy.
func (m *Matchmaker) Policy() Policy {
	return m.policy
}

// DoMatchmaking returns the selected relay, or nil if no relay can bridge the clouds.
// Errors of the public relay inventory are returned as-is.
func (m *Matchmaker) DoMatchmaking(params *Params) (*api.Relay, error) {
	var relay *api.Relay
	var err error

	switch m.policy {
	case PolicyDedicatedFirst:
		relay = m.dedicatedFirst(params)
	case PolicyPreferredThenPublic:
		relay, err = m.preferredThenPublic(params)
	case PolicyExclusiveThenPublic:
		relay, err = m.exclusiveThenPublic(params)
	default:
		err = fmt.Errorf("unknown matchmaking policy %v", m.policy)
	}

	switch {
	case err != nil:
		metrics.Matchmaking.WithLabelValues(m.policy.String(), metrics.OutcomeFailure).Inc()
		return nil, err
	case relay == nil:
		m.logger.Infof("No relay matched for cloud '%s'.", params.Cloud.Cloud.Key())
		metrics.Matchmaking.WithLabelValues(m.policy.String(), metrics.OutcomeNoMatch).Inc()
	default:
		m.logger.Debugf("Matched relay %s:%d for cloud '%s'.",
			relay.Address, relay.Port, params.Cloud.Cloud.Key())
		metrics.Matchmaking.WithLabelValues(m.policy.String(), metrics.OutcomeSuccess).Inc()
	}

	return relay, nil
}

func (m *Matchmaker) dedicatedFirst(params *Params) *api.Relay {
	var dedicated, general []api.Relay
	for _, relay := range params.Cloud.GatekeeperRelays {
		switch relay.Type {
		case api.RelayGatekeeper:
			dedicated = append(dedicated, relay)
		case api.RelayGeneral:
			general = append(general, relay)
		}
	}

	random := NewRandom(params.Seed)
	if relay := pick(random, dedicated); relay != nil {
		return relay
	}
	return pick(random, general)
}

func (m *Matchmaker) preferredThenPublic(params *Params) (*api.Relay, error) {
	random := NewRandom(params.Seed)

	var preferred []api.Relay
	for _, relay := range params.Cloud.GatewayRelays {
		if relay.Exclusive && relay.Type == api.RelayGateway && containsRelay(params.PreferredRelays, &relay) {
			preferred = append(preferred, relay)
		}
	}

	if relay := pick(random, preferred); relay != nil {
		return relay, nil
	}

	if len(params.KnownRelays) == 0 {
		return nil, nil
	}

	public, err := m.publicRelays()
	if err != nil {
		return nil, err
	}

	var common []api.Relay
	for i := range params.KnownRelays {
		for _, relay := range public {
			if (relay.Type == api.RelayGateway || relay.Type == api.RelayGeneral) &&
				SameRelay(&params.KnownRelays[i], &relay) {
				common = append(common, relay)
				break
			}
		}
	}

	return pick(random, common), nil
}

func (m *Matchmaker) exclusiveThenPublic(params *Params) (*api.Relay, error) {
	random := NewRandom(params.Seed)

	var exclusive []api.Relay
	for _, relay := range params.Cloud.GatewayRelays {
		if relay.Exclusive && relay.Type == api.RelayGateway {
			exclusive = append(exclusive, relay)
		}
	}

	if relay := pick(random, exclusive); relay != nil {
		return relay, nil
	}

	public, err := m.publicRelays()
	if err != nil {
		return nil, err
	}

	var gateway, general []api.Relay
	for _, relay := range public {
		switch relay.Type {
		case api.RelayGateway:
			gateway = append(gateway, relay)
		case api.RelayGeneral:
			general = append(general, relay)
		}
	}

	if relay := pick(random, gateway); relay != nil {
		return relay, nil
	}
	return pick(random, general), nil
}

// publicRelays returns the non-exclusive relays of the inventory.
func (m *Matchmaker) publicRelays() ([]api.Relay, error) {
	if m.inventory == nil {
		return nil, nil
	}

	relays, err := m.inventory.PublicRelays()
	if err != nil {
		return nil, fmt.Errorf("unable to get public relays: %w", err)
	}

	public := make([]api.Relay, 0, len(relays))
	for _, relay := range relays {
		if !relay.Exclusive {
			public = append(public, relay)
		}
	}
	return public, nil
}

// pick returns a random relay of the list, nil for an empty list.
func pick(random *Random, relays []api.Relay) *api.Relay {
	if len(relays) == 0 {
		return nil
	}
	relay := relays[random.NextInt(len(relays))]
	return &relay
}

// NewMatchmaker returns a matchmaker using the given policy.
// The inventory is consulted by the policies falling back to public relays.
func NewMatchmaker(policy Policy, inventory PublicRelayInventory) *Matchmaker {
	return &Matchmaker{
		policy:    policy,
		inventory: inventory,
		logger: logrus.WithFields(logrus.Fields{
			"component": "relay.matchmaker",
			"policy":    policy.String()}),
	}
}
