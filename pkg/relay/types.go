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
	"strings"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

// Policy selects the relay matchmaking algorithm.
type Policy int

const (
	// PolicyDedicatedFirst picks among the cloud gatekeeper relays, preferring dedicated
	// gatekeeper relays over general ones.
	PolicyDedicatedFirst Policy = iota
	// PolicyPreferredThenPublic picks among the exclusive gateway relays of the cloud which the
	// caller prefers, falling back to public relays known both to the caller and the inventory.
	PolicyPreferredThenPublic
	// PolicyExclusiveThenPublic picks among the exclusive gateway relays of the cloud, falling
	// back to public gateway relays and then to public general relays.
	PolicyExclusiveThenPublic
)

var policyNames = map[Policy]string{
	PolicyDedicatedFirst:      "dedicated-first",
	PolicyPreferredThenPublic: "preferred-then-public",
	PolicyExclusiveThenPublic: "exclusive-then-public",
}

// String returns the policy name.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses a policy name.
func ParsePolicy(name string) (Policy, error) {
	for policy, policyName := range policyNames {
		if strings.EqualFold(strings.TrimSpace(name), policyName) {
			return policy, nil
		}
	}
	return 0, fmt.Errorf("unknown matchmaking policy '%s'", name)
}

// CloudRelays are the relays associated with a cloud, in association insertion order.
type CloudRelays struct {
	// Cloud the relays are associated with.
	Cloud api.Cloud
	// GatekeeperRelays the cloud gatekeeper is reachable through.
	GatekeeperRelays []api.Relay
	// GatewayRelays the cloud gateway is reachable through.
	GatewayRelays []api.Relay
}

// Params are the inputs of a matchmaking.
type Params struct {
	// Cloud whose relays are matched.
	Cloud CloudRelays
	// PreferredRelays are relays the caller prefers.
	PreferredRelays []api.Relay
	// KnownRelays are public relays the caller can use.
	KnownRelays []api.Relay
	// Seed of the random selection.
	Seed int64
}

// PublicRelayInventory lists the public (non-exclusive) relays known to the local cloud.
type PublicRelayInventory interface {
	PublicRelays() ([]api.Relay, error)
}

// SameRelay returns true if both relay records denote the same relay:
// either the (address, port) are equal, or both carry the same authentication info.
func SameRelay(a, b *api.Relay) bool {
	if strings.EqualFold(a.Address, b.Address) && a.Port == b.Port {
		return true
	}
	return a.AuthenticationInfo != "" && a.AuthenticationInfo == b.AuthenticationInfo
}

func containsRelay(relays []api.Relay, relay *api.Relay) bool {
	for i := range relays {
		if SameRelay(&relays[i], relay) {
			return true
		}
	}
	return false
}
