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

package api

// The API package defines the object model shared by the core systems.
// A consumer system asks the orchestrator for a service. The orchestrator resolves
// the request to providers registered in the Service Registry of the local cloud,
// or, through the gatekeeper, to providers of a neighbor cloud reachable over a relay.

import (
	"fmt"
	"strings"
	"time"
)

// System is an application or core system taking part in a cloud.
type System struct {
	// ID of the system, as assigned by the Service Registry.
	ID int64 `json:"id,omitempty"`
	// SystemName is the name of the system.
	SystemName string `json:"systemName"`
	// Address is the host (IP/DNS) of the system.
	Address string `json:"address"`
	// Port of the system.
	Port int `json:"port"`
	// AuthenticationInfo is the (base64 encoded) public key of the system.
	AuthenticationInfo string `json:"authenticationInfo,omitempty"`
	// Metadata of the system.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SameIdentity returns true if both systems share the same (name, address, port) identity.
func (s *System) SameIdentity(other *System) bool {
	if s == nil || other == nil {
		return false
	}

	return strings.EqualFold(s.SystemName, other.SystemName) &&
		strings.EqualFold(s.Address, other.Address) &&
		s.Port == other.Port
}

// Identity returns a printable (name, address, port) identity.
func (s *System) Identity() string {
	return fmt.Sprintf("%s@%s:%d", strings.ToLower(s.SystemName), strings.ToLower(s.Address), s.Port)
}

// Cloud is an administrative domain of systems.
type Cloud struct {
	// Operator of the cloud.
	Operator string `json:"operator"`
	// Name of the cloud.
	Name string `json:"name"`
	// Secure is true if the cloud only accepts TLS connections.
	Secure bool `json:"secure"`
	// Neighbor is true if the cloud gatekeeper is directly known to the local gatekeeper.
	Neighbor bool `json:"neighbor"`
	// OwnCloud is true for the local cloud.
	OwnCloud bool `json:"ownCloud"`
	// AuthenticationInfo is the (base64 encoded) public key of the cloud gatekeeper.
	AuthenticationInfo string `json:"authenticationInfo,omitempty"`
	// GatekeeperRelayIDs lists the relays the cloud gatekeeper is reachable through, in association order.
	GatekeeperRelayIDs []int64 `json:"gatekeeperRelayIds,omitempty"`
	// GatewayRelayIDs lists the relays the cloud gateway is reachable through, in association order.
	GatewayRelayIDs []int64 `json:"gatewayRelayIds,omitempty"`
}

// Key returns the (operator, name) identity of the cloud.
func (c *Cloud) Key() string {
	return strings.ToLower(c.Operator) + "." + strings.ToLower(c.Name)
}

// SameCloud returns true if both clouds share the same (operator, name) identity.
func (c *Cloud) SameCloud(other *Cloud) bool {
	if c == nil || other == nil {
		return false
	}
	return c.Key() == other.Key()
}

// RelayType is the role a relay is dedicated to.
type RelayType string

const (
	// RelayGeneral relays may be used both by gatekeepers and gateways.
	RelayGeneral RelayType = "GENERAL_RELAY"
	// RelayGatekeeper relays are dedicated to gatekeeper communication.
	RelayGatekeeper RelayType = "GATEKEEPER_RELAY"
	// RelayGateway relays are dedicated to gateway (data) communication.
	RelayGateway RelayType = "GATEWAY_RELAY"
)

// ParseRelayType parses a relay type, defaulting to RelayGeneral.
func ParseRelayType(s string) (RelayType, error) {
	switch RelayType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RelayGeneral, "GENERAL":
		return RelayGeneral, nil
	case RelayGatekeeper, "GATEKEEPER":
		return RelayGatekeeper, nil
	case RelayGateway, "GATEWAY":
		return RelayGateway, nil
	}
	return "", fmt.Errorf("unknown relay type '%s'", s)
}

// Relay is a message broker bridging clouds which cannot reach each other directly.
type Relay struct {
	// ID of the relay.
	ID int64 `json:"id,omitempty"`
	// Address (IP/DNS) of the relay.
	Address string `json:"address"`
	// Port of the relay.
	Port int `json:"port"`
	// Secure is true if the relay requires TLS.
	Secure bool `json:"secure"`
	// Exclusive is true for relays dedicated to specific cloud pairings.
	Exclusive bool `json:"exclusive"`
	// Type of the relay.
	Type RelayType `json:"type"`
	// AuthenticationInfo is the (base64 encoded) public key of the relay.
	AuthenticationInfo string `json:"authenticationInfo,omitempty"`
}

// Interface is a service interface (protocol, security, encoding).
type Interface struct {
	ID            int64  `json:"id,omitempty"`
	InterfaceName string `json:"interfaceName"`
}

// ServiceDefinition names a service.
type ServiceDefinition struct {
	ID                int64  `json:"id,omitempty"`
	ServiceDefinition string `json:"serviceDefinition"`
}

// Service security types.
const (
	SecureNone        = "NOT_SECURE"
	SecureCertificate = "CERTIFICATE"
	SecureToken       = "TOKEN"
)

// ServiceQueryForm describes a requested service.
type ServiceQueryForm struct {
	ServiceDefinitionRequirement string            `json:"serviceDefinitionRequirement"`
	InterfaceRequirements        []string          `json:"interfaceRequirements,omitempty"`
	SecurityRequirements         []string          `json:"securityRequirements,omitempty"`
	MetadataRequirements         map[string]string `json:"metadataRequirements,omitempty"`
	VersionRequirement           *int              `json:"versionRequirement,omitempty"`
	MinVersionRequirement        *int              `json:"minVersionRequirement,omitempty"`
	MaxVersionRequirement        *int              `json:"maxVersionRequirement,omitempty"`
	PingProviders                bool              `json:"pingProviders"`
}

// ServiceRegistryEntry is a provider registration, as returned by the Service Registry.
type ServiceRegistryEntry struct {
	ID                int64             `json:"id"`
	ServiceDefinition ServiceDefinition `json:"serviceDefinition"`
	Provider          System            `json:"provider"`
	ServiceURI        string            `json:"serviceUri"`
	EndOfValidity     *time.Time        `json:"endOfValidity,omitempty"`
	Secure            string            `json:"secure"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Version           int               `json:"version"`
	Interfaces        []Interface       `json:"interfaces"`
	CreatedAt         *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time        `json:"updatedAt,omitempty"`
}

// ServiceQueryResult is the response of a Service Registry query.
type ServiceQueryResult struct {
	ServiceQueryData []ServiceRegistryEntry `json:"serviceQueryData"`
	UnfilteredHits   int                    `json:"unfilteredHits"`
}

// ServiceRegistrationRequest registers a provider of a service.
type ServiceRegistrationRequest struct {
	ServiceDefinition string            `json:"serviceDefinition"`
	ProviderSystem    System            `json:"providerSystem"`
	ServiceURI        string            `json:"serviceUri"`
	EndOfValidity     string            `json:"endOfValidity,omitempty"`
	Secure            string            `json:"secure"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Version           int               `json:"version"`
	Interfaces        []string          `json:"interfaces"`
}
