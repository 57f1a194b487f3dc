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

import (
	"time"
)

// Orchestration flags.
const (
	FlagMatchmaking            = "matchmaking"
	FlagMetadataSearch         = "metadataSearch"
	FlagOnlyPreferred          = "onlyPreferred"
	FlagPingProviders          = "pingProviders"
	FlagOverrideStore          = "overrideStore"
	FlagTriggerInterCloud      = "triggerInterCloud"
	FlagExternalServiceRequest = "externalServiceRequest"
	FlagEnableInterCloud       = "enableInterCloud"
	FlagEnableQoS              = "enableQoS"
)

// OrchestrationFlags select the orchestration decision path.
type OrchestrationFlags map[string]bool

// Get returns the value of a flag, false if unset.
func (f OrchestrationFlags) Get(name string) bool {
	if f == nil {
		return false
	}
	return f[name]
}

// Clone returns a copy of the flags.
func (f OrchestrationFlags) Clone() OrchestrationFlags {
	c := make(OrchestrationFlags, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// PreferredProvider is a provider the requester prefers, optionally in another cloud.
type PreferredProvider struct {
	ProviderCloud  *Cloud  `json:"providerCloud,omitempty"`
	ProviderSystem *System `json:"providerSystem,omitempty"`
}

// IsLocal returns true if the preferred provider belongs to the local cloud.
func (p *PreferredProvider) IsLocal() bool {
	return p.ProviderCloud == nil || p.ProviderCloud.OwnCloud
}

// OrchestrationForm is a request for orchestration.
type OrchestrationForm struct {
	RequesterSystem    *System             `json:"requesterSystem"`
	RequesterCloud     *Cloud              `json:"requesterCloud,omitempty"`
	RequestedService   *ServiceQueryForm   `json:"requestedService,omitempty"`
	OrchestrationFlags OrchestrationFlags  `json:"orchestrationFlags,omitempty"`
	PreferredProviders []PreferredProvider `json:"preferredProviders,omitempty"`
	QoSRequirements    map[string]string   `json:"qosRequirements,omitempty"`
	Commands           map[string]string   `json:"commands,omitempty"`
}

// OrchestratorWarning is attached to orchestration results.
type OrchestratorWarning string

const (
	// WarningFromOtherCloud marks a provider of a neighbor cloud.
	WarningFromOtherCloud OrchestratorWarning = "FROM_OTHER_CLOUD"
	// WarningTTLExpired marks a registration past its end of validity.
	WarningTTLExpired OrchestratorWarning = "TTL_EXPIRED"
	// WarningTTLExpiring marks a registration or lease which is about to expire.
	WarningTTLExpiring OrchestratorWarning = "TTL_EXPIRING"
	// WarningTTLUnknown marks a registration without end of validity.
	WarningTTLUnknown OrchestratorWarning = "TTL_UNKNOWN"
)

// Orchestration metadata and command keys.
const (
	// MetadataRecommendedTime is the provider advertised reservation window (seconds).
	MetadataRecommendedTime = "recommendedOrchestrationTime"
	// MetadataReservedTime is the negotiated lease duration (seconds).
	MetadataReservedTime = "reservedTime"
	// CommandExclusivityTime is the requested exclusive lease duration (seconds).
	CommandExclusivityTime = "exclusivityTime"
)

// OrchestrationResult is a candidate provider of a requested service.
type OrchestrationResult struct {
	Provider            System                `json:"provider"`
	Service             ServiceDefinition     `json:"service"`
	ServiceURI          string                `json:"serviceUri"`
	Secure              string                `json:"secure"`
	Metadata            map[string]string     `json:"metadata,omitempty"`
	Interfaces          []Interface           `json:"interfaces"`
	Version             int                   `json:"version"`
	AuthorizationTokens map[string]string     `json:"authorizationTokens,omitempty"`
	Warnings            []OrchestratorWarning `json:"warnings,omitempty"`
}

// Endpoint returns the network location of the candidate service.
func (r *OrchestrationResult) Endpoint() Endpoint {
	return Endpoint{
		Scheme: SchemeFor(r.Secure),
		Host:   r.Provider.Address,
		Port:   r.Provider.Port,
		Path:   r.ServiceURI,
	}
}

// HasWarning returns true if the result carries the given warning.
func (r *OrchestrationResult) HasWarning(w OrchestratorWarning) bool {
	for _, warning := range r.Warnings {
		if warning == w {
			return true
		}
	}
	return false
}

// AddWarning attaches a warning, once.
func (r *OrchestrationResult) AddWarning(w OrchestratorWarning) {
	if !r.HasWarning(w) {
		r.Warnings = append(r.Warnings, w)
	}
}

// RemoveWarning detaches a warning.
func (r *OrchestrationResult) RemoveWarning(w OrchestratorWarning) {
	warnings := r.Warnings[:0]
	for _, warning := range r.Warnings {
		if warning != w {
			warnings = append(warnings, warning)
		}
	}
	r.Warnings = warnings
}

// OrchestrationResponse is a ranked list of candidates, most preferred first.
type OrchestrationResponse struct {
	Response []OrchestrationResult `json:"response"`
}

// StoreRule is a statically configured orchestration rule.
type StoreRule struct {
	// Name identifying the rule.
	Name string `json:"name"`
	// Consumer the rule applies to.
	Consumer System `json:"consumerSystem"`
	// ServiceDefinition the rule applies to.
	ServiceDefinition string `json:"serviceDefinition"`
	// ServiceInterface the rule applies to (empty matches any interface).
	ServiceInterface string `json:"serviceInterface,omitempty"`
	// Provider the consumer should be sent to.
	Provider System `json:"providerSystem"`
	// ProviderCloud of the provider, nil for the local cloud.
	ProviderCloud *Cloud `json:"providerCloud,omitempty"`
	// Priority of the rule, lower values are preferred.
	Priority int `json:"priority"`
	// Attribute holds arbitrary rule attributes.
	Attribute map[string]string `json:"attribute,omitempty"`
}

// IsForeign returns true for rules pointing to a provider in another cloud.
func (r *StoreRule) IsForeign() bool {
	return r.ProviderCloud != nil && !r.ProviderCloud.OwnCloud
}

// ICNRequest asks the gatekeeper to negotiate an orchestration with a neighbor cloud.
type ICNRequest struct {
	TargetCloud      Cloud              `json:"targetCloud"`
	RequestedService ServiceQueryForm   `json:"requestedService"`
	RequesterSystem  System             `json:"requesterSystem"`
	PreferredSystems []System           `json:"preferredSystems,omitempty"`
	NegotiationFlags OrchestrationFlags `json:"negotiationFlags,omitempty"`
	QoSRequirements  map[string]string  `json:"qosRequirements,omitempty"`
	Commands         map[string]string  `json:"commands,omitempty"`
}

// ICNProposal is sent by the requester cloud gatekeeper to the target cloud gatekeeper.
type ICNProposal struct {
	RequestID        string             `json:"requestId"`
	RequesterCloud   Cloud              `json:"requesterCloud"`
	RequestedService ServiceQueryForm   `json:"requestedService"`
	RequesterSystem  System             `json:"requesterSystem"`
	PreferredSystems []System           `json:"preferredSystems,omitempty"`
	NegotiationFlags OrchestrationFlags `json:"negotiationFlags,omitempty"`
	PreferredRelays  []Relay            `json:"preferredGatewayRelays,omitempty"`
	KnownRelays      []Relay            `json:"knownGatewayRelays,omitempty"`
	QoSRequirements  map[string]string  `json:"qosRequirements,omitempty"`
	Commands         map[string]string  `json:"commands,omitempty"`
}

// ICNResult is the outcome of an inter-cloud negotiation.
type ICNResult struct {
	Response []OrchestrationResult `json:"response"`
	// GatekeeperRelay is the relay used to reach the target cloud gatekeeper.
	GatekeeperRelay *Relay `json:"gatekeeperRelay,omitempty"`
	// GatewayRelay is the relay bridging the consumer and provider gateways, if any.
	GatewayRelay *Relay `json:"gatewayRelay,omitempty"`
}

// GSDPollRequest asks a neighbor cloud whether it provides a service.
type GSDPollRequest struct {
	RequesterCloud   Cloud            `json:"requesterCloud"`
	RequestedService ServiceQueryForm `json:"requestedService"`
}

// GSDPollResponse answers a GSDPollRequest.
type GSDPollResponse struct {
	ProviderCloud       Cloud    `json:"providerCloud"`
	NumOfProviders      int      `json:"numOfProviders"`
	AvailableInterfaces []string `json:"availableInterfaces,omitempty"`
}

// GSDResult lists the clouds able to provide a requested service.
type GSDResult struct {
	Results []GSDPollResponse `json:"results"`
}

// QoSReservation is an exclusive claim on a provider service.
type QoSReservation struct {
	// Provider whose service is reserved.
	Provider System `json:"reservedProvider"`
	// ServiceDefinition of the reserved service.
	ServiceDefinition string `json:"reservedService"`
	// Consumer holding the reservation.
	Consumer System `json:"consumerSystem"`
	// ReservedTo is the end of the lease.
	ReservedTo time.Time `json:"reservedTo"`
}

// Key identifies the reserved (provider, service) pair.
func (r *QoSReservation) Key() string {
	return ReservationKey(&r.Provider, r.ServiceDefinition)
}

// ReservationKey identifies a (provider, service) pair.
func ReservationKey(provider *System, serviceDefinition string) string {
	return provider.Identity() + ":" + serviceDefinition
}

// PingMeasurement is a network health sample of a provider.
type PingMeasurement struct {
	SystemID                       int64     `json:"systemId"`
	HasRecord                      bool      `json:"hasRecord"`
	Available                      bool      `json:"available"`
	MaxResponseTime                int       `json:"maxResponseTime"`
	MeanResponseTimeWithoutTimeout int       `json:"meanResponseTimeWithoutTimeout"`
	JitterWithoutTimeout           int       `json:"jitterWithoutTimeout"`
	Sent                           int64     `json:"sent"`
	Received                       int64     `json:"received"`
	SentAll                        int64     `json:"sentAll"`
	ReceivedAll                    int64     `json:"receivedAll"`
	LastAccessAt                   time.Time `json:"lastAccessAt"`
}
