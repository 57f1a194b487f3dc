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
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
	"github.com/clusterlink-net/arrowhead/pkg/relay"
)

// Negotiation roles.
const (
	roleRequester = "requester"
	roleResponder = "responder"
)

// Matchmaking steps of a negotiation, added to the request seed.
const (
	stepGatekeeperRelay = iota
	stepGatewayRelay
)

// InterCloudNegotiate negotiates an orchestration with the gatekeeper of a neighbor cloud.
// The neighbor is reached through a gatekeeper relay matched for the request. A negotiation
// with no usable relay fails with a NoMatch error.
func (s *Service) InterCloudNegotiate(request *api.ICNRequest) (*api.ICNResult, error) {
	result, err := s.initiate(request)
	observe(roleRequester, result, err)
	return result, err
}

func (s *Service) initiate(request *api.ICNRequest) (*api.ICNResult, error) {
	own, err := s.ownCloud()
	if err != nil {
		return nil, err
	}

	target, err := s.neighbor("targetCloud", &request.TargetCloud)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New()
	seed := relay.SeedFor(requestID, s.clock.Now())
	logger := s.logger.WithFields(logrus.Fields{
		"request": requestID.String(),
		"cloud":   target.Key(),
		"service": request.RequestedService.ServiceDefinitionRequirement,
	})

	gatekeeperRelay, err := s.gatekeeperRelay(target, seed+stepGatekeeperRelay)
	if err != nil {
		return nil, err
	}

	known, err := s.knownRelays()
	if err != nil {
		return nil, err
	}

	proposal := &api.ICNProposal{
		RequestID:        requestID.String(),
		RequesterCloud:   *own,
		RequestedService: request.RequestedService,
		RequesterSystem:  request.RequesterSystem,
		PreferredSystems: request.PreferredSystems,
		NegotiationFlags: request.NegotiationFlags,
		PreferredRelays:  s.relays.Resolve(own.GatewayRelayIDs),
		KnownRelays:      known,
		QoSRequirements:  request.QoSRequirements,
		Commands:         request.Commands,
	}

	logger.Infof("Proposing through relay %s:%d.", gatekeeperRelay.Address, gatekeeperRelay.Port)

	var result api.ICNResult
	if err := s.transport.Send(gatekeeperRelay, ExternalPath, proposal, &result); err != nil {
		return nil, fmt.Errorf("negotiation with cloud '%s' failed: %w", target.Key(), err)
	}

	result.GatekeeperRelay = gatekeeperRelay
	logger.Infof("Negotiated %d candidates.", len(result.Response))
	return &result, nil
}

// ExternalServiceRequest answers a negotiation proposal of a neighbor cloud.
// A gateway relay is matched for the requester cloud and the request is orchestrated
// by the local orchestrator as an external service request.
func (s *Service) ExternalServiceRequest(proposal *api.ICNProposal) (*api.ICNResult, error) {
	result, err := s.respond(proposal)
	observe(roleResponder, result, err)
	return result, err
}

func (s *Service) respond(proposal *api.ICNProposal) (*api.ICNResult, error) {
	requester, err := s.neighbor("requesterCloud", &proposal.RequesterCloud)
	if err != nil {
		return nil, err
	}

	requestID, err := uuid.Parse(proposal.RequestID)
	if err != nil {
		return nil, api.BadRequest("requestId", "invalid request id '%s'", proposal.RequestID)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"request": proposal.RequestID,
		"cloud":   requester.Key(),
		"service": proposal.RequestedService.ServiceDefinitionRequirement,
	})

	gatewayRelay, err := s.gatewayMatchmaker.DoMatchmaking(&relay.Params{
		Cloud:           s.cloudRelays(requester),
		PreferredRelays: proposal.PreferredRelays,
		KnownRelays:     proposal.KnownRelays,
		Seed:            relay.SeedFor(requestID, s.clock.Now()) + stepGatewayRelay,
	})
	if err != nil {
		return nil, err
	}
	if gatewayRelay == nil && s.gatewayRequired {
		return nil, api.NoMatch("no gateway relay can bridge cloud '%s'", requester.Key())
	}

	flags := proposal.NegotiationFlags.Clone()
	flags[api.FlagExternalServiceRequest] = true

	preferred := make([]api.PreferredProvider, len(proposal.PreferredSystems))
	for i := range proposal.PreferredSystems {
		system := proposal.PreferredSystems[i]
		preferred[i] = api.PreferredProvider{ProviderSystem: &system}
	}

	requesterSystem := proposal.RequesterSystem
	requesterCloud := proposal.RequesterCloud
	service := proposal.RequestedService
	form := &api.OrchestrationForm{
		RequesterSystem:    &requesterSystem,
		RequesterCloud:     &requesterCloud,
		RequestedService:   &service,
		OrchestrationFlags: flags,
		PreferredProviders: preferred,
		QoSRequirements:    proposal.QoSRequirements,
		Commands:           proposal.Commands,
	}

	endpoint, err := s.locator.Resolve(api.Orchestration)
	if err != nil {
		return nil, err
	}

	response, err := s.orchestrator.Orchestrate(endpoint, form)
	if err != nil {
		return nil, err
	}

	logger.Infof("Answered with %d candidates.", len(response.Response))
	return &api.ICNResult{Response: response.Response, GatewayRelay: gatewayRelay}, nil
}

func observe(role string, result *api.ICNResult, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case api.IsKind(err, api.KindNoMatch):
		outcome = metrics.OutcomeNoMatch
	case api.IsKind(err, api.KindBadRequest):
		outcome = metrics.OutcomeRejected
	case err != nil:
		outcome = metrics.OutcomeFailure
	case len(result.Response) == 0:
		outcome = metrics.OutcomeEmpty
	}
	metrics.Negotiations.WithLabelValues(role, outcome).Inc()
}
