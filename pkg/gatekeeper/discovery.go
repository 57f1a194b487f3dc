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
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/relay"
)

// maxConcurrentPolls bounds the neighbor clouds polled at once.
const maxConcurrentPolls = 8

// GlobalServiceDiscovery polls the neighbor clouds for providers of a service.
// Neighbors which cannot be reached are skipped. The result lists the clouds
// with at least one provider, in neighbor order.
func (s *Service) GlobalServiceDiscovery(form *api.ServiceQueryForm) (*api.GSDResult, error) {
	own, err := s.ownCloud()
	if err != nil {
		return nil, err
	}

	neighbors := s.clouds.Neighbors()
	logger := s.logger.WithField("service", form.ServiceDefinitionRequirement)
	logger.Infof("Polling %d neighbor clouds.", len(neighbors))

	poll := &api.GSDPollRequest{RequesterCloud: *own, RequestedService: *form}
	seed := relay.SeedFor(uuid.New(), s.clock.Now())
	responses := make([]*api.GSDPollResponse, len(neighbors))

	var g errgroup.Group
	g.SetLimit(maxConcurrentPolls)
	for i := range neighbors {
		g.Go(func() error {
			cloud := &neighbors[i]
			response, err := s.poll(cloud, poll, seed+int64(i))
			if err != nil {
				logger.Warnf("Cannot poll cloud '%s': %v.", cloud.Key(), err)
				return nil
			}
			responses[i] = response
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &api.GSDResult{Results: []api.GSDPollResponse{}}
	for _, response := range responses {
		if response != nil && response.NumOfProviders > 0 {
			result.Results = append(result.Results, *response)
		}
	}

	logger.Infof("%d clouds provide the service.", len(result.Results))
	return result, nil
}

func (s *Service) poll(cloud *api.Cloud, request *api.GSDPollRequest, seed int64) (*api.GSDPollResponse, error) {
	gatekeeperRelay, err := s.gatekeeperRelay(cloud, seed)
	if err != nil {
		return nil, err
	}

	var response api.GSDPollResponse
	if err := s.transport.Send(gatekeeperRelay, PollPath, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// AnswerPoll answers a global service discovery poll of a neighbor cloud
// with the providers registered in the local Service Registry.
func (s *Service) AnswerPoll(request *api.GSDPollRequest) (*api.GSDPollResponse, error) {
	if _, err := s.neighbor("requesterCloud", &request.RequesterCloud); err != nil {
		return nil, err
	}
	if request.RequestedService.ServiceDefinitionRequirement == "" {
		return nil, api.BadRequest("requestedService.serviceDefinitionRequirement",
			"service definition is null or blank")
	}

	own, err := s.ownCloud()
	if err != nil {
		return nil, err
	}

	endpoint, err := s.locator.Resolve(api.ServiceRegistryQuery)
	if err != nil {
		return nil, err
	}

	form := request.RequestedService
	queried, err := s.registry.Query(endpoint, &form)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	response := &api.GSDPollResponse{ProviderCloud: *own}
	seen := make(map[string]bool)
	for i := range queried.ServiceQueryData {
		entry := &queried.ServiceQueryData[i]
		if entry.EndOfValidity != nil && !entry.EndOfValidity.After(now) {
			continue
		}

		response.NumOfProviders++
		for _, intf := range entry.Interfaces {
			if !seen[intf.InterfaceName] {
				seen[intf.InterfaceName] = true
				response.AvailableInterfaces = append(response.AvailableInterfaces, intf.InterfaceName)
			}
		}
	}

	s.logger.Infof("Cloud '%s' polled for '%s': %d providers.",
		request.RequesterCloud.Key(), form.ServiceDefinitionRequirement, response.NumOfProviders)
	return response, nil
}
