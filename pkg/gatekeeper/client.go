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
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Client of the local gatekeeper, located through the service locator.
type Client struct {
	locator Resolver
	client  *http.Client

	logger *logrus.Entry
}

// VerifyCloud returns true if the cloud is a known neighbor.
func (c *Client) VerifyCloud(cloud *api.Cloud) (bool, error) {
	var known bool
	if err := c.call(api.GatekeeperVerifyCloud, http.MethodPost, cloud, &known); err != nil {
		return false, err
	}
	return known, nil
}

// GlobalServiceDiscovery returns the neighbor clouds providing a service.
func (c *Client) GlobalServiceDiscovery(form *api.ServiceQueryForm) (*api.GSDResult, error) {
	var result api.GSDResult
	if err := c.call(api.GatekeeperGlobalServiceDiscovery, http.MethodPost, form, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InterCloudNegotiate negotiates an orchestration with a neighbor cloud.
func (c *Client) InterCloudNegotiate(request *api.ICNRequest) (*api.ICNResult, error) {
	var result api.ICNResult
	if err := c.call(api.GatekeeperInterCloudNegotiation, http.MethodPost, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PublicRelays returns the public relay inventory of the local cloud.
func (c *Client) PublicRelays() ([]api.Relay, error) {
	var relays []api.Relay
	if err := c.call(api.GatekeeperPublicRelays, http.MethodGet, nil, &relays); err != nil {
		return nil, err
	}
	return relays, nil
}

func (c *Client) call(service api.CoreService, method string, request, response any) error {
	endpoint, err := c.locator.Resolve(service)
	if err != nil {
		return err
	}

	c.logger.Debugf("Calling '%s' at %s.", service, endpoint.String())
	return rest.Call(c.client, method, endpoint, request, response)
}

// NewClient returns a new gatekeeper client.
func NewClient(locator Resolver, client *http.Client) *Client {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, 0)
	}

	return &Client{
		locator: locator,
		client:  client,
		logger:  logrus.WithField("component", "gatekeeper.client"),
	}
}
