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

package registry

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Client of the Service Registry.
// Methods take the endpoint of the invoked service, as resolved by the locator.
type Client struct {
	client *http.Client

	logger *logrus.Entry
}

// Query returns the registrations matching the query form.
func (c *Client) Query(endpoint api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error) {
	var result api.ServiceQueryResult
	if err := rest.Call(c.client, http.MethodPost, endpoint, form, &result); err != nil {
		return nil, err
	}

	c.logger.Debugf("Query for '%s' returned %d of %d entries.",
		form.ServiceDefinitionRequirement, len(result.ServiceQueryData), result.UnfilteredHits)
	return &result, nil
}

// Register a provider of a service.
func (c *Client) Register(endpoint api.Endpoint, request *api.ServiceRegistrationRequest,
) (*api.ServiceRegistryEntry, error) {
	var entry api.ServiceRegistryEntry
	if err := rest.Call(c.client, http.MethodPost, endpoint, request, &entry); err != nil {
		return nil, err
	}

	c.logger.Infof("Registered '%s' of '%s'.", request.ServiceDefinition, request.ProviderSystem.Identity())
	return &entry, nil
}

// Unregister a provider of a service.
func (c *Client) Unregister(endpoint api.Endpoint, serviceDefinition string, provider *api.System,
	serviceURI string,
) error {
	query := url.Values{}
	query.Set("service_definition", serviceDefinition)
	query.Set("system_name", provider.SystemName)
	query.Set("address", provider.Address)
	query.Set("port", strconv.Itoa(provider.Port))
	if serviceURI != "" {
		query.Set("service_uri", serviceURI)
	}

	endpoint.Path += "?" + query.Encode()
	if err := rest.Call(c.client, http.MethodDelete, endpoint, nil, nil); err != nil {
		return err
	}

	c.logger.Infof("Unregistered '%s' of '%s'.", serviceDefinition, provider.Identity())
	return nil
}

// NewClient returns a new Service Registry client.
// A nil HTTP client selects a default one.
func NewClient(client *http.Client) *Client {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, 0)
	}

	return &Client{
		client: client,
		logger: logrus.WithField("component", "registry.client"),
	}
}
