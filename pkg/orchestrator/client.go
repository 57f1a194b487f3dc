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

package orchestrator

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Client of the orchestration service.
type Client struct {
	client *http.Client

	logger *logrus.Entry
}

// Orchestrate sends an orchestration request to the orchestration service at the endpoint.
func (c *Client) Orchestrate(endpoint api.Endpoint, form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	var response api.OrchestrationResponse
	if err := rest.Call(c.client, http.MethodPost, endpoint, form, &response); err != nil {
		return nil, err
	}

	c.logger.Debugf("Orchestration returned %d candidates.", len(response.Response))
	return &response, nil
}

// NewClient returns a new orchestration client.
// A nil HTTP client selects a default one.
func NewClient(client *http.Client) *Client {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, 0)
	}

	return &Client{
		client: client,
		logger: logrus.WithField("component", "orchestrator.client"),
	}
}
