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

// Transport delivers a request to the gatekeeper of a neighbor cloud through a relay.
type Transport interface {
	Send(relay *api.Relay, path string, request, response any) error
}

// HTTPTransport posts JSON requests to the relay, which forwards them to the neighbor gatekeeper.
type HTTPTransport struct {
	client *http.Client

	logger *logrus.Entry
}

// Send a request through the relay.
func (t *HTTPTransport) Send(relay *api.Relay, path string, request, response any) error {
	scheme := "http"
	if relay.Secure {
		scheme = "https"
	}

	endpoint := api.Endpoint{Scheme: scheme, Host: relay.Address, Port: relay.Port, Path: path}
	t.logger.Debugf("Sending to %s.", endpoint.String())

	return rest.Call(t.client, http.MethodPost, endpoint, request, response)
}

// NewHTTPTransport returns a new relay transport using the given HTTP client.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, 0)
	}

	return &HTTPTransport{
		client: client,
		logger: logrus.WithField("component", "gatekeeper.transport"),
	}
}
