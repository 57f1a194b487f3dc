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

package locator

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
)

// DefaultProbeTimeout bounds a liveness probe.
const DefaultProbeTimeout = 2 * time.Second

// Prober checks whether an endpoint is reachable.
type Prober interface {
	// Probe returns true if the endpoint answers its echo path.
	Probe(endpoint api.Endpoint) bool
}

// HTTPProber probes endpoints with an HTTP GET.
type HTTPProber struct {
	client *http.Client

	logger *logrus.Entry
}

// Probe issues a GET on the endpoint. Any error or non-2xx response means unreachable.
func (p *HTTPProber) Probe(endpoint api.Endpoint) bool {
	resp, err := jsonapi.NewClient(endpoint.Base(), p.client).Get(endpoint.Path)
	if err != nil {
		p.logger.Debugf("Probe of %s failed: %v.", endpoint.String(), err)
		metrics.LocatorProbes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return false
	}

	if !resp.OK() {
		p.logger.Debugf("Probe of %s returned %d.", endpoint.String(), resp.Status)
		metrics.LocatorProbes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return false
	}

	metrics.LocatorProbes.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return true
}

// NewHTTPProber returns a prober using the given HTTP client.
// A nil client selects an insecure client with the default probe timeout.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, DefaultProbeTimeout)
	}

	return &HTTPProber{
		client: client,
		logger: logrus.WithField("component", "locator.prober"),
	}
}
