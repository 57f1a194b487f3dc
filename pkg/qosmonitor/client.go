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

package qosmonitor

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Resolver locates core services.
type Resolver interface {
	Resolve(service api.CoreService) (api.Endpoint, error)
}

// Client of the QoS Monitor.
type Client struct {
	resolver Resolver
	client   *http.Client

	logger *logrus.Entry
}

// GetPingMeasurement returns the ping measurement of a system.
// A system which was never measured has a measurement without record.
func (c *Client) GetPingMeasurement(systemID int64) (*api.PingMeasurement, error) {
	endpoint, err := c.resolver.Resolve(api.QoSMonitorPingMeasurement)
	if err != nil {
		return nil, err
	}
	endpoint.Path += "/" + strconv.FormatInt(systemID, 10)

	var measurement api.PingMeasurement
	err = rest.Call(c.client, http.MethodGet, endpoint, nil, &measurement)

	switch {
	case api.IsKind(err, api.KindNoMatch):
		c.logger.Debugf("No measurement of system %d.", systemID)
		return &api.PingMeasurement{SystemID: systemID}, nil
	case err != nil:
		return nil, err
	}

	measurement.SystemID = systemID
	return &measurement, nil
}

// NewClient returns a new QoS Monitor client.
// A nil HTTP client selects a default one.
func NewClient(resolver Resolver, client *http.Client) *Client {
	if client == nil {
		client = jsonapi.NewHTTPClient(nil, 0)
	}

	return &Client{
		resolver: resolver,
		client:   client,
		logger:   logrus.WithField("component", "qosmonitor.client"),
	}
}
