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

package store

import (
	"strconv"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

const (
	cloudStoreName = "cloud"
	relayStoreName = "relay"

	cloudStructVersion = 1
	relayStructVersion = 1
)

// Cloud is a persisted cloud, together with its relay associations.
type Cloud struct {
	api.Cloud
	// Version of the struct when object was created.
	Version uint32
}

// NewCloud creates a new cloud.
func NewCloud(cloud *api.Cloud) *Cloud {
	return &Cloud{
		Cloud:   *cloud,
		Version: cloudStructVersion,
	}
}

// Relay is a persisted relay.
type Relay struct {
	api.Relay
	// Version of the struct when object was created.
	Version uint32
}

// NewRelay creates a new relay.
func NewRelay(relay *api.Relay) *Relay {
	return &Relay{
		Relay:   *relay,
		Version: relayStructVersion,
	}
}

// RelayName returns the store name of the relay with the given ID.
func RelayName(id int64) string {
	return strconv.FormatInt(id, 10)
}
