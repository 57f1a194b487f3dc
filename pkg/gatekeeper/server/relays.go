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

package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/store"
)

type relayHandler struct {
	relays *store.Relays
}

// Decode a relay.
func (h *relayHandler) Decode(data []byte) (any, error) {
	var relay api.Relay
	if err := json.Unmarshal(data, &relay); err != nil {
		return nil, fmt.Errorf("cannot decode relay: %w", err)
	}

	relayType, err := api.ParseRelayType(string(relay.Type))
	if err != nil {
		return nil, err
	}
	relay.Type = relayType

	switch {
	case strings.TrimSpace(relay.Address) == "":
		return nil, fmt.Errorf("empty relay address")
	case !api.ValidPort(relay.Port):
		return nil, fmt.Errorf("relay port %d is out of the valid range", relay.Port)
	case relay.Exclusive && relay.Type == api.RelayGatekeeper:
		return nil, fmt.Errorf("gatekeeper relays cannot be exclusive")
	}

	return store.NewRelay(&relay), nil
}

// Create a relay.
func (h *relayHandler) Create(object any) error {
	return h.relays.Create(object.(*store.Relay))
}

// Update a relay.
func (h *relayHandler) Update(object any) error {
	relay := object.(*store.Relay)
	if relay.ID == 0 {
		return api.BadRequest("id", "relay id is required")
	}
	return h.relays.Update(relay.ID, func(*store.Relay) *store.Relay {
		return relay
	})
}

// Get a relay by ID.
func (h *relayHandler) Get(name string) (any, error) {
	id, err := parseID(name)
	if err != nil {
		return nil, err
	}

	relay := h.relays.Get(id)
	if relay == nil {
		return nil, nil
	}
	return &relay.Relay, nil
}

// Delete a relay.
func (h *relayHandler) Delete(name string) (any, error) {
	id, err := parseID(name)
	if err != nil {
		return nil, err
	}
	return h.relays.Delete(id)
}

// List all relays, ordered by ID.
func (h *relayHandler) List() (any, error) {
	relays := h.relays.GetAll()
	apiRelays := make([]*api.Relay, len(relays))
	for i, relay := range relays {
		apiRelays[i] = &relay.Relay
	}
	return apiRelays, nil
}

func parseID(name string) (int64, error) {
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, api.BadRequest("id", "invalid relay id '%s'", name)
	}
	return id, nil
}
