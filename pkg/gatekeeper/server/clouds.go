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
	"strings"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/store"
)

type cloudHandler struct {
	clouds *store.Clouds
}

// Decode a cloud.
func (h *cloudHandler) Decode(data []byte) (any, error) {
	var cloud api.Cloud
	if err := json.Unmarshal(data, &cloud); err != nil {
		return nil, fmt.Errorf("cannot decode cloud: %w", err)
	}

	switch {
	case strings.TrimSpace(cloud.Operator) == "":
		return nil, fmt.Errorf("empty cloud operator")
	case strings.TrimSpace(cloud.Name) == "":
		return nil, fmt.Errorf("empty cloud name")
	case cloud.OwnCloud && cloud.Neighbor:
		return nil, fmt.Errorf("cloud '%s' cannot be both own and neighbor", cloud.Key())
	}

	return store.NewCloud(&cloud), nil
}

// Create a cloud.
func (h *cloudHandler) Create(object any) error {
	return h.clouds.Create(object.(*store.Cloud))
}

// Update a cloud.
func (h *cloudHandler) Update(object any) error {
	cloud := object.(*store.Cloud)
	return h.clouds.Update(cloud.Key(), func(*store.Cloud) *store.Cloud {
		return cloud
	})
}

// Get a cloud by its (operator, name) key.
func (h *cloudHandler) Get(key string) (any, error) {
	cloud := h.clouds.Get(strings.ToLower(key))
	if cloud == nil {
		return nil, nil
	}
	return &cloud.Cloud, nil
}

// Delete a cloud.
func (h *cloudHandler) Delete(key string) (any, error) {
	return h.clouds.Delete(strings.ToLower(key))
}

// List all clouds.
func (h *cloudHandler) List() (any, error) {
	clouds := h.clouds.GetAll()
	apiClouds := make([]*api.Cloud, len(clouds))
	for i, cloud := range clouds {
		apiClouds[i] = &cloud.Cloud
	}
	return apiClouds, nil
}
