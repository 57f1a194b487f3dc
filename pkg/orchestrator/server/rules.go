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
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/store"
)

type ruleHandler struct {
	rules *store.Rules
}

// Decode a store rule.
func (h *ruleHandler) Decode(data []byte) (any, error) {
	var rule api.StoreRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("cannot decode store rule: %w", err)
	}

	switch {
	case strings.TrimSpace(rule.Name) == "":
		return nil, fmt.Errorf("empty rule name")
	case strings.TrimSpace(rule.ServiceDefinition) == "":
		return nil, fmt.Errorf("rule '%s' missing service definition", rule.Name)
	case rule.Consumer.SystemName == "" || rule.Consumer.Address == "" || !api.ValidPort(rule.Consumer.Port):
		return nil, fmt.Errorf("rule '%s' has an invalid consumer", rule.Name)
	case rule.Provider.SystemName == "" || rule.Provider.Address == "" || !api.ValidPort(rule.Provider.Port):
		return nil, fmt.Errorf("rule '%s' has an invalid provider", rule.Name)
	case rule.ProviderCloud != nil && (rule.ProviderCloud.Operator == "" || rule.ProviderCloud.Name == ""):
		return nil, fmt.Errorf("rule '%s' has an invalid provider cloud", rule.Name)
	}

	return store.NewRule(&rule), nil
}

// Create a store rule.
func (h *ruleHandler) Create(object any) error {
	return h.rules.Create(object.(*store.Rule))
}

// Update a store rule.
func (h *ruleHandler) Update(object any) error {
	rule := object.(*store.Rule)
	return h.rules.Update(rule.Name, func(*store.Rule) *store.Rule {
		return rule
	})
}

// Get a store rule.
func (h *ruleHandler) Get(name string) (any, error) {
	rule := h.rules.Get(name)
	if rule == nil {
		return nil, nil
	}
	return &rule.StoreRule, nil
}

// Delete a store rule.
func (h *ruleHandler) Delete(name string) (any, error) {
	return h.rules.Delete(name)
}

// List all store rules, ordered by priority.
func (h *ruleHandler) List() (any, error) {
	rules := h.rules.GetAll()
	apiRules := make([]*api.StoreRule, len(rules))
	for i, rule := range rules {
		apiRules[i] = &rule.StoreRule
	}
	return apiRules, nil
}
