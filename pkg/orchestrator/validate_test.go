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

package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator"
)

func TestValidate(t *testing.T) {
	service := &api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"}
	validSystem := &api.System{SystemName: "consumer", Address: "10.0.0.5", Port: 8080}

	tests := []struct {
		name       string
		form       *api.OrchestrationForm
		gatekeeper bool
		kind       api.Kind
		message    string
	}{{
		name: "missing requester",
		form: &api.OrchestrationForm{},
		kind: api.KindBadRequest, message: "requesterSystem: system is required",
	}, {
		name: "blank requester name",
		form: &api.OrchestrationForm{RequesterSystem: &api.System{SystemName: " ", Address: "h", Port: 1}},
		kind: api.KindBadRequest, message: "requesterSystem.systemName: system name is null or blank",
	}, {
		name: "blank requester address",
		form: &api.OrchestrationForm{RequesterSystem: &api.System{SystemName: "c", Port: 1}},
		kind: api.KindBadRequest, message: "requesterSystem.address: address is null or blank",
	}, {
		name: "requester port out of range",
		form: &api.OrchestrationForm{RequesterSystem: &api.System{SystemName: "c", Address: "h", Port: 70000}},
		kind: api.KindBadRequest, message: "requesterSystem.port: port 70000 is out of the valid range",
	}, {
		name: "blank requester cloud operator",
		form: &api.OrchestrationForm{RequesterSystem: validSystem, RequesterCloud: &api.Cloud{Name: "c"}},
		kind: api.KindBadRequest, message: "requesterCloud.operator: cloud operator is null or blank",
	}, {
		name: "override store without service",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagOverrideStore: true},
		},
		kind: api.KindBadRequest, message: "requestedService: requested service is required when flag 'overrideStore' is set",
	}, {
		name: "trigger inter-cloud without service",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagTriggerInterCloud: true},
		},
		gatekeeper: true,
		kind:       api.KindBadRequest,
		message:    "requestedService: requested service is required when flag 'triggerInterCloud' is set",
	}, {
		name: "blank service definition",
		form: &api.OrchestrationForm{
			RequesterSystem:  validSystem,
			RequestedService: &api.ServiceQueryForm{},
		},
		kind: api.KindBadRequest,
		message: "requestedService.serviceDefinitionRequirement: service definition is null or blank",
	}, {
		name: "only preferred without providers",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagOnlyPreferred: true},
		},
		kind:    api.KindBadRequest,
		message: "preferredProviders: at least one valid preferred provider is required when flag " +
			"'onlyPreferred' is set",
	}, {
		name: "only preferred with invalid providers",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagOnlyPreferred: true},
			PreferredProviders: []api.PreferredProvider{
				{ProviderSystem: &api.System{SystemName: "p"}},
				{ProviderCloud: &api.Cloud{Operator: "o"}},
			},
		},
		kind:    api.KindBadRequest,
		message: "preferredProviders: at least one valid preferred provider is required when flag " +
			"'onlyPreferred' is set",
	}, {
		name: "trigger inter-cloud without gatekeeper",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagTriggerInterCloud: true},
		},
		kind: api.KindConfiguration, message: "flag 'triggerInterCloud' requires a Gatekeeper",
	}, {
		name: "external request without gatekeeper",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagExternalServiceRequest: true},
		},
		kind: api.KindConfiguration, message: "flag 'externalServiceRequest' requires a Gatekeeper",
	}, {
		name: "external request without requester cloud",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagExternalServiceRequest: true},
		},
		gatekeeper: true,
		kind:       api.KindBadRequest,
		message:    "requesterCloud: requester cloud is required when flag 'externalServiceRequest' is set",
	}, {
		name: "malformed qos requirement",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagEnableQoS: true},
			QoSRequirements:    map[string]string{"jitterThreshold": "abc"},
		},
		kind: api.KindBadRequest, message: "qosRequirements.jitterThreshold",
	}, {
		name: "exclusivity without matchmaking",
		form: &api.OrchestrationForm{
			RequesterSystem:    validSystem,
			RequestedService:   service,
			OrchestrationFlags: api.OrchestrationFlags{api.FlagEnableQoS: true},
			Commands:           map[string]string{api.CommandExclusivityTime: "60"},
		},
		kind: api.KindBadRequest, message: "exclusive orchestration requires flag 'matchmaking'",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := orchestrator.Validate(tt.form, tt.gatekeeper)
			require.NotNil(t, err)
			require.Equal(t, tt.kind, api.KindOf(err))
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	form := &api.OrchestrationForm{
		RequesterSystem:    &api.System{SystemName: "consumer", Address: "10.0.0.5", Port: 8080},
		RequesterCloud:     &api.Cloud{Operator: "aitia", Name: "testcloud1"},
		RequestedService:   &api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"},
		OrchestrationFlags: api.OrchestrationFlags{api.FlagOnlyPreferred: true, api.FlagTriggerInterCloud: true},
		PreferredProviders: []api.PreferredProvider{
			{ProviderCloud: &api.Cloud{Operator: "aitia", Name: "testcloud2"}},
		},
	}
	require.Nil(t, orchestrator.Validate(form, true))

	// flags without a service are fine for the store path
	require.Nil(t, orchestrator.Validate(&api.OrchestrationForm{RequesterSystem: form.RequesterSystem}, false))
}
