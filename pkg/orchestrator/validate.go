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
	"fmt"
	"strings"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
)

// Validate checks an orchestration form.
// Malformed or inconsistent forms fail with a BadRequest error naming the offending field.
// Flags requiring a Gatekeeper fail with a configuration error when gatekeeperPresent is false.
func Validate(form *api.OrchestrationForm, gatekeeperPresent bool) error {
	if form == nil {
		return api.BadRequest("", "orchestration form is required")
	}

	if err := validateSystem("requesterSystem", form.RequesterSystem); err != nil {
		return err
	}

	if form.RequesterCloud != nil {
		if err := validateCloud("requesterCloud", form.RequesterCloud); err != nil {
			return err
		}
	}

	flags := form.OrchestrationFlags
	for _, flag := range []string{api.FlagOverrideStore, api.FlagTriggerInterCloud} {
		if flags.Get(flag) && form.RequestedService == nil {
			return api.BadRequest("requestedService",
				"requested service is required when flag '%s' is set", flag)
		}
	}

	if form.RequestedService != nil && strings.TrimSpace(form.RequestedService.ServiceDefinitionRequirement) == "" {
		return api.BadRequest("requestedService.serviceDefinitionRequirement",
			"service definition is null or blank")
	}

	if flags.Get(api.FlagOnlyPreferred) && len(ValidPreferredProviders(form.PreferredProviders)) == 0 {
		return api.BadRequest("preferredProviders",
			"at least one valid preferred provider is required when flag '%s' is set", api.FlagOnlyPreferred)
	}

	for _, flag := range []string{api.FlagTriggerInterCloud, api.FlagExternalServiceRequest} {
		if flags.Get(flag) && !gatekeeperPresent {
			return api.ConfigurationError("flag '%s' requires a Gatekeeper, which is not present in this cloud", flag)
		}
	}

	if flags.Get(api.FlagExternalServiceRequest) && form.RequesterCloud == nil {
		return api.BadRequest("requesterCloud",
			"requester cloud is required when flag '%s' is set", api.FlagExternalServiceRequest)
	}

	if flags.Get(api.FlagEnableQoS) {
		if _, err := qos.ParseRequirements(form.QoSRequirements); err != nil {
			return err
		}

		exclusivity, err := qos.ExclusivityTime(form.Commands)
		if err != nil {
			return err
		}
		if exclusivity != nil && !flags.Get(api.FlagMatchmaking) {
			return api.BadRequest("commands."+api.CommandExclusivityTime,
				"exclusive orchestration requires flag '%s'", api.FlagMatchmaking)
		}
	}

	return nil
}

func validateSystem(field string, system *api.System) error {
	switch {
	case system == nil:
		return api.BadRequest(field, "system is required")
	case strings.TrimSpace(system.SystemName) == "":
		return api.BadRequest(field+".systemName", "system name is null or blank")
	case strings.TrimSpace(system.Address) == "":
		return api.BadRequest(field+".address", "address is null or blank")
	case !api.ValidPort(system.Port):
		return api.BadRequest(field+".port", "port %d is out of the valid range", system.Port)
	}
	return nil
}

func validateCloud(field string, cloud *api.Cloud) error {
	switch {
	case strings.TrimSpace(cloud.Operator) == "":
		return api.BadRequest(field+".operator", "cloud operator is null or blank")
	case strings.TrimSpace(cloud.Name) == "":
		return api.BadRequest(field+".name", "cloud name is null or blank")
	}
	return nil
}

// ValidPreferredProviders returns the syntactically valid preferred providers, in order.
func ValidPreferredProviders(providers []api.PreferredProvider) []api.PreferredProvider {
	var valid []api.PreferredProvider
	for i := range providers {
		if validatePreferredProvider(i, &providers[i]) == nil {
			valid = append(valid, providers[i])
		}
	}
	return valid
}

func validatePreferredProvider(index int, provider *api.PreferredProvider) error {
	field := fmt.Sprintf("preferredProviders[%d]", index)
	if provider.ProviderCloud != nil {
		if err := validateCloud(field+".providerCloud", provider.ProviderCloud); err != nil {
			return err
		}
		if provider.ProviderSystem == nil {
			// any provider of the cloud
			return nil
		}
	}
	return validateSystem(field+".providerSystem", provider.ProviderSystem)
}
