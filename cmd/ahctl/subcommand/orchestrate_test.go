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

package subcommand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

func TestOrchestrationForm(t *testing.T) {
	o := orchestrateOptions{
		system:        "consumer",
		address:       "10.0.0.1",
		port:          9000,
		service:       "temperature",
		interfaces:    []string{"HTTP-SECURE-JSON"},
		flags:         []string{"overrideStore=true", "pingProviders=false"},
		commands:      []string{"exclusivityTime=60"},
		preferredOnly: true,
	}

	form, err := o.form()
	require.Nil(t, err)
	require.Equal(t, "consumer", form.RequesterSystem.SystemName)
	require.Equal(t, "temperature", form.RequestedService.ServiceDefinitionRequirement)
	require.True(t, form.OrchestrationFlags.Get(api.FlagOverrideStore))
	require.True(t, form.OrchestrationFlags.Get(api.FlagOnlyPreferred))
	require.False(t, form.OrchestrationFlags.Get(api.FlagPingProviders))
	require.Equal(t, "60", form.Commands[api.CommandExclusivityTime])
	require.Nil(t, form.QoSRequirements)

	o.service = ""
	o.preferredOnly = false
	o.flags = nil
	form, err = o.form()
	require.Nil(t, err)
	require.Nil(t, form.RequestedService)
	require.Nil(t, form.OrchestrationFlags)

	o.qos = []string{"no-separator"}
	_, err = o.form()
	require.NotNil(t, err)
}

func TestLocalAddress(t *testing.T) {
	require.Equal(t, "127.0.0.1:8441", localAddress("0.0.0.0:8441"))
	require.Equal(t, "invalid", localAddress("invalid"))
}
