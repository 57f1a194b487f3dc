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

package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	cmdutil "github.com/clusterlink-net/arrowhead/cmd/util"
)

func TestParseKeyValues(t *testing.T) {
	values, err := cmdutil.ParseKeyValues([]string{"matchmaking=true", " pingProviders = false", "empty="})
	require.Nil(t, err)
	require.Equal(t, map[string]string{"matchmaking": "true", "pingProviders": "false", "empty": ""}, values)

	values, err = cmdutil.ParseKeyValues(nil)
	require.Nil(t, err)
	require.Nil(t, values)

	_, err = cmdutil.ParseKeyValues([]string{"matchmaking"})
	require.NotNil(t, err)
	_, err = cmdutil.ParseKeyValues([]string{"=true"})
	require.NotNil(t, err)
}
