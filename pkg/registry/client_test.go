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

package registry_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/registry"
)

func endpointOf(t *testing.T, server *httptest.Server, path string) api.Endpoint {
	u, err := url.Parse(server.URL)
	require.Nil(t, err)
	port, err := strconv.Atoi(u.Port())
	require.Nil(t, err)
	return api.Endpoint{Scheme: u.Scheme, Host: u.Hostname(), Port: port, Path: path}
}

func TestClient(t *testing.T) {
	provider := api.System{SystemName: "sensor", Address: "10.0.0.1", Port: 9000}
	var unregisterQuery url.Values

	mux := http.NewServeMux()
	mux.HandleFunc(api.ServiceRegistryQuery.URI, func(w http.ResponseWriter, r *http.Request) {
		var form api.ServiceQueryForm
		require.Nil(t, json.NewDecoder(r.Body).Decode(&form))
		if form.ServiceDefinitionRequirement != "temperature" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorMessage":"unknown service","errorCode":400}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&api.ServiceQueryResult{
			ServiceQueryData: []api.ServiceRegistryEntry{{ID: 1, Provider: provider, ServiceURI: "/temp"}},
			UnfilteredHits:   3,
		})
	})
	mux.HandleFunc(api.ServiceRegistryRegister.URI, func(w http.ResponseWriter, r *http.Request) {
		var request api.ServiceRegistrationRequest
		require.Nil(t, json.NewDecoder(r.Body).Decode(&request))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&api.ServiceRegistryEntry{
			ID:                7,
			ServiceDefinition: api.ServiceDefinition{ServiceDefinition: request.ServiceDefinition},
			Provider:          request.ProviderSystem,
			ServiceURI:        request.ServiceURI,
		})
	})
	mux.HandleFunc(api.ServiceRegistryUnregister.URI, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		unregisterQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := registry.NewClient(nil)

	result, err := client.Query(endpointOf(t, server, api.ServiceRegistryQuery.URI),
		&api.ServiceQueryForm{ServiceDefinitionRequirement: "temperature"})
	require.Nil(t, err)
	require.Len(t, result.ServiceQueryData, 1)
	require.Equal(t, 3, result.UnfilteredHits)
	require.True(t, provider.SameIdentity(&result.ServiceQueryData[0].Provider))

	_, err = client.Query(endpointOf(t, server, api.ServiceRegistryQuery.URI),
		&api.ServiceQueryForm{ServiceDefinitionRequirement: "humidity"})
	require.True(t, api.IsKind(err, api.KindBadRequest))
	require.Contains(t, err.Error(), "unknown service")

	entry, err := client.Register(endpointOf(t, server, api.ServiceRegistryRegister.URI),
		&api.ServiceRegistrationRequest{
			ServiceDefinition: "temperature",
			ProviderSystem:    provider,
			ServiceURI:        "/temp",
			Secure:            api.SecureNone,
			Interfaces:        []string{"HTTP-INSECURE-JSON"},
		})
	require.Nil(t, err)
	require.Equal(t, int64(7), entry.ID)
	require.Equal(t, "temperature", entry.ServiceDefinition.ServiceDefinition)

	err = client.Unregister(endpointOf(t, server, api.ServiceRegistryUnregister.URI), "temperature", &provider, "/temp")
	require.Nil(t, err)
	require.Equal(t, "temperature", unregisterQuery.Get("service_definition"))
	require.Equal(t, "sensor", unregisterQuery.Get("system_name"))
	require.Equal(t, "9000", unregisterQuery.Get("port"))
	require.Equal(t, "/temp", unregisterQuery.Get("service_uri"))
}

func TestClientUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := endpointOf(t, server, api.ServiceRegistryQuery.URI)
	server.Close()

	_, err := registry.NewClient(nil).Query(endpoint, &api.ServiceQueryForm{ServiceDefinitionRequirement: "x"})
	require.True(t, api.IsKind(err, api.KindUnavailable))
}
