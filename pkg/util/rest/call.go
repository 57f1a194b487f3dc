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

package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
)

// Call sends a JSON request to the endpoint and decodes a 2xx response into response.
// A nil request sends no body, a nil response ignores the response body.
// Non-2xx responses are returned as classified errors.
func Call(httpClient *http.Client, method string, endpoint api.Endpoint, request, response any) error {
	var body []byte
	if request != nil {
		encoded, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("unable to encode request: %w", err)
		}
		body = encoded
	}

	client := jsonapi.NewClient(endpoint.Base(), httpClient)

	var resp *jsonapi.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = client.Get(endpoint.Path)
	case http.MethodPost:
		resp, err = client.Post(endpoint.Path, body)
	case http.MethodPut:
		resp, err = client.Put(endpoint.Path, body)
	case http.MethodDelete:
		resp, err = client.Delete(endpoint.Path, body)
	default:
		return fmt.Errorf("unsupported method '%s'", method)
	}
	if err != nil {
		return api.Unavailable(err, "%s %s", method, endpoint.String())
	}

	if !resp.OK() {
		return fmt.Errorf("%s %s returned %d: %w", method, endpoint.String(), resp.Status,
			ReadError(resp.Status, resp.Body))
	}

	if response == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(response)
}
