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
	"net/url"
	"reflect"

	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
)

// Config specifies a client configuration.
type Config struct {
	// Client is the underlying HTTP client.
	Client *jsonapi.Client
	// BasePath is the server HTTP path for manipulating a specific type of objects.
	BasePath string
	// SampleObject is an instance representing the type returned when getting an object.
	SampleObject any
	// SampleList is an instance representing the type returned when listing objects.
	SampleList any
}

// Client for issuing REST-JSON requests for a specific type of objects.
type Client struct {
	client     *jsonapi.Client
	basePath   string
	objectType reflect.Type
	listType   reflect.Type
}

// Create an object.
func (c *Client) Create(object any) error {
	return c.send(http.MethodPost, object, http.StatusCreated)
}

// Update an object.
func (c *Client) Update(object any) error {
	return c.send(http.MethodPut, object, http.StatusNoContent)
}

func (c *Client) send(method string, object any, expected int) error {
	encoded, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("unable to encode object: %w", err)
	}

	var resp *jsonapi.Response
	if method == http.MethodPost {
		resp, err = c.client.Post(c.basePath, encoded)
	} else {
		resp, err = c.client.Put(c.basePath, encoded)
	}
	if err != nil {
		return fmt.Errorf("unable to send object: %w", err)
	}

	if resp.Status != expected {
		return fmt.Errorf("server returned %d: %w", resp.Status, ReadError(resp.Status, resp.Body))
	}

	return nil
}

// Get an object.
func (c *Client) Get(name string) (any, error) {
	resp, err := c.client.Get(c.basePath + "/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("unable to get object: %w", err)
	}

	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("unable to get object (%d): %w", resp.Status, ReadError(resp.Status, resp.Body))
	}

	decoded := reflect.New(c.objectType).Interface()
	if err := resp.Decode(decoded); err != nil {
		return nil, err
	}

	return decoded, nil
}

// Delete an object by name.
func (c *Client) Delete(name string) error {
	resp, err := c.client.Delete(c.basePath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return fmt.Errorf("unable to delete object: %w", err)
	}

	if resp.Status != http.StatusNoContent {
		return fmt.Errorf("unable to delete object (%d): %w", resp.Status, ReadError(resp.Status, resp.Body))
	}

	return nil
}

// List all objects.
func (c *Client) List() (any, error) {
	resp, err := c.client.Get(c.basePath)
	if err != nil {
		return nil, fmt.Errorf("unable to list objects: %w", err)
	}

	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("unable to list objects (%d): %w", resp.Status, ReadError(resp.Status, resp.Body))
	}

	decoded := reflect.New(c.listType).Interface()
	if err := resp.Decode(decoded); err != nil {
		return nil, err
	}

	return decoded, nil
}

// NewClient returns a new REST-JSON client.
func NewClient(config *Config) *Client {
	return &Client{
		client:     config.Client,
		basePath:   config.BasePath,
		objectType: reflect.TypeOf(config.SampleObject),
		listType:   reflect.TypeOf(config.SampleList),
	}
}
