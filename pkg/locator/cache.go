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

package locator

import (
	"sync"
	"sync/atomic"

	"github.com/clusterlink-net/arrowhead/pkg/api"
)

// Cache maps core services to their last resolved endpoint.
// Entries are never expired, only overwritten or deleted.
type Cache struct {
	entries sync.Map // service definition -> api.Endpoint
	size    atomic.Int64
}

// Get returns the cached endpoint of a service.
func (c *Cache) Get(service api.CoreService) (api.Endpoint, bool) {
	value, ok := c.entries.Load(service.Definition)
	if !ok {
		return api.Endpoint{}, false
	}
	return value.(api.Endpoint), true
}

// Store sets the endpoint of a service, overwriting any existing entry.
func (c *Cache) Store(service api.CoreService, endpoint api.Endpoint) {
	if _, loaded := c.entries.Swap(service.Definition, endpoint); !loaded {
		c.size.Add(1)
	}
}

// StoreIfAbsent sets the endpoint of a service only if it has no entry.
// It returns true if the endpoint was stored.
func (c *Cache) StoreIfAbsent(service api.CoreService, endpoint api.Endpoint) bool {
	_, loaded := c.entries.LoadOrStore(service.Definition, endpoint)
	if !loaded {
		c.size.Add(1)
	}
	return !loaded
}

// Delete removes the entry of a service.
func (c *Cache) Delete(service api.CoreService) {
	if _, loaded := c.entries.LoadAndDelete(service.Definition); loaded {
		c.size.Add(-1)
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.entries.Range(func(key, _ any) bool {
		if _, loaded := c.entries.LoadAndDelete(key); loaded {
			c.size.Add(-1)
		}
		return true
	})
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}
