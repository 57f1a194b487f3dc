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

package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/store"
)

// Clouds is a cached persistent store of clouds, keyed by (operator, name).
type Clouds struct {
	lock  sync.RWMutex
	cache map[string]*Cloud
	store store.ObjectStore

	logger *logrus.Entry
}

// Create a cloud.
func (s *Clouds) Create(cloud *Cloud) error {
	key := cloud.Key()
	s.logger.Infof("Creating: '%s'.", key)

	if cloud.Version > cloudStructVersion {
		return fmt.Errorf("incompatible cloud version %d, expected: %d",
			cloud.Version, cloudStructVersion)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if cloud.OwnCloud {
		if own := s.own(); own != nil && own.Key() != key {
			return fmt.Errorf("own cloud is already set to '%s'", own.Key())
		}
	}

	// persist to store
	if err := s.store.Create(key, cloud); err != nil {
		return err
	}

	// store in cache
	s.cache[key] = cloud
	return nil
}

// Update a cloud.
func (s *Clouds) Update(key string, mutator func(*Cloud) *Cloud) error {
	s.logger.Infof("Updating: '%s'.", key)

	// persist to store
	var cloud *Cloud
	err := s.store.Update(key, func(a any) any {
		cloud = mutator(a.(*Cloud))
		return cloud
	})
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store in cache
	s.cache[key] = cloud
	return nil
}

// Get a cloud by its (operator, name) key.
func (s *Clouds) Get(key string) *Cloud {
	s.logger.Debugf("Getting '%s'.", key)

	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cache[key]
}

// Delete a cloud.
func (s *Clouds) Delete(key string) (*Cloud, error) {
	s.logger.Infof("Deleting: '%s'.", key)

	// delete from store
	if err := s.store.Delete(key); err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// delete from cache
	val := s.cache[key]
	delete(s.cache, key)
	return val, nil
}

// GetAll returns all clouds in the cache, ordered by key.
func (s *Clouds) GetAll() []*Cloud {
	s.logger.Debug("Getting all clouds.")

	s.lock.RLock()
	defer s.lock.RUnlock()

	clouds := make([]*Cloud, 0, len(s.cache))
	for _, cloud := range s.cache {
		clouds = append(clouds, cloud)
	}

	sort.Slice(clouds, func(i, j int) bool {
		return clouds[i].Key() < clouds[j].Key()
	})
	return clouds
}

// Own returns the local cloud, nil if not set.
func (s *Clouds) Own() *api.Cloud {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if own := s.own(); own != nil {
		cloud := own.Cloud
		return &cloud
	}
	return nil
}

// Neighbors returns the neighbor clouds, ordered by key.
func (s *Clouds) Neighbors() []api.Cloud {
	var neighbors []api.Cloud
	for _, cloud := range s.GetAll() {
		if cloud.Neighbor && !cloud.OwnCloud {
			neighbors = append(neighbors, cloud.Cloud)
		}
	}
	return neighbors
}

// IsNeighbor returns true if the cloud is a known neighbor.
func (s *Clouds) IsNeighbor(cloud *api.Cloud) bool {
	known := s.Get(cloud.Key())
	return known != nil && known.Neighbor && !known.OwnCloud
}

// Len returns the number of cached clouds.
func (s *Clouds) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.cache)
}

func (s *Clouds) own() *Cloud {
	for _, cloud := range s.cache {
		if cloud.OwnCloud {
			return cloud
		}
	}
	return nil
}

// init loads the cache with items from the backing store.
func (s *Clouds) init() error {
	s.logger.Info("Initializing.")

	// get all clouds from backing store
	clouds, err := s.store.GetAll()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store all clouds to the cache
	for _, object := range clouds {
		if cloud, ok := object.(*Cloud); ok {
			s.cache[cloud.Key()] = cloud
		}
	}

	return nil
}

// NewClouds returns a new cached store of clouds.
func NewClouds(manager store.Manager) (*Clouds, error) {
	logger := logrus.WithField("component", "gatekeeper.store.clouds")

	clouds := &Clouds{
		cache:  make(map[string]*Cloud),
		store:  manager.GetObjectStore(cloudStoreName, Cloud{}),
		logger: logger,
	}

	if err := clouds.init(); err != nil {
		return nil, err
	}

	return clouds, nil
}
