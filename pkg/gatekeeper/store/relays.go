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
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/store"
)

// Relays is a cached persistent store of relays, keyed by ID.
type Relays struct {
	lock  sync.RWMutex
	cache map[int64]*Relay
	store store.ObjectStore

	logger *logrus.Entry
}

// Create a relay. A relay without an ID is assigned the next free ID.
func (s *Relays) Create(relay *Relay) error {
	if relay.Version > relayStructVersion {
		return fmt.Errorf("incompatible relay version %d, expected: %d",
			relay.Version, relayStructVersion)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, existing := range s.cache {
		if strings.EqualFold(existing.Address, relay.Address) && existing.Port == relay.Port {
			return fmt.Errorf("relay %s:%d already exists with id %d: %w",
				relay.Address, relay.Port, existing.ID, &store.ObjectExistsError{})
		}
	}

	if relay.ID == 0 {
		for id := range s.cache {
			if id > relay.ID {
				relay.ID = id
			}
		}
		relay.ID++
	}

	s.logger.Infof("Creating: %d (%s:%d).", relay.ID, relay.Address, relay.Port)

	// persist to store
	if err := s.store.Create(RelayName(relay.ID), relay); err != nil {
		return err
	}

	// store in cache
	s.cache[relay.ID] = relay
	return nil
}

// Update a relay.
func (s *Relays) Update(id int64, mutator func(*Relay) *Relay) error {
	s.logger.Infof("Updating: %d.", id)

	// persist to store
	var relay *Relay
	err := s.store.Update(RelayName(id), func(a any) any {
		relay = mutator(a.(*Relay))
		relay.ID = id
		return relay
	})
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store in cache
	s.cache[id] = relay
	return nil
}

// Get a relay.
func (s *Relays) Get(id int64) *Relay {
	s.logger.Debugf("Getting %d.", id)

	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cache[id]
}

// Delete a relay.
func (s *Relays) Delete(id int64) (*Relay, error) {
	s.logger.Infof("Deleting: %d.", id)

	// delete from store
	if err := s.store.Delete(RelayName(id)); err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// delete from cache
	val := s.cache[id]
	delete(s.cache, id)
	return val, nil
}

// GetAll returns all relays in the cache, ordered by ID.
func (s *Relays) GetAll() []*Relay {
	s.logger.Debug("Getting all relays.")

	s.lock.RLock()
	defer s.lock.RUnlock()

	relays := make([]*Relay, 0, len(s.cache))
	for _, relay := range s.cache {
		relays = append(relays, relay)
	}

	sort.Slice(relays, func(i, j int) bool {
		return relays[i].ID < relays[j].ID
	})
	return relays
}

// Resolve returns the relays with the given IDs, in the order of the IDs.
// Unknown IDs are skipped.
func (s *Relays) Resolve(ids []int64) []api.Relay {
	s.lock.RLock()
	defer s.lock.RUnlock()

	relays := make([]api.Relay, 0, len(ids))
	for _, id := range ids {
		relay, ok := s.cache[id]
		if !ok {
			s.logger.Warnf("Unknown relay %d.", id)
			continue
		}
		relays = append(relays, relay.Relay)
	}
	return relays
}

// PublicRelays returns the non-exclusive relays, ordered by ID.
func (s *Relays) PublicRelays() ([]api.Relay, error) {
	var relays []api.Relay
	for _, relay := range s.GetAll() {
		if !relay.Exclusive {
			relays = append(relays, relay.Relay)
		}
	}
	return relays, nil
}

// Len returns the number of cached relays.
func (s *Relays) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.cache)
}

// init loads the cache with items from the backing store.
func (s *Relays) init() error {
	s.logger.Info("Initializing.")

	// get all relays from backing store
	relays, err := s.store.GetAll()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store all relays to the cache
	for _, object := range relays {
		if relay, ok := object.(*Relay); ok {
			s.cache[relay.ID] = relay
		}
	}

	return nil
}

// NewRelays returns a new cached store of relays.
func NewRelays(manager store.Manager) (*Relays, error) {
	logger := logrus.WithField("component", "gatekeeper.store.relays")

	relays := &Relays{
		cache:  make(map[int64]*Relay),
		store:  manager.GetObjectStore(relayStoreName, Relay{}),
		logger: logger,
	}

	if err := relays.init(); err != nil {
		return nil, err
	}

	return relays, nil
}
