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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/store"
)

// Reservations is a cached persistent store of QoS reservations, keyed by reserved provider service.
type Reservations struct {
	lock  sync.RWMutex
	cache map[string]*Reservation
	store store.ObjectStore

	logger *logrus.Entry
}

// Reserve adds a reservation, replacing an existing reservation of the same provider service.
func (s *Reservations) Reserve(reservation *api.QoSReservation) error {
	key := reservation.Key()
	s.logger.Infof("Reserving: '%s'.", key)

	value := NewReservation(reservation)

	// persist to store
	err := s.store.Create(key, value)
	var existsErr *store.ObjectExistsError
	if errors.As(err, &existsErr) {
		err = s.store.Update(key, func(any) any {
			return value
		})
	}
	if err != nil {
		return fmt.Errorf("unable to persist reservation: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store in cache
	s.cache[key] = value
	return nil
}

// Release removes the reservation of a provider service. Releasing a missing reservation is a no-op.
func (s *Reservations) Release(key string) error {
	_, err := s.Delete(key)
	var notFoundErr *store.ObjectNotFoundError
	if errors.As(err, &notFoundErr) {
		return nil
	}
	return err
}

// Reservations returns all reservations, including expired ones.
func (s *Reservations) Reservations() ([]api.QoSReservation, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	reservations := make([]api.QoSReservation, 0, len(s.cache))
	for _, reservation := range s.cache {
		reservations = append(reservations, reservation.QoSReservation)
	}
	return reservations, nil
}

// Get a reservation.
func (s *Reservations) Get(key string) *Reservation {
	s.logger.Debugf("Getting '%s'.", key)

	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cache[key]
}

// Delete a reservation.
func (s *Reservations) Delete(key string) (*Reservation, error) {
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

// GetAll returns all reservations in the cache.
func (s *Reservations) GetAll() []*Reservation {
	s.logger.Debug("Getting all reservations.")

	s.lock.RLock()
	defer s.lock.RUnlock()

	reservations := make([]*Reservation, 0, len(s.cache))
	for _, reservation := range s.cache {
		reservations = append(reservations, reservation)
	}
	return reservations
}

// Expire deletes the reservations which ended before now and returns their number.
func (s *Reservations) Expire(now time.Time) (int, error) {
	var expired []string
	s.lock.RLock()
	for key, reservation := range s.cache {
		if !reservation.ReservedTo.After(now) {
			expired = append(expired, key)
		}
	}
	s.lock.RUnlock()

	for _, key := range expired {
		if err := s.Release(key); err != nil {
			return 0, err
		}
	}

	if len(expired) > 0 {
		s.logger.Infof("Expired %d reservations.", len(expired))
	}
	return len(expired), nil
}

// Len returns the number of cached reservations.
func (s *Reservations) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.cache)
}

// init loads the cache with items from the backing store.
func (s *Reservations) init() error {
	s.logger.Info("Initializing.")

	// get all reservations from backing store
	reservations, err := s.store.GetAll()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store all reservations to the cache
	for _, object := range reservations {
		if reservation, ok := object.(*Reservation); ok {
			s.cache[reservation.Key()] = reservation
		}
	}

	return nil
}

// NewReservations returns a new cached store of reservations.
func NewReservations(manager store.Manager) (*Reservations, error) {
	logger := logrus.WithField("component", "orchestrator.store.reservations")

	reservations := &Reservations{
		cache:  make(map[string]*Reservation),
		store:  manager.GetObjectStore(reservationStoreName, Reservation{}),
		logger: logger,
	}

	if err := reservations.init(); err != nil {
		return nil, err
	}

	return reservations, nil
}
