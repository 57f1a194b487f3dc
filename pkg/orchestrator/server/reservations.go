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

package server

import (
	"encoding/json"
	"fmt"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/store"
)

type reservationHandler struct {
	reservations *store.Reservations
}

// Decode a reservation.
func (h *reservationHandler) Decode(data []byte) (any, error) {
	var reservation api.QoSReservation
	if err := json.Unmarshal(data, &reservation); err != nil {
		return nil, fmt.Errorf("cannot decode reservation: %w", err)
	}

	switch {
	case reservation.ServiceDefinition == "":
		return nil, fmt.Errorf("reservation missing service definition")
	case reservation.Provider.SystemName == "":
		return nil, fmt.Errorf("reservation missing provider")
	case reservation.Consumer.SystemName == "":
		return nil, fmt.Errorf("reservation missing consumer")
	case reservation.ReservedTo.IsZero():
		return nil, fmt.Errorf("reservation missing end of lease")
	}

	return &reservation, nil
}

// Create a reservation.
func (h *reservationHandler) Create(object any) error {
	return h.reservations.Reserve(object.(*api.QoSReservation))
}

// Update a reservation.
func (h *reservationHandler) Update(object any) error {
	return h.reservations.Reserve(object.(*api.QoSReservation))
}

// Get a reservation.
func (h *reservationHandler) Get(key string) (any, error) {
	reservation := h.reservations.Get(key)
	if reservation == nil {
		return nil, nil
	}
	return &reservation.QoSReservation, nil
}

// Delete a reservation.
func (h *reservationHandler) Delete(key string) (any, error) {
	return h.reservations.Delete(key)
}

// List all reservations.
func (h *reservationHandler) List() (any, error) {
	return h.reservations.Reservations()
}
