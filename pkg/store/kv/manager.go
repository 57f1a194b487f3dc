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

package kv

import (
	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/store"
)

// Manager persists the object stores of a binary in a single KV store.
// Each object store owns the keys under its name.
type Manager struct {
	store Store

	logger *logrus.Entry
}

// GetObjectStore returns the object store of the given name, decoding objects into the type of sampleObject.
func (m *Manager) GetObjectStore(name string, sampleObject any) store.ObjectStore {
	m.logger.Debugf("Opening object store '%s'.", name)
	return NewObjectStore(name, m.store, sampleObject)
}

// Close the underlying KV store.
func (m *Manager) Close() error {
	m.logger.Info("Closing.")
	return m.store.Close()
}

// NewManager returns a manager of object stores persisted in s.
func NewManager(s Store) *Manager {
	return &Manager{
		store:  s,
		logger: logrus.WithField("component", "store.kv.manager"),
	}
}
