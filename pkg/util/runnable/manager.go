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

package runnable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Instance is a long-running component: a server or a background worker.
type Instance interface {
	Name() string
	// Start blocks until the instance stops.
	Start() error
	Stop() error
	GracefulStop() error
}

// Server is an instance bound to a listen address before it starts.
type Server interface {
	Instance
	Listen(address string) error
	Close() error
}

type serverBinding struct {
	server  Server
	address string
}

// Manager runs a set of instances together.
// The first instance to fail stops all the others.
type Manager struct {
	lock sync.Mutex

	instances []Instance
	servers   []serverBinding
	exited    int

	logger *logrus.Entry
}

// AddServer adds a server listening on the given address.
func (m *Manager) AddServer(listenAddress string, server Server) {
	m.Add(server)
	m.servers = append(m.servers, serverBinding{server: server, address: listenAddress})
}

// Add an instance.
func (m *Manager) Add(instance Instance) {
	m.instances = append(m.instances, instance)
}

// Run binds all servers, then starts every instance and blocks until all of them stopped.
// It returns the errors of all failed instances.
func (m *Manager) Run() error {
	defer m.closeServers()

	for _, binding := range m.servers {
		if err := binding.server.Listen(binding.address); err != nil {
			return fmt.Errorf("unable to listen on %s for server '%s': %w",
				binding.address, binding.server.Name(), err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())
	errs := make([]error, len(m.instances))

	for i, instance := range m.instances {
		g.Go(func() error {
			m.logger.Infof("Starting '%s'.", instance.Name())
			err := instance.Start()
			m.logger.Infof("'%s' exited: %v.", instance.Name(), err)

			m.lock.Lock()
			m.exited++
			m.lock.Unlock()

			if err != nil {
				errs[i] = fmt.Errorf("error running '%s': %w", instance.Name(), err)
			}
			return err
		})
	}

	// the group context is canceled by the first failure, or once all instances exited
	go func() {
		<-ctx.Done()

		m.lock.Lock()
		pending := m.exited < len(m.instances)
		m.lock.Unlock()

		if !pending {
			return
		}
		if err := m.Stop(); err != nil {
			m.logger.Warnf("Error stopping: %v.", err)
		}
	}()

	if err := g.Wait(); err != nil {
		m.logger.Errorf("Stopped after a failure: %v.", err)
	}
	return errors.Join(errs...)
}

func (m *Manager) closeServers() {
	for _, binding := range m.servers {
		if err := binding.server.Close(); err != nil {
			m.logger.Warnf("Error closing server '%s': %v.", binding.server.Name(), err)
		}
	}
}

// Stop all instances.
func (m *Manager) Stop() error {
	m.logger.Info("Stopping.")
	return m.each("stop", Instance.Stop)
}

// GracefulStop gracefully stops all instances.
func (m *Manager) GracefulStop() error {
	m.logger.Info("Gracefully stopping.")
	return m.each("gracefully stop", Instance.GracefulStop)
}

func (m *Manager) each(action string, fn func(Instance) error) error {
	var errs []error
	for _, instance := range m.instances {
		if err := fn(instance); err != nil {
			errs = append(errs, fmt.Errorf("unable to %s '%s': %w", action, instance.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// StopOnSignal gracefully stops all instances once one of the given signals is received.
func (m *Manager) StopOnSignal(signals ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	go func() {
		sig := <-ch
		signal.Stop(ch)

		m.logger.Infof("Received signal %v.", sig)
		if err := m.GracefulStop(); err != nil {
			m.logger.Warnf("Error stopping: %v.", err)
		}
	}()
}

// NewManager returns a new empty manager.
func NewManager() *Manager {
	return &Manager{
		logger: logrus.WithField("component", "util.runnable"),
	}
}
