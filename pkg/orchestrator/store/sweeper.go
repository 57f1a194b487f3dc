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
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// DefaultSweepInterval is the default interval between expired reservation sweeps.
const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically releases expired reservations.
// It is run as a runnable next to the orchestrator server.
type Sweeper struct {
	reservations *Reservations
	interval     time.Duration
	clock        clock.WithTicker

	stop     chan struct{}
	stopOnce sync.Once

	logger *logrus.Entry
}

// Name of the sweeper.
func (s *Sweeper) Name() string {
	return "reservation-sweeper"
}

// Start sweeping until stopped.
func (s *Sweeper) Start() error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return nil
		case <-ticker.C():
			if _, err := s.reservations.Expire(s.clock.Now()); err != nil {
				s.logger.Warnf("Cannot expire reservations: %v.", err)
			}
		}
	}
}

// Stop sweeping.
func (s *Sweeper) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// GracefulStop stops sweeping.
func (s *Sweeper) GracefulStop() error {
	return s.Stop()
}

// NewSweeper returns a new sweeper of expired reservations.
// A nil clock selects the real clock.
func NewSweeper(reservations *Reservations, interval time.Duration, clk clock.WithTicker) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Sweeper{
		reservations: reservations,
		interval:     interval,
		clock:        clk,
		stop:         make(chan struct{}),
		logger:       logrus.WithField("component", "orchestrator.store.sweeper"),
	}
}
