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

package qos

import (
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
)

type cachedMeasurement struct {
	measurement *api.PingMeasurement
	cachedAt    time.Time
}

// measuredAt returns the time of the sample, or the time it was cached if unknown.
func (c *cachedMeasurement) measuredAt() time.Time {
	if c.measurement.LastAccessAt.IsZero() {
		return c.cachedAt
	}
	return c.measurement.LastAccessAt
}

// PingCache is a concurrent cache of provider ping measurements.
// Stale entries are removed and refetched from the monitor on read, with concurrent
// refetches of the same provider collapsed into a single monitor request.
// Only measurements with a record of an available provider are cached.
type PingCache struct {
	monitor PingMonitor

	lock    sync.RWMutex
	entries map[int64]*cachedMeasurement
	fetches singleflight.Group

	logger *logrus.Entry
}

// Get returns the measurement of a provider, no older than maxAge.
func (c *PingCache) Get(systemID int64, maxAge time.Duration, now time.Time) (*api.PingMeasurement, error) {
	c.lock.RLock()
	entry, ok := c.entries[systemID]
	c.lock.RUnlock()

	if ok && now.Sub(entry.measuredAt()) <= maxAge {
		return entry.measurement, nil
	}

	if ok {
		c.logger.Debugf("Measurement of system %d is stale.", systemID)
		c.remove(systemID, entry)
	}

	value, err, _ := c.fetches.Do(strconv.FormatInt(systemID, 10), func() (any, error) {
		measurement, err := c.monitor.GetPingMeasurement(systemID)
		if err != nil {
			metrics.PingCacheRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
			return nil, err
		}

		if measurement != nil && measurement.HasRecord && measurement.Available {
			c.lock.Lock()
			c.entries[systemID] = &cachedMeasurement{measurement: measurement, cachedAt: now}
			c.lock.Unlock()
			metrics.PingCacheRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()
		} else {
			metrics.PingCacheRefreshes.WithLabelValues(metrics.OutcomeEmpty).Inc()
		}

		return measurement, nil
	})
	if err != nil {
		return nil, api.Unavailable(err, "unable to get ping measurement of system %d", systemID)
	}

	measurement, _ := value.(*api.PingMeasurement)
	return measurement, nil
}

// remove deletes the entry of a provider, unless it was already replaced.
func (c *PingCache) remove(systemID int64, entry *cachedMeasurement) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.entries[systemID] == entry {
		delete(c.entries, systemID)
	}
}

// Len returns the number of cached measurements.
func (c *PingCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}

// Reset drops all cached measurements.
func (c *PingCache) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries = make(map[int64]*cachedMeasurement)
}

// NewPingCache returns an empty cache over the given monitor.
func NewPingCache(monitor PingMonitor) *PingCache {
	return &PingCache{
		monitor: monitor,
		entries: make(map[int64]*cachedMeasurement),
		logger:  logrus.WithField("component", "qos.ping-cache"),
	}
}
