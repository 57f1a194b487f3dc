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
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
)

// Tier is a resolution strategy.
type Tier int

const (
	// TierCache probes the cached endpoint.
	TierCache Tier = iota
	// TierOrchestrator asks the orchestrator for providers of the service.
	TierOrchestrator
	// TierRegistry queries the Service Registry for providers of the service.
	TierRegistry
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierCache:
		return "cache"
	case TierOrchestrator:
		return "orchestrator"
	case TierRegistry:
		return "registry"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

var (
	errNotCached   = errors.New("not cached")
	errUnreachable = errors.New("no reachable candidate")
)

// ExhaustedError is returned when all tiers failed to resolve a service.
type ExhaustedError struct {
	// Service which could not be resolved.
	Service string
	// LastTier is the last tier attempted.
	LastTier Tier
	// Err is the failure of the last tier.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("unable to resolve '%s', last tier '%s' failed: %v", e.Service, e.LastTier, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// OrchestrationClient issues orchestration requests.
type OrchestrationClient interface {
	Orchestrate(endpoint api.Endpoint, form *api.OrchestrationForm) (*api.OrchestrationResponse, error)
}

// RegistryClient queries the Service Registry.
type RegistryClient interface {
	Query(endpoint api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error)
}

// Config of a Locator.
type Config struct {
	// Requester is the identity of the system using the locator.
	Requester api.System
	// RegistryEndpoint is the (static) base endpoint of the Service Registry.
	RegistryEndpoint api.Endpoint
	// Cache of resolved endpoints, a new cache if unset.
	Cache *Cache
	// Prober checks endpoint liveness, an HTTP prober if unset.
	Prober Prober
	// Orchestrator client used by the orchestrator-brokered tier, the tier is skipped if unset.
	Orchestrator OrchestrationClient
	// Registry client used by the registry tier.
	Registry RegistryClient
}

// Locator resolves core services to live endpoints.
type Locator struct {
	requester        api.System
	registryEndpoint api.Endpoint

	cache        *Cache
	prober       Prober
	orchestrator OrchestrationClient
	registry     RegistryClient

	logger *logrus.Entry
}

// tierResult is the outcome of a single tier.
type tierResult struct {
	endpoint api.Endpoint
	err      error
}

func found(endpoint api.Endpoint) tierResult {
	return tierResult{endpoint: endpoint}
}

func failed(err error) tierResult {
	return tierResult{err: err}
}

// Cache returns the cache of resolved endpoints.
func (l *Locator) Cache() *Cache {
	return l.cache
}

// Resolve returns a live endpoint of the service.
// Tiers are attempted in order: cache, orchestrator, registry.
// Failing tiers are logged and skipped; if all tiers fail, an Unavailable error
// wrapping an *ExhaustedError is returned.
// Service Registry services resolve to the static registry endpoint.
func (l *Locator) Resolve(service api.CoreService) (api.Endpoint, error) {
	if service.System == api.SystemServiceRegistry {
		if l.registryEndpoint.IsZero() {
			return api.Endpoint{}, api.ConfigurationError("no Service Registry endpoint is configured")
		}
		return l.registryEndpoint.WithPath(service.URI), nil
	}

	tiers := []Tier{TierCache, TierOrchestrator, TierRegistry}
	if service.Definition == api.Orchestration.Definition || l.orchestrator == nil {
		// the orchestrator cannot broker its own resolution
		tiers = []Tier{TierCache, TierRegistry}
	}

	return l.resolve(service, tiers)
}

func (l *Locator) resolve(service api.CoreService, tiers []Tier) (api.Endpoint, error) {
	logger := l.logger.WithField("service", service.Definition)

	var last tierResult
	var lastTier Tier
	for _, tier := range tiers {
		switch tier {
		case TierCache:
			last = l.fromCache(service)
		case TierOrchestrator:
			last = l.fromOrchestrator(service)
		case TierRegistry:
			last = l.fromRegistry(service)
		}
		lastTier = tier

		if last.err == nil {
			logger.Debugf("Resolved by tier '%s': %s.", tier, last.endpoint.String())
			metrics.LocatorResolutions.WithLabelValues(service.Definition, tier.String(), metrics.OutcomeSuccess).Inc()
			return last.endpoint, nil
		}

		logger.Debugf("Tier '%s' failed: %v.", tier, last.err)
		metrics.LocatorResolutions.WithLabelValues(service.Definition, tier.String(), metrics.OutcomeFailure).Inc()
	}

	logger.Warnf("Unable to resolve service, all tiers failed.")
	return api.Endpoint{}, api.Unavailable(&ExhaustedError{
		Service:  service.Definition,
		LastTier: lastTier,
		Err:      last.err,
	}, "service '%s' is unavailable", service.Definition)
}

// fromCache returns the cached endpoint if it is alive. Dead entries are kept.
func (l *Locator) fromCache(service api.CoreService) tierResult {
	endpoint, ok := l.cache.Get(service)
	if !ok {
		return failed(errNotCached)
	}

	if !l.probe(service, endpoint) {
		return failed(fmt.Errorf("cached endpoint %s: %w", endpoint.String(), errUnreachable))
	}
	return found(endpoint)
}

// fromOrchestrator asks the orchestrator for providers of the service and overwrites the cache
// with the first live candidate.
func (l *Locator) fromOrchestrator(service api.CoreService) tierResult {
	orchestrator, err := l.resolve(api.Orchestration, []Tier{TierCache, TierRegistry})
	if err != nil {
		return failed(fmt.Errorf("unable to resolve the orchestrator: %w", err))
	}

	response, err := l.orchestrator.Orchestrate(orchestrator, &api.OrchestrationForm{
		RequesterSystem:  &l.requester,
		RequestedService: &api.ServiceQueryForm{ServiceDefinitionRequirement: service.Definition},
		OrchestrationFlags: api.OrchestrationFlags{
			api.FlagOverrideStore: true,
		},
	})
	if err != nil {
		return failed(err)
	}

	for i := range response.Response {
		endpoint := response.Response[i].Endpoint()
		if l.probe(service, endpoint) {
			l.cache.Store(service, endpoint)
			return found(endpoint)
		}
	}

	return failed(fmt.Errorf("%d orchestration candidates: %w", len(response.Response), errUnreachable))
}

// fromRegistry queries the Service Registry for providers of the service, most recently
// registered first, and caches the first live one unless an entry exists.
func (l *Locator) fromRegistry(service api.CoreService) tierResult {
	if l.registry == nil {
		return failed(errors.New("no registry client"))
	}

	registry, err := l.Resolve(api.ServiceRegistryQuery)
	if err != nil {
		return failed(err)
	}

	result, err := l.registry.Query(registry, &api.ServiceQueryForm{
		ServiceDefinitionRequirement: service.Definition,
	})
	if err != nil {
		return failed(err)
	}

	entries := append([]api.ServiceRegistryEntry(nil), result.ServiceQueryData...)
	sortByRegistration(entries)

	for i := range entries {
		endpoint := api.Endpoint{
			Scheme: api.SchemeFor(entries[i].Secure),
			Host:   entries[i].Provider.Address,
			Port:   entries[i].Provider.Port,
			Path:   entries[i].ServiceURI,
		}

		if l.probe(service, endpoint) {
			if !l.cache.StoreIfAbsent(service, endpoint) {
				l.logger.WithField("service", service.Definition).
					Debug("Cache entry exists, keeping it.")
			}
			return found(endpoint)
		}
	}

	return failed(fmt.Errorf("%d registry entries: %w", len(entries), errUnreachable))
}

func (l *Locator) probe(service api.CoreService, endpoint api.Endpoint) bool {
	return l.prober.Probe(endpoint.WithPath(service.System.EchoPath()))
}

// sortByRegistration orders entries from the most recently registered to the least.
func sortByRegistration(entries []api.ServiceRegistryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].CreatedAt, entries[j].CreatedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return entries[i].ID > entries[j].ID
	})
}

// NewLocator returns a new locator.
func NewLocator(config *Config) *Locator {
	l := &Locator{
		requester:        config.Requester,
		registryEndpoint: config.RegistryEndpoint,
		cache:            config.Cache,
		prober:           config.Prober,
		orchestrator:     config.Orchestrator,
		registry:         config.Registry,
		logger:           logrus.WithField("component", "locator"),
	}

	if l.cache == nil {
		l.cache = NewCache()
	}
	if l.prober == nil {
		l.prober = NewHTTPProber(nil)
	}

	return l
}
