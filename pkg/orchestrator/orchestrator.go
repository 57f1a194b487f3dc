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

package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/metrics"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
)

// DefaultExpiringThreshold is the remaining validity below which a registration is reported as expiring.
const DefaultExpiringThreshold = 2 * time.Minute

// Orchestration paths.
const (
	PathExternal   = "external"
	PathInterCloud = "inter_cloud"
	PathStore      = "store"
	PathDynamic    = "dynamic"
)

// Resolver locates core services.
type Resolver interface {
	Resolve(service api.CoreService) (api.Endpoint, error)
}

// RegistryClient queries the Service Registry.
type RegistryClient interface {
	Query(endpoint api.Endpoint, form *api.ServiceQueryForm) (*api.ServiceQueryResult, error)
}

// RuleStore holds the orchestration store rules.
type RuleStore interface {
	// Lookup returns the rules of a consumer, ordered by priority.
	Lookup(consumer *api.System, serviceDefinition string, interfaces []string) []api.StoreRule
}

// Gatekeeper coordinates with neighbor clouds.
type Gatekeeper interface {
	// VerifyCloud returns true if the cloud is a known neighbor.
	VerifyCloud(cloud *api.Cloud) (bool, error)
	// GlobalServiceDiscovery returns the neighbor clouds providing a service.
	GlobalServiceDiscovery(form *api.ServiceQueryForm) (*api.GSDResult, error)
	// InterCloudNegotiate negotiates an orchestration with a neighbor cloud.
	// A negotiation with no usable relay fails with a NoMatch error.
	InterCloudNegotiate(request *api.ICNRequest) (*api.ICNResult, error)
}

// Config of an Orchestrator.
type Config struct {
	// Locator resolves the core services used by the orchestrator.
	Locator Resolver
	// Registry client.
	Registry RegistryClient
	// Rules of the orchestration store, the store path is skipped if unset.
	Rules RuleStore
	// QoS admission filter, required by the enableQoS flag.
	QoS *qos.Filter
	// Gatekeeper of the cloud, nil if the cloud has none.
	Gatekeeper Gatekeeper
	// Tokens issues authorization tokens, tokens are not issued if unset.
	Tokens TokenIssuer
	// ExpiringThreshold is the remaining validity below which a registration is reported as expiring.
	ExpiringThreshold time.Duration
	// Clock of the orchestrator, the real clock if unset.
	Clock clock.PassiveClock
}

// Orchestrator resolves service requests to ranked provider candidates.
type Orchestrator struct {
	locator    Resolver
	registry   RegistryClient
	rules      RuleStore
	qos        *qos.Filter
	gatekeeper Gatekeeper
	tokens     TokenIssuer

	expiringThreshold time.Duration
	clock             clock.PassiveClock

	logger *logrus.Entry
}

// HasGatekeeper returns true if the cloud has a Gatekeeper.
func (o *Orchestrator) HasGatekeeper() bool {
	return o.gatekeeper != nil
}

// Orchestrate validates the form and returns the ranked candidates for the requested service.
// The first matching path wins: external request, inter-cloud, store, dynamic.
// An empty response is a valid outcome.
func (o *Orchestrator) Orchestrate(form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	if err := Validate(form, o.HasGatekeeper()); err != nil {
		o.logger.Warnf("Invalid orchestration form: %v.", err)
		metrics.OrchestrationRequests.WithLabelValues("validation", metrics.OutcomeRejected).Inc()
		return nil, err
	}

	flags := form.OrchestrationFlags
	switch {
	case flags.Get(api.FlagExternalServiceRequest):
		return o.measure(PathExternal, form, o.externalServiceRequest)
	case flags.Get(api.FlagTriggerInterCloud):
		return o.measure(PathInterCloud, form, o.interCloud)
	}

	if !flags.Get(api.FlagOverrideStore) && o.rules != nil {
		response, err := o.measure(PathStore, form, o.fromStore)
		if err != nil || len(response.Response) > 0 {
			return response, err
		}
		o.logger.Debug("No usable store rule, falling back to dynamic orchestration.")
	}

	return o.measure(PathDynamic, form, o.dynamic)
}

func (o *Orchestrator) measure(path string, form *api.OrchestrationForm,
	handler func(*api.OrchestrationForm) (*api.OrchestrationResponse, error),
) (*api.OrchestrationResponse, error) {
	start := time.Now()
	logger := o.logger.WithFields(logrus.Fields{
		"path":      path,
		"requester": form.RequesterSystem.Identity(),
	})

	response, err := handler(form)
	metrics.OrchestrationDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		logger.Errorf("Orchestration failed: %v.", err)
		metrics.OrchestrationRequests.WithLabelValues(path, metrics.OutcomeFailure).Inc()
		return nil, err
	case len(response.Response) == 0:
		logger.Info("Orchestration returned no candidates.")
		metrics.OrchestrationRequests.WithLabelValues(path, metrics.OutcomeEmpty).Inc()
	default:
		logger.Infof("Orchestration returned %d candidates.", len(response.Response))
		metrics.OrchestrationRequests.WithLabelValues(path, metrics.OutcomeSuccess).Inc()
	}

	return response, nil
}

// externalServiceRequest answers a request of a neighbor cloud with providers of the local cloud.
func (o *Orchestrator) externalServiceRequest(form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	known, err := o.gatekeeper.VerifyCloud(form.RequesterCloud)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, api.BadRequest("requesterCloud",
			"cloud '%s' is not a known neighbor", form.RequesterCloud.Key())
	}

	local := *form
	local.OrchestrationFlags = form.OrchestrationFlags.Clone()
	local.OrchestrationFlags[api.FlagExternalServiceRequest] = false
	local.OrchestrationFlags[api.FlagTriggerInterCloud] = false
	local.OrchestrationFlags[api.FlagEnableInterCloud] = false
	local.OrchestrationFlags[api.FlagOverrideStore] = true

	return o.dynamic(&local)
}

// fromStore returns the candidates of the store rules of the requester.
// Local rules are usable only if their provider is still registered; foreign rules are negotiated
// through the Gatekeeper.
func (o *Orchestrator) fromStore(form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	var serviceDefinition string
	var interfaces []string
	if form.RequestedService != nil {
		serviceDefinition = form.RequestedService.ServiceDefinitionRequirement
		interfaces = form.RequestedService.InterfaceRequirements
	}

	rules := o.rules.Lookup(form.RequesterSystem, serviceDefinition, interfaces)
	if len(rules) == 0 {
		return &api.OrchestrationResponse{}, nil
	}

	registered := make(map[string][]api.ServiceRegistryEntry)
	var results []api.OrchestrationResult
	for i := range rules {
		rule := &rules[i]

		if rule.IsForeign() {
			result, err := o.fromForeignRule(form, rule)
			if err != nil {
				return nil, err
			}
			results = append(results, result...)
			continue
		}

		entries, ok := registered[strings.ToLower(rule.ServiceDefinition)]
		if !ok {
			queried, err := o.query(&api.ServiceQueryForm{ServiceDefinitionRequirement: rule.ServiceDefinition})
			if err != nil {
				return nil, err
			}
			entries = queried
			registered[strings.ToLower(rule.ServiceDefinition)] = entries
		}

		for j := range entries {
			entry := &entries[j]
			if !entry.Provider.SameIdentity(&rule.Provider) || !hasInterface(entry.Interfaces, rule.ServiceInterface) ||
				!hasAnyInterface(entry.Interfaces, interfaces) {
				continue
			}
			if result, ok := o.toResult(entry); ok {
				results = append(results, result)
			}
			break
		}
	}

	return o.finalize(form, results)
}

func (o *Orchestrator) fromForeignRule(form *api.OrchestrationForm, rule *api.StoreRule,
) ([]api.OrchestrationResult, error) {
	if o.gatekeeper == nil {
		o.logger.Warnf("Skipping rule '%s' of cloud '%s': no Gatekeeper.", rule.Name, rule.ProviderCloud.Key())
		return nil, nil
	}

	service := api.ServiceQueryForm{ServiceDefinitionRequirement: rule.ServiceDefinition}
	if rule.ServiceInterface != "" {
		service.InterfaceRequirements = []string{rule.ServiceInterface}
	}

	flags := form.OrchestrationFlags.Clone()
	flags[api.FlagOnlyPreferred] = true

	result, err := o.gatekeeper.InterCloudNegotiate(&api.ICNRequest{
		TargetCloud:      *rule.ProviderCloud,
		RequestedService: service,
		RequesterSystem:  *form.RequesterSystem,
		PreferredSystems: []api.System{rule.Provider},
		NegotiationFlags: flags,
		QoSRequirements:  form.QoSRequirements,
		Commands:         form.Commands,
	})
	if api.IsKind(err, api.KindNoMatch) {
		o.logger.Infof("Rule '%s': no match in cloud '%s': %v.", rule.Name, rule.ProviderCloud.Key(), err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []api.OrchestrationResult
	for i := range result.Response {
		if result.Response[i].Provider.SameIdentity(&rule.Provider) {
			candidate := result.Response[i]
			candidate.AddWarning(api.WarningFromOtherCloud)
			results = append(results, candidate)
		}
	}
	return results, nil
}

// dynamic returns the candidates registered in the local Service Registry.
func (o *Orchestrator) dynamic(form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	if form.RequestedService == nil {
		return &api.OrchestrationResponse{}, nil
	}

	flags := form.OrchestrationFlags
	query := *form.RequestedService
	query.PingProviders = flags.Get(api.FlagPingProviders)
	if !flags.Get(api.FlagMetadataSearch) {
		query.MetadataRequirements = nil
	}

	entries, err := o.query(&query)
	if err != nil {
		return nil, err
	}

	results := make([]api.OrchestrationResult, 0, len(entries))
	for i := range entries {
		if result, ok := o.toResult(&entries[i]); ok {
			results = append(results, result)
		}
	}

	response, err := o.finalize(form, results)
	if err != nil {
		return nil, err
	}

	if len(response.Response) == 0 && flags.Get(api.FlagEnableInterCloud) && o.gatekeeper != nil {
		o.logger.Info("No local candidates, continuing with inter-cloud orchestration.")
		return o.interCloud(form)
	}

	return response, nil
}

// finalize runs the QoS admission filter, applies the preferred providers and the matchmaking of local
// candidates, and issues authorization tokens.
func (o *Orchestrator) finalize(form *api.OrchestrationForm, results []api.OrchestrationResult,
) (*api.OrchestrationResponse, error) {
	flags := form.OrchestrationFlags

	if flags.Get(api.FlagEnableQoS) {
		if o.qos == nil {
			return nil, api.ConfigurationError("flag '%s' requires QoS support, which is not configured", api.FlagEnableQoS)
		}

		admitted, err := o.qos.FilterCandidates(form.RequesterSystem, results, form.QoSRequirements, form.Commands)
		if err != nil {
			return nil, err
		}
		results = admitted
	}

	results = applyPreferred(results, form.PreferredProviders, flags.Get(api.FlagOnlyPreferred))

	if flags.Get(api.FlagMatchmaking) && len(results) > 1 {
		results = results[:1]
	}

	if flags.Get(api.FlagEnableQoS) && flags.Get(api.FlagMatchmaking) && len(results) == 1 {
		exclusivity, err := qos.ExclusivityTime(form.Commands)
		if err != nil {
			return nil, err
		}
		if exclusivity != nil {
			if err := o.qos.Reserve(form.RequesterSystem, &results[0], *exclusivity); err != nil {
				return nil, err
			}
		}
	}

	if err := o.issueTokens(form.RequesterSystem, results); err != nil {
		return nil, err
	}

	return &api.OrchestrationResponse{Response: results}, nil
}

// interCloud negotiates the requested service with neighbor clouds, stopping at the first cloud
// returning candidates. Clouds of preferred providers are tried first, others are discovered.
func (o *Orchestrator) interCloud(form *api.OrchestrationForm) (*api.OrchestrationResponse, error) {
	if form.RequestedService == nil {
		return &api.OrchestrationResponse{}, nil
	}

	targets := foreignPreferred(form.PreferredProviders)
	if len(targets) == 0 && !form.OrchestrationFlags.Get(api.FlagOnlyPreferred) {
		discovered, err := o.gatekeeper.GlobalServiceDiscovery(form.RequestedService)
		if err != nil {
			return nil, err
		}
		for i := range discovered.Results {
			targets = append(targets, preferredCloud{cloud: discovered.Results[i].ProviderCloud})
		}
	}

	flags := form.OrchestrationFlags.Clone()
	flags[api.FlagTriggerInterCloud] = false
	flags[api.FlagEnableInterCloud] = false

	for i := range targets {
		cloud := &targets[i].cloud
		logger := o.logger.WithField("cloud", cloud.Key())

		result, err := o.gatekeeper.InterCloudNegotiate(&api.ICNRequest{
			TargetCloud:      *cloud,
			RequestedService: *form.RequestedService,
			RequesterSystem:  *form.RequesterSystem,
			PreferredSystems: targets[i].systems,
			NegotiationFlags: flags,
			QoSRequirements:  form.QoSRequirements,
			Commands:         form.Commands,
		})
		if api.IsKind(err, api.KindNoMatch) {
			logger.Infof("No match: %v.", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("negotiation with cloud '%s' failed: %w", cloud.Key(), err)
		}

		if len(result.Response) == 0 {
			logger.Debug("No candidates.")
			continue
		}

		results := make([]api.OrchestrationResult, len(result.Response))
		for j := range result.Response {
			results[j] = result.Response[j]
			results[j].AddWarning(api.WarningFromOtherCloud)
		}
		if flags.Get(api.FlagMatchmaking) {
			results = results[:1]
		}

		logger.Infof("Negotiated %d candidates.", len(results))
		return &api.OrchestrationResponse{Response: results}, nil
	}

	return &api.OrchestrationResponse{}, nil
}

func (o *Orchestrator) query(form *api.ServiceQueryForm) ([]api.ServiceRegistryEntry, error) {
	endpoint, err := o.locator.Resolve(api.ServiceRegistryQuery)
	if err != nil {
		return nil, err
	}

	result, err := o.registry.Query(endpoint, form)
	if err != nil {
		return nil, fmt.Errorf("unable to query the Service Registry: %w", err)
	}
	return result.ServiceQueryData, nil
}

// toResult converts a registration to a candidate, false if the registration has expired.
func (o *Orchestrator) toResult(entry *api.ServiceRegistryEntry) (api.OrchestrationResult, bool) {
	result := api.OrchestrationResult{
		Provider:   entry.Provider,
		Service:    entry.ServiceDefinition,
		ServiceURI: entry.ServiceURI,
		Secure:     entry.Secure,
		Metadata:   entry.Metadata,
		Interfaces: entry.Interfaces,
		Version:    entry.Version,
	}

	switch {
	case entry.EndOfValidity == nil:
		result.AddWarning(api.WarningTTLUnknown)
	case !entry.EndOfValidity.After(o.clock.Now()):
		o.logger.Debugf("Dropping expired registration %d of '%s'.", entry.ID, entry.Provider.Identity())
		return result, false
	case entry.EndOfValidity.Sub(o.clock.Now()) < o.expiringThreshold:
		result.AddWarning(api.WarningTTLExpiring)
	}

	return result, true
}

func (o *Orchestrator) issueTokens(consumer *api.System, results []api.OrchestrationResult) error {
	if o.tokens == nil {
		return nil
	}

	for i := range results {
		if results[i].Secure != api.SecureToken || results[i].HasWarning(api.WarningFromOtherCloud) {
			continue
		}

		tokens, err := o.tokens.Issue(consumer, &results[i])
		if err != nil {
			return err
		}
		results[i].AuthorizationTokens = tokens
	}
	return nil
}

func hasInterface(interfaces []api.Interface, name string) bool {
	if name == "" {
		return true
	}
	for _, i := range interfaces {
		if strings.EqualFold(i.InterfaceName, name) {
			return true
		}
	}
	return false
}

// hasAnyInterface is true if no names are given or one of them is offered.
func hasAnyInterface(interfaces []api.Interface, names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if name != "" && hasInterface(interfaces, name) {
			return true
		}
	}
	return false
}

// applyPreferred restricts the candidates to the local preferred providers if onlyPreferred is set,
// otherwise ranks them first. Relative order is kept.
func applyPreferred(results []api.OrchestrationResult, providers []api.PreferredProvider, onlyPreferred bool,
) []api.OrchestrationResult {
	var local []*api.System
	for _, provider := range ValidPreferredProviders(providers) {
		if provider.IsLocal() && provider.ProviderSystem != nil {
			local = append(local, provider.ProviderSystem)
		}
	}

	if len(local) == 0 && !onlyPreferred {
		return results
	}

	isPreferred := func(result *api.OrchestrationResult) bool {
		for _, system := range local {
			if system.SameIdentity(&result.Provider) {
				return true
			}
		}
		return false
	}

	preferred := make([]api.OrchestrationResult, 0, len(results))
	var others []api.OrchestrationResult
	for i := range results {
		if isPreferred(&results[i]) {
			preferred = append(preferred, results[i])
		} else {
			others = append(others, results[i])
		}
	}

	if onlyPreferred {
		return preferred
	}
	return append(preferred, others...)
}

type preferredCloud struct {
	cloud   api.Cloud
	systems []api.System
}

// foreignPreferred groups the preferred providers of neighbor clouds by cloud, in order of appearance.
func foreignPreferred(providers []api.PreferredProvider) []preferredCloud {
	var clouds []preferredCloud
	index := make(map[string]int)
	for _, provider := range ValidPreferredProviders(providers) {
		if provider.IsLocal() {
			continue
		}

		key := provider.ProviderCloud.Key()
		i, ok := index[key]
		if !ok {
			i = len(clouds)
			index[key] = i
			clouds = append(clouds, preferredCloud{cloud: *provider.ProviderCloud})
		}
		if provider.ProviderSystem != nil {
			clouds[i].systems = append(clouds[i].systems, *provider.ProviderSystem)
		}
	}
	return clouds
}

// NewOrchestrator returns a new orchestrator.
func NewOrchestrator(config *Config) *Orchestrator {
	o := &Orchestrator{
		locator:           config.Locator,
		registry:          config.Registry,
		rules:             config.Rules,
		qos:               config.QoS,
		gatekeeper:        config.Gatekeeper,
		tokens:            config.Tokens,
		expiringThreshold: config.ExpiringThreshold,
		clock:             config.Clock,
		logger:            logrus.WithField("component", "orchestrator"),
	}

	if o.expiringThreshold == 0 {
		o.expiringThreshold = DefaultExpiringThreshold
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}

	return o
}
