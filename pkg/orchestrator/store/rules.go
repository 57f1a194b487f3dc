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

// Rules is a cached persistent store of orchestration store rules.
type Rules struct {
	lock  sync.RWMutex
	cache map[string]*Rule
	store store.ObjectStore

	logger *logrus.Entry
}

// Create a rule.
func (s *Rules) Create(rule *Rule) error {
	s.logger.Infof("Creating: '%s'.", rule.Name)

	if rule.Version > ruleStructVersion {
		return fmt.Errorf("incompatible rule version %d, expected: %d",
			rule.Version, ruleStructVersion)
	}

	// persist to store
	if err := s.store.Create(rule.Name, rule); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store in cache
	s.cache[rule.Name] = rule
	return nil
}

// Update a rule.
func (s *Rules) Update(name string, mutator func(*Rule) *Rule) error {
	s.logger.Infof("Updating: '%s'.", name)

	// persist to store
	var rule *Rule
	err := s.store.Update(name, func(a any) any {
		rule = mutator(a.(*Rule))
		return rule
	})
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store in cache
	s.cache[name] = rule
	return nil
}

// Get a rule.
func (s *Rules) Get(name string) *Rule {
	s.logger.Debugf("Getting '%s'.", name)

	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cache[name]
}

// Delete a rule.
func (s *Rules) Delete(name string) (*Rule, error) {
	s.logger.Infof("Deleting: '%s'.", name)

	// delete from store
	if err := s.store.Delete(name); err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// delete from cache
	val := s.cache[name]
	delete(s.cache, name)
	return val, nil
}

// GetAll returns all rules in the cache, ordered by priority.
func (s *Rules) GetAll() []*Rule {
	s.logger.Debug("Getting all rules.")

	s.lock.RLock()
	defer s.lock.RUnlock()

	rules := make([]*Rule, 0, len(s.cache))
	for _, rule := range s.cache {
		rules = append(rules, rule)
	}

	sortRules(rules)
	return rules
}

// Lookup returns the rules of a consumer, ordered by priority.
// An empty service definition matches all services of the consumer.
// Rules bound to an interface match only if the interface is requested, or if no interface is requested.
func (s *Rules) Lookup(consumer *api.System, serviceDefinition string, interfaces []string) []api.StoreRule {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var matched []*Rule
	for _, rule := range s.cache {
		if !rule.Consumer.SameIdentity(consumer) {
			continue
		}
		if serviceDefinition != "" && !strings.EqualFold(rule.ServiceDefinition, serviceDefinition) {
			continue
		}
		if !matchesInterface(rule.ServiceInterface, interfaces) {
			continue
		}
		matched = append(matched, rule)
	}

	sortRules(matched)

	rules := make([]api.StoreRule, len(matched))
	for i, rule := range matched {
		rules[i] = rule.StoreRule
	}

	s.logger.Debugf("Found %d rules of '%s' for '%s'.", len(rules), consumer.Identity(), serviceDefinition)
	return rules
}

// Len returns the number of cached rules.
func (s *Rules) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.cache)
}

func matchesInterface(ruleInterface string, interfaces []string) bool {
	if ruleInterface == "" || len(interfaces) == 0 {
		return true
	}
	for _, i := range interfaces {
		if strings.EqualFold(i, ruleInterface) {
			return true
		}
	}
	return false
}

func sortRules(rules []*Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
}

// init loads the cache with items from the backing store.
func (s *Rules) init() error {
	s.logger.Info("Initializing.")

	// get all rules from backing store
	rules, err := s.store.GetAll()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// store all rules to the cache
	for _, object := range rules {
		if rule, ok := object.(*Rule); ok {
			s.cache[rule.Name] = rule
		}
	}

	return nil
}

// NewRules returns a new cached store of rules.
func NewRules(manager store.Manager) (*Rules, error) {
	logger := logrus.WithField("component", "orchestrator.store.rules")

	rules := &Rules{
		cache:  make(map[string]*Rule),
		store:  manager.GetObjectStore(ruleStoreName, Rule{}),
		logger: logger,
	}

	if err := rules.init(); err != nil {
		return nil, err
	}

	return rules, nil
}
