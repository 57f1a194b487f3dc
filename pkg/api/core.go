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

package api

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// CoreSystem names a core system of a cloud.
type CoreSystem string

const (
	// SystemServiceRegistry holds the registered provider endpoints.
	SystemServiceRegistry CoreSystem = "serviceregistry"
	// SystemOrchestrator resolves service requests to providers.
	SystemOrchestrator CoreSystem = "orchestrator"
	// SystemGatekeeper negotiates inter-cloud orchestration.
	SystemGatekeeper CoreSystem = "gatekeeper"
	// SystemQoSMonitor measures the network health of providers.
	SystemQoSMonitor CoreSystem = "qosmonitor"
)

// EchoPath returns the liveness probe path of the core system.
func (s CoreSystem) EchoPath() string {
	return "/" + string(s) + "/echo"
}

// CoreService is a logical service offered by a core system.
// It identifies a capability, not a network location.
type CoreService struct {
	// Definition is the service definition the service is registered under.
	Definition string
	// System is the core system providing the service.
	System CoreSystem
	// URI is the path of the service on the provider.
	URI string
}

// String returns the service definition.
func (s CoreService) String() string {
	return s.Definition
}

// Core services used by the core systems to find each other.
var (
	ServiceRegistryRegister = CoreService{
		Definition: "service-register", System: SystemServiceRegistry, URI: "/serviceregistry/register"}
	ServiceRegistryUnregister = CoreService{
		Definition: "service-unregister", System: SystemServiceRegistry, URI: "/serviceregistry/unregister"}
	ServiceRegistryQuery = CoreService{
		Definition: "service-query", System: SystemServiceRegistry, URI: "/serviceregistry/query"}

	Orchestration = CoreService{
		Definition: "orchestration-service", System: SystemOrchestrator, URI: "/orchestrator/orchestration"}

	GatekeeperGlobalServiceDiscovery = CoreService{
		Definition: "global-service-discovery", System: SystemGatekeeper, URI: "/gatekeeper/init_gsd"}
	GatekeeperInterCloudNegotiation = CoreService{
		Definition: "inter-cloud-negotiation", System: SystemGatekeeper, URI: "/gatekeeper/init_icn"}
	GatekeeperVerifyCloud = CoreService{
		Definition: "gatekeeper-verify-cloud", System: SystemGatekeeper, URI: "/gatekeeper/verify_cloud"}
	GatekeeperPublicRelays = CoreService{
		Definition: "gatekeeper-public-relays", System: SystemGatekeeper, URI: "/gatekeeper/relays/public"}

	QoSMonitorPingMeasurement = CoreService{
		Definition: "qos-monitor-ping-measurement", System: SystemQoSMonitor, URI: "/qosmonitor/measurements/intracloud/ping"}
)

// CoreServices lists all known core services.
var CoreServices = []CoreService{
	ServiceRegistryRegister,
	ServiceRegistryUnregister,
	ServiceRegistryQuery,
	Orchestration,
	GatekeeperGlobalServiceDiscovery,
	GatekeeperInterCloudNegotiation,
	GatekeeperVerifyCloud,
	GatekeeperPublicRelays,
	QoSMonitorPingMeasurement,
}

// LookupCoreService returns the core service with the given definition.
func LookupCoreService(definition string) (CoreService, bool) {
	for _, s := range CoreServices {
		if strings.EqualFold(s.Definition, definition) {
			return s, true
		}
	}
	return CoreService{}, false
}

// Endpoint is a concrete network location of a service.
type Endpoint struct {
	// Scheme is either http or https.
	Scheme string `json:"scheme"`
	// Host (IP/DNS).
	Host string `json:"host"`
	// Port of the endpoint.
	Port int `json:"port"`
	// Path of the service on the host.
	Path string `json:"path,omitempty"`
}

// Base returns the URL of the endpoint host, without the path.
func (e Endpoint) Base() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String returns the full URL of the endpoint.
func (e Endpoint) String() string {
	return e.Base() + e.Path
}

// WithPath returns a copy of the endpoint with the given path.
func (e Endpoint) WithPath(path string) Endpoint {
	e.Path = path
	return e
}

// IsZero returns true for an unset endpoint.
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// SchemeFor returns the URL scheme used for a service with the given security type.
func SchemeFor(secure string) string {
	if secure == "" || secure == SecureNone {
		return "http"
	}
	return "https"
}

// ValidPort returns true for a port in the valid TCP range.
func ValidPort(port int) bool {
	return port > 0 && port <= 65535
}

// SplitHostPort splits a host:port address.
func SplitHostPort(address string) (string, int, error) {
	host, portString, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.Atoi(portString)
	if err != nil || !ValidPort(port) {
		return "", 0, fmt.Errorf("invalid port '%s'", portString)
	}
	return host, port, nil
}
