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

// Package config loads the configuration of the core systems from defaults,
// an optional YAML file, AH_ prefixed environment variables and command line flags.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
	"github.com/clusterlink-net/arrowhead/pkg/relay"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys.
const EnvPrefix = "AH"

// Default server addresses.
const (
	OrchestratorAddress = "0.0.0.0:8441"
	GatekeeperAddress   = "0.0.0.0:8449"
)

// Config of a core system.
type Config struct {
	Log             LogConfig             `mapstructure:"log"`
	Server          ServerConfig          `mapstructure:"server"`
	System          SystemConfig          `mapstructure:"system"`
	Store           StoreConfig           `mapstructure:"store"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"serviceRegistry"`
	Gatekeeper      GatekeeperConfig      `mapstructure:"gatekeeper"`
	QoSMonitor      QoSMonitorConfig      `mapstructure:"qosMonitor"`
	Locator         LocatorConfig         `mapstructure:"locator"`
	QoS             QoSConfig             `mapstructure:"qos"`
	Orchestrator    OrchestratorConfig    `mapstructure:"orchestrator"`
	Relay           RelayConfig           `mapstructure:"relay"`
}

// LogConfig of the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ServerConfig of the HTTP server.
type ServerConfig struct {
	Address  string `mapstructure:"address"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

// SystemConfig is the identity of the core system towards its collaborators.
type SystemConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// StoreConfig of the persistent store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServiceRegistryConfig locates the Service Registry of the local cloud.
type ServiceRegistryConfig struct {
	Address string `mapstructure:"address"`
	Scheme  string `mapstructure:"scheme"`
}

// GatekeeperConfig of the Gatekeeper collaborator.
type GatekeeperConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// QoSMonitorConfig of the QoS Monitor collaborator.
type QoSMonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LocatorConfig of the service locator.
type LocatorConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probeTimeout"`
}

// QoSConfig of the admission filter. Hot-reloaded.
type QoSConfig struct {
	PingMeasurementCacheThreshold time.Duration `mapstructure:"pingMeasurementCacheThreshold"`
	DefaultAcceptNoRecord         bool          `mapstructure:"defaultAcceptNoRecord"`
	LeasePadding                  time.Duration `mapstructure:"leasePadding"`
	LeaseWarningMinutes           int           `mapstructure:"leaseWarningMinutes"`
}

// OrchestratorConfig of the orchestration decision flow.
type OrchestratorConfig struct {
	TokenKeyFile      string        `mapstructure:"tokenKeyFile"`
	TokenExpiry       time.Duration `mapstructure:"tokenExpiry"`
	ExpiringThreshold time.Duration `mapstructure:"expiringThreshold"`
}

// RelayConfig of the gatekeeper relay matchmaking.
type RelayConfig struct {
	Policy          string `mapstructure:"policy"`
	GatewayRequired bool   `mapstructure:"gatewayRequired"`
}

// Settings returns the admission filter settings.
func (c *QoSConfig) Settings() qos.Settings {
	return qos.Settings{
		PingMeasurementCacheThreshold: c.PingMeasurementCacheThreshold,
		DefaultAcceptNoRecord:         c.DefaultAcceptNoRecord,
		LeasePadding:                  c.LeasePadding,
		LeaseWarningMinutes:           c.LeaseWarningMinutes,
	}
}

// Requester returns the identity of the core system.
func (c *SystemConfig) Requester() api.System {
	return api.System{SystemName: c.Name, Address: c.Address, Port: c.Port}
}

// RegistryEndpoint returns the configured Service Registry endpoint, zero if unset.
func (c *ServiceRegistryConfig) RegistryEndpoint() (api.Endpoint, error) {
	if c.Address == "" {
		return api.Endpoint{}, nil
	}

	host, port, err := api.SplitHostPort(c.Address)
	if err != nil {
		return api.Endpoint{}, fmt.Errorf("invalid service registry address '%s': %w", c.Address, err)
	}
	return api.Endpoint{Scheme: c.Scheme, Host: host, Port: port}, nil
}

// SetDefaults sets the default of every configuration key.
func SetDefaults(v *viper.Viper, system, serverAddress string) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("server.address", serverAddress)
	v.SetDefault("server.certFile", "")
	v.SetDefault("server.keyFile", "")
	v.SetDefault("server.caFile", "")

	v.SetDefault("system.name", system)
	v.SetDefault("system.address", "127.0.0.1")
	v.SetDefault("system.port", portOf(serverAddress))

	v.SetDefault("store.path", system+".db")

	v.SetDefault("serviceRegistry.address", "127.0.0.1:8443")
	v.SetDefault("serviceRegistry.scheme", "http")

	v.SetDefault("gatekeeper.enabled", false)
	v.SetDefault("qosMonitor.enabled", false)

	v.SetDefault("locator.probeTimeout", 2*time.Second)

	defaults := qos.DefaultSettings()
	v.SetDefault("qos.pingMeasurementCacheThreshold", defaults.PingMeasurementCacheThreshold)
	v.SetDefault("qos.defaultAcceptNoRecord", defaults.DefaultAcceptNoRecord)
	v.SetDefault("qos.leasePadding", defaults.LeasePadding)
	v.SetDefault("qos.leaseWarningMinutes", defaults.LeaseWarningMinutes)

	v.SetDefault("orchestrator.tokenKeyFile", "")
	v.SetDefault("orchestrator.tokenExpiry", time.Hour)
	v.SetDefault("orchestrator.expiringThreshold", 2*time.Minute)

	v.SetDefault("relay.policy", relay.PolicyExclusiveThenPublic.String())
	v.SetDefault("relay.gatewayRequired", false)
}

// BindFlags binds configuration keys to command line flags.
// Flags override file and environment values only when set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag '%s' for key '%s'", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("cannot bind flag '%s': %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration. An empty path loads defaults and environment variables only.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, _, err := api.SplitHostPort(c.Server.Address); err != nil {
		return fmt.Errorf("server.address: %w", err)
	}
	if c.System.Name == "" {
		return fmt.Errorf("system.name: empty system name")
	}
	if !api.ValidPort(c.System.Port) {
		return fmt.Errorf("system.port: port %d is out of the valid range", c.System.Port)
	}
	if _, err := c.ServiceRegistry.RegistryEndpoint(); err != nil {
		return fmt.Errorf("serviceRegistry.address: %w", err)
	}
	if c.Locator.ProbeTimeout <= 0 {
		return fmt.Errorf("locator.probeTimeout: must be positive")
	}
	if c.QoS.LeaseWarningMinutes < 0 {
		return fmt.Errorf("qos.leaseWarningMinutes: must not be negative")
	}
	if _, err := relay.ParsePolicy(c.Relay.Policy); err != nil {
		return fmt.Errorf("relay.policy: %w", err)
	}
	return nil
}

// Watch calls onChange with the reloaded configuration whenever the config file changes.
// Invalid reloads are logged and ignored.
func Watch(v *viper.Viper, onChange func(*Config)) {
	logger := logrus.WithField("component", "config")

	var lock sync.Mutex
	v.OnConfigChange(func(e fsnotify.Event) {
		lock.Lock()
		defer lock.Unlock()

		logger.Infof("Config file changed: %s (%s).", e.Name, e.Op)

		config, err := decode(v)
		if err != nil {
			logger.Errorf("Ignoring invalid config: %v.", err)
			return
		}
		onChange(config)
	})
	v.WatchConfig()
}

func portOf(address string) int {
	_, port, err := api.SplitHostPort(address)
	if err != nil {
		return 0
	}
	return port
}
