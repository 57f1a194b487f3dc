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

package app

import (
	"crypto/tls"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clusterlink-net/arrowhead/pkg/config"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper"
	"github.com/clusterlink-net/arrowhead/pkg/locator"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/server"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/store"
	"github.com/clusterlink-net/arrowhead/pkg/qos"
	"github.com/clusterlink-net/arrowhead/pkg/qosmonitor"
	"github.com/clusterlink-net/arrowhead/pkg/registry"
	"github.com/clusterlink-net/arrowhead/pkg/store/kv"
	"github.com/clusterlink-net/arrowhead/pkg/store/kv/bolt"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	logutils "github.com/clusterlink-net/arrowhead/pkg/util/log"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
	"github.com/clusterlink-net/arrowhead/pkg/util/runnable"
	utiltls "github.com/clusterlink-net/arrowhead/pkg/util/tls"
)

// systemName is the name the orchestrator registers and identifies itself with.
const systemName = "orchestrator"

// Options contains everything necessary to create and run an orchestrator.
type Options struct {
	// ConfigFile is the path to an optional YAML configuration file.
	ConfigFile string
	// LogFile is the path to file where logs will be written.
	LogFile string
	// LogLevel is the log level.
	LogLevel string
	// Address is the listen address of the HTTP server.
	Address string
	// StoreFile is the path to the file holding the persisted state.
	StoreFile string
	// ServiceRegistry is the address (host:port) of the Service Registry.
	ServiceRegistry string
}

// AddFlags adds flags to fs and binds them to options.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", "",
		"Path to a YAML configuration file. QoS settings are reloaded when the file changes.")
	fs.StringVar(&o.LogFile, "log-file", "",
		"Path to a file where logs will be written. If not specified, logs will be printed to stderr.")
	fs.StringVar(&o.LogLevel, "log-level", "info",
		"The log level. One of fatal, error, warn, info, debug.")
	fs.StringVar(&o.Address, "listen", config.OrchestratorAddress,
		"The listen address of the HTTP server.")
	fs.StringVar(&o.StoreFile, "store", "orchestrator.db",
		"Path to the file holding the store rules and reservations.")
	fs.StringVar(&o.ServiceRegistry, "service-registry", "127.0.0.1:8443",
		"The address (host:port) of the Service Registry.")
}

// flagBindings maps configuration keys to the flags overriding them.
var flagBindings = map[string]string{
	"log.file":                "log-file",
	"log.level":               "log-level",
	"server.address":          "listen",
	"store.path":              "store",
	"serviceRegistry.address": "service-registry",
}

// Run the orchestrator.
func (o *Options) Run(fs *pflag.FlagSet) error {
	v := viper.New()
	config.SetDefaults(v, systemName, config.OrchestratorAddress)
	if err := config.BindFlags(v, fs, flagBindings); err != nil {
		return err
	}

	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		return err
	}

	// set log file
	f, err := logutils.Set(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	if f != nil {
		defer func() {
			if err := f.Close(); err != nil {
				log.Errorf("Cannot close log file: %v", err)
			}
		}()
	}

	var serverTLS, clientTLS *tls.Config
	if cfg.Server.CertFile != "" {
		parsedCertData, err := utiltls.ParseFiles(cfg.Server.CAFile, cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return err
		}
		serverTLS = parsedCertData.ServerConfig()
		clientTLS = parsedCertData.ClientConfig()
	}
	httpClient := jsonapi.NewHTTPClient(clientTLS, 0)

	// open store
	kvStore, err := bolt.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	storeManager := kv.NewManager(kvStore)
	defer func() {
		if err := storeManager.Close(); err != nil {
			log.Warnf("Cannot close store: %v.", err)
		}
	}()

	rules, err := store.NewRules(storeManager)
	if err != nil {
		return err
	}

	reservations, err := store.NewReservations(storeManager)
	if err != nil {
		return err
	}

	registryEndpoint, err := cfg.ServiceRegistry.RegistryEndpoint()
	if err != nil {
		return err
	}

	// the orchestrator does not ask itself for core services
	registryClient := registry.NewClient(httpClient)
	loc := locator.NewLocator(&locator.Config{
		Requester:        cfg.System.Requester(),
		RegistryEndpoint: registryEndpoint,
		Prober:           locator.NewHTTPProber(jsonapi.NewHTTPClient(clientTLS, cfg.Locator.ProbeTimeout)),
		Registry:         registryClient,
	})

	qosConfig := &qos.Config{
		Reservations: reservations,
		Settings:     cfg.QoS.Settings(),
	}
	if cfg.QoSMonitor.Enabled {
		qosConfig.Monitor = qosmonitor.NewClient(loc, httpClient)
	}
	filter := qos.NewFilter(qosConfig)

	orchestratorConfig := &orchestrator.Config{
		Locator:           loc,
		Registry:          registryClient,
		Rules:             rules,
		QoS:               filter,
		ExpiringThreshold: cfg.Orchestrator.ExpiringThreshold,
	}
	if cfg.Gatekeeper.Enabled {
		orchestratorConfig.Gatekeeper = gatekeeper.NewClient(loc, httpClient)
	}
	if cfg.Orchestrator.TokenKeyFile != "" {
		key, err := utiltls.ReadRSAPrivateKey(cfg.Orchestrator.TokenKeyFile)
		if err != nil {
			return err
		}

		issuer, err := orchestrator.NewJWTIssuer(key, cfg.Orchestrator.TokenExpiry)
		if err != nil {
			return err
		}
		orchestratorConfig.Tokens = issuer
	}

	o.watch(v, filter)

	srv := rest.NewServer(systemName, serverTLS)
	server.RegisterHandlers(orchestrator.NewOrchestrator(orchestratorConfig), rules, reservations, &srv)

	manager := runnable.NewManager()
	manager.AddServer(cfg.Server.Address, &srv)
	manager.Add(store.NewSweeper(reservations, store.DefaultSweepInterval, nil))
	manager.StopOnSignal(syscall.SIGINT, syscall.SIGTERM)

	log.Infof("Orchestrator listening on %s.", cfg.Server.Address)
	return manager.Run()
}

// watch reloads the QoS settings when the configuration file changes.
func (o *Options) watch(v *viper.Viper, filter *qos.Filter) {
	if o.ConfigFile == "" {
		return
	}

	config.Watch(v, func(cfg *config.Config) {
		filter.SetSettings(cfg.QoS.Settings())
		log.Infof("Reloaded QoS settings: %+v.", filter.Settings())
	})
}

// NewAHOrchestratorCommand creates a *cobra.Command object with default parameters.
func NewAHOrchestratorCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:          "ah-orchestrator",
		Long:         `ah-orchestrator: orchestrator core system resolving service requests to providers`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.Run(cmd.Flags())
		},
	}

	opts.AddFlags(cmd.Flags())

	return cmd
}
