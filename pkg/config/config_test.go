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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/config"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v, "orchestrator", config.OrchestratorAddress)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(newViper(), "")
	require.Nil(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, config.OrchestratorAddress, cfg.Server.Address)
	require.Equal(t, 8441, cfg.System.Port)
	require.Equal(t, "orchestrator", cfg.System.Name)
	require.Equal(t, "orchestrator.db", cfg.Store.Path)
	require.Equal(t, 2*time.Second, cfg.Locator.ProbeTimeout)
	require.Equal(t, time.Hour, cfg.Orchestrator.TokenExpiry)
	require.Equal(t, "exclusive-then-public", cfg.Relay.Policy)

	settings := cfg.QoS.Settings()
	require.Equal(t, 600*time.Second, settings.PingMeasurementCacheThreshold)
	require.False(t, settings.DefaultAcceptNoRecord)
	require.Equal(t, 30*time.Second, settings.LeasePadding)
	require.Equal(t, 2, settings.LeaseWarningMinutes)

	endpoint, err := cfg.ServiceRegistry.RegistryEndpoint()
	require.Nil(t, err)
	require.Equal(t, "http://127.0.0.1:8443", endpoint.Base())
}

func TestFileEnvironmentAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	require.Nil(t, os.WriteFile(path, []byte(`
log:
  level: debug
serviceRegistry:
  address: 10.0.0.1:9443
  scheme: https
qos:
  leasePadding: 45s
  defaultAcceptNoRecord: true
relay:
  policy: dedicated-first
`), 0o600))

	t.Setenv("AH_QOS_LEASEWARNINGMINUTES", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "warn", "")
	fs.String("listen", config.OrchestratorAddress, "")
	require.Nil(t, fs.Parse([]string{"--listen", "127.0.0.1:9441"}))

	v := newViper()
	require.Nil(t, config.BindFlags(v, fs, map[string]string{
		"log.level":      "log-level",
		"server.address": "listen",
	}))
	require.NotNil(t, config.BindFlags(v, fs, map[string]string{"log.file": "log-file"}))

	cfg, err := config.Load(v, path)
	require.Nil(t, err)

	// unset flags do not override the file
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "127.0.0.1:9441", cfg.Server.Address)
	require.Equal(t, 45*time.Second, cfg.QoS.LeasePadding)
	require.True(t, cfg.QoS.DefaultAcceptNoRecord)
	require.Equal(t, 5, cfg.QoS.LeaseWarningMinutes)
	require.Equal(t, "dedicated-first", cfg.Relay.Policy)

	endpoint, err := cfg.ServiceRegistry.RegistryEndpoint()
	require.Nil(t, err)
	require.Equal(t, "https://10.0.0.1:9443", endpoint.Base())
}

func TestInvalidConfig(t *testing.T) {
	for name, content := range map[string]string{
		"level":    "log:\n  level: loud\n",
		"address":  "server:\n  address: nowhere\n",
		"policy":   "relay:\n  policy: random\n",
		"registry": "serviceRegistry:\n  address: 10.0.0.1\n",
		"lease":    "qos:\n  leaseWarningMinutes: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.Nil(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := config.Load(newViper(), path)
			require.NotNil(t, err)
		})
	}

	_, err := config.Load(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(path, []byte("qos:\n  leaseWarningMinutes: 2\n"), 0o600))

	v := newViper()
	_, err := config.Load(v, path)
	require.Nil(t, err)

	reloaded := make(chan int, 10)
	config.Watch(v, func(cfg *config.Config) {
		reloaded <- cfg.QoS.LeaseWarningMinutes
	})

	require.Nil(t, os.WriteFile(path, []byte("qos:\n  leaseWarningMinutes: 7\n"), 0o600))

	require.Eventually(t, func() bool {
		for {
			select {
			case minutes := <-reloaded:
				if minutes == 7 {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 50*time.Millisecond)
}
