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

package subcommand

import (
	"strconv"

	"github.com/spf13/pflag"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/config"
	"github.com/clusterlink-net/arrowhead/pkg/util/jsonapi"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// serverOptions locate the core system a command is sent to.
type serverOptions struct {
	server string
	https  bool
}

func (o *serverOptions) addFlags(fs *pflag.FlagSet, defaultServer string) {
	fs.StringVar(&o.server, "server", defaultServer, "Address (host:port) of the core system")
	fs.BoolVar(&o.https, "https", false, "Use HTTPS")
}

// endpoint returns the endpoint of the core system.
func (o *serverOptions) endpoint() (api.Endpoint, error) {
	host, port, err := api.SplitHostPort(o.server)
	if err != nil {
		return api.Endpoint{}, err
	}

	scheme := "http"
	if o.https {
		scheme = "https"
	}
	return api.Endpoint{Scheme: scheme, Host: host, Port: port}, nil
}

// objects returns a REST client for a type of objects managed by the core system.
func (o *serverOptions) objects(basePath string, sampleObject, sampleList any) (*rest.Client, error) {
	endpoint, err := o.endpoint()
	if err != nil {
		return nil, err
	}

	return rest.NewClient(&rest.Config{
		Client:       jsonapi.NewClient(endpoint.Base(), nil),
		BasePath:     basePath,
		SampleObject: sampleObject,
		SampleList:   sampleList,
	}), nil
}

// Default core system addresses, as seen from the local host.
var (
	orchestratorServer = localAddress(config.OrchestratorAddress)
	gatekeeperServer   = localAddress(config.GatekeeperAddress)
)

func localAddress(listenAddress string) string {
	_, port, err := api.SplitHostPort(listenAddress)
	if err != nil {
		return listenAddress
	}
	return "127.0.0.1:" + strconv.Itoa(port)
}
