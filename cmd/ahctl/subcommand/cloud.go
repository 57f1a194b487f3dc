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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cmdutil "github.com/clusterlink-net/arrowhead/cmd/util"
	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/server"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// CloudCmd - manage the clouds known to the gatekeeper.
func CloudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Manage gatekeeper clouds",
		Long:  "Manage the local cloud and the neighbor clouds known to the gatekeeper",
	}

	cmd.AddCommand(cloudCreateCmd())
	cmd.AddCommand(cloudListCmd())
	cmd.AddCommand(cloudDeleteCmd())
	return cmd
}

func (o *serverOptions) clouds() (*rest.Client, error) {
	return o.objects(server.CloudsPath, api.Cloud{}, []api.Cloud{})
}

// cloudCreateOptions is the command line options for 'cloud create'.
type cloudCreateOptions struct {
	serverOptions
	operator           string
	name               string
	secure             bool
	neighbor           bool
	own                bool
	authenticationInfo string
	gatekeeperRelays   []int64
	gatewayRelays      []int64
	update             bool
}

func cloudCreateCmd() *cobra.Command {
	o := cloudCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cloud",
		Long:  "Create (or, with --update, replace) a cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	o.addFlags(cmd.Flags())
	cmdutil.MarkFlagsRequired(cmd, []string{"operator", "name"})

	return cmd
}

// addFlags registers flags for the CLI.
func (o *cloudCreateOptions) addFlags(fs *pflag.FlagSet) {
	o.serverOptions.addFlags(fs, gatekeeperServer)
	fs.StringVar(&o.operator, "operator", "", "Cloud operator")
	fs.StringVar(&o.name, "name", "", "Cloud name")
	fs.BoolVar(&o.secure, "secure", false, "The cloud only accepts TLS connections")
	fs.BoolVar(&o.neighbor, "neighbor", false, "The cloud is a neighbor of the local cloud")
	fs.BoolVar(&o.own, "own", false, "The cloud is the local cloud")
	fs.StringVar(&o.authenticationInfo, "authentication-info", "", "Public key of the cloud gatekeeper")
	fs.Int64SliceVar(&o.gatekeeperRelays, "gatekeeper-relay", nil, "IDs of the relays reaching the cloud gatekeeper")
	fs.Int64SliceVar(&o.gatewayRelays, "gateway-relay", nil, "IDs of the relays reaching the cloud gateway")
	fs.BoolVar(&o.update, "update", false, "Replace an existing cloud")
}

// run performs the execution of the 'cloud create' subcommand.
func (o *cloudCreateOptions) run() error {
	clouds, err := o.clouds()
	if err != nil {
		return err
	}

	cloud := &api.Cloud{
		Operator:           o.operator,
		Name:               o.name,
		Secure:             o.secure,
		Neighbor:           o.neighbor,
		OwnCloud:           o.own,
		AuthenticationInfo: o.authenticationInfo,
		GatekeeperRelayIDs: o.gatekeeperRelays,
		GatewayRelayIDs:    o.gatewayRelays,
	}

	if o.update {
		err = clouds.Update(cloud)
	} else {
		err = clouds.Create(cloud)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Cloud '%s' saved.\n", cloud.Key())
	return nil
}

func cloudListCmd() *cobra.Command {
	o := serverOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clouds",
		Long:  "List clouds",
		RunE: func(cmd *cobra.Command, args []string) error {
			clouds, err := o.clouds()
			if err != nil {
				return err
			}

			list, err := clouds.List()
			if err != nil {
				return err
			}
			return cmdutil.PrintJSON(list)
		},
	}

	o.addFlags(cmd.Flags(), gatekeeperServer)
	return cmd
}

func cloudDeleteCmd() *cobra.Command {
	o := nameOptions{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a cloud",
		Long:  "Delete a cloud by its operator.name key",
		RunE: func(cmd *cobra.Command, args []string) error {
			clouds, err := o.clouds()
			if err != nil {
				return err
			}

			if err := clouds.Delete(o.name); err != nil {
				return err
			}
			fmt.Printf("Cloud '%s' deleted.\n", o.name)
			return nil
		},
	}

	o.addFlags(cmd.Flags(), gatekeeperServer, "Cloud key (operator.name)")
	cmdutil.MarkFlagsRequired(cmd, []string{"name"})
	return cmd
}
