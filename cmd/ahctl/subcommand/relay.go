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
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cmdutil "github.com/clusterlink-net/arrowhead/cmd/util"
	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/server"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// RelayCmd - manage the relays known to the gatekeeper.
func RelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Manage gatekeeper relays",
		Long:  "Manage the relays bridging the local cloud and its neighbors",
	}

	cmd.AddCommand(relayCreateCmd())
	cmd.AddCommand(relayListCmd())
	cmd.AddCommand(relayDeleteCmd())
	return cmd
}

func (o *serverOptions) relays() (*rest.Client, error) {
	return o.objects(server.RelaysPath, api.Relay{}, []api.Relay{})
}

// relayCreateOptions is the command line options for 'relay create'.
type relayCreateOptions struct {
	serverOptions
	id        int64
	address   string
	port      int
	secure    bool
	exclusive bool
	relayType string
	update    bool
}

func relayCreateCmd() *cobra.Command {
	o := relayCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a relay",
		Long:  "Create (or, with --update and --id, replace) a relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	o.addFlags(cmd.Flags())
	cmdutil.MarkFlagsRequired(cmd, []string{"address", "port"})

	return cmd
}

// addFlags registers flags for the CLI.
func (o *relayCreateOptions) addFlags(fs *pflag.FlagSet) {
	o.serverOptions.addFlags(fs, gatekeeperServer)
	fs.Int64Var(&o.id, "id", 0, "Relay ID (assigned by the gatekeeper if unset)")
	fs.StringVar(&o.address, "address", "", "Relay address (IP/DNS)")
	fs.IntVar(&o.port, "port", 0, "Relay port")
	fs.BoolVar(&o.secure, "secure", false, "The relay requires TLS")
	fs.BoolVar(&o.exclusive, "exclusive", false, "The relay is dedicated to specific clouds")
	fs.StringVar(&o.relayType, "type", string(api.RelayGeneral), "Relay type (GENERAL, GATEKEEPER or GATEWAY)")
	fs.BoolVar(&o.update, "update", false, "Replace an existing relay")
}

// run performs the execution of the 'relay create' subcommand.
func (o *relayCreateOptions) run() error {
	relayType, err := api.ParseRelayType(o.relayType)
	if err != nil {
		return err
	}

	relays, err := o.relays()
	if err != nil {
		return err
	}

	relay := &api.Relay{
		ID:        o.id,
		Address:   o.address,
		Port:      o.port,
		Secure:    o.secure,
		Exclusive: o.exclusive,
		Type:      relayType,
	}

	if o.update {
		err = relays.Update(relay)
	} else {
		err = relays.Create(relay)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Relay %s:%d saved.\n", o.address, o.port)
	return nil
}

func relayListCmd() *cobra.Command {
	o := serverOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List relays",
		Long:  "List relays, ordered by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			relays, err := o.relays()
			if err != nil {
				return err
			}

			list, err := relays.List()
			if err != nil {
				return err
			}
			return cmdutil.PrintJSON(list)
		},
	}

	o.addFlags(cmd.Flags(), gatekeeperServer)
	return cmd
}

// relayDeleteOptions is the command line options for 'relay delete'.
type relayDeleteOptions struct {
	serverOptions
	id int64
}

func relayDeleteCmd() *cobra.Command {
	o := relayDeleteOptions{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a relay",
		Long:  "Delete a relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			relays, err := o.relays()
			if err != nil {
				return err
			}

			if err := relays.Delete(strconv.FormatInt(o.id, 10)); err != nil {
				return err
			}
			fmt.Printf("Relay %d deleted.\n", o.id)
			return nil
		},
	}

	o.serverOptions.addFlags(cmd.Flags(), gatekeeperServer)
	cmd.Flags().Int64Var(&o.id, "id", 0, "Relay ID")
	cmdutil.MarkFlagsRequired(cmd, []string{"id"})
	return cmd
}
