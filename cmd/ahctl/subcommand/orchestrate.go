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
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cmdutil "github.com/clusterlink-net/arrowhead/cmd/util"
	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator"
)

// orchestrateOptions is the command line options for 'orchestrate'.
type orchestrateOptions struct {
	serverOptions
	system        string
	address       string
	port          int
	service       string
	interfaces    []string
	metadata      []string
	flags         []string
	qos           []string
	commands      []string
	preferredOnly bool
}

// OrchestrateCmd - send an orchestration request.
func OrchestrateCmd() *cobra.Command {
	o := orchestrateOptions{}
	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Send an orchestration request",
		Long:  "Send an orchestration request on behalf of a consumer system and print the candidate providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	o.addFlags(cmd.Flags())
	cmdutil.MarkFlagsRequired(cmd, []string{"system", "address", "port"})

	return cmd
}

// addFlags registers flags for the CLI.
func (o *orchestrateOptions) addFlags(fs *pflag.FlagSet) {
	o.serverOptions.addFlags(fs, orchestratorServer)
	fs.StringVar(&o.system, "system", "", "Requester system name")
	fs.StringVar(&o.address, "address", "", "Requester system address (IP/DNS)")
	fs.IntVar(&o.port, "port", 0, "Requester system port")
	fs.StringVar(&o.service, "service", "", "Requested service definition")
	fs.StringSliceVar(&o.interfaces, "interface", nil, "Accepted service interfaces")
	fs.StringArrayVar(&o.metadata, "metadata", nil, "Metadata requirement (key=value)")
	fs.StringArrayVar(&o.flags, "flag", nil, "Orchestration flag (name=true|false)")
	fs.StringArrayVar(&o.qos, "qos", nil, "QoS requirement (key=value)")
	fs.StringArrayVar(&o.commands, "command", nil, "Orchestration command (key=value)")
	fs.BoolVar(&o.preferredOnly, "only-preferred", false, "Shorthand for --flag onlyPreferred=true")
}

// form builds the orchestration form of the request.
func (o *orchestrateOptions) form() (*api.OrchestrationForm, error) {
	form := &api.OrchestrationForm{
		RequesterSystem: &api.System{SystemName: o.system, Address: o.address, Port: o.port},
	}

	flags, err := cmdutil.ParseKeyValues(o.flags)
	if err != nil {
		return nil, err
	}
	if len(flags) > 0 || o.preferredOnly {
		form.OrchestrationFlags = api.OrchestrationFlags{}
	}
	for name, value := range flags {
		form.OrchestrationFlags[name] = value == "true"
	}
	if o.preferredOnly {
		form.OrchestrationFlags[api.FlagOnlyPreferred] = true
	}

	if o.service != "" {
		metadata, err := cmdutil.ParseKeyValues(o.metadata)
		if err != nil {
			return nil, err
		}
		form.RequestedService = &api.ServiceQueryForm{
			ServiceDefinitionRequirement: o.service,
			InterfaceRequirements:        o.interfaces,
			MetadataRequirements:         metadata,
		}
	}

	if form.QoSRequirements, err = cmdutil.ParseKeyValues(o.qos); err != nil {
		return nil, err
	}
	if form.Commands, err = cmdutil.ParseKeyValues(o.commands); err != nil {
		return nil, err
	}
	return form, nil
}

// run performs the execution of the 'orchestrate' subcommand.
func (o *orchestrateOptions) run() error {
	form, err := o.form()
	if err != nil {
		return err
	}

	endpoint, err := o.endpoint()
	if err != nil {
		return err
	}

	response, err := orchestrator.NewClient(nil).Orchestrate(endpoint.WithPath(api.Orchestration.URI), form)
	if err != nil {
		return err
	}
	return cmdutil.PrintJSON(response)
}
