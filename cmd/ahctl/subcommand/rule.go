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
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/server"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// RuleCmd - manage orchestrator store rules.
func RuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage orchestrator store rules",
		Long:  "Manage the static rules of the orchestrator store",
	}

	cmd.AddCommand(ruleCreateCmd())
	cmd.AddCommand(ruleGetCmd())
	cmd.AddCommand(ruleListCmd())
	cmd.AddCommand(ruleDeleteCmd())
	return cmd
}

// ruleCreateOptions is the command line options for 'rule create'.
type ruleCreateOptions struct {
	serverOptions
	name             string
	consumer         string
	consumerAddress  string
	consumerPort     int
	service          string
	serviceInterface string
	provider         string
	providerAddress  string
	providerPort     int
	operator         string
	cloud            string
	priority         int
	attributes       []string
	update           bool
}

func ruleCreateCmd() *cobra.Command {
	o := ruleCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a store rule",
		Long:  "Create (or, with --update, replace) a store rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	o.addFlags(cmd.Flags())
	cmdutil.MarkFlagsRequired(cmd, []string{"name", "consumer", "consumer-address", "consumer-port",
		"service", "provider", "provider-address", "provider-port"})

	return cmd
}

// addFlags registers flags for the CLI.
func (o *ruleCreateOptions) addFlags(fs *pflag.FlagSet) {
	o.serverOptions.addFlags(fs, orchestratorServer)
	fs.StringVar(&o.name, "name", "", "Rule name")
	fs.StringVar(&o.consumer, "consumer", "", "Consumer system name")
	fs.StringVar(&o.consumerAddress, "consumer-address", "", "Consumer system address")
	fs.IntVar(&o.consumerPort, "consumer-port", 0, "Consumer system port")
	fs.StringVar(&o.service, "service", "", "Service definition")
	fs.StringVar(&o.serviceInterface, "interface", "", "Service interface (empty matches any)")
	fs.StringVar(&o.provider, "provider", "", "Provider system name")
	fs.StringVar(&o.providerAddress, "provider-address", "", "Provider system address")
	fs.IntVar(&o.providerPort, "provider-port", 0, "Provider system port")
	fs.StringVar(&o.operator, "cloud-operator", "", "Operator of the provider cloud, for foreign rules")
	fs.StringVar(&o.cloud, "cloud-name", "", "Name of the provider cloud, for foreign rules")
	fs.IntVar(&o.priority, "priority", 1, "Rule priority, lower values are preferred")
	fs.StringArrayVar(&o.attributes, "attribute", nil, "Rule attribute (key=value)")
	fs.BoolVar(&o.update, "update", false, "Replace an existing rule")
}

// run performs the execution of the 'rule create' subcommand.
func (o *ruleCreateOptions) run() error {
	attributes, err := cmdutil.ParseKeyValues(o.attributes)
	if err != nil {
		return err
	}

	rule := &api.StoreRule{
		Name:              o.name,
		Consumer:          api.System{SystemName: o.consumer, Address: o.consumerAddress, Port: o.consumerPort},
		ServiceDefinition: o.service,
		ServiceInterface:  o.serviceInterface,
		Provider:          api.System{SystemName: o.provider, Address: o.providerAddress, Port: o.providerPort},
		Priority:          o.priority,
		Attribute:         attributes,
	}
	if o.operator != "" || o.cloud != "" {
		rule.ProviderCloud = &api.Cloud{Operator: o.operator, Name: o.cloud}
	}

	rules, err := o.rules()
	if err != nil {
		return err
	}

	if o.update {
		err = rules.Update(rule)
	} else {
		err = rules.Create(rule)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Rule '%s' saved.\n", o.name)
	return nil
}

func (o *serverOptions) rules() (*rest.Client, error) {
	return o.objects(server.RulesPath, api.StoreRule{}, []api.StoreRule{})
}

// nameOptions is the command line options of commands operating on a single named object.
type nameOptions struct {
	serverOptions
	name string
}

func (o *nameOptions) addFlags(fs *pflag.FlagSet, defaultServer, usage string) {
	o.serverOptions.addFlags(fs, defaultServer)
	fs.StringVar(&o.name, "name", "", usage)
}

func ruleGetCmd() *cobra.Command {
	o := nameOptions{}
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a store rule",
		Long:  "Get a store rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.rules()
			if err != nil {
				return err
			}

			rule, err := rules.Get(o.name)
			if err != nil {
				return err
			}
			return cmdutil.PrintJSON(rule)
		},
	}

	o.addFlags(cmd.Flags(), orchestratorServer, "Rule name")
	cmdutil.MarkFlagsRequired(cmd, []string{"name"})
	return cmd
}

func ruleListCmd() *cobra.Command {
	o := serverOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List store rules",
		Long:  "List store rules, most preferred first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.rules()
			if err != nil {
				return err
			}

			list, err := rules.List()
			if err != nil {
				return err
			}
			return cmdutil.PrintJSON(list)
		},
	}

	o.addFlags(cmd.Flags(), orchestratorServer)
	return cmd
}

func ruleDeleteCmd() *cobra.Command {
	o := nameOptions{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a store rule",
		Long:  "Delete a store rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.rules()
			if err != nil {
				return err
			}

			if err := rules.Delete(o.name); err != nil {
				return err
			}
			fmt.Printf("Rule '%s' deleted.\n", o.name)
			return nil
		},
	}

	o.addFlags(cmd.Flags(), orchestratorServer, "Rule name")
	cmdutil.MarkFlagsRequired(cmd, []string{"name"})
	return cmd
}
