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

// The ahctl binary manages the orchestrator and gatekeeper core systems over their REST APIs.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clusterlink-net/arrowhead/cmd/ahctl/subcommand"
	"github.com/clusterlink-net/arrowhead/pkg/versioninfo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ahctl",
		Short:   "ahctl is a CLI for the orchestrator and gatekeeper core systems",
		Long:    `ahctl sends orchestration requests and manages store rules, clouds and relays`,
		Version: versioninfo.Short(),
	}

	rootCmd.AddCommand(subcommand.OrchestrateCmd())
	rootCmd.AddCommand(subcommand.RuleCmd())
	rootCmd.AddCommand(subcommand.CloudCmd())
	rootCmd.AddCommand(subcommand.RelayCmd())

	logrus.SetLevel(logrus.WarnLevel)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
