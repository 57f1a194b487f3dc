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

// The ah-orchestrator binary runs the orchestrator core system: an HTTP server resolving
// orchestration requests of consumer systems to ranked providers, and managing the
// orchestration store rules and QoS reservations.
package main

import (
	"os"

	"github.com/clusterlink-net/arrowhead/cmd/ah-orchestrator/app"
	"github.com/clusterlink-net/arrowhead/pkg/versioninfo"
)

func main() {
	command := app.NewAHOrchestratorCommand()
	command.Version = versioninfo.Short()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
