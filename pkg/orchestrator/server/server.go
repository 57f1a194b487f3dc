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

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator"
	"github.com/clusterlink-net/arrowhead/pkg/orchestrator/store"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Management paths.
const (
	RulesPath        = "/orchestrator/mgmt/store"
	ReservationsPath = "/orchestrator/mgmt/reservations"
)

// EchoMessage is the body of an echo response.
const EchoMessage = "Got it!"

// RegisterHandlers registers the HTTP handlers of the orchestrator.
func RegisterHandlers(o *orchestrator.Orchestrator, rules *store.Rules, reservations *store.Reservations,
	srv *rest.Server,
) {
	logger := logrus.WithField("component", "orchestrator.server")
	router := srv.Router()

	router.Get(api.SystemOrchestrator.EchoPath(), func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(EchoMessage)); err != nil {
			logger.Warnf("Cannot write echo response: %v.", err)
		}
	})

	router.Post(api.Orchestration.URI, func(w http.ResponseWriter, r *http.Request) {
		orchestrate(o, logger, w, r)
	})

	srv.AddObjectHandlers(&rest.ServerObjectSpec{
		BasePath: RulesPath,
		Handler:  &ruleHandler{rules: rules},
	})

	srv.AddObjectHandlers(&rest.ServerObjectSpec{
		BasePath: ReservationsPath,
		Handler:  &reservationHandler{reservations: reservations},
	})
}

func orchestrate(o *orchestrator.Orchestrator, logger *logrus.Entry, w http.ResponseWriter, r *http.Request) {
	requestLogger := logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
	requestLogger.WithField("body-length", r.ContentLength).Debug("Handling orchestration request.")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rest.WriteError(w, requestLogger, api.BadRequest("", "cannot read request body: %v", err))
		return
	}

	var form api.OrchestrationForm
	if err := json.Unmarshal(body, &form); err != nil {
		rest.WriteError(w, requestLogger, api.BadRequest("", "cannot decode orchestration form: %v", err))
		return
	}

	response, err := o.Orchestrate(&form)
	if err != nil {
		rest.WriteError(w, requestLogger, err)
		return
	}

	if response.Response == nil {
		response.Response = []api.OrchestrationResult{}
	}
	rest.WriteJSON(w, requestLogger, http.StatusOK, response)
}
