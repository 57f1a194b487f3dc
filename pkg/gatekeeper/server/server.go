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
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper"
	"github.com/clusterlink-net/arrowhead/pkg/gatekeeper/store"
	"github.com/clusterlink-net/arrowhead/pkg/util/rest"
)

// Management paths.
const (
	CloudsPath = "/gatekeeper/mgmt/clouds"
	RelaysPath = "/gatekeeper/mgmt/relays"
)

// EchoMessage is the body of an echo response.
const EchoMessage = "Got it!"

// RegisterHandlers registers the HTTP handlers of the gatekeeper.
func RegisterHandlers(s *gatekeeper.Service, clouds *store.Clouds, relays *store.Relays, srv *rest.Server) {
	logger := logrus.WithField("component", "gatekeeper.server")
	router := srv.Router()

	router.Get(api.SystemGatekeeper.EchoPath(), func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(EchoMessage)); err != nil {
			logger.Warnf("Cannot write echo response: %v.", err)
		}
	})

	// services of the local cloud
	router.Post(api.GatekeeperVerifyCloud.URI, handle(logger, func(cloud *api.Cloud) (any, error) {
		return s.VerifyCloud(cloud)
	}))
	router.Post(api.GatekeeperGlobalServiceDiscovery.URI, handle(logger, func(form *api.ServiceQueryForm) (any, error) {
		return s.GlobalServiceDiscovery(form)
	}))
	router.Post(api.GatekeeperInterCloudNegotiation.URI, handle(logger, func(request *api.ICNRequest) (any, error) {
		return s.InterCloudNegotiate(request)
	}))
	router.Get(api.GatekeeperPublicRelays.URI, func(w http.ResponseWriter, r *http.Request) {
		requestLogger := logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})

		relays, err := s.PublicRelays()
		if err != nil {
			rest.WriteError(w, requestLogger, err)
			return
		}
		if relays == nil {
			relays = []api.Relay{}
		}
		rest.WriteJSON(w, requestLogger, http.StatusOK, relays)
	})

	// services of neighbor clouds
	router.Post(gatekeeper.PollPath, handle(logger, func(request *api.GSDPollRequest) (any, error) {
		return s.AnswerPoll(request)
	}))
	router.Post(gatekeeper.ExternalPath, handle(logger, func(proposal *api.ICNProposal) (any, error) {
		return s.ExternalServiceRequest(proposal)
	}))

	srv.AddObjectHandlers(&rest.ServerObjectSpec{
		BasePath: CloudsPath,
		Handler:  &cloudHandler{clouds: clouds},
	})

	srv.AddObjectHandlers(&rest.ServerObjectSpec{
		BasePath: RelaysPath,
		Handler:  &relayHandler{relays: relays},
	})
}

// handle decodes a JSON request, calls fn and writes its result as a JSON response.
func handle[T any](logger *logrus.Entry, fn func(*T) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestLogger := logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
		requestLogger.Debug("Handling request.")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			rest.WriteError(w, requestLogger, api.BadRequest("", "cannot read request body: %v", err))
			return
		}

		var request T
		if err := json.Unmarshal(body, &request); err != nil {
			rest.WriteError(w, requestLogger, api.BadRequest("", "cannot decode request: %v", err))
			return
		}

		response, err := fn(&request)
		if err != nil {
			rest.WriteError(w, requestLogger, err)
			return
		}

		rest.WriteJSON(w, requestLogger, http.StatusOK, response)
	}
}
