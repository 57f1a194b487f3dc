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

package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/clusterlink-net/arrowhead/pkg/api"
	"github.com/clusterlink-net/arrowhead/pkg/store"
)

// ErrorMessage is the body of an error response.
type ErrorMessage struct {
	ErrorMessage  string `json:"errorMessage"`
	ErrorCode     int    `json:"errorCode"`
	ExceptionType string `json:"exceptionType"`
}

// StatusFor returns the HTTP status code reporting the given error.
func StatusFor(err error) int {
	var existsErr *store.ObjectExistsError
	var notFoundErr *store.ObjectNotFoundError

	switch {
	case errors.As(err, &existsErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	}

	switch api.KindOf(err) {
	case api.KindBadRequest:
		return http.StatusBadRequest
	case api.KindUnavailable:
		return http.StatusServiceUnavailable
	case api.KindNoMatch:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindFor returns the error kind reported by the given HTTP status code.
func KindFor(status int) api.Kind {
	switch status {
	case http.StatusBadRequest:
		return api.KindBadRequest
	case http.StatusServiceUnavailable:
		return api.KindUnavailable
	case http.StatusNotFound:
		return api.KindNoMatch
	default:
		return api.KindInternal
	}
}

// WriteJSON writes an object as a JSON response.
func WriteJSON(w http.ResponseWriter, logger *logrus.Entry, status int, object any) {
	encoded, err := json.Marshal(object)
	if err != nil {
		logger.Errorf("Cannot encode object: %v.", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		logger.Errorf("Cannot write http response: %v.", err)
	}
}

// WriteError writes an error response, with the status code matching the error kind.
// Configuration errors do not expose their details.
func WriteError(w http.ResponseWriter, logger *logrus.Entry, err error) {
	status := StatusFor(err)
	kind := api.KindOf(err)

	message := err.Error()
	if kind == api.KindConfiguration || (kind == api.KindInternal && status == http.StatusInternalServerError) {
		logger.Errorf("Request failed: %v.", err)
		message = kind.String()
	} else {
		logger.Warnf("Request rejected: %v.", err)
	}

	WriteJSON(w, logger, status, &ErrorMessage{
		ErrorMessage:  message,
		ErrorCode:     status,
		ExceptionType: kind.String(),
	})
}

// ReadError converts an error response into a classified error.
// The kind named by the response takes precedence over the one implied by the status code.
func ReadError(status int, body []byte) error {
	message := string(body)
	kind := KindFor(status)

	var decoded ErrorMessage
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.ErrorMessage != "" {
			message = decoded.ErrorMessage
		}
		if named, ok := api.ParseKind(decoded.ExceptionType); ok && named != api.KindInternal {
			kind = named
		}
	}

	return &api.Error{Kind: kind, Message: message}
}
