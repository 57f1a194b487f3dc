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
	"crypto/tls"
	"io"
	"net/http"
	"reflect"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"

	utilhttp "github.com/clusterlink-net/arrowhead/pkg/util/http"
)

// Server for handling REST-JSON requests.
type Server struct {
	utilhttp.Server

	logger *logrus.Entry
}

// Handler for object operations.
type Handler interface {
	// Decode and validate an object.
	Decode(data []byte) (any, error)
	// Create an object.
	Create(object any) error
	// Update an object.
	Update(object any) error
	// Get an object.
	Get(name string) (any, error)
	// Delete an object.
	Delete(name string) (any, error)
	// List all objects.
	List() (any, error)
}

// ServerObjectSpec specifies a set of server handlers for a specific object type.
type ServerObjectSpec struct {
	// BasePath is the server HTTP path for manipulating a specific type of objects.
	BasePath string
	// Handler interface for object operations.
	Handler Handler
}

func (s *Server) decodeBody(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request,
	requestLogger *logrus.Entry,
) (any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		requestLogger.Errorf("Cannot read request body: %v.", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	requestLogger.Debugf("Body: %s.", body)

	object, err := spec.Handler.Decode(body)
	if err != nil {
		requestLogger.Errorf("Cannot decode object: %v.", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	return object, true
}

func (s *Server) create(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request) {
	requestLogger := s.logger.WithFields(logrus.Fields{"method": "create", "path": r.URL.Path})
	requestLogger.WithField("body-length", r.ContentLength).Infof("Handling request.")

	object, ok := s.decodeBody(spec, w, r, requestLogger)
	if !ok {
		return
	}

	if err := spec.Handler.Create(object); err != nil {
		WriteError(w, requestLogger, err)
		return
	}

	w.Header().Set("Location", r.URL.String())
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) update(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request) {
	requestLogger := s.logger.WithFields(logrus.Fields{"method": "update", "path": r.URL.Path})
	requestLogger.WithField("body-length", r.ContentLength).Infof("Handling request.")

	object, ok := s.decodeBody(spec, w, r, requestLogger)
	if !ok {
		return
	}

	if err := spec.Handler.Update(object); err != nil {
		WriteError(w, requestLogger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) get(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request) {
	requestLogger := s.logger.WithFields(logrus.Fields{"method": "get", "path": r.URL.Path})
	requestLogger.Infof("Handling request.")

	result, err := spec.Handler.Get(chi.URLParam(r, "name"))
	if err != nil {
		WriteError(w, requestLogger, err)
		return
	}

	if isNil(result) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	WriteJSON(w, requestLogger, http.StatusOK, result)
}

func (s *Server) delete(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request) {
	requestLogger := s.logger.WithFields(logrus.Fields{"method": "delete", "path": r.URL.Path})
	requestLogger.Infof("Handling request.")

	result, err := spec.Handler.Delete(chi.URLParam(r, "name"))
	if err != nil {
		WriteError(w, requestLogger, err)
		return
	}

	if isNil(result) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) list(spec *ServerObjectSpec, w http.ResponseWriter, r *http.Request) {
	requestLogger := s.logger.WithFields(logrus.Fields{"method": "list", "path": r.URL.Path})
	requestLogger.Infof("Handling request.")

	result, err := spec.Handler.List()
	if err != nil {
		WriteError(w, requestLogger, err)
		return
	}

	WriteJSON(w, requestLogger, http.StatusOK, result)
}

func isNil(object any) bool {
	if object == nil {
		return true
	}

	v := reflect.ValueOf(object)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// AddObjectHandlers adds the server a handlers for managing a specific object type.
func (s *Server) AddObjectHandlers(spec *ServerObjectSpec) {
	r := s.Router()

	r.Route(spec.BasePath, func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			s.create(spec, w, r)
		})
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			s.update(spec, w, r)
		})
		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			s.get(spec, w, r)
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s.list(spec, w, r)
		})
		r.Delete("/{name}", func(w http.ResponseWriter, r *http.Request) {
			s.delete(spec, w, r)
		})
	})
}

// Logger returns the server logger.
func (s *Server) Logger() *logrus.Entry {
	return s.logger
}

// NewServer returns a new empty REST-JSON server.
func NewServer(name string, tlsConfig *tls.Config) Server {
	return Server{
		Server: utilhttp.NewServer(name, tlsConfig),
		logger: logrus.WithFields(logrus.Fields{
			"component": "rest-server",
			"name":      name}),
	}
}
