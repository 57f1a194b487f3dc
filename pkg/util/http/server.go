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

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is a core system HTTP server, bound to its own TCP listener.
type Server struct {
	name     string
	router   chi.Router
	server   *http.Server
	listener net.Listener

	logger    *logrus.Entry
	logWriter *io.PipeWriter
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Router returns the server (chi-)router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Listen binds the server to a TCP address.
func (s *Server) Listen(address string) error {
	s.logger.Infof("Listening on %s.", address)

	lis, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.listener = lis
	return nil
}

// Address returns the bound address, empty before Listen.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close the listener.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}

	s.logger.Infof("Closing listener.")
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Start serving, over TLS if a TLS configuration was given.
func (s *Server) Start() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	defer func() {
		s.server.ErrorLog = nil
		if err := s.logWriter.Close(); err != nil {
			s.logger.Warnf("Unable to close http server log writer: %v.", err)
		}
	}()

	var err error
	if s.server.TLSConfig != nil {
		err = s.server.ServeTLS(s.listener, "", "")
	} else {
		err = s.server.Serve(s.listener)
	}

	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("Server closed by demand.")
		return nil
	}
	return err
}

// Stop the server.
func (s *Server) Stop() error {
	return s.server.Close()
}

// GracefulStop drains in-flight requests before stopping.
func (s *Server) GracefulStop() error {
	return s.server.Shutdown(context.Background())
}

// NewServer returns a new server, exposing prometheus metrics on /metrics.
func NewServer(name string, tlsConfig *tls.Config) Server {
	logger := logrus.WithFields(logrus.Fields{
		"component": "http-server",
		"name":      name})
	logWriter := logger.WriterLevel(logrus.ErrorLevel)

	router := chi.NewRouter()
	if logrus.GetLevel() >= logrus.DebugLevel {
		router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  logger,
			NoColor: true,
		}))
	}
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())

	return Server{
		name:   name,
		router: router,
		server: &http.Server{
			Handler:           router,
			TLSConfig:         tlsConfig,
			ErrorLog:          log.New(logWriter, "", 0),
			ReadHeaderTimeout: time.Second,
		},
		logger:    logger,
		logWriter: logWriter,
	}
}
