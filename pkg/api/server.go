// Savepoint Core
// Copyright (c) 2026 The Savepoint Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Savepoint Core.
//
// Savepoint Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Savepoint Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Savepoint Core.  If not, see <http://www.gnu.org/licenses/>.

// Package api exposes the HTTP API: storefront imports, the imported
// games review queue and the collection lifecycle. Every request is
// scoped to a user via the X-User-ID header.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/collection"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/importer"
	"golang.org/x/time/rate"
)

const (
	requestTimeout  = 90 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	cfg           *config.Instance
	db            database.UserDBI
	importer      *importer.Importer
	collection    *collection.Service
	validate      *validator.Validate
	importLimiter *rate.Limiter
}

// NewServer creates the API server. Import runs are expensive upstream
// calls, so they go through a small burst limiter.
func NewServer(
	cfg *config.Instance,
	db database.UserDBI,
	imp *importer.Importer,
	col *collection.Service,
) *Server {
	return &Server{
		cfg:           cfg,
		db:            db,
		importer:      imp,
		collection:    col,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		importLimiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(requestLogger)

	allowedOrigins := s.cfg.AllowedOrigins()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserIDHeader},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/imports/run", s.handleRunImport)
		r.Get("/imports", s.handleListImports)
		r.Delete("/imports/{id}", s.handleDeleteImport)
		r.Post("/imports/{id}/ignore", s.handleIgnoreImport)
		r.Post("/imports/{id}/promote", s.handlePromoteImport)

		r.Get("/collection", s.handleListCollection)
		r.Post("/collection", s.handleAddCollectionItem)
		r.Put("/collection/{id}/status", s.handleChangeStatus)
		r.Get("/collection/counts", s.handleCollectionCounts)

		r.Get("/statuses", s.handleListStatuses)
	})

	return r
}

// Start serves the API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.APIPort()),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting http server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}
