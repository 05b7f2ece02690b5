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

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/savepoint-project/savepoint-core/pkg/collection"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	if !s.importLimiter.Allow() {
		writeError(w, r, domain.New(domain.CodeRateLimited,
			"An import is already running. Please wait a moment and try again."))
		return
	}

	var req runImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, r, domain.Wrap(domain.CodeValidation,
			"A storefront handle is required", err))
		return
	}

	result, err := s.importer.RunImport(r.Context(), requestUserID(r), req.Handle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, runImportResponse{
		Profile: profileResponse{
			ID:          result.Profile.ID,
			DisplayName: result.Profile.DisplayName,
			AvatarURL:   result.Profile.AvatarURL,
			ProfileURL:  result.Profile.ProfileURL,
		},
		Fetched:   result.Fetched,
		Merged:    result.Merged,
		Filtered:  result.Filtered,
		Inserted:  result.Upserted.Inserted,
		Updated:   result.Upserted.Updated,
		Skipped:   result.Upserted.Skipped,
		Matched:   result.Resolved.Matched,
		Unmatched: result.Resolved.Unmatched,
		Pending:   result.Resolved.Pending,
	})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := database.ImportedGameQuery{
		UserID:     requestUserID(r),
		Storefront: query.Get("storefront"),
		// The store matches against NormalizedName, so the raw term
		// has to go through the same normalization first.
		Search:     titles.NormalizeKey(query.Get("search")),
		MatchState: database.MatchState(query.Get("match")),
		Playtime:   database.PlaytimeRange(query.Get("playtime")),
		Played:     database.PlayedFilter(query.Get("played")),
		LastPlayed: database.LastPlayedBucket(query.Get("last_played")),
		SortBy:     database.SortField(query.Get("sort")),
		SortDesc:   query.Get("order") == "desc",
		Page:       intParam(query.Get("page")),
		PageSize:   intParam(query.Get("page_size")),
	}

	page, err := s.db.ListImportedGames(q)
	if err != nil {
		writeError(w, r, domain.Wrap(domain.CodeDatabase, "Failed to list imported games", err))
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, toImportedGameResponse))
}

func (s *Server) handleDeleteImport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = s.db.SoftDeleteImportedGame(requestUserID(r), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, r, domain.New(domain.CodeNotFound, "Imported game not found"))
		return
	}
	if err != nil {
		writeError(w, r, domain.Wrap(domain.CodeDatabase, "Failed to delete imported game", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIgnoreImport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.collection.IgnoreImported(requestUserID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePromoteImport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req promoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, r, domain.Wrap(domain.CodeValidation, "Invalid promote request", err))
		return
	}

	promote := collection.PromoteRequest{
		UserID:          requestUserID(r),
		ImportedID:      id,
		CatalogID:       req.CatalogID,
		Platform:        req.Platform,
		AcquisitionType: req.AcquisitionType,
	}
	if req.Status != nil {
		status := collection.Status(*req.Status)
		promote.Status = &status
	}

	item, err := s.collection.PromoteImported(r.Context(), promote)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toCollectionItemResponse(&item, nil))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidation("Invalid id in path",
			map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

func intParam(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
