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
	"net/http"

	"github.com/savepoint-project/savepoint-core/pkg/collection"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

func (s *Server) toCollectionItemResponse(
	item *database.CollectionItem, game *database.Game,
) collectionItemResponse {
	resp := collectionItemResponse{
		ID:              item.DBID,
		GameID:          item.GameDBID,
		Status:          item.Status,
		StatusLabel:     collection.Status(item.Status).Label(),
		Platform:        item.Platform,
		AcquisitionType: item.AcquisitionType,
		PlaytimeMinutes: item.PlaytimeMinutes,
		LastPlayedAt:    item.LastPlayedAt,
		StartedAt:       item.StartedAt,
		CompletedAt:     item.CompletedAt,
		Rating:          item.Rating,
		Notes:           item.Notes,
	}
	if game != nil {
		resp.Game = &gameResponse{
			ID:          game.DBID,
			CatalogID:   game.CatalogID,
			Title:       game.Title,
			CoverURL:    game.CoverURL,
			Summary:     game.Summary,
			ReleaseDate: game.ReleaseDate,
		}
	}
	return resp
}

func (s *Server) handleAddCollectionItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, r, domain.Wrap(domain.CodeValidation, "Invalid collection item", err))
		return
	}

	item, err := s.collection.AddItem(collection.AddRequest{
		UserID:          requestUserID(r),
		GameDBID:        req.GameID,
		Title:           req.Title,
		Status:          collection.Status(req.Status),
		Platform:        req.Platform,
		AcquisitionType: req.AcquisitionType,
		Notes:           req.Notes,
		Rating:          req.Rating,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toCollectionItemResponse(&item, nil))
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, r, domain.Wrap(domain.CodeValidation, "A status is required", err))
		return
	}

	item, err := s.collection.ChangeStatus(requestUserID(r), id, collection.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toCollectionItemResponse(&item, nil))
}

func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := s.collection.List(database.CollectionQuery{
		UserID:   requestUserID(r),
		Status:   query.Get("status"),
		Platform: query.Get("platform"),
		Search:   titles.NormalizeKey(query.Get("search")),
		Page:     intParam(query.Get("page")),
		PageSize: intParam(query.Get("page_size")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page,
		func(entry *database.CollectionEntry) collectionItemResponse {
			return s.toCollectionItemResponse(&entry.CollectionItem, &entry.Game)
		}))
}

func (s *Server) handleCollectionCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.collection.CountByStatus(requestUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]statusCountResponse, 0, len(counts))
	for _, count := range counts {
		resp = append(resp, statusCountResponse{
			Status: string(count.Status),
			Label:  count.Label,
			Count:  count.Count,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (*Server) handleListStatuses(w http.ResponseWriter, _ *http.Request) {
	statuses := collection.AllStatuses()
	resp := make([]statusCountResponse, 0, len(statuses))
	for _, status := range statuses {
		resp = append(resp, statusCountResponse{
			Status: string(status),
			Label:  status.Label(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
