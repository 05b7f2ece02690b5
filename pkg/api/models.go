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
	"time"

	"github.com/savepoint-project/savepoint-core/pkg/database"
)

/*
 * Request payloads
 */

type runImportRequest struct {
	Handle string `json:"handle" validate:"required,min=2,max=128"`
}

type promoteRequest struct {
	CatalogID       *int64  `json:"catalog_id,omitempty"`
	Status          *string `json:"status,omitempty"`
	Platform        string  `json:"platform,omitempty"        validate:"omitempty,max=64"`
	AcquisitionType string  `json:"acquisition_type,omitempty" validate:"omitempty,oneof=DIGITAL PHYSICAL SUBSCRIPTION"`
}

type addItemRequest struct {
	Rating          *int   `json:"rating,omitempty"           validate:"omitempty,gte=1,lte=10"`
	Title           string `json:"title,omitempty"            validate:"omitempty,max=256"`
	Status          string `json:"status"                     validate:"required"`
	Platform        string `json:"platform,omitempty"         validate:"omitempty,max=64"`
	AcquisitionType string `json:"acquisition_type,omitempty" validate:"omitempty,oneof=DIGITAL PHYSICAL SUBSCRIPTION"`
	Notes           string `json:"notes,omitempty"            validate:"omitempty,max=4096"`
	GameID          int64  `json:"game_id,omitempty"          validate:"omitempty,gt=0"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

/*
 * Response payloads
 */

type errorResponse struct {
	Fields  map[string]string `json:"fields,omitempty"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
}

type importedGameResponse struct {
	LastPlayedAt     *time.Time `json:"last_played_at,omitempty"`
	GameID           *int64     `json:"game_id,omitempty"`
	Storefront       string     `json:"storefront"`
	StorefrontGameID string     `json:"storefront_game_id"`
	Name             string     `json:"name"`
	IconURL          string     `json:"icon_url,omitempty"`
	LogoURL          string     `json:"logo_url,omitempty"`
	MatchStatus      string     `json:"match_status"`
	ID               int64      `json:"id"`
	PlaytimeMinutes  int64      `json:"playtime_minutes"`
}

func toImportedGameResponse(game *database.ImportedGame) importedGameResponse {
	return importedGameResponse{
		ID:               game.DBID,
		Storefront:       game.Storefront,
		StorefrontGameID: game.StorefrontGameID,
		Name:             game.Name,
		PlaytimeMinutes:  game.PlaytimeMinutes,
		LastPlayedAt:     game.LastPlayedAt,
		IconURL:          game.IconURL,
		LogoURL:          game.LogoURL,
		MatchStatus:      game.MatchStatus,
		GameID:           game.GameDBID,
	}
}

type gameResponse struct {
	CatalogID   *int64 `json:"catalog_id,omitempty"`
	Title       string `json:"title"`
	CoverURL    string `json:"cover_url,omitempty"`
	Summary     string `json:"summary,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	ID          int64  `json:"id"`
}

type collectionItemResponse struct {
	LastPlayedAt    *time.Time    `json:"last_played_at,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Rating          *int          `json:"rating,omitempty"`
	Game            *gameResponse `json:"game,omitempty"`
	Status          string        `json:"status"`
	StatusLabel     string        `json:"status_label"`
	Platform        string        `json:"platform"`
	AcquisitionType string        `json:"acquisition_type"`
	Notes           string        `json:"notes,omitempty"`
	ID              int64         `json:"id"`
	GameID          int64         `json:"game_id"`
	PlaytimeMinutes int64         `json:"playtime_minutes"`
}

type statusCountResponse struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

type runImportResponse struct {
	Profile   profileResponse `json:"profile"`
	Fetched   int             `json:"fetched"`
	Merged    int             `json:"merged"`
	Filtered  int             `json:"filtered"`
	Inserted  int             `json:"inserted"`
	Updated   int             `json:"updated"`
	Skipped   int             `json:"skipped"`
	Matched   int             `json:"matched"`
	Unmatched int             `json:"unmatched"`
	Pending   int             `json:"pending"`
}

type profileResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// pageResponse wraps a page of results.
type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
}

func toPageResponse[In any, Out any](p database.Paginated[In], convert func(*In) Out) pageResponse[Out] {
	items := make([]Out, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, convert(&p.Items[i]))
	}
	return pageResponse[Out]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(),
	}
}
