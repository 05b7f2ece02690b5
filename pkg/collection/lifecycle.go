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

// Package collection manages a user's game collection: the status
// lifecycle, adding items manually and promoting imported storefront
// entries into tracked items.
package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/userdb"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

// defaultPlatform is where storefront imports are assumed to be played.
const defaultPlatform = "PC"

const wishlistRejectedMsg = "Wishlist is for new items only; remove and re-add instead."

// Service implements collection operations on top of the database and
// the external catalog.
type Service struct {
	db      database.UserDBI
	catalog catalog.Catalog
	clock   clockwork.Clock
}

// NewService creates a collection service.
func NewService(db database.UserDBI, cat catalog.Catalog, clock clockwork.Clock) *Service {
	return &Service{db: db, catalog: cat, clock: clock}
}

// AddRequest describes a manually added collection item. Title is used
// when GameDBID is zero: the game record is created uncatalogued.
type AddRequest struct {
	UserID          string
	Title           string
	Status          Status
	Platform        string
	AcquisitionType string
	Notes           string
	Rating          *int
	GameDBID        int64
}

// AddItem adds a game to the user's collection. Any status is legal at
// creation, including Wishlist.
func (s *Service) AddItem(req AddRequest) (database.CollectionItem, error) {
	var item database.CollectionItem

	if !req.Status.Valid() {
		return item, domain.NewValidation("Unknown collection status",
			map[string]string{"status": string(req.Status)})
	}

	game, err := s.resolveGameForAdd(&req)
	if err != nil {
		return item, err
	}

	item = database.CollectionItem{
		UserID:          req.UserID,
		GameDBID:        game.DBID,
		Status:          string(req.Status),
		Platform:        req.Platform,
		AcquisitionType: req.AcquisitionType,
		Notes:           req.Notes,
		Rating:          req.Rating,
	}
	if item.Platform == "" {
		item.Platform = defaultPlatform
	}
	if item.AcquisitionType == "" {
		item.AcquisitionType = database.AcquisitionDigital
	}

	dbid, err := s.db.AddCollectionItem(&item)
	if err != nil {
		if userdb.IsUniqueConstraintErr(err) {
			return item, domain.Wrap(domain.CodeConflict,
				"This game is already in your collection on that platform", err)
		}
		return item, fmt.Errorf("failed to add collection item: %w", err)
	}
	item.DBID = dbid

	log.Info().Str("userID", req.UserID).Str("title", game.Title).
		Str("status", string(req.Status)).Msg("added game to collection")
	return item, nil
}

func (s *Service) resolveGameForAdd(req *AddRequest) (database.Game, error) {
	if req.GameDBID != 0 {
		game, err := s.db.GetGame(req.GameDBID)
		if errors.Is(err, sql.ErrNoRows) {
			return game, domain.New(domain.CodeNotFound, "Game not found")
		}
		if err != nil {
			return game, fmt.Errorf("failed to load game: %w", err)
		}
		return game, nil
	}

	if req.Title == "" {
		return database.Game{}, domain.NewValidation("A game or a title is required",
			map[string]string{"title": "required without game_id"})
	}
	game, err := s.db.FindOrCreateGame(database.Game{
		Title:           req.Title,
		NormalizedTitle: titles.NormalizeKey(req.Title),
	})
	if err != nil {
		return game, fmt.Errorf("failed to create game record: %w", err)
	}
	return game, nil
}

// ChangeStatus moves a collection item to a new lifecycle status.
// Transitions into Wishlist are always rejected. The first move into
// Currently Exploring stamps StartedAt; a move into Experienced stamps
// CompletedAt.
func (s *Service) ChangeStatus(userID string, itemID int64, to Status) (database.CollectionItem, error) {
	var updated database.CollectionItem

	if !to.Valid() {
		return updated, domain.NewValidation("Unknown collection status",
			map[string]string{"status": string(to)})
	}

	item, err := s.db.GetCollectionItem(userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return updated, domain.New(domain.CodeNotFound, "Collection item not found")
	}
	if err != nil {
		return updated, fmt.Errorf("failed to load collection item: %w", err)
	}

	from := Status(item.Status)
	if to == StatusWishlist {
		return updated, domain.New(domain.CodeValidation, wishlistRejectedMsg)
	}
	if !CanTransition(from, to) {
		return updated, domain.NewValidation(
			fmt.Sprintf("Cannot move from %s to %s", from.Label(), to.Label()),
			map[string]string{"status": string(to)})
	}

	var startedAt, completedAt *time.Time
	now := s.clock.Now()
	if to == StatusCurrentlyExploring && item.StartedAt == nil {
		startedAt = &now
	}
	if to == StatusExperienced {
		completedAt = &now
	}

	err = s.db.UpdateCollectionItemStatus(userID, itemID, string(to), startedAt, completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return updated, domain.New(domain.CodeNotFound, "Collection item not found")
	}
	if err != nil {
		return updated, fmt.Errorf("failed to update collection status: %w", err)
	}

	updated, err = s.db.GetCollectionItem(userID, itemID)
	if err != nil {
		return updated, fmt.Errorf("failed to reload collection item: %w", err)
	}

	log.Info().Str("userID", userID).Int64("itemID", itemID).
		Str("from", string(from)).Str("to", string(to)).
		Msg("collection status changed")
	return updated, nil
}

// PromoteRequest promotes an imported storefront entry to a tracked
// collection item. CatalogID overrides the automatic catalog match;
// Status overrides the suggested one.
type PromoteRequest struct {
	Status          *Status
	CatalogID       *int64
	UserID          string
	Platform        string
	AcquisitionType string
	ImportedID      int64
}

// PromoteImported turns an imported entry into a collection item. The
// imported row is soft deleted afterwards so the review queue shrinks;
// a later re-import will not resurrect it. Catalog outages abort the
// promotion without touching the row.
func (s *Service) PromoteImported(ctx context.Context, req PromoteRequest) (database.CollectionItem, error) {
	var item database.CollectionItem

	row, err := s.db.GetImportedGame(req.UserID, req.ImportedID)
	if errors.Is(err, sql.ErrNoRows) {
		return item, domain.New(domain.CodeNotFound, "Imported game not found")
	}
	if err != nil {
		return item, fmt.Errorf("failed to load imported game: %w", err)
	}

	game, err := s.resolveGameForPromote(ctx, &row, req.CatalogID)
	if err != nil {
		return item, err
	}

	status := SuggestStatus(row.PlaytimeMinutes, row.LastPlayedAt, s.clock.Now())
	if req.Status != nil {
		if !req.Status.Valid() {
			return item, domain.NewValidation("Unknown collection status",
				map[string]string{"status": string(*req.Status)})
		}
		status = *req.Status
	}

	item = database.CollectionItem{
		UserID:          req.UserID,
		GameDBID:        game.DBID,
		Status:          string(status),
		Platform:        req.Platform,
		AcquisitionType: req.AcquisitionType,
		PlaytimeMinutes: row.PlaytimeMinutes,
		LastPlayedAt:    row.LastPlayedAt,
	}
	if item.Platform == "" {
		item.Platform = defaultPlatform
	}
	if item.AcquisitionType == "" {
		item.AcquisitionType = database.AcquisitionDigital
	}

	dbid, err := s.db.AddCollectionItem(&item)
	if err != nil {
		if userdb.IsUniqueConstraintErr(err) {
			return item, domain.Wrap(domain.CodeConflict,
				"This game is already in your collection on that platform", err)
		}
		return item, fmt.Errorf("failed to add collection item: %w", err)
	}
	item.DBID = dbid

	if err := s.db.SoftDeleteImportedGame(req.UserID, req.ImportedID); err != nil {
		log.Warn().Err(err).Int64("importedID", req.ImportedID).
			Msg("promoted import could not be removed from review queue")
	}

	log.Info().Str("userID", req.UserID).Str("title", game.Title).
		Str("status", string(status)).Msg("promoted imported game to collection")
	return item, nil
}

// resolveGameForPromote picks the canonical game for a promotion: a
// manual catalog id wins over the automatic match, and an unmatched
// entry falls back to an uncatalogued record under the imported name.
func (s *Service) resolveGameForPromote(
	ctx context.Context, row *database.ImportedGame, catalogID *int64,
) (database.Game, error) {
	if catalogID != nil {
		result, err := s.catalog.GetByID(ctx, *catalogID)
		if err != nil {
			return database.Game{}, err
		}
		game, err := s.db.FindOrCreateGame(database.Game{
			CatalogID:       &result.CatalogID,
			Title:           result.Name,
			NormalizedTitle: titles.NormalizeKey(result.Name),
			CoverURL:        result.CoverURL,
			Summary:         result.Summary,
			ReleaseDate:     result.ReleaseDate,
		})
		if err != nil {
			return game, fmt.Errorf("failed to create game record: %w", err)
		}
		if err := s.db.SetImportedGameMatch(row.DBID, game.DBID); err != nil {
			return game, fmt.Errorf("failed to link import to game: %w", err)
		}
		return game, nil
	}

	if row.GameDBID != nil {
		game, err := s.db.GetGame(*row.GameDBID)
		if err != nil {
			return game, fmt.Errorf("failed to load matched game: %w", err)
		}
		return game, nil
	}

	game, err := s.db.FindOrCreateGame(database.Game{
		Title:           row.Name,
		NormalizedTitle: row.NormalizedName,
	})
	if err != nil {
		return game, fmt.Errorf("failed to create game record: %w", err)
	}
	return game, nil
}

// IgnoreImported removes an imported entry and excludes its title from
// future imports.
func (s *Service) IgnoreImported(userID string, importedID int64) error {
	row, err := s.db.GetImportedGame(userID, importedID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.New(domain.CodeNotFound, "Imported game not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load imported game: %w", err)
	}

	if err := s.db.AddIgnoredTitle(userID, row.NormalizedName); err != nil {
		return fmt.Errorf("failed to ignore title: %w", err)
	}
	if err := s.db.SoftDeleteImportedGame(userID, importedID); err != nil {
		return fmt.Errorf("failed to remove imported game: %w", err)
	}
	return nil
}

// List returns a page of the user's collection.
func (s *Service) List(q database.CollectionQuery) (database.Paginated[database.CollectionEntry], error) {
	if q.Status != "" && !Status(q.Status).Valid() {
		return database.Paginated[database.CollectionEntry]{},
			domain.NewValidation("Unknown collection status",
				map[string]string{"status": q.Status})
	}
	page, err := s.db.ListCollection(q)
	if err != nil {
		return page, fmt.Errorf("failed to list collection: %w", err)
	}
	return page, nil
}

// StatusCount is one entry of the per-status summary.
type StatusCount struct {
	Status Status
	Label  string
	Count  int64
}

// CountByStatus returns item counts for every status in display order,
// including zeroes.
func (s *Service) CountByStatus(userID string) ([]StatusCount, error) {
	counts, err := s.db.CountCollectionByStatus(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection: %w", err)
	}

	summary := make([]StatusCount, 0, len(statusLabels))
	for _, status := range AllStatuses() {
		summary = append(summary, StatusCount{
			Status: status,
			Label:  status.Label(),
			Count:  counts[string(status)],
		})
	}
	return summary, nil
}
