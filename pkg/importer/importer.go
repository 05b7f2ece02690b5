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

// Package importer runs the storefront library import pipeline: fetch
// the owned library, merge duplicate entries, filter out noise and
// games the user already tracks or ignored, persist the result and
// resolve new entries against the external catalog.
package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/matcher"
	"github.com/savepoint-project/savepoint-core/pkg/storefront"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

// ImportPlatform is the platform storefront library imports land on.
const ImportPlatform = "PC"

// Importer wires a storefront, the catalog resolver and the database
// into the import pipeline.
type Importer struct {
	cfg      *config.Instance
	db       database.UserDBI
	store    storefront.Client
	resolver *Resolver
	newIndex matcher.IndexFactory
}

// New creates an importer.
func New(
	cfg *config.Instance,
	db database.UserDBI,
	store storefront.Client,
	cat catalog.Catalog,
) *Importer {
	opts := matcher.Options{
		Threshold:   cfg.MatchThreshold(),
		MaxDistance: cfg.MatchMaxDistance(),
	}
	return &Importer{
		cfg:      cfg,
		db:       db,
		store:    store,
		resolver: NewResolver(db, cat, opts, matcher.NewIndex),
		newIndex: matcher.NewIndex,
	}
}

// RunResult reports what an import run did.
type RunResult struct {
	Profile  storefront.Profile
	Upserted database.ImportUpsertResult
	Resolved ResolveResult

	// Fetched and Merged are library sizes before and after merging.
	Fetched int
	Merged  int

	// Filtered is how many merged entries the filters removed.
	Filtered int
}

// RunImport imports a user's storefront library. The handle may be a
// native account id or a vanity name. Entries soft-deleted by the user
// are never resurrected, and a catalog outage leaves new entries
// pending rather than failing the run.
func (imp *Importer) RunImport(ctx context.Context, userID, handle string) (RunResult, error) {
	var result RunResult

	accountID, err := imp.store.ValidateHandle(ctx, handle)
	if err != nil {
		return result, err
	}

	profile, err := imp.store.GetPlayerSummary(ctx, accountID)
	if err != nil {
		return result, err
	}
	result.Profile = profile

	owned, err := imp.store.GetOwnedGames(ctx, accountID)
	if err != nil {
		return result, err
	}
	result.Fetched = len(owned)

	opts := matcher.Options{
		Threshold:   imp.cfg.MatchThreshold(),
		MaxDistance: imp.cfg.MatchMaxDistance(),
	}

	merged := MergeOwnedGames(owned, opts, imp.newIndex)
	result.Merged = len(merged)

	filter, err := imp.buildFilter(userID, opts)
	if err != nil {
		return result, err
	}
	filtered := filter.Apply(merged)
	result.Filtered = result.Merged - len(filtered)

	records := make([]database.ImportedGame, 0, len(filtered))
	for _, game := range filtered {
		records = append(records, database.ImportedGame{
			UserID:                 userID,
			Storefront:             imp.store.Name(),
			StorefrontGameID:       game.AppID,
			Name:                   game.Name,
			NormalizedName:         titles.NormalizeKey(game.Name),
			PlaytimeMinutes:        game.PlaytimeMinutes,
			PlaytimeWindowsMinutes: game.PlaytimeWindowsMinutes,
			PlaytimeMacMinutes:     game.PlaytimeMacMinutes,
			PlaytimeLinuxMinutes:   game.PlaytimeLinuxMinutes,
			LastPlayedAt:           game.LastPlayedAt,
			IconURL:                game.IconURL,
			LogoURL:                game.LogoURL,
		})
	}

	result.Upserted, err = imp.db.UpsertImportedGames(userID, records)
	if err != nil {
		return result, fmt.Errorf("failed to persist imported games: %w", err)
	}

	result.Resolved, err = imp.resolver.ResolvePending(ctx, userID)
	if err != nil {
		return result, err
	}

	log.Info().
		Str("userID", userID).
		Str("storefront", imp.store.Name()).
		Int("fetched", result.Fetched).
		Int("merged", result.Merged).
		Int("filtered", result.Filtered).
		Int("inserted", result.Upserted.Inserted).
		Int("updated", result.Upserted.Updated).
		Int("skipped", result.Upserted.Skipped).
		Int("matched", result.Resolved.Matched).
		Int("unmatched", result.Resolved.Unmatched).
		Int("pending", result.Resolved.Pending).
		Msg("storefront import finished")
	return result, nil
}

func (imp *Importer) buildFilter(userID string, opts matcher.Options) (*Filter, error) {
	collectionKeys, err := imp.db.CollectionGameKeys(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection titles: %w", err)
	}
	ignored, err := imp.db.ListIgnoredTitles(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignored titles: %w", err)
	}

	return &Filter{
		CollectionKeys: collectionKeys,
		Platform:       ImportPlatform,
		IgnoredTitles:  ignored,
		NoiseLabels:    imp.cfg.NoiseLabels(),
		MatchOptions:   opts,
		NewIndex:       imp.newIndex,
	}, nil
}
