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

package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/matcher"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

// Resolver matches pending imported games against the external catalog
// and links them to canonical game records.
type Resolver struct {
	db       database.UserDBI
	catalog  catalog.Catalog
	newIndex matcher.IndexFactory
	opts     matcher.Options
}

// NewResolver creates a catalog resolver.
func NewResolver(
	db database.UserDBI,
	cat catalog.Catalog,
	opts matcher.Options,
	newIndex matcher.IndexFactory,
) *Resolver {
	return &Resolver{
		db:       db,
		catalog:  cat,
		opts:     opts,
		newIndex: newIndex,
	}
}

// ResolveResult reports what a resolve pass changed. Pending counts
// rows left for a later retry because the catalog was unavailable.
type ResolveResult struct {
	Matched   int
	Unmatched int
	Pending   int
}

// ResolvePending resolves every pending imported game for a user. A
// rate limit or catalog outage stops the pass and leaves the remaining
// rows pending; a later import run retries them.
func (r *Resolver) ResolvePending(ctx context.Context, userID string) (ResolveResult, error) {
	var result ResolveResult

	for {
		page, err := r.db.ListImportedGames(database.ImportedGameQuery{
			UserID:     userID,
			MatchState: database.MatchPending,
			PageSize:   database.MaxPageSize,
		})
		if err != nil {
			return result, fmt.Errorf("failed to list pending imports: %w", err)
		}
		if len(page.Items) == 0 {
			return result, nil
		}

		processed := 0
		for i := range page.Items {
			matched, err := r.resolveOne(ctx, &page.Items[i])
			switch {
			case err == nil && matched:
				result.Matched++
			case err == nil:
				result.Unmatched++
			case isTransient(err):
				// page.Total is the pending count when this page was
				// fetched, so the unprocessed remainder stays pending.
				result.Pending = int(page.Total) - processed
				log.Warn().Err(err).Str("userID", userID).
					Msg("catalog unavailable, leaving remaining imports pending")
				return result, nil
			default:
				return result, err
			}
			processed++
		}
	}
}

// resolveOne matches a single row. True means a catalog match was
// linked, false means the row was definitively marked unmatched.
func (r *Resolver) resolveOne(ctx context.Context, row *database.ImportedGame) (bool, error) {
	results, err := r.catalog.SearchByName(ctx, row.Name)
	if err != nil {
		return false, err
	}

	best, found := r.bestMatch(row.NormalizedName, results)
	if !found {
		if err := r.db.MarkImportedGameUnmatched(row.DBID); err != nil {
			return false, fmt.Errorf("failed to mark import unmatched: %w", err)
		}
		log.Debug().Str("name", row.Name).Msg("no catalog match for imported game")
		return false, nil
	}

	game, err := r.db.FindOrCreateGame(gameFromCatalog(best))
	if err != nil {
		return false, fmt.Errorf("failed to create game record: %w", err)
	}
	if err := r.db.SetImportedGameMatch(row.DBID, game.DBID); err != nil {
		return false, fmt.Errorf("failed to link import to game: %w", err)
	}
	return true, nil
}

// bestMatch picks the catalog result whose normalized name is closest
// to the imported title, or reports no result cleared the threshold.
func (r *Resolver) bestMatch(normalizedName string, results []catalog.Result) (catalog.Result, bool) {
	if len(results) == 0 {
		return catalog.Result{}, false
	}

	byKey := make(map[string]catalog.Result, len(results))
	keys := make([]string, 0, len(results))
	for _, result := range results {
		key := titles.NormalizeKey(result.Name)
		if _, seen := byKey[key]; !seen {
			byKey[key] = result
			keys = append(keys, key)
		}
	}

	matches := r.newIndex(keys, r.opts).Search(normalizedName)
	if len(matches) == 0 {
		return catalog.Result{}, false
	}
	return byKey[matches[0].Name], true
}

func gameFromCatalog(result catalog.Result) database.Game {
	catalogID := result.CatalogID
	return database.Game{
		CatalogID:       &catalogID,
		Title:           result.Name,
		NormalizedTitle: titles.NormalizeKey(result.Name),
		CoverURL:        result.CoverURL,
		Summary:         result.Summary,
		ReleaseDate:     result.ReleaseDate,
	}
}

// isTransient reports whether a catalog error should leave rows pending
// for retry rather than fail the run.
func isTransient(err error) bool {
	return domain.IsCode(err, domain.CodeRateLimited) ||
		domain.IsCode(err, domain.CodeExternalUnavailable)
}
