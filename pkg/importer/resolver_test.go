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
	"strings"
	"testing"

	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/matcher"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/testing/helpers"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves canned search results keyed by query substring.
type fakeCatalog struct {
	err     error
	results map[string][]catalog.Result
	calls   int
}

func (f *fakeCatalog) SearchByName(_ context.Context, name string) ([]catalog.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for key, results := range f.results {
		if strings.EqualFold(key, name) {
			return results, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (catalog.Result, error) {
	if f.err != nil {
		return catalog.Result{}, f.err
	}
	for _, results := range f.results {
		for _, result := range results {
			if result.CatalogID == id {
				return result, nil
			}
		}
	}
	return catalog.Result{}, domain.New(domain.CodeNotFound, "Game not found in catalog")
}

func seedImport(t *testing.T, db database.UserDBI, userID, name string) database.ImportedGame {
	t.Helper()
	_, err := db.UpsertImportedGames(userID, []database.ImportedGame{{
		UserID:           userID,
		Storefront:       "steam",
		StorefrontGameID: name,
		Name:             name,
		NormalizedName:   titles.NormalizeKey(name),
	}})
	require.NoError(t, err)

	page, err := db.ListImportedGames(database.ImportedGameQuery{
		UserID: userID, Search: titles.NormalizeKey(name),
	})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	return page.Items[0]
}

func newTestResolver(db database.UserDBI, cat catalog.Catalog) *Resolver {
	return NewResolver(db, cat, matcher.Options{}, matcher.NewIndex)
}

func TestResolvePendingLinksCatalogMatch(t *testing.T) {
	t.Parallel()
	db, _, cleanup := helpers.NewInMemoryUserDB(t)
	defer cleanup()

	row := seedImport(t, db, "user-1", "Hollow Knight")

	cat := &fakeCatalog{results: map[string][]catalog.Result{
		"Hollow Knight": {{
			CatalogID:   14593,
			Name:        "Hollow Knight",
			Summary:     "A bug crawls down.",
			CoverURL:    "https://images.example.com/cover.jpg",
			ReleaseDate: "2017-02-24",
		}},
	}}

	result, err := newTestResolver(db, cat).ResolvePending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Zero(t, result.Unmatched)

	resolved, err := db.GetImportedGame("user-1", row.DBID)
	require.NoError(t, err)
	assert.Equal(t, database.MatchStatusMatched, resolved.MatchStatus)
	require.NotNil(t, resolved.GameDBID)

	game, err := db.GetGame(*resolved.GameDBID)
	require.NoError(t, err)
	require.NotNil(t, game.CatalogID)
	assert.Equal(t, int64(14593), *game.CatalogID)
	assert.Equal(t, "Hollow Knight", game.Title)
}

func TestResolvePendingMarksNoResultsUnmatched(t *testing.T) {
	t.Parallel()
	db, _, cleanup := helpers.NewInMemoryUserDB(t)
	defer cleanup()

	row := seedImport(t, db, "user-1", "Obscure Homebrew Project")

	result, err := newTestResolver(db, &fakeCatalog{}).ResolvePending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unmatched)

	resolved, err := db.GetImportedGame("user-1", row.DBID)
	require.NoError(t, err)
	assert.Equal(t, database.MatchStatusUnmatched, resolved.MatchStatus)
	assert.Nil(t, resolved.GameDBID)
}

func TestResolvePendingRejectsDissimilarResults(t *testing.T) {
	t.Parallel()
	db, _, cleanup := helpers.NewInMemoryUserDB(t)
	defer cleanup()

	seedImport(t, db, "user-1", "Factorio")

	// Catalog returns something, but nothing close enough to link.
	cat := &fakeCatalog{results: map[string][]catalog.Result{
		"Factorio": {{CatalogID: 77, Name: "Completely Unrelated Title"}},
	}}

	result, err := newTestResolver(db, cat).ResolvePending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unmatched)
	assert.Zero(t, result.Matched)
}

func TestResolvePendingLeavesRowsPendingOnOutage(t *testing.T) {
	t.Parallel()
	db, _, cleanup := helpers.NewInMemoryUserDB(t)
	defer cleanup()

	row := seedImport(t, db, "user-1", "Celeste")

	cat := &fakeCatalog{err: domain.New(domain.CodeRateLimited, "slow down")}

	result, err := newTestResolver(db, cat).ResolvePending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, result.Matched)
	assert.Zero(t, result.Unmatched)
	assert.Equal(t, 1, result.Pending)

	resolved, err := db.GetImportedGame("user-1", row.DBID)
	require.NoError(t, err)
	assert.Equal(t, database.MatchStatusPending, resolved.MatchStatus)
}

func TestResolvePendingSharedGameAcrossUsers(t *testing.T) {
	t.Parallel()
	db, _, cleanup := helpers.NewInMemoryUserDB(t)
	defer cleanup()

	rowA := seedImport(t, db, "user-a", "Hades")
	rowB := seedImport(t, db, "user-b", "Hades")

	cat := &fakeCatalog{results: map[string][]catalog.Result{
		"Hades": {{CatalogID: 113112, Name: "Hades"}},
	}}
	resolver := newTestResolver(db, cat)

	_, err := resolver.ResolvePending(context.Background(), "user-a")
	require.NoError(t, err)
	_, err = resolver.ResolvePending(context.Background(), "user-b")
	require.NoError(t, err)

	resolvedA, err := db.GetImportedGame("user-a", rowA.DBID)
	require.NoError(t, err)
	resolvedB, err := db.GetImportedGame("user-b", rowB.DBID)
	require.NoError(t, err)

	// Both users link to the same canonical game record.
	require.NotNil(t, resolvedA.GameDBID)
	require.NotNil(t, resolvedB.GameDBID)
	assert.Equal(t, *resolvedA.GameDBID, *resolvedB.GameDBID)
}
