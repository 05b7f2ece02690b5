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

package userdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTempUserDB(t *testing.T) (*UserDB, *clockwork.FakeClock) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "userdb_test.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON")
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	userDB := &UserDB{}
	require.NoError(t, userDB.SetSQLForTesting(context.Background(), sqlDB, clock))

	t.Cleanup(func() {
		if closeErr := userDB.Close(); closeErr != nil {
			t.Errorf("Failed to close UserDB: %v", closeErr)
		}
	})

	return userDB, clock
}

func importedGame(storefront, id, name, normalized string, playtime int64) database.ImportedGame {
	return database.ImportedGame{
		Storefront:       storefront,
		StorefrontGameID: id,
		Name:             name,
		NormalizedName:   normalized,
		PlaytimeMinutes:  playtime,
	}
}

func TestUserDBOpenClose(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "savepoint.db")
	userDB, err := OpenUserDB(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, userDB.GetDBPath())

	// Running migrations again is a no-op.
	require.NoError(t, userDB.MigrateUp())
	require.NoError(t, userDB.Close())

	// Reopening an existing database does not re-allocate.
	reopened, err := OpenUserDB(context.Background(), dbPath)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestUpsertImportedGamesInsertThenUpdate(t *testing.T) {
	t.Parallel()
	userDB, clock := setupTempUserDB(t)

	snapshot := []database.ImportedGame{
		importedGame("steam", "400", "Portal", "portal", 120),
		importedGame("steam", "620", "Portal 2", "portal 2", 300),
	}

	result, err := userDB.UpsertImportedGames("user-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, database.ImportUpsertResult{Inserted: 2}, result)

	clock.Advance(time.Hour)

	snapshot[0].PlaytimeMinutes = 150
	result, err = userDB.UpsertImportedGames("user-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, database.ImportUpsertResult{Updated: 2}, result)

	page, err := userDB.ListImportedGames(database.ImportedGameQuery{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)

	portal := page.Items[0]
	assert.Equal(t, "portal", portal.NormalizedName)
	assert.Equal(t, int64(150), portal.PlaytimeMinutes)
	// Update preserves CreatedAt but bumps UpdatedAt.
	assert.True(t, portal.UpdatedAt.After(portal.CreatedAt))
}

func TestUpsertImportedGamesScopedToUser(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	game := []database.ImportedGame{importedGame("steam", "400", "Portal", "portal", 0)}
	_, err := userDB.UpsertImportedGames("user-1", game)
	require.NoError(t, err)
	_, err = userDB.UpsertImportedGames("user-2", game)
	require.NoError(t, err)

	count1, err := userDB.CountImportedGames("user-1")
	require.NoError(t, err)
	count2, err := userDB.CountImportedGames("user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count1)
	assert.Equal(t, int64(1), count2)
}

func TestSoftDeletedImportNotResurrected(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	snapshot := []database.ImportedGame{importedGame("steam", "400", "Portal", "portal", 120)}
	_, err := userDB.UpsertImportedGames("user-1", snapshot)
	require.NoError(t, err)

	page, err := userDB.ListImportedGames(database.ImportedGameQuery{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	require.NoError(t, userDB.SoftDeleteImportedGame("user-1", page.Items[0].DBID))

	count, err := userDB.CountImportedGames("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Re-importing the same storefront entry is skipped, not reinserted.
	result, err := userDB.UpsertImportedGames("user-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, database.ImportUpsertResult{Skipped: 1}, result)

	count, err = userDB.CountImportedGames("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSoftDeleteImportedGameMissing(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	err := userDB.SoftDeleteImportedGame("user-1", 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListImportedGamesFilters(t *testing.T) {
	t.Parallel()
	userDB, clock := setupTempUserDB(t)
	now := clock.Now()

	recent := now.Add(-24 * time.Hour)
	old := now.AddDate(-2, 0, 0)

	games := []database.ImportedGame{
		importedGame("steam", "1", "Short Game", "short game", 30),
		importedGame("steam", "2", "Medium Game", "medium game", 700),
		importedGame("gog", "3", "Long Game", "long game", 4000),
		importedGame("gog", "4", "Shelf Game", "shelf game", 0),
	}
	games[0].LastPlayedAt = &recent
	games[1].LastPlayedAt = &old

	_, err := userDB.UpsertImportedGames("user-1", games)
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    database.ImportedGameQuery
		expected []string
	}{
		{
			name:     "by storefront",
			query:    database.ImportedGameQuery{UserID: "user-1", Storefront: "gog"},
			expected: []string{"long game", "shelf game"},
		},
		{
			name:     "playtime under hour",
			query:    database.ImportedGameQuery{UserID: "user-1", Playtime: database.PlaytimeUnderHour},
			expected: []string{"shelf game", "short game"},
		},
		{
			name:     "playtime over 50 hours",
			query:    database.ImportedGameQuery{UserID: "user-1", Playtime: database.PlaytimeLong},
			expected: []string{"long game"},
		},
		{
			name:     "played in last 30 days",
			query:    database.ImportedGameQuery{UserID: "user-1", LastPlayed: database.LastPlayedLast30Days},
			expected: []string{"short game"},
		},
		{
			name:     "played over a year ago",
			query:    database.ImportedGameQuery{UserID: "user-1", LastPlayed: database.LastPlayedOverYear},
			expected: []string{"medium game"},
		},
		{
			name:     "never played by date",
			query:    database.ImportedGameQuery{UserID: "user-1", LastPlayed: database.LastPlayedNever},
			expected: []string{"long game", "shelf game"},
		},
		{
			name:     "never played by playtime",
			query:    database.ImportedGameQuery{UserID: "user-1", Played: database.PlayedNever},
			expected: []string{"shelf game"},
		},
		{
			name: "range filter wins over played filter",
			query: database.ImportedGameQuery{
				UserID:   "user-1",
				Playtime: database.PlaytimeUnderHour,
				Played:   database.PlayedNever,
			},
			expected: []string{"shelf game", "short game"},
		},
		{
			name:     "search substring",
			query:    database.ImportedGameQuery{UserID: "user-1", Search: "medium"},
			expected: []string{"medium game"},
		},
		{
			name:     "other user sees nothing",
			query:    database.ImportedGameQuery{UserID: "user-2"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, listErr := userDB.ListImportedGames(tt.query)
			require.NoError(t, listErr)
			names := make([]string, 0, len(page.Items))
			for _, item := range page.Items {
				names = append(names, item.NormalizedName)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestListImportedGamesSortAndPaging(t *testing.T) {
	t.Parallel()
	userDB, clock := setupTempUserDB(t)
	now := clock.Now()

	played := now.Add(-time.Hour)
	games := []database.ImportedGame{
		importedGame("steam", "1", "Bravo", "bravo", 50),
		importedGame("steam", "2", "Alpha", "alpha", 200),
		importedGame("steam", "3", "Charlie", "charlie", 100),
	}
	games[1].LastPlayedAt = &played

	_, err := userDB.UpsertImportedGames("user-1", games)
	require.NoError(t, err)

	byPlaytime, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID: "user-1",
		SortBy: database.SortByPlaytime,
	})
	require.NoError(t, err)
	require.Len(t, byPlaytime.Items, 3)
	assert.Equal(t, "bravo", byPlaytime.Items[0].NormalizedName)
	assert.Equal(t, "alpha", byPlaytime.Items[2].NormalizedName)

	// Never-played rows sort last even in descending order.
	byLastPlayed, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:   "user-1",
		SortBy:   database.SortByLastPlayed,
		SortDesc: true,
	})
	require.NoError(t, err)
	require.Len(t, byLastPlayed.Items, 3)
	assert.Equal(t, "alpha", byLastPlayed.Items[0].NormalizedName)

	// Page size is clamped, never rejected.
	clamped, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:   "user-1",
		Page:     -5,
		PageSize: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, database.MaxPageSize, clamped.PageSize)

	paged, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:   "user-1",
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), paged.Total)
	assert.Len(t, paged.Items, 1)
}

func TestSetImportedGameMatch(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	_, err := userDB.UpsertImportedGames("user-1", []database.ImportedGame{
		importedGame("steam", "400", "Portal", "portal", 120),
	})
	require.NoError(t, err)

	catalogID := int64(18977)
	game, err := userDB.FindOrCreateGame(database.Game{
		CatalogID:       &catalogID,
		Title:           "Portal",
		NormalizedTitle: "portal",
	})
	require.NoError(t, err)

	// Fresh imports start pending until the resolver runs.
	pending, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:     "user-1",
		MatchState: database.MatchPending,
	})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)

	require.NoError(t, userDB.SetImportedGameMatch(pending.Items[0].DBID, game.DBID))

	matched, err := userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:     "user-1",
		MatchState: database.MatchMatched,
	})
	require.NoError(t, err)
	require.Len(t, matched.Items, 1)
	require.NotNil(t, matched.Items[0].GameDBID)
	assert.Equal(t, game.DBID, *matched.Items[0].GameDBID)

	// A later re-import must not clear the match.
	_, err = userDB.UpsertImportedGames("user-1", []database.ImportedGame{
		importedGame("steam", "400", "Portal", "portal", 500),
	})
	require.NoError(t, err)

	matched, err = userDB.ListImportedGames(database.ImportedGameQuery{
		UserID:     "user-1",
		MatchState: database.MatchMatched,
	})
	require.NoError(t, err)
	require.Len(t, matched.Items, 1)
	assert.Equal(t, int64(500), matched.Items[0].PlaytimeMinutes)
}

func TestFindOrCreateGame(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	catalogID := int64(18977)
	created, err := userDB.FindOrCreateGame(database.Game{
		CatalogID:       &catalogID,
		Title:           "Portal",
		NormalizedTitle: "portal",
		ReleaseDate:     "2007-10-10",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.DBID)

	// The catalog id is the natural key, so a second resolve with a
	// different title spelling still finds the same row.
	found, err := userDB.FindOrCreateGame(database.Game{
		CatalogID:       &catalogID,
		Title:           "Portal (2007)",
		NormalizedTitle: "portal 2007",
	})
	require.NoError(t, err)
	assert.Equal(t, created.DBID, found.DBID)
	assert.Equal(t, "2007-10-10", found.ReleaseDate)

	// Uncatalogued manual entries dedup on title instead.
	manual, err := userDB.FindOrCreateGame(database.Game{
		Title:           "Portal",
		NormalizedTitle: "portal",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.DBID, manual.DBID)

	manualAgain, err := userDB.FindOrCreateGame(database.Game{
		Title:           "Portal",
		NormalizedTitle: "portal",
	})
	require.NoError(t, err)
	assert.Equal(t, manual.DBID, manualAgain.DBID)

	got, err := userDB.GetGame(created.DBID)
	require.NoError(t, err)
	assert.Equal(t, "Portal", got.Title)
}

func TestCollectionItemLifecycle(t *testing.T) {
	t.Parallel()
	userDB, clock := setupTempUserDB(t)

	game, err := userDB.FindOrCreateGame(database.Game{
		Title:           "Hades",
		NormalizedTitle: "hades",
	})
	require.NoError(t, err)

	item := &database.CollectionItem{
		UserID:          "user-1",
		GameDBID:        game.DBID,
		Status:          "CURIOUS_ABOUT",
		Platform:        "PC",
		AcquisitionType: database.AcquisitionDigital,
	}
	dbid, err := userDB.AddCollectionItem(item)
	require.NoError(t, err)
	assert.NotZero(t, dbid)

	// A second live item for the same game and platform violates the
	// unique index.
	_, err = userDB.AddCollectionItem(&database.CollectionItem{
		UserID:          "user-1",
		GameDBID:        game.DBID,
		Status:          "WISHLIST",
		Platform:        "PC",
		AcquisitionType: database.AcquisitionPhysical,
	})
	require.Error(t, err)
	assert.True(t, isUniqueConstraintErr(err))

	// The same game on another platform is a separate item.
	_, err = userDB.AddCollectionItem(&database.CollectionItem{
		UserID:          "user-1",
		GameDBID:        game.DBID,
		Status:          "WISHLIST",
		Platform:        "Switch",
		AcquisitionType: database.AcquisitionPhysical,
	})
	require.NoError(t, err)

	started := clock.Now()
	require.NoError(t, userDB.UpdateCollectionItemStatus(
		"user-1", dbid, "CURRENTLY_EXPLORING", &started, nil))

	got, err := userDB.GetCollectionItem("user-1", dbid)
	require.NoError(t, err)
	assert.Equal(t, "CURRENTLY_EXPLORING", got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	completed := clock.Now().Add(time.Hour)
	require.NoError(t, userDB.UpdateCollectionItemStatus(
		"user-1", dbid, "EXPERIENCED", nil, &completed))

	got, err = userDB.GetCollectionItem("user-1", dbid)
	require.NoError(t, err)
	assert.Equal(t, "EXPERIENCED", got.Status)
	// StartedAt survives a later transition that only sets CompletedAt.
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)

	// Ownership is part of the key: another user cannot touch the item.
	err = userDB.UpdateCollectionItemStatus("user-2", dbid, "WISHLIST", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListCollectionAndCounts(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	titles := []struct {
		title  string
		status string
	}{
		{"Celeste", "EXPERIENCED"},
		{"Hades", "CURRENTLY_EXPLORING"},
		{"Hollow Knight", "EXPERIENCED"},
	}
	for _, entry := range titles {
		game, err := userDB.FindOrCreateGame(database.Game{
			Title:           entry.title,
			NormalizedTitle: entry.title,
		})
		require.NoError(t, err)
		_, err = userDB.AddCollectionItem(&database.CollectionItem{
			UserID:          "user-1",
			GameDBID:        game.DBID,
			Status:          entry.status,
			Platform:        "PC",
			AcquisitionType: database.AcquisitionPhysical,
		})
		require.NoError(t, err)
	}

	all, err := userDB.ListCollection(database.CollectionQuery{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "Celeste", all.Items[0].Game.Title)

	experienced, err := userDB.ListCollection(database.CollectionQuery{
		UserID: "user-1",
		Status: "EXPERIENCED",
	})
	require.NoError(t, err)
	assert.Len(t, experienced.Items, 2)
	assert.Equal(t, int64(2), experienced.Total)

	counts, err := userDB.CountCollectionByStatus("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["EXPERIENCED"])
	assert.Equal(t, int64(1), counts["CURRENTLY_EXPLORING"])

	keys, err := userDB.CollectionGameKeys("user-1")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.Equal(t, []string{"PC"}, keys["Hades"])
}

func TestIgnoredTitles(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	require.NoError(t, userDB.AddIgnoredTitle("user-1", "portal"))
	// Ignoring the same title again is a no-op.
	require.NoError(t, userDB.AddIgnoredTitle("user-1", "portal"))
	require.NoError(t, userDB.AddIgnoredTitle("user-1", "half-life"))

	titles, err := userDB.ListIgnoredTitles("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"half-life", "portal"}, titles)

	other, err := userDB.ListIgnoredTitles("user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	userDB, _ := setupTempUserDB(t)

	_, err := userDB.UpsertImportedGames("user-1", []database.ImportedGame{
		importedGame("steam", "400", "Portal", "portal", 120),
	})
	require.NoError(t, err)

	require.NoError(t, userDB.Truncate())

	count, err := userDB.CountImportedGames("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
