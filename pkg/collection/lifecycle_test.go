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

package collection

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/testing/helpers"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	err     error
	results map[int64]catalog.Result
}

func (f *fakeCatalog) SearchByName(context.Context, string) ([]catalog.Result, error) {
	return nil, f.err
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (catalog.Result, error) {
	if f.err != nil {
		return catalog.Result{}, f.err
	}
	if result, ok := f.results[id]; ok {
		return result, nil
	}
	return catalog.Result{}, domain.New(domain.CodeNotFound, "Game not found in catalog")
}

func newTestService(t *testing.T) (*Service, database.UserDBI, *clockwork.FakeClock, *fakeCatalog) {
	t.Helper()
	db, clock, cleanup := helpers.NewInMemoryUserDB(t)
	t.Cleanup(cleanup)
	cat := &fakeCatalog{results: map[int64]catalog.Result{}}
	return NewService(db, cat, clock), db, clock, cat
}

func seedImport(t *testing.T, db database.UserDBI, userID string, game database.ImportedGame) database.ImportedGame {
	t.Helper()
	game.UserID = userID
	if game.Storefront == "" {
		game.Storefront = "steam"
	}
	if game.StorefrontGameID == "" {
		game.StorefrontGameID = game.Name
	}
	if game.NormalizedName == "" {
		game.NormalizedName = titles.NormalizeKey(game.Name)
	}
	_, err := db.UpsertImportedGames(userID, []database.ImportedGame{game})
	require.NoError(t, err)

	page, err := db.ListImportedGames(database.ImportedGameQuery{
		UserID: userID, Search: game.NormalizedName,
	})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	return page.Items[0]
}

func TestAddItemCreatesUncataloguedGame(t *testing.T) {
	t.Parallel()
	svc, db, _, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1",
		Title:  "Chrono Trigger",
		Status: StatusWishlist,
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusWishlist), item.Status)
	assert.Equal(t, defaultPlatform, item.Platform)
	assert.Equal(t, database.AcquisitionDigital, item.AcquisitionType)

	game, err := db.GetGame(item.GameDBID)
	require.NoError(t, err)
	assert.Equal(t, "Chrono Trigger", game.Title)
	assert.Nil(t, game.CatalogID)
}

func TestAddItemRejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddItem(AddRequest{UserID: "user-1", Title: "Hades", Status: "OWNED"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestAddItemRequiresTitleOrGame(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddItem(AddRequest{UserID: "user-1", Status: StatusCuriousAbout})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestAddItemDuplicatePlatformConflicts(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Hades", Status: StatusCuriousAbout, Platform: "PC",
	})
	require.NoError(t, err)

	_, err = svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Hades", Status: StatusWishlist, Platform: "PC",
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeConflict))

	// The same game on another platform is a separate item.
	_, err = svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Hades", Status: StatusCuriousAbout, Platform: "Switch",
	})
	require.NoError(t, err)
}

func TestChangeStatusOutOfWishlist(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Outer Wilds", Status: StatusWishlist,
	})
	require.NoError(t, err)

	updated, err := svc.ChangeStatus("user-1", item.DBID, StatusExperienced)
	require.NoError(t, err)
	assert.Equal(t, string(StatusExperienced), updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestChangeStatusIntoWishlistIsRejected(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	tests := []struct {
		name string
		from Status
	}{
		{"from curious about", StatusCuriousAbout},
		{"from experienced", StatusExperienced},
	}

	for i, tt := range tests {
		item, err := svc.AddItem(AddRequest{
			UserID:   "user-1",
			Title:    tt.name,
			Status:   tt.from,
			Platform: []string{"PC", "Switch"}[i],
		})
		require.NoError(t, err)

		_, err = svc.ChangeStatus("user-1", item.DBID, StatusWishlist)
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
		assert.Contains(t, domain.MessageOf(err), "Wishlist")

		// The item keeps its status.
		unchanged, err := svc.ChangeStatus("user-1", item.DBID, tt.from)
		require.NoError(t, err)
		assert.Equal(t, string(tt.from), unchanged.Status)
	}
}

func TestChangeStatusWishlistToWishlistIsRejected(t *testing.T) {
	t.Parallel()
	svc, db, _, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Tunic", Status: StatusWishlist, Platform: "PC",
	})
	require.NoError(t, err)

	// A wishlisted item has nothing to transition, so even the no-op
	// move is rejected rather than rewriting the row.
	_, err = svc.ChangeStatus("user-1", item.DBID, StatusWishlist)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
	assert.Contains(t, domain.MessageOf(err), "Wishlist")

	unchanged, err := db.GetCollectionItem("user-1", item.DBID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusWishlist), unchanged.Status)
}

func TestChangeStatusStampsStartedAtOnce(t *testing.T) {
	t.Parallel()
	svc, _, clock, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Subnautica", Status: StatusCuriousAbout,
	})
	require.NoError(t, err)

	first, err := svc.ChangeStatus("user-1", item.DBID, StatusCurrentlyExploring)
	require.NoError(t, err)
	require.NotNil(t, first.StartedAt)
	startedAt := *first.StartedAt

	clock.Advance(48 * time.Hour)
	_, err = svc.ChangeStatus("user-1", item.DBID, StatusTookABreak)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	again, err := svc.ChangeStatus("user-1", item.DBID, StatusCurrentlyExploring)
	require.NoError(t, err)
	require.NotNil(t, again.StartedAt)
	assert.Equal(t, startedAt, *again.StartedAt)
}

func TestChangeStatusCompletedAtNotBeforeStartedAt(t *testing.T) {
	t.Parallel()
	svc, _, clock, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Tunic", Status: StatusCurrentlyExploring,
	})
	require.NoError(t, err)

	started, err := svc.ChangeStatus("user-1", item.DBID, StatusCurrentlyExploring)
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)
	done, err := svc.ChangeStatus("user-1", item.DBID, StatusExperienced)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	if started.StartedAt != nil {
		assert.False(t, done.CompletedAt.Before(*started.StartedAt))
	}
}

func TestChangeStatusUnknownItem(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.ChangeStatus("user-1", 999, StatusExperienced)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestChangeStatusOtherUsersItem(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	item, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Hades", Status: StatusCuriousAbout,
	})
	require.NoError(t, err)

	_, err = svc.ChangeStatus("user-2", item.DBID, StatusExperienced)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestPromoteImportedUnmatchedEntry(t *testing.T) {
	t.Parallel()
	svc, db, _, _ := newTestService(t)

	row := seedImport(t, db, "user-1", database.ImportedGame{Name: "Obscure Homebrew Project"})

	item, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: row.DBID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusCuriousAbout), item.Status)

	game, err := db.GetGame(item.GameDBID)
	require.NoError(t, err)
	assert.Equal(t, "Obscure Homebrew Project", game.Title)
	assert.Nil(t, game.CatalogID)

	// The promoted entry leaves the review queue.
	_, err = db.GetImportedGame("user-1", row.DBID)
	require.Error(t, err)
}

func TestPromoteImportedSuggestsStatusFromPlaytime(t *testing.T) {
	t.Parallel()
	svc, db, clock, _ := newTestService(t)

	lastPlayed := clock.Now().Add(-48 * time.Hour)
	row := seedImport(t, db, "user-1", database.ImportedGame{
		Name:            "Factorio",
		PlaytimeMinutes: 9000,
		LastPlayedAt:    &lastPlayed,
	})

	item, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: row.DBID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusCurrentlyExploring), item.Status)
	assert.Equal(t, int64(9000), item.PlaytimeMinutes)
	require.NotNil(t, item.LastPlayedAt)
}

func TestPromoteImportedManualCatalogOverride(t *testing.T) {
	t.Parallel()
	svc, db, _, cat := newTestService(t)

	cat.results[14593] = catalog.Result{
		CatalogID:   14593,
		Name:        "Hollow Knight",
		ReleaseDate: "2017-02-24",
	}
	row := seedImport(t, db, "user-1", database.ImportedGame{Name: "hollow knight beta key"})

	override := int64(14593)
	item, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: row.DBID, CatalogID: &override,
	})
	require.NoError(t, err)

	game, err := db.GetGame(item.GameDBID)
	require.NoError(t, err)
	require.NotNil(t, game.CatalogID)
	assert.Equal(t, int64(14593), *game.CatalogID)
	assert.Equal(t, "Hollow Knight", game.Title)
}

func TestPromoteImportedStatusOverride(t *testing.T) {
	t.Parallel()
	svc, db, _, _ := newTestService(t)

	row := seedImport(t, db, "user-1", database.ImportedGame{Name: "Celeste"})

	status := StatusRevisiting
	item, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: row.DBID, Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusRevisiting), item.Status)
}

func TestPromoteImportedCatalogOutageLeavesRow(t *testing.T) {
	t.Parallel()
	svc, db, _, cat := newTestService(t)

	row := seedImport(t, db, "user-1", database.ImportedGame{Name: "Celeste"})
	cat.err = domain.New(domain.CodeExternalUnavailable, "catalog down")

	override := int64(3886)
	_, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: row.DBID, CatalogID: &override,
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeExternalUnavailable))

	// The imported row is untouched and can be retried.
	kept, err := db.GetImportedGame("user-1", row.DBID)
	require.NoError(t, err)
	assert.Equal(t, database.MatchStatusPending, kept.MatchStatus)
}

func TestPromoteImportedUnknownRow(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.PromoteImported(context.Background(), PromoteRequest{
		UserID: "user-1", ImportedID: 999,
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestIgnoreImported(t *testing.T) {
	t.Parallel()
	svc, db, _, _ := newTestService(t)

	row := seedImport(t, db, "user-1", database.ImportedGame{Name: "Spacewar"})

	require.NoError(t, svc.IgnoreImported("user-1", row.DBID))

	ignored, err := db.ListIgnoredTitles("user-1")
	require.NoError(t, err)
	assert.Contains(t, ignored, "spacewar")

	_, err = db.GetImportedGame("user-1", row.DBID)
	require.Error(t, err)
}

func TestCountByStatusIncludesZeroes(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddItem(AddRequest{
		UserID: "user-1", Title: "Hades", Status: StatusCuriousAbout,
	})
	require.NoError(t, err)

	counts, err := svc.CountByStatus("user-1")
	require.NoError(t, err)
	require.Len(t, counts, 6)

	byStatus := make(map[Status]int64)
	for _, count := range counts {
		byStatus[count.Status] = count.Count
	}
	assert.Equal(t, int64(1), byStatus[StatusCuriousAbout])
	assert.Zero(t, byStatus[StatusWishlist])
	assert.Zero(t, byStatus[StatusRevisiting])
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.List(database.CollectionQuery{UserID: "user-1", Status: "OWNED"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}
