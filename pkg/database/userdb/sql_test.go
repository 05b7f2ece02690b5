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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	testsqlmock "github.com/savepoint-project/savepoint-core/pkg/testing/sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlInsertImportedGame(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Unix(1700000000, 0)
	lastPlayed := now.Add(-time.Hour)
	game := &database.ImportedGame{
		UserID:           "user-1",
		Storefront:       "steam",
		StorefrontGameID: "400",
		Name:             "Portal",
		NormalizedName:   "portal",
		PlaytimeMinutes:  120,
		LastPlayedAt:     &lastPlayed,
		IconURL:          "https://example.com/icon.jpg",
	}

	mock.ExpectPrepare(`INSERT INTO ImportedGames.*VALUES`).
		ExpectExec().
		WithArgs(
			game.UserID,
			game.Storefront,
			game.StorefrontGameID,
			game.Name,
			game.NormalizedName,
			game.PlaytimeMinutes,
			int64(0),
			int64(0),
			int64(0),
			lastPlayed.Unix(),
			game.IconURL,
			"",
			database.MatchStatusPending,
			nil,
			now.Unix(),
			now.Unix(),
		).
		WillReturnResult(sqlmock.NewResult(7, 1))

	err = sqlInsertImportedGame(context.Background(), db, game, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), game.DBID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlSoftDeleteImportedGameMissingRow(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Unix(1700000000, 0)
	mock.ExpectPrepare(`UPDATE ImportedGames.*SET DeletedAt`).
		ExpectExec().
		WithArgs(now.Unix(), now.Unix(), int64(5), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = sqlSoftDeleteImportedGame(context.Background(), db, "user-1", 5, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlSetImportedGameMatch(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Unix(1700000000, 0)
	mock.ExpectPrepare(`UPDATE ImportedGames.*SET GameDBID`).
		ExpectExec().
		WithArgs(int64(3), database.MatchStatusMatched, now.Unix(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = sqlSetImportedGameMatch(context.Background(), db, 9, 3, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlMarkImportedGameUnmatched(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Unix(1700000000, 0)
	mock.ExpectPrepare(`UPDATE ImportedGames.*SET MatchStatus`).
		ExpectExec().
		WithArgs(database.MatchStatusUnmatched, now.Unix(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = sqlMarkImportedGameUnmatched(context.Background(), db, 4, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlCountImportedGames(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ImportedGames`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := sqlCountImportedGames(context.Background(), db, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlAddIgnoredTitleQueryError(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectPrepare(`INSERT OR IGNORE INTO IgnoredGames`).
		ExpectExec().
		WithArgs("user-1", "portal", int64(1700000000)).
		WillReturnError(errors.New("disk I/O error"))

	err = sqlAddIgnoredTitle(context.Background(), db, "user-1", "portal", 1700000000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
