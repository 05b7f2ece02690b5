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
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/database"
)

// FindOrCreateGame returns the canonical game for the given key, creating
// it if missing. Games resolved by the catalog dedup on CatalogID;
// uncatalogued manual entries dedup on NormalizedTitle. Canonical games
// are shared across users, so a create that loses a race re-fetches the
// winner's row.
func (db *UserDB) FindOrCreateGame(game database.Game) (database.Game, error) {
	if db.sql == nil {
		return database.Game{}, ErrNullSQL
	}

	existing, err := sqlFindGameByKey(db.ctx, db.sql, game)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Game{}, err
	}

	created, err := sqlInsertGame(db.ctx, db.sql, game, db.clock.Now())
	if err == nil {
		return created, nil
	}
	if isUniqueConstraintErr(err) {
		return sqlFindGameByKey(db.ctx, db.sql, game)
	}
	return database.Game{}, err
}

// GetGame returns a canonical game by id.
func (db *UserDB) GetGame(dbid int64) (database.Game, error) {
	if db.sql == nil {
		return database.Game{}, ErrNullSQL
	}
	return sqlGetGame(db.ctx, db.sql, dbid)
}

/*
 * Internal SQL functions
 */

const gameColumns = `
	DBID, CatalogID, Title, NormalizedTitle, CoverURL, Summary,
	ReleaseDate, CreatedAt, UpdatedAt
`

func scanGame(row interface{ Scan(dest ...any) error }) (database.Game, error) {
	var game database.Game
	var catalogID sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&game.DBID,
		&catalogID,
		&game.Title,
		&game.NormalizedTitle,
		&game.CoverURL,
		&game.Summary,
		&game.ReleaseDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return game, fmt.Errorf("failed to scan game: %w", err)
	}
	game.CatalogID = intFromNull(catalogID)
	game.CreatedAt = time.Unix(createdAt, 0)
	game.UpdatedAt = time.Unix(updatedAt, 0)
	return game, nil
}

func sqlFindGameByKey(
	ctx context.Context, q database.Queryable, game database.Game,
) (database.Game, error) {
	var row *sql.Row
	if game.CatalogID != nil {
		row = q.QueryRowContext(ctx, `
			SELECT `+gameColumns+`
			FROM Games
			WHERE CatalogID = ?;
		`, *game.CatalogID)
	} else {
		row = q.QueryRowContext(ctx, `
			SELECT `+gameColumns+`
			FROM Games
			WHERE NormalizedTitle = ? AND CatalogID IS NULL;
		`, game.NormalizedTitle)
	}
	found, err := scanGame(row)
	if err != nil {
		return found, fmt.Errorf("failed to find game: %w", err)
	}
	return found, nil
}

func sqlInsertGame(
	ctx context.Context, q database.Queryable, game database.Game, now time.Time,
) (database.Game, error) {
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO Games(
			CatalogID, Title, NormalizedTitle, CoverURL, Summary,
			ReleaseDate, CreatedAt, UpdatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return game, fmt.Errorf("failed to prepare game insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	result, err := stmt.ExecContext(ctx,
		intOrNull(game.CatalogID),
		game.Title,
		game.NormalizedTitle,
		game.CoverURL,
		game.Summary,
		game.ReleaseDate,
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return game, fmt.Errorf("failed to execute game insert: %w", err)
	}

	dbid, err := result.LastInsertId()
	if err != nil {
		return game, fmt.Errorf("failed to get game insert id: %w", err)
	}
	game.DBID = dbid
	game.CreatedAt = now
	game.UpdatedAt = now
	return game, nil
}

func sqlGetGame(ctx context.Context, q database.Queryable, dbid int64) (database.Game, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+gameColumns+`
		FROM Games
		WHERE DBID = ?;
	`, dbid)
	game, err := scanGame(row)
	if err != nil {
		return game, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}
