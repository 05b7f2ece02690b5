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
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/database"
)

// UpsertImportedGames writes a merged storefront snapshot for a user in a
// single transaction. Re-running the same snapshot is a no-op apart from
// UpdatedAt; rows soft-deleted by the user are not resurrected.
func (db *UserDB) UpsertImportedGames(
	userID string, games []database.ImportedGame,
) (database.ImportUpsertResult, error) {
	var result database.ImportUpsertResult
	if db.sql == nil {
		return result, ErrNullSQL
	}

	err := db.withTransaction(func(tx *sql.Tx) error {
		now := db.clock.Now()
		for i := range games {
			games[i].UserID = userID
			outcome, err := sqlUpsertImportedGame(db.ctx, tx, &games[i], now)
			if err != nil {
				return err
			}
			switch outcome {
			case upsertInserted:
				result.Inserted++
			case upsertUpdated:
				result.Updated++
			case upsertSkipped:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return database.ImportUpsertResult{}, err
	}
	return result, nil
}

// GetImportedGame returns a live imported game owned by the user.
func (db *UserDB) GetImportedGame(userID string, dbid int64) (database.ImportedGame, error) {
	if db.sql == nil {
		return database.ImportedGame{}, ErrNullSQL
	}
	return sqlGetImportedGame(db.ctx, db.sql, userID, dbid)
}

// ListImportedGames returns a filtered page of a user's imported games.
// Search terms are matched against NormalizedName and must already be in
// normalized form.
func (db *UserDB) ListImportedGames(
	q database.ImportedGameQuery,
) (database.Paginated[database.ImportedGame], error) {
	if db.sql == nil {
		return database.Paginated[database.ImportedGame]{}, ErrNullSQL
	}
	return sqlListImportedGames(db.ctx, db.sql, q, db.clock.Now())
}

// CountImportedGames counts a user's live imported games.
func (db *UserDB) CountImportedGames(userID string) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlCountImportedGames(db.ctx, db.sql, userID)
}

// SoftDeleteImportedGame hides an imported game from lists and future
// imports without losing its history.
func (db *UserDB) SoftDeleteImportedGame(userID string, dbid int64) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSoftDeleteImportedGame(db.ctx, db.sql, userID, dbid, db.clock.Now())
}

// SetImportedGameMatch links an imported game to its canonical game and
// marks it matched.
func (db *UserDB) SetImportedGameMatch(dbid, gameDBID int64) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSetImportedGameMatch(db.ctx, db.sql, dbid, gameDBID, db.clock.Now())
}

// MarkImportedGameUnmatched records that catalog resolution found no
// acceptable match. Unmatched rows are kept for manual resolution.
func (db *UserDB) MarkImportedGameUnmatched(dbid int64) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMarkImportedGameUnmatched(db.ctx, db.sql, dbid, db.clock.Now())
}

/*
 * Internal SQL functions
 */

const maxUpsertAttempts = 3

type upsertOutcome int

const (
	upsertInserted upsertOutcome = iota
	upsertUpdated
	upsertSkipped
)

const importedGameColumns = `
	DBID, UserID, Storefront, StorefrontGameID, Name, NormalizedName,
	PlaytimeMinutes, PlaytimeWindowsMinutes, PlaytimeMacMinutes,
	PlaytimeLinuxMinutes, LastPlayedAt, IconURL, LogoURL, MatchStatus,
	GameDBID, CreatedAt, UpdatedAt
`

func scanImportedGame(row interface{ Scan(dest ...any) error }) (database.ImportedGame, error) {
	var game database.ImportedGame
	var lastPlayed, gameDBID sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&game.DBID,
		&game.UserID,
		&game.Storefront,
		&game.StorefrontGameID,
		&game.Name,
		&game.NormalizedName,
		&game.PlaytimeMinutes,
		&game.PlaytimeWindowsMinutes,
		&game.PlaytimeMacMinutes,
		&game.PlaytimeLinuxMinutes,
		&lastPlayed,
		&game.IconURL,
		&game.LogoURL,
		&game.MatchStatus,
		&gameDBID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return game, fmt.Errorf("failed to scan imported game: %w", err)
	}
	game.LastPlayedAt = timeFromNull(lastPlayed)
	game.GameDBID = intFromNull(gameDBID)
	game.CreatedAt = time.Unix(createdAt, 0)
	game.UpdatedAt = time.Unix(updatedAt, 0)
	return game, nil
}

// sqlUpsertImportedGame is find-then-insert rather than ON CONFLICT
// because the unique index is partial and an update must never touch
// the catalog match fields. A lost insert race is retried by re-reading
// the row.
func sqlUpsertImportedGame(
	ctx context.Context, q database.Queryable, game *database.ImportedGame, now time.Time,
) (upsertOutcome, error) {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		existing, findErr := sqlFindLiveImportedGame(
			ctx, q, game.UserID, game.Storefront, game.StorefrontGameID)
		if errors.Is(findErr, sql.ErrNoRows) {
			deleted, delErr := sqlImportedGameWasDeleted(
				ctx, q, game.UserID, game.Storefront, game.StorefrontGameID)
			if delErr != nil {
				return upsertSkipped, delErr
			}
			if deleted {
				return upsertSkipped, nil
			}

			insertErr := sqlInsertImportedGame(ctx, q, game, now)
			if insertErr == nil {
				return upsertInserted, nil
			}
			if isUniqueConstraintErr(insertErr) {
				// Lost an insert race, re-read and update instead.
				continue
			}
			return upsertSkipped, insertErr
		}
		if findErr != nil {
			return upsertSkipped, findErr
		}

		game.DBID = existing.DBID
		game.GameDBID = existing.GameDBID
		game.MatchStatus = existing.MatchStatus
		game.CreatedAt = existing.CreatedAt
		return upsertUpdated, sqlUpdateImportedGame(ctx, q, game, now)
	}
	return upsertSkipped, fmt.Errorf("upsert gave up after %d attempts for %s entry %s",
		maxUpsertAttempts, game.Storefront, game.StorefrontGameID)
}

func sqlFindLiveImportedGame(
	ctx context.Context, q database.Queryable, userID, storefront, storefrontGameID string,
) (database.ImportedGame, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+importedGameColumns+`
		FROM ImportedGames
		WHERE UserID = ? AND Storefront = ? AND StorefrontGameID = ?
			AND DeletedAt IS NULL;
	`, userID, storefront, storefrontGameID)
	game, err := scanImportedGame(row)
	if err != nil {
		return game, fmt.Errorf("failed to find imported game: %w", err)
	}
	return game, nil
}

func sqlImportedGameWasDeleted(
	ctx context.Context, q database.Queryable, userID, storefront, storefrontGameID string,
) (bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ImportedGames
		WHERE UserID = ? AND Storefront = ? AND StorefrontGameID = ?
			AND DeletedAt IS NOT NULL;
	`, userID, storefront, storefrontGameID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check deleted imported game: %w", err)
	}
	return count > 0, nil
}

func sqlInsertImportedGame(
	ctx context.Context, q database.Queryable, game *database.ImportedGame, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO ImportedGames(
			UserID, Storefront, StorefrontGameID, Name, NormalizedName,
			PlaytimeMinutes, PlaytimeWindowsMinutes, PlaytimeMacMinutes,
			PlaytimeLinuxMinutes, LastPlayedAt, IconURL, LogoURL,
			MatchStatus, GameDBID, CreatedAt, UpdatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare imported game insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	if game.MatchStatus == "" {
		game.MatchStatus = database.MatchStatusPending
	}

	result, err := stmt.ExecContext(ctx,
		game.UserID,
		game.Storefront,
		game.StorefrontGameID,
		game.Name,
		game.NormalizedName,
		game.PlaytimeMinutes,
		game.PlaytimeWindowsMinutes,
		game.PlaytimeMacMinutes,
		game.PlaytimeLinuxMinutes,
		unixOrNull(game.LastPlayedAt),
		game.IconURL,
		game.LogoURL,
		game.MatchStatus,
		intOrNull(game.GameDBID),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to execute imported game insert: %w", err)
	}

	dbid, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get imported game insert id: %w", err)
	}
	game.DBID = dbid
	game.CreatedAt = now
	game.UpdatedAt = now
	return nil
}

func sqlUpdateImportedGame(
	ctx context.Context, q database.Queryable, game *database.ImportedGame, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		UPDATE ImportedGames
		SET Name = ?, NormalizedName = ?, PlaytimeMinutes = ?,
			PlaytimeWindowsMinutes = ?, PlaytimeMacMinutes = ?,
			PlaytimeLinuxMinutes = ?, LastPlayedAt = ?, IconURL = ?,
			LogoURL = ?, UpdatedAt = ?
		WHERE DBID = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare imported game update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx,
		game.Name,
		game.NormalizedName,
		game.PlaytimeMinutes,
		game.PlaytimeWindowsMinutes,
		game.PlaytimeMacMinutes,
		game.PlaytimeLinuxMinutes,
		unixOrNull(game.LastPlayedAt),
		game.IconURL,
		game.LogoURL,
		now.Unix(),
		game.DBID,
	)
	if err != nil {
		return fmt.Errorf("failed to execute imported game update: %w", err)
	}
	game.UpdatedAt = now
	return nil
}

func sqlGetImportedGame(
	ctx context.Context, q database.Queryable, userID string, dbid int64,
) (database.ImportedGame, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+importedGameColumns+`
		FROM ImportedGames
		WHERE DBID = ? AND UserID = ? AND DeletedAt IS NULL;
	`, dbid, userID)
	game, err := scanImportedGame(row)
	if err != nil {
		return game, fmt.Errorf("failed to get imported game: %w", err)
	}
	return game, nil
}

// buildImportedGameFilter translates a query into a WHERE clause. The
// caller prepends the SELECT and appends ordering and paging.
func buildImportedGameFilter(
	q database.ImportedGameQuery, now time.Time,
) (clause string, args []any) {
	conds := []string{"UserID = ?", "DeletedAt IS NULL"}
	args = append(args, q.UserID)

	if q.Storefront != "" {
		conds = append(conds, "Storefront = ?")
		args = append(args, q.Storefront)
	}

	if q.MatchState != database.MatchAny {
		conds = append(conds, "MatchStatus = ?")
		args = append(args, string(q.MatchState))
	}

	played := q.Played
	if q.Playtime != database.PlaytimeAny && played != database.PlayedAny {
		log.Warn().
			Str("playtime", string(q.Playtime)).
			Str("played", string(played)).
			Msg("conflicting playtime filters, range filter wins")
		played = database.PlayedAny
	}

	switch q.Playtime {
	case database.PlaytimeUnderHour:
		conds = append(conds, "PlaytimeMinutes < 60")
	case database.PlaytimeShort:
		conds = append(conds, "PlaytimeMinutes >= 60 AND PlaytimeMinutes < 600")
	case database.PlaytimeMedium:
		conds = append(conds, "PlaytimeMinutes >= 600 AND PlaytimeMinutes < 3000")
	case database.PlaytimeLong:
		conds = append(conds, "PlaytimeMinutes >= 3000")
	case database.PlaytimeAny:
	}

	switch played {
	case database.PlayedSome:
		conds = append(conds, "PlaytimeMinutes > 0")
	case database.PlayedNever:
		conds = append(conds, "PlaytimeMinutes = 0")
	case database.PlayedAny:
	}

	switch q.LastPlayed {
	case database.LastPlayedLast30Days:
		conds = append(conds, "LastPlayedAt >= ?")
		args = append(args, now.AddDate(0, 0, -30).Unix())
	case database.LastPlayedLastYear:
		conds = append(conds, "LastPlayedAt >= ?")
		args = append(args, now.AddDate(-1, 0, 0).Unix())
	case database.LastPlayedOverYear:
		conds = append(conds, "LastPlayedAt IS NOT NULL AND LastPlayedAt < ?")
		args = append(args, now.AddDate(-1, 0, 0).Unix())
	case database.LastPlayedNever:
		conds = append(conds, "LastPlayedAt IS NULL")
	case database.LastPlayedAnyTime:
	}

	if q.Search != "" {
		conds = append(conds, "NormalizedName LIKE '%' || ? || '%'")
		args = append(args, q.Search)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func importedGameOrderBy(q database.ImportedGameQuery) string {
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	switch q.SortBy {
	case database.SortByPlaytime:
		return fmt.Sprintf("ORDER BY PlaytimeMinutes %s, NormalizedName ASC, DBID ASC", dir)
	case database.SortByLastPlayed:
		// Never-played entries always sort last regardless of direction.
		return fmt.Sprintf(
			"ORDER BY (LastPlayedAt IS NULL) ASC, LastPlayedAt %s, NormalizedName ASC, DBID ASC", dir)
	case database.SortByCreatedAt:
		return fmt.Sprintf("ORDER BY CreatedAt %s, DBID ASC", dir)
	case database.SortByName:
		return fmt.Sprintf("ORDER BY NormalizedName %s, DBID ASC", dir)
	default:
		return fmt.Sprintf("ORDER BY NormalizedName %s, DBID ASC", dir)
	}
}

// clampPage normalizes pagination values. Out-of-range sizes are clamped
// rather than rejected.
func clampPage(page, pageSize int) (validPage, validSize int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = database.DefaultPageSize
	}
	if pageSize > database.MaxPageSize {
		pageSize = database.MaxPageSize
	}
	return page, pageSize
}

func sqlListImportedGames(
	ctx context.Context, q database.Queryable, query database.ImportedGameQuery, now time.Time,
) (database.Paginated[database.ImportedGame], error) {
	page, pageSize := clampPage(query.Page, query.PageSize)
	result := database.Paginated[database.ImportedGame]{
		Items:    make([]database.ImportedGame, 0, pageSize),
		Page:     page,
		PageSize: pageSize,
	}

	where, args := buildImportedGameFilter(query, now)

	countRow := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ImportedGames "+where+";", args...)
	if err := countRow.Scan(&result.Total); err != nil {
		return result, fmt.Errorf("failed to count imported games: %w", err)
	}

	listQuery := "SELECT " + importedGameColumns + " FROM ImportedGames " +
		where + " " + importedGameOrderBy(query) + " LIMIT ? OFFSET ?;"
	listArgs := append(args, pageSize, (page-1)*pageSize)

	rows, err := q.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return result, fmt.Errorf("failed to query imported games: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	for rows.Next() {
		game, scanErr := scanImportedGame(rows)
		if scanErr != nil {
			return result, scanErr
		}
		result.Items = append(result.Items, game)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("failed to iterate imported games: %w", err)
	}
	return result, nil
}

func sqlCountImportedGames(ctx context.Context, q database.Queryable, userID string) (int64, error) {
	row := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ImportedGames
		WHERE UserID = ? AND DeletedAt IS NULL;
	`, userID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count imported games: %w", err)
	}
	return count, nil
}

func sqlSoftDeleteImportedGame(
	ctx context.Context, q database.Queryable, userID string, dbid int64, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		UPDATE ImportedGames
		SET DeletedAt = ?, UpdatedAt = ?
		WHERE DBID = ? AND UserID = ? AND DeletedAt IS NULL;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare imported game delete statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	result, err := stmt.ExecContext(ctx, now.Unix(), now.Unix(), dbid, userID)
	if err != nil {
		return fmt.Errorf("failed to execute imported game delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("imported game %d: %w", dbid, sql.ErrNoRows)
	}
	return nil
}

func sqlSetImportedGameMatch(
	ctx context.Context, q database.Queryable, dbid, gameDBID int64, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		UPDATE ImportedGames
		SET GameDBID = ?, MatchStatus = ?, UpdatedAt = ?
		WHERE DBID = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare imported game match statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	if _, err := stmt.ExecContext(ctx,
		gameDBID, database.MatchStatusMatched, now.Unix(), dbid); err != nil {
		return fmt.Errorf("failed to execute imported game match: %w", err)
	}
	return nil
}

func sqlMarkImportedGameUnmatched(
	ctx context.Context, q database.Queryable, dbid int64, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		UPDATE ImportedGames
		SET MatchStatus = ?, UpdatedAt = ?
		WHERE DBID = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare imported game unmatch statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	if _, err := stmt.ExecContext(ctx,
		database.MatchStatusUnmatched, now.Unix(), dbid); err != nil {
		return fmt.Errorf("failed to execute imported game unmatch: %w", err)
	}
	return nil
}
