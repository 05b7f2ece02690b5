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
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/database"
)

// AddCollectionItem adds a game to a user's collection and returns the
// DBID. A second live item for the same game and platform fails on the
// unique index.
func (db *UserDB) AddCollectionItem(item *database.CollectionItem) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlAddCollectionItem(db.ctx, db.sql, item, db.clock.Now())
}

// GetCollectionItem returns a live collection item owned by the user.
func (db *UserDB) GetCollectionItem(userID string, dbid int64) (database.CollectionItem, error) {
	if db.sql == nil {
		return database.CollectionItem{}, ErrNullSQL
	}
	return sqlGetCollectionItem(db.ctx, db.sql, userID, dbid)
}

// UpdateCollectionItemStatus writes a status change plus the lifecycle
// timestamps the transition derived.
func (db *UserDB) UpdateCollectionItemStatus(
	userID string, dbid int64, status string, startedAt, completedAt *time.Time,
) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateCollectionItemStatus(
		db.ctx, db.sql, userID, dbid, status, startedAt, completedAt, db.clock.Now())
}

// ListCollection returns a page of a user's collection joined with
// canonical game data.
func (db *UserDB) ListCollection(
	q database.CollectionQuery,
) (database.Paginated[database.CollectionEntry], error) {
	if db.sql == nil {
		return database.Paginated[database.CollectionEntry]{}, ErrNullSQL
	}
	return sqlListCollection(db.ctx, db.sql, q)
}

// CountCollectionByStatus returns per-status counts of a user's live
// collection items.
func (db *UserDB) CountCollectionByStatus(userID string) (map[string]int64, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlCountCollectionByStatus(db.ctx, db.sql, userID)
}

// CollectionGameKeys maps NormalizedTitle to the platforms a user already
// tracks it on, the lookup set for import dedup.
func (db *UserDB) CollectionGameKeys(userID string) (map[string][]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlCollectionGameKeys(db.ctx, db.sql, userID)
}

/*
 * Internal SQL functions
 */

const collectionItemColumns = `
	DBID, UserID, GameDBID, Status, Platform, AcquisitionType,
	PlaytimeMinutes, LastPlayedAt, StartedAt, CompletedAt, Rating, Notes,
	CreatedAt, UpdatedAt
`

func scanCollectionItem(row interface{ Scan(dest ...any) error }) (database.CollectionItem, error) {
	var item database.CollectionItem
	var lastPlayed, startedAt, completedAt, rating sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&item.DBID,
		&item.UserID,
		&item.GameDBID,
		&item.Status,
		&item.Platform,
		&item.AcquisitionType,
		&item.PlaytimeMinutes,
		&lastPlayed,
		&startedAt,
		&completedAt,
		&rating,
		&item.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return item, fmt.Errorf("failed to scan collection item: %w", err)
	}
	item.LastPlayedAt = timeFromNull(lastPlayed)
	item.StartedAt = timeFromNull(startedAt)
	item.CompletedAt = timeFromNull(completedAt)
	if rating.Valid {
		r := int(rating.Int64)
		item.Rating = &r
	}
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)
	return item, nil
}

func sqlAddCollectionItem(
	ctx context.Context, q database.Queryable, item *database.CollectionItem, now time.Time,
) (int64, error) {
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO CollectionItems(
			UserID, GameDBID, Status, Platform, AcquisitionType,
			PlaytimeMinutes, LastPlayedAt, StartedAt, CompletedAt, Rating,
			Notes, CreatedAt, UpdatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare collection insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	var rating any
	if item.Rating != nil {
		rating = *item.Rating
	}

	result, err := stmt.ExecContext(ctx,
		item.UserID,
		item.GameDBID,
		item.Status,
		item.Platform,
		item.AcquisitionType,
		item.PlaytimeMinutes,
		unixOrNull(item.LastPlayedAt),
		unixOrNull(item.StartedAt),
		unixOrNull(item.CompletedAt),
		rating,
		item.Notes,
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to execute collection insert: %w", err)
	}

	dbid, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get collection insert id: %w", err)
	}
	item.DBID = dbid
	item.CreatedAt = now
	item.UpdatedAt = now
	return dbid, nil
}

func sqlGetCollectionItem(
	ctx context.Context, q database.Queryable, userID string, dbid int64,
) (database.CollectionItem, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+collectionItemColumns+`
		FROM CollectionItems
		WHERE DBID = ? AND UserID = ? AND DeletedAt IS NULL;
	`, dbid, userID)
	item, err := scanCollectionItem(row)
	if err != nil {
		return item, fmt.Errorf("failed to get collection item: %w", err)
	}
	return item, nil
}

func sqlUpdateCollectionItemStatus(
	ctx context.Context, q database.Queryable, userID string, dbid int64,
	status string, startedAt, completedAt *time.Time, now time.Time,
) error {
	stmt, err := q.PrepareContext(ctx, `
		UPDATE CollectionItems
		SET Status = ?,
			StartedAt = COALESCE(?, StartedAt),
			CompletedAt = COALESCE(?, CompletedAt),
			UpdatedAt = ?
		WHERE DBID = ? AND UserID = ? AND DeletedAt IS NULL;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare collection status statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	result, err := stmt.ExecContext(ctx,
		status,
		unixOrNull(startedAt),
		unixOrNull(completedAt),
		now.Unix(),
		dbid,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to execute collection status update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("collection item %d: %w", dbid, sql.ErrNoRows)
	}
	return nil
}

func sqlListCollection(
	ctx context.Context, q database.Queryable, query database.CollectionQuery,
) (database.Paginated[database.CollectionEntry], error) {
	page, pageSize := clampPage(query.Page, query.PageSize)
	result := database.Paginated[database.CollectionEntry]{
		Items:    make([]database.CollectionEntry, 0, pageSize),
		Page:     page,
		PageSize: pageSize,
	}

	where := "WHERE c.UserID = ? AND c.DeletedAt IS NULL"
	args := []any{query.UserID}
	if query.Status != "" {
		where += " AND c.Status = ?"
		args = append(args, query.Status)
	}
	if query.Platform != "" {
		where += " AND c.Platform = ?"
		args = append(args, query.Platform)
	}
	if query.Search != "" {
		where += " AND g.NormalizedTitle LIKE '%' || ? || '%'"
		args = append(args, query.Search)
	}

	countRow := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM CollectionItems c JOIN Games g ON g.DBID = c.GameDBID "+
			where+";", args...)
	if err := countRow.Scan(&result.Total); err != nil {
		return result, fmt.Errorf("failed to count collection items: %w", err)
	}

	listQuery := `
		SELECT
			c.DBID, c.UserID, c.GameDBID, c.Status, c.Platform,
			c.AcquisitionType, c.PlaytimeMinutes, c.LastPlayedAt,
			c.StartedAt, c.CompletedAt, c.Rating, c.Notes, c.CreatedAt,
			c.UpdatedAt,
			g.DBID, g.CatalogID, g.Title, g.NormalizedTitle, g.CoverURL,
			g.Summary, g.ReleaseDate, g.CreatedAt, g.UpdatedAt
		FROM CollectionItems c
		JOIN Games g ON g.DBID = c.GameDBID
		` + where + `
		ORDER BY g.NormalizedTitle ASC, c.DBID ASC
		LIMIT ? OFFSET ?;`
	listArgs := append(args, pageSize, (page-1)*pageSize)

	rows, err := q.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return result, fmt.Errorf("failed to query collection items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	for rows.Next() {
		var entry database.CollectionEntry
		var lastPlayed, startedAt, completedAt, rating sql.NullInt64
		var cCreatedAt, cUpdatedAt int64
		var catalogID sql.NullInt64
		var gCreatedAt, gUpdatedAt int64

		scanErr := rows.Scan(
			&entry.DBID,
			&entry.UserID,
			&entry.GameDBID,
			&entry.Status,
			&entry.Platform,
			&entry.AcquisitionType,
			&entry.PlaytimeMinutes,
			&lastPlayed,
			&startedAt,
			&completedAt,
			&rating,
			&entry.Notes,
			&cCreatedAt,
			&cUpdatedAt,
			&entry.Game.DBID,
			&catalogID,
			&entry.Game.Title,
			&entry.Game.NormalizedTitle,
			&entry.Game.CoverURL,
			&entry.Game.Summary,
			&entry.Game.ReleaseDate,
			&gCreatedAt,
			&gUpdatedAt,
		)
		if scanErr != nil {
			return result, fmt.Errorf("failed to scan collection entry: %w", scanErr)
		}

		entry.LastPlayedAt = timeFromNull(lastPlayed)
		entry.StartedAt = timeFromNull(startedAt)
		entry.CompletedAt = timeFromNull(completedAt)
		if rating.Valid {
			r := int(rating.Int64)
			entry.Rating = &r
		}
		entry.CreatedAt = time.Unix(cCreatedAt, 0)
		entry.UpdatedAt = time.Unix(cUpdatedAt, 0)

		entry.Game.CatalogID = intFromNull(catalogID)
		entry.Game.CreatedAt = time.Unix(gCreatedAt, 0)
		entry.Game.UpdatedAt = time.Unix(gUpdatedAt, 0)

		result.Items = append(result.Items, entry)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("failed to iterate collection items: %w", err)
	}
	return result, nil
}

func sqlCountCollectionByStatus(
	ctx context.Context, q database.Queryable, userID string,
) (map[string]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT Status, COUNT(*)
		FROM CollectionItems
		WHERE UserID = ? AND DeletedAt IS NULL
		GROUP BY Status;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", scanErr)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

func sqlCollectionGameKeys(
	ctx context.Context, q database.Queryable, userID string,
) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT g.NormalizedTitle, c.Platform
		FROM CollectionItems c
		JOIN Games g ON g.DBID = c.GameDBID
		WHERE c.UserID = ? AND c.DeletedAt IS NULL;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection game keys: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	keys := make(map[string][]string)
	for rows.Next() {
		var title, platform string
		if scanErr := rows.Scan(&title, &platform); scanErr != nil {
			return nil, fmt.Errorf("failed to scan collection game key: %w", scanErr)
		}
		keys[title] = append(keys[title], platform)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection game keys: %w", err)
	}
	return keys, nil
}
