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
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/database"
)

// AddIgnoredTitle marks a normalized title to be skipped by future
// imports for this user. Adding the same title twice is a no-op.
func (db *UserDB) AddIgnoredTitle(userID, normalizedTitle string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlAddIgnoredTitle(db.ctx, db.sql, userID, normalizedTitle, db.clock.Now().Unix())
}

// ListIgnoredTitles returns all normalized titles a user has ignored.
func (db *UserDB) ListIgnoredTitles(userID string) ([]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListIgnoredTitles(db.ctx, db.sql, userID)
}

/*
 * Internal SQL functions
 */

func sqlAddIgnoredTitle(
	ctx context.Context, q database.Queryable, userID, normalizedTitle string, now int64,
) error {
	stmt, err := q.PrepareContext(ctx, `
		INSERT OR IGNORE INTO IgnoredGames(UserID, NormalizedTitle, CreatedAt)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ignored title insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	if _, err := stmt.ExecContext(ctx, userID, normalizedTitle, now); err != nil {
		return fmt.Errorf("failed to execute ignored title insert: %w", err)
	}
	return nil
}

func sqlListIgnoredTitles(ctx context.Context, q database.Queryable, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT NormalizedTitle FROM IgnoredGames
		WHERE UserID = ?
		ORDER BY NormalizedTitle ASC;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored titles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	titles := make([]string, 0)
	for rows.Next() {
		var title string
		if scanErr := rows.Scan(&title); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ignored title: %w", scanErr)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ignored titles: %w", err)
	}
	return titles, nil
}
