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

// Package helpers provides shared test setup utilities.
package helpers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/userdb"
)

// NewInMemoryUserDB opens a migrated UserDB backed by a temp file with a
// fake clock, so tests control every CreatedAt/UpdatedAt value. A temp
// file rather than :memory: keeps the database usable across connections.
func NewInMemoryUserDB(t *testing.T) (db *userdb.UserDB, clock *clockwork.FakeClock, cleanup func()) {
	t.Helper()

	ctx := context.Background()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "userdb_test.db")

	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	clock = clockwork.NewFakeClock()
	db = &userdb.UserDB{}
	err = db.SetSQLForTesting(ctx, sqlDB, clock)
	if err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to set up UserDB for testing: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close UserDB: %v", err)
		}
	}

	return db, clock, cleanup
}

// NewTestDatabase wraps an in-memory UserDB in the portable Database
// handle. The cleanup function should be deferred.
func NewTestDatabase(t *testing.T) (db *database.Database, clock *clockwork.FakeClock, cleanup func()) {
	t.Helper()

	userDB, clock, userCleanup := NewInMemoryUserDB(t)
	return &database.Database{UserDB: userDB}, clock, userCleanup
}
