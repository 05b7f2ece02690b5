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

package database

import (
	"context"
	"database/sql"
	"time"
)

// Database is a portable handle for the service's databases.
type Database struct {
	UserDB UserDBI
}

/*
 * Structs for SQL records
 */

// Catalog-match states for imported games.
const (
	MatchStatusPending   = "pending"
	MatchStatusMatched   = "matched"
	MatchStatusUnmatched = "unmatched"
)

// ImportedGame is a storefront library entry after merge, scoped to a
// user. NormalizedName is the symbol-stripped comparison form of Name.
type ImportedGame struct {
	LastPlayedAt           *time.Time
	DeletedAt              *time.Time
	GameDBID               *int64
	UserID                 string
	Storefront             string
	StorefrontGameID       string
	Name                   string
	NormalizedName         string
	IconURL                string
	LogoURL                string
	MatchStatus            string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	DBID                   int64
	PlaytimeMinutes        int64
	PlaytimeWindowsMinutes int64
	PlaytimeMacMinutes     int64
	PlaytimeLinuxMinutes   int64
}

// Game is a canonical title shared by every user's collection entries.
// CatalogID is the external catalog's id and the natural key; it is null
// only for manually added games the catalog never resolved.
type Game struct {
	CatalogID       *int64
	Title           string
	NormalizedTitle string
	CoverURL        string
	Summary         string
	ReleaseDate     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DBID            int64
}

// CollectionItem is a user's tracked game with its lifecycle status.
// Platform records where the user plays this copy, so the same game on
// two platforms is two items.
type CollectionItem struct {
	LastPlayedAt    *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DeletedAt       *time.Time
	Rating          *int
	UserID          string
	Status          string
	Platform        string
	AcquisitionType string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DBID            int64
	GameDBID        int64
	PlaytimeMinutes int64
}

// CollectionEntry is a collection item joined with its canonical game,
// the shape list endpoints return.
type CollectionEntry struct {
	CollectionItem
	Game Game
}

// IgnoredGame is a normalized title a user excluded from future imports.
type IgnoredGame struct {
	UserID          string
	NormalizedTitle string
	CreatedAt       time.Time
	DBID            int64
}

// Collection item acquisition types. Digital is the default for
// storefront imports.
const (
	AcquisitionDigital      = "DIGITAL"
	AcquisitionPhysical     = "PHYSICAL"
	AcquisitionSubscription = "SUBSCRIPTION"
)

/*
 * Query filters and pagination
 */

type MatchState string

const (
	MatchAny       MatchState = ""
	MatchPending   MatchState = MatchStatusPending
	MatchMatched   MatchState = MatchStatusMatched
	MatchUnmatched MatchState = MatchStatusUnmatched
)

// PlaytimeRange buckets playtime minutes for filtering.
type PlaytimeRange string

const (
	PlaytimeAny       PlaytimeRange = ""
	PlaytimeUnderHour PlaytimeRange = "under_hour"     // < 60
	PlaytimeShort     PlaytimeRange = "1_to_10_hours"  // 60 - 600
	PlaytimeMedium    PlaytimeRange = "10_to_50_hours" // 600 - 3000
	PlaytimeLong      PlaytimeRange = "over_50_hours"  // >= 3000
)

// PlayedFilter is the coarse played/never-played toggle. When a
// PlaytimeRange is also supplied the range wins and the conflict is
// logged, never errored.
type PlayedFilter string

const (
	PlayedAny   PlayedFilter = ""
	PlayedSome  PlayedFilter = "played"
	PlayedNever PlayedFilter = "never_played"
)

// LastPlayedBucket buckets last-played recency for filtering.
type LastPlayedBucket string

const (
	LastPlayedAnyTime    LastPlayedBucket = ""
	LastPlayedLast30Days LastPlayedBucket = "last_30_days"
	LastPlayedLastYear   LastPlayedBucket = "last_year"
	LastPlayedOverYear   LastPlayedBucket = "over_year"
	LastPlayedNever      LastPlayedBucket = "never"
)

type SortField string

const (
	SortByName       SortField = "name"
	SortByPlaytime   SortField = "playtime"
	SortByLastPlayed SortField = "last_played"
	SortByCreatedAt  SortField = "created_at"
)

// Pagination limits. Requested page sizes are clamped, never rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ImportedGameQuery filters and pages the imported games list.
type ImportedGameQuery struct {
	UserID     string
	Storefront string
	Search     string
	MatchState MatchState
	Playtime   PlaytimeRange
	Played     PlayedFilter
	LastPlayed LastPlayedBucket
	SortBy     SortField
	SortDesc   bool
	Page       int
	PageSize   int
}

// CollectionQuery filters and pages the collection list. Search terms
// are matched against the canonical game's NormalizedTitle and must
// already be in normalized form.
type CollectionQuery struct {
	UserID   string
	Status   string
	Platform string
	Search   string
	Page     int
	PageSize int
}

// Paginated wraps a page of results with the unfiltered-page total.
type Paginated[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// TotalPages is ceil(Total / PageSize).
func (p Paginated[T]) TotalPages() int64 {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + int64(p.PageSize) - 1) / int64(p.PageSize)
}

// ImportUpsertResult reports what an import run changed. Skipped counts
// entries whose key was soft-deleted by the user; a re-import never
// resurrects those.
type ImportUpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

/*
 * Interfaces for external deps
 */

// Queryable abstracts *sql.DB and *sql.Tx so query helpers run both
// standalone and inside transactions.
type Queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Truncate() error
	Allocate() error
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

type UserDBI interface {
	GenericDBI

	// Imported games
	UpsertImportedGames(userID string, games []ImportedGame) (ImportUpsertResult, error)
	GetImportedGame(userID string, dbid int64) (ImportedGame, error)
	ListImportedGames(q ImportedGameQuery) (Paginated[ImportedGame], error)
	CountImportedGames(userID string) (int64, error)
	SoftDeleteImportedGame(userID string, dbid int64) error
	SetImportedGameMatch(dbid, gameDBID int64) error
	MarkImportedGameUnmatched(dbid int64) error

	// Canonical games
	FindOrCreateGame(game Game) (Game, error)
	GetGame(dbid int64) (Game, error)

	// Collection
	AddCollectionItem(item *CollectionItem) (int64, error)
	GetCollectionItem(userID string, dbid int64) (CollectionItem, error)
	UpdateCollectionItemStatus(userID string, dbid int64, status string, startedAt, completedAt *time.Time) error
	ListCollection(q CollectionQuery) (Paginated[CollectionEntry], error)
	CountCollectionByStatus(userID string) (map[string]int64, error)
	CollectionGameKeys(userID string) (map[string][]string, error)

	// Ignored titles
	AddIgnoredTitle(userID, normalizedTitle string) error
	ListIgnoredTitles(userID string) ([]string, error)
}
