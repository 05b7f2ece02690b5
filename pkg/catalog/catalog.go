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

// Package catalog defines the interface to the external game catalog
// used to resolve imported titles into canonical games. Implementations
// live in subpackages.
package catalog

import "context"

// Result is one catalog entry.
type Result struct {
	Name        string
	Summary     string
	CoverURL    string
	ReleaseDate string
	CatalogID   int64
}

// Catalog searches and fetches canonical game records. Errors carry
// domain codes: a 429 is RATE_LIMITED, a 5xx or network failure is
// EXTERNAL_SERVICE_UNAVAILABLE and an unknown id is NOT_FOUND.
type Catalog interface {
	// SearchByName returns candidate entries for a title, best first.
	SearchByName(ctx context.Context, name string) ([]Result, error)

	// GetByID fetches a single entry by its catalog id.
	GetByID(ctx context.Context, id int64) (Result, error)
}
