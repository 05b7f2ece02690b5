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

// Package storefront defines the interface a third-party game storefront
// must provide for library imports. Implementations live in
// subpackages; the import pipeline only depends on this interface.
package storefront

import (
	"context"
	"time"
)

// Storefront identifiers as stored on imported game rows.
const (
	StorefrontSteam = "steam"
)

// Profile is the public face of a storefront account.
type Profile struct {
	ID          string
	DisplayName string
	AvatarURL   string
	ProfileURL  string
	Public      bool
}

// OwnedGame is one entry of a storefront library, before merging.
type OwnedGame struct {
	LastPlayedAt           *time.Time
	AppID                  string
	Name                   string
	IconURL                string
	LogoURL                string
	PlaytimeMinutes        int64
	PlaytimeWindowsMinutes int64
	PlaytimeMacMinutes     int64
	PlaytimeLinuxMinutes   int64
}

// Client is a storefront profile and library API. Errors carry domain
// codes: a private profile is EXTERNAL_PROFILE_PRIVATE, a 429 is
// RATE_LIMITED and a 5xx or network failure is
// EXTERNAL_SERVICE_UNAVAILABLE.
type Client interface {
	// Name returns the storefront identifier stored on imported rows.
	Name() string

	// ValidateHandle turns user input, either a native account id or a
	// vanity name, into the storefront's canonical account id.
	ValidateHandle(ctx context.Context, input string) (string, error)

	// ResolveVanityHandle resolves a vanity name to an account id.
	ResolveVanityHandle(ctx context.Context, handle string) (string, error)

	// GetPlayerSummary fetches the account profile.
	GetPlayerSummary(ctx context.Context, accountID string) (Profile, error)

	// GetOwnedGames fetches the full owned-games library.
	GetOwnedGames(ctx context.Context, accountID string) ([]OwnedGame, error)
}
