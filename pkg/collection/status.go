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

import "time"

// Status is a collection item's lifecycle state.
type Status string

// Lifecycle statuses. Wishlist is only ever an entry point: items can
// be created wishlisted but no item ever transitions back to it.
const (
	StatusWishlist           Status = "WISHLIST"
	StatusCuriousAbout       Status = "CURIOUS_ABOUT"
	StatusCurrentlyExploring Status = "CURRENTLY_EXPLORING"
	StatusTookABreak         Status = "TOOK_A_BREAK"
	StatusExperienced        Status = "EXPERIENCED"
	StatusRevisiting         Status = "REVISITING"
)

// statusLabels are the display names used in API responses.
var statusLabels = map[Status]string{
	StatusWishlist:           "Wishlist",
	StatusCuriousAbout:       "Curious About",
	StatusCurrentlyExploring: "Currently Exploring",
	StatusTookABreak:         "Took a Break",
	StatusExperienced:        "Experienced",
	StatusRevisiting:         "Revisiting",
}

// Label returns the display name for a status, or the raw value if the
// status is unknown.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// AllStatuses returns every lifecycle status in display order.
func AllStatuses() []Status {
	return []Status{
		StatusWishlist,
		StatusCuriousAbout,
		StatusCurrentlyExploring,
		StatusTookABreak,
		StatusExperienced,
		StatusRevisiting,
	}
}

// legalTransitions is the full transition table. Every status may move
// to every other status except Wishlist, which has no inbound edges.
var legalTransitions = map[Status][]Status{
	StatusWishlist: {
		StatusCuriousAbout, StatusCurrentlyExploring,
		StatusTookABreak, StatusExperienced, StatusRevisiting,
	},
	StatusCuriousAbout: {
		StatusCurrentlyExploring, StatusTookABreak,
		StatusExperienced, StatusRevisiting,
	},
	StatusCurrentlyExploring: {
		StatusCuriousAbout, StatusTookABreak,
		StatusExperienced, StatusRevisiting,
	},
	StatusTookABreak: {
		StatusCuriousAbout, StatusCurrentlyExploring,
		StatusExperienced, StatusRevisiting,
	},
	StatusExperienced: {
		StatusCuriousAbout, StatusCurrentlyExploring,
		StatusTookABreak, StatusRevisiting,
	},
	StatusRevisiting: {
		StatusCuriousAbout, StatusCurrentlyExploring,
		StatusTookABreak, StatusExperienced,
	},
}

// CanTransition reports whether moving from one status to another is
// legal. A no-op transition to the same status is legal, except into
// Wishlist: a wishlisted item has nothing to transition, so Wishlist
// accepts no transitions at all.
func CanTransition(from, to Status) bool {
	if to == StatusWishlist {
		return false
	}
	if from == to {
		return true
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// recentPlayWindow is how recent a play session must be for an item to
// count as actively being explored.
const recentPlayWindow = 7 * 24 * time.Hour

// SuggestStatus derives an initial status from storefront playtime.
// Never played is Curious About, played strictly within the last week
// is Currently Exploring, anything else is Experienced.
func SuggestStatus(playtimeMinutes int64, lastPlayedAt *time.Time, now time.Time) Status {
	if playtimeMinutes <= 0 {
		return StatusCuriousAbout
	}
	if lastPlayedAt != nil && now.Sub(*lastPlayedAt) < recentPlayWindow {
		return StatusCurrentlyExploring
	}
	return StatusExperienced
}
