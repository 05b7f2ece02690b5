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

package importer

import (
	"sort"

	"github.com/savepoint-project/savepoint-core/pkg/database/matcher"
	"github.com/savepoint-project/savepoint-core/pkg/storefront"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

// MergeOwnedGames collapses storefront entries that are the same game
// under slightly different names into one entry per title. Playtime is
// summed across duplicates, the most recent last-played timestamp wins
// and the first non-empty artwork is kept.
//
// Input order does not affect the result: entries are sorted by
// normalized name before grouping, so re-running an import produces the
// same merged library.
func MergeOwnedGames(
	games []storefront.OwnedGame,
	opts matcher.Options,
	newIndex matcher.IndexFactory,
) []storefront.OwnedGame {
	if len(games) == 0 {
		return nil
	}

	sorted := make([]storefront.OwnedGame, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := titles.NormalizeKey(sorted[i].Name), titles.NormalizeKey(sorted[j].Name)
		if ki != kj {
			return ki < kj
		}
		return sorted[i].AppID < sorted[j].AppID
	})

	var keys []string
	groups := make(map[string][]storefront.OwnedGame)

	for _, game := range sorted {
		key := titles.NormalizeKey(game.Name)
		if _, ok := groups[key]; ok {
			groups[key] = append(groups[key], game)
			continue
		}

		// Fall back to fuzzy matching against existing groups so near
		// duplicates like trailing edition tags still collapse.
		if matches := newIndex(keys, opts).Search(key); len(matches) > 0 {
			target := matches[0].Name
			groups[target] = append(groups[target], game)
			continue
		}

		keys = append(keys, key)
		groups[key] = []storefront.OwnedGame{game}
	}

	merged := make([]storefront.OwnedGame, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, mergeGroup(groups[key]))
	}
	return merged
}

func mergeGroup(members []storefront.OwnedGame) storefront.OwnedGame {
	merged := members[0]
	for _, member := range members[1:] {
		merged.PlaytimeMinutes += member.PlaytimeMinutes
		merged.PlaytimeWindowsMinutes += member.PlaytimeWindowsMinutes
		merged.PlaytimeMacMinutes += member.PlaytimeMacMinutes
		merged.PlaytimeLinuxMinutes += member.PlaytimeLinuxMinutes

		if member.LastPlayedAt != nil &&
			(merged.LastPlayedAt == nil || member.LastPlayedAt.After(*merged.LastPlayedAt)) {
			merged.LastPlayedAt = member.LastPlayedAt
		}
		if merged.IconURL == "" {
			merged.IconURL = member.IconURL
		}
		if merged.LogoURL == "" {
			merged.LogoURL = member.LogoURL
		}
	}
	return merged
}
