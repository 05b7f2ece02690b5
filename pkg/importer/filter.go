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
	"strings"

	"github.com/savepoint-project/savepoint-core/pkg/database/matcher"
	"github.com/savepoint-project/savepoint-core/pkg/storefront"
	"github.com/savepoint-project/savepoint-core/pkg/titles"
)

// Filter removes merged storefront entries the user does not want to
// see again. Each stage can be skipped independently; output is sorted
// by symbol-stripped title.
type Filter struct {
	// CollectionKeys maps normalized collection titles to the platforms
	// the user has that game on. An entry is suppressed only if the
	// matching collection item is on the import platform; owning a game
	// on another platform keeps the import visible.
	CollectionKeys map[string][]string

	// Platform is the platform imported entries land on.
	Platform string

	// IgnoredTitles are normalized titles the user excluded.
	IgnoredTitles []string

	// NoiseLabels mark non-game entries like test builds. Matching is a
	// case-insensitive substring check.
	NoiseLabels []string

	MatchOptions matcher.Options
	NewIndex     matcher.IndexFactory

	SkipCollection bool
	SkipIgnored    bool
	SkipNoise      bool
}

// Apply runs all enabled stages and returns the surviving entries
// sorted by title.
func (f *Filter) Apply(games []storefront.OwnedGame) []storefront.OwnedGame {
	if !f.SkipCollection {
		games = f.filterCollection(games)
	}
	if !f.SkipIgnored {
		games = f.filterIgnored(games)
	}
	if !f.SkipNoise {
		games = f.filterNoise(games)
	}

	sort.SliceStable(games, func(i, j int) bool {
		return titles.StripSymbols(games[i].Name) < titles.StripSymbols(games[j].Name)
	})
	return games
}

func (f *Filter) filterCollection(games []storefront.OwnedGame) []storefront.OwnedGame {
	if len(f.CollectionKeys) == 0 {
		return games
	}

	keys := make([]string, 0, len(f.CollectionKeys))
	for key := range f.CollectionKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	index := f.NewIndex(keys, f.MatchOptions)

	kept := games[:0]
	for _, game := range games {
		if !f.inCollectionOnPlatform(index, game.Name) {
			kept = append(kept, game)
		}
	}
	return kept
}

func (f *Filter) inCollectionOnPlatform(index matcher.Index, name string) bool {
	for _, match := range index.Search(titles.NormalizeKey(name)) {
		for _, platform := range f.CollectionKeys[match.Name] {
			if strings.EqualFold(platform, f.Platform) {
				return true
			}
		}
	}
	return false
}

func (f *Filter) filterIgnored(games []storefront.OwnedGame) []storefront.OwnedGame {
	if len(f.IgnoredTitles) == 0 {
		return games
	}

	index := f.NewIndex(f.IgnoredTitles, f.MatchOptions)

	kept := games[:0]
	for _, game := range games {
		if len(index.Search(titles.NormalizeKey(game.Name))) == 0 {
			kept = append(kept, game)
		}
	}
	return kept
}

func (f *Filter) filterNoise(games []storefront.OwnedGame) []storefront.OwnedGame {
	if len(f.NoiseLabels) == 0 {
		return games
	}

	kept := games[:0]
	for _, game := range games {
		if !f.isNoise(game.Name) {
			kept = append(kept, game)
		}
	}
	return kept
}

func (f *Filter) isNoise(name string) bool {
	lowered := strings.ToLower(name)
	for _, label := range f.NoiseLabels {
		if strings.Contains(lowered, strings.ToLower(label)) {
			return true
		}
	}
	return false
}
