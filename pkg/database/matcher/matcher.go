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

// Package matcher implements fuzzy title matching for dedup and catalog
// resolution. The engine is behind the Index interface so matching
// accuracy can be tuned or the library swapped without touching callers.
package matcher

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// Match is a candidate name that cleared the similarity threshold.
type Match struct {
	Name       string
	Similarity float32
}

// Index searches a fixed candidate set for names similar to a query.
// Queries and candidates are expected to be pre-normalized; the index
// does no normalization of its own.
type Index interface {
	Search(query string) []Match
}

// IndexFactory builds an Index over a candidate set. The import pipeline
// takes a factory rather than an Index because each filter stage indexes
// a different candidate set.
type IndexFactory func(names []string, opts Options) Index

// Options controls false-positive rate.
//
// Threshold is on a 0-1 scale where lower is stricter (0 accepts only
// near-exact matches). MaxDistance bounds the length difference between
// query and candidate; longer pairs are skipped without scoring.
type Options struct {
	Threshold   float64
	MaxDistance int
}

const (
	DefaultThreshold   = 0.3
	DefaultMaxDistance = 100

	// tieBreakTopN bounds the Damerau-Levenshtein re-rank pass.
	tieBreakTopN = 5
)

// withDefaults fills zero-valued options.
func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxDistance == 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	return o
}

// edlibIndex scores candidates with Jaro-Winkler similarity, which is
// optimized for short strings and heavily weights matching prefixes,
// a good fit for game titles where users and storefronts get the start
// of the name right. Ties are re-ranked by Damerau-Levenshtein distance
// to handle transpositions.
type edlibIndex struct {
	names         []string
	minSimilarity float32
	maxDistance   int
}

// NewIndex builds the default Jaro-Winkler index over the candidate set.
// NewIndex satisfies IndexFactory.
func NewIndex(names []string, opts Options) Index {
	opts = opts.withDefaults()
	return &edlibIndex{
		names:         names,
		minSimilarity: float32(1 - opts.Threshold),
		maxDistance:   opts.MaxDistance,
	}
}

// Search returns candidates similar to query, best first. An exact match
// scores 1.0 and always ranks first.
func (ix *edlibIndex) Search(query string) []Match {
	var matches []Match

	for _, candidate := range ix.names {
		if candidate == query {
			matches = append(matches, Match{Name: candidate, Similarity: 1.0})
			continue
		}

		// Length pre-filter: skip candidates with length difference > maxDistance
		lenDiff := len(query) - len(candidate)
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > ix.maxDistance {
			continue
		}

		similarity := edlib.JaroWinklerSimilarity(query, candidate)
		if similarity >= ix.minSimilarity {
			matches = append(matches, Match{Name: candidate, Similarity: similarity})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return applyTieBreaker(query, matches, tieBreakTopN)
}

// applyTieBreaker refines the top N matches by Damerau-Levenshtein
// distance so transposition typos ("crono tigger") rank the intended
// candidate first. The two-stage approach is more accurate than either
// algorithm alone while staying fast on large candidate sets.
func applyTieBreaker(query string, matches []Match, topN int) []Match {
	if len(matches) < 2 {
		return matches
	}

	candidates := matches
	if topN > 0 && len(matches) > topN {
		candidates = matches[:topN]
	}

	type scored struct {
		match    Match
		distance int
	}

	ranked := make([]scored, len(candidates))
	for i, candidate := range candidates {
		ranked[i] = scored{
			match:    candidate,
			distance: edlib.DamerauLevenshteinDistance(query, candidate.Name),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	result := make([]Match, 0, len(matches))
	for _, s := range ranked {
		result = append(result, s.match)
	}
	if len(candidates) < len(matches) {
		result = append(result, matches[len(candidates):]...)
	}
	return result
}
