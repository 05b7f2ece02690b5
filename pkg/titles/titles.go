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

// Package titles provides the two title normalizers used by the import
// pipeline. NormalizeKey is the comparison key for dedup and merge: it is
// insensitive to articles and punctuation so "The Witcher 3" and
// "Witcher-3" collide. StripSymbols is for catalog-title comparison: it
// removes trademark/copyright/currency symbols that storefronts embed in
// names but catalogs do not. The two are deliberately separate; collapsing
// them into one transform causes false negatives in either direction.
package titles

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctuationRe = regexp.MustCompile(`[:\-]`)
	articleRe     = regexp.MustCompile(`\bthe\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Symbols storefronts decorate names with: ™ © ® $ € £ ¥ • …
var symbolSet = runes.Predicate(func(r rune) bool {
	switch r {
	case '™', '©', '®', '$', '€', '£', '¥', '•', '…':
		return true
	}
	return false
})

// NormalizeKey lowercases, strips colons and hyphens, removes the
// standalone word "the", collapses whitespace and trims. Deterministic
// and total; idempotent by construction.
func NormalizeKey(title string) string {
	s := strings.ToLower(title)
	s = punctuationRe.ReplaceAllString(s, "")
	s = articleRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripSymbols removes trademark/copyright/currency/ellipsis symbols and
// diacritical marks, lowercases and trims. Used when comparing storefront
// names against catalog titles and for stable candidate ordering.
func StripSymbols(title string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(symbolSet),
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	s, _, err := transform.String(t, title)
	if err != nil {
		s = title
	}
	return strings.TrimSpace(strings.ToLower(s))
}
