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

package config

import (
	"maps"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry holds authentication credentials for a URL. Storefront
// API keys go in Bearer; catalog client id/secret pairs go in
// Username/Password.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

// authRootFormat represents the clean format: ["url"] at root level
type authRootFormat map[string]CredentialEntry

// authCredsFormat represents the wrapped format: [creds."url"]
type authCredsFormat struct {
	Creds map[string]CredentialEntry `toml:"creds"`
}

// isValidAuthKey filters out TOML structural keys that get captured when
// parsing the root format in mixed-format files.
func isValidAuthKey(key string) bool {
	return key != "creds"
}

// LoadAuthFromData parses auth.toml data. Both supported formats are
// merged, allowing users to mix formats in the same file:
//   - Root level: ["https://example.com"]
//   - Creds wrapper: [creds."https://example.com"]
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root authRootFormat
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			if isValidAuthKey(k) {
				result[k] = v
			}
		}
	}

	var creds authCredsFormat
	if err := toml.Unmarshal(data, &creds); err == nil {
		maps.Copy(result, creds.Creds)
	}

	return result
}

// isSchemelessKey returns true if the key does not contain a scheme (no "://").
func isSchemelessKey(key string) bool {
	return !strings.Contains(key, "://")
}

// LookupAuth finds credentials for a URL using fallback matching.
//
// The lookup tries 2 match types in order of decreasing specificity:
//  1. Scheme match - scheme, host, and path prefix must match exactly
//  2. Schemeless host match - for entries like "api.example.com" that
//     match any scheme
//
// Scheme matching stays strict so http entries never leak credentials
// over https and vice versa.
func LookupAuth(creds map[string]CredentialEntry, reqURL string) *CredentialEntry {
	if len(creds) == 0 {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil {
		log.Warn().Msgf("invalid auth request url: %s", reqURL)
		return nil
	}

	// Step 1: Exact scheme match (highest priority)
	for k, v := range creds {
		if isSchemelessKey(k) {
			continue
		}
		defURL, err := url.Parse(k)
		if err != nil {
			log.Error().Msgf("invalid auth config url: %s", k)
			continue
		}
		if strings.EqualFold(defURL.Scheme, u.Scheme) &&
			strings.EqualFold(defURL.Host, u.Host) &&
			strings.HasPrefix(u.Path, defURL.Path) {
			return &v
		}
	}

	// Step 2: Schemeless host match (lowest priority, most flexible)
	for k, v := range creds {
		if !isSchemelessKey(k) {
			continue
		}
		if strings.EqualFold(k, u.Host) {
			return &v
		}
	}

	return nil
}
