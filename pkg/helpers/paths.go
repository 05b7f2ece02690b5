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

package helpers

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/savepoint-project/savepoint-core/pkg/config"
)

// ConfigDir is where config.toml and auth.toml live.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DataDir is where the database and log files live.
func DataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// DatabasePath resolves the database file location, preferring the
// configured override.
func DatabasePath(cfg *config.Instance) string {
	if p := cfg.DatabasePath(); p != "" {
		return p
	}
	return filepath.Join(DataDir(), config.UserDbFile)
}
