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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, CfgFile))
	assert.Equal(t, 7497, cfg.APIPort())
	assert.InDelta(t, 0.3, cfg.MatchThreshold(), 0.0001)
	assert.Equal(t, 100, cfg.MatchMaxDistance())
	assert.Equal(t, []string{"test", "demo", "beta"}, cfg.NoiseLabels())
	assert.NotEmpty(t, cfg.DeviceID(), "device id generated on first save")
}

func TestNewConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
config_schema = 1
debug_logging = true

[service]
api_port = 9000

[matching]
threshold = 0.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, 9000, cfg.APIPort())
	assert.InDelta(t, 0.1, cfg.MatchThreshold(), 0.0001)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 100, cfg.MatchMaxDistance())
	assert.Equal(t, "https://api.steampowered.com", cfg.SteamAPIURL())
}

func TestNewConfigSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	content := "config_schema = 99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "threshold above one",
			content: "config_schema = 1\n\n[matching]\nthreshold = 1.5\n",
		},
		{
			name:    "negative port",
			content: "config_schema = 1\n\n[service]\napi_port = -1\n",
		},
		{
			name:    "catalog url not a url",
			content: "config_schema = 1\n\n[catalog]\napi_url = \"not a url\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(tt.content), 0o600))

			_, err := NewConfig(dir, BaseDefaults)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsAuthFile(t *testing.T) {
	dir := t.TempDir()
	authContent := `
["https://api.steampowered.com"]
bearer = "steam-key"

[creds."https://id.twitch.tv"]
username = "client-id"
password = "client-secret"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, AuthFile), []byte(authContent), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	auth := GetAuthCfg()
	require.Len(t, auth.Creds, 2)

	steam := LookupAuth(auth.Creds, "https://api.steampowered.com/IPlayerService/GetOwnedGames/v1/")
	require.NotNil(t, steam)
	assert.Equal(t, "steam-key", steam.Bearer)

	twitch := LookupAuth(auth.Creds, "https://id.twitch.tv/oauth2/token")
	require.NotNil(t, twitch)
	assert.Equal(t, "client-id", twitch.Username)
	assert.Equal(t, "client-secret", twitch.Password)
}

func TestSetDebugLoggingPersistsAcrossSave(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.True(t, reloaded.DebugLogging())
}
