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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/helpers/syncutil"
)

const (
	SchemaVersion = 1
	CfgEnv        = "SAVEPOINT_CFG"
	AppEnv        = "SAVEPOINT_APP"
)

type Values struct {
	Service      Service  `toml:"service,omitempty"`
	Database     Database `toml:"database,omitempty"`
	Matching     Matching `toml:"matching,omitempty"`
	Imports      Imports  `toml:"imports,omitempty"`
	Steam        Steam    `toml:"steam,omitempty"`
	Catalog      Catalog  `toml:"catalog,omitempty"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Service struct {
	DeviceID       string   `toml:"device_id"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty,multiline"`
	APIPort        int      `toml:"api_port,omitempty" validate:"gte=0,lte=65535"`
}

type Database struct {
	// Path overrides the default data dir location of the database file.
	Path string `toml:"path,omitempty"`
}

type Matching struct {
	// Threshold is on a 0-1 scale where lower is stricter.
	Threshold   float64 `toml:"threshold,omitempty" validate:"gte=0,lte=1"`
	MaxDistance int     `toml:"max_distance,omitempty" validate:"gte=0"`
}

type Imports struct {
	// NoiseLabels mark non-game storefront entries like test builds.
	NoiseLabels []string `toml:"noise_labels,omitempty,multiline"`
}

type Steam struct {
	APIURL string `toml:"api_url,omitempty" validate:"omitempty,url"`
}

type Catalog struct {
	APIURL            string `toml:"api_url,omitempty" validate:"omitempty,url"`
	TokenURL          string `toml:"token_url,omitempty" validate:"omitempty,url"`
	RequestsPerSecond int    `toml:"requests_per_second,omitempty" validate:"gte=0"`
}

type Auth struct {
	Creds map[string]CredentialEntry `toml:"creds,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Service: Service{
		APIPort: 7497,
	},
	Matching: Matching{
		Threshold:   0.3,
		MaxDistance: 100,
	},
	Imports: Imports{
		NoiseLabels: []string{"test", "demo", "beta"},
	},
	Steam: Steam{
		APIURL: "https://api.steampowered.com",
	},
	Catalog: Catalog{
		APIURL:            "https://api.igdb.com/v4",
		TokenURL:          "https://id.twitch.tv/oauth2/token",
		RequestsPerSecond: 4,
	},
}

type Instance struct {
	appPath  string
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var authCfg atomic.Value

func GetAuthCfg() Auth {
	val := authCfg.Load()
	if val == nil {
		return Auth{}
	}
	auth, ok := val.(Auth)
	if !ok {
		return Auth{}
	}
	return auth
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		appPath:  os.Getenv(AppEnv),
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	cfg.authPath = filepath.Join(filepath.Dir(cfgPath), AuthFile)

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := validate.Struct(&newVals); err != nil {
		return fmt.Errorf("invalid config values: %w", err)
	}

	c.vals = newVals

	// load auth file
	if _, err := os.Stat(c.authPath); err == nil {
		log.Info().Msg("loading auth file")
		authData, err := os.ReadFile(c.authPath)
		if err != nil {
			return fmt.Errorf("failed to read auth file: %w", err)
		}

		creds := LoadAuthFromData(authData)
		log.Info().Msgf("loaded %d auth entries", len(creds))

		authCfg.Store(Auth{Creds: creds})
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	// generate a device id if one doesn't exist
	if c.vals.Service.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Service.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.APIPort
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.DeviceID
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	origins := make([]string, len(c.vals.Service.AllowedOrigins))
	copy(origins, c.vals.Service.AllowedOrigins)
	return origins
}

// DatabasePath returns the configured database file location, or empty if
// the default data dir location should be used.
func (c *Instance) DatabasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Database.Path
}

func (c *Instance) MatchThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Matching.Threshold
}

func (c *Instance) MatchMaxDistance() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Matching.MaxDistance
}

func (c *Instance) NoiseLabels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	labels := make([]string, len(c.vals.Imports.NoiseLabels))
	copy(labels, c.vals.Imports.NoiseLabels)
	return labels
}

func (c *Instance) SteamAPIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.APIURL
}

func (c *Instance) CatalogAPIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.APIURL
}

func (c *Instance) CatalogTokenURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.TokenURL
}

func (c *Instance) CatalogRequestsPerSecond() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.RequestsPerSecond
}
