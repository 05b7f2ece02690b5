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

// Package steam implements the storefront interface against the Steam
// Web API. The API key is read from auth.toml; set password=api_key for
// the configured Steam API URL.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/shared/httpclient"
	"github.com/savepoint-project/savepoint-core/pkg/storefront"
)

const (
	// Steam reports a fully public profile as visibility state 3.
	visibilityPublic = 3

	privateProfileMsg = "Steam profile game details are set to private. " +
		"Set game details to public in Steam privacy settings to import."
	unavailableMsg = "Steam is temporarily unavailable. Please try again later."
)

var steamID64Pattern = regexp.MustCompile(`^\d{17}$`)

// Client talks to the Steam Web API.
type Client struct {
	client *httpclient.Client
	cfg    *config.Instance
	apiURL string
}

// NewClient creates a Steam client using the API URL from config.
func NewClient(cfg *config.Instance) *Client {
	return &Client{
		client: httpclient.NewClientWithTimeout(30 * time.Second),
		cfg:    cfg,
		apiURL: cfg.SteamAPIURL(),
	}
}

func (*Client) Name() string {
	return storefront.StorefrontSteam
}

// apiKey reads the Steam Web API key from auth.toml.
func (c *Client) apiKey() string {
	creds := config.LookupAuth(config.GetAuthCfg().Creds, c.apiURL)
	if creds == nil {
		return ""
	}
	if creds.Password != "" {
		return creds.Password
	}
	return creds.Bearer
}

// ValidateHandle accepts either a 17-digit SteamID64 or a vanity name
// and returns the canonical id64.
func (c *Client) ValidateHandle(ctx context.Context, input string) (string, error) {
	if steamID64Pattern.MatchString(input) {
		return input, nil
	}

	id, err := c.ResolveVanityHandle(ctx, input)
	if err != nil {
		if domain.IsCode(err, domain.CodeNotFound) {
			return "", domain.Wrap(domain.CodeValidation,
				"Invalid Steam ID. Provide a 17-digit SteamID64 or a valid vanity name.", err)
		}
		return "", err
	}
	return id, nil
}

type resolveVanityResponse struct {
	Response struct {
		SteamID string `json:"steamid"`
		Message string `json:"message"`
		Success int    `json:"success"`
	} `json:"response"`
}

// ResolveVanityHandle resolves a Steam community vanity name to an id64.
func (c *Client) ResolveVanityHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey())
	params.Set("vanityurl", handle)

	var parsed resolveVanityResponse
	err := c.getJSON(ctx, "/ISteamUser/ResolveVanityURL/v1/", params, &parsed)
	if err != nil {
		return "", err
	}

	if parsed.Response.Success != 1 || parsed.Response.SteamID == "" {
		log.Debug().Str("handle", handle).Str("message", parsed.Response.Message).
			Msg("steam vanity handle not found")
		return "", domain.New(domain.CodeNotFound, "Steam profile not found")
	}
	return parsed.Response.SteamID, nil
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID         string `json:"steamid"`
			PersonaName     string `json:"personaname"`
			AvatarFull      string `json:"avatarfull"`
			ProfileURL      string `json:"profileurl"`
			VisibilityState int    `json:"communityvisibilitystate"`
		} `json:"players"`
	} `json:"response"`
}

// GetPlayerSummary fetches a player profile. A non-public profile is a
// distinct error so the caller can explain how to fix it.
func (c *Client) GetPlayerSummary(ctx context.Context, accountID string) (storefront.Profile, error) {
	params := url.Values{}
	params.Set("key", c.apiKey())
	params.Set("steamids", accountID)

	var parsed playerSummariesResponse
	err := c.getJSON(ctx, "/ISteamUser/GetPlayerSummaries/v2/", params, &parsed)
	if err != nil {
		return storefront.Profile{}, err
	}

	if len(parsed.Response.Players) == 0 {
		return storefront.Profile{}, domain.New(domain.CodeNotFound, "Steam profile not found")
	}

	player := parsed.Response.Players[0]
	public := player.VisibilityState == visibilityPublic
	if !public {
		return storefront.Profile{}, domain.New(domain.CodeProfilePrivate, privateProfileMsg)
	}

	return storefront.Profile{
		ID:          player.SteamID,
		DisplayName: player.PersonaName,
		AvatarURL:   player.AvatarFull,
		ProfileURL:  player.ProfileURL,
		Public:      public,
	}, nil
}

type ownedGamesResponse struct {
	Response struct {
		Games []struct {
			Name            string `json:"name"`
			IconHash        string `json:"img_icon_url"`
			LogoHash        string `json:"img_logo_url"`
			AppID           int64  `json:"appid"`
			Playtime        int64  `json:"playtime_forever"`
			PlaytimeWindows int64  `json:"playtime_windows_forever"`
			PlaytimeMac     int64  `json:"playtime_mac_forever"`
			PlaytimeLinux   int64  `json:"playtime_linux_forever"`
			LastPlayed      int64  `json:"rtime_last_played"`
		} `json:"games"`
		GameCount int `json:"game_count"`
	} `json:"response"`
}

// GetOwnedGames fetches the full owned library with per-OS playtime.
// Steam reports a hidden library as a positive game count with no
// entries, which surfaces as a private-profile error.
func (c *Client) GetOwnedGames(ctx context.Context, accountID string) ([]storefront.OwnedGame, error) {
	params := url.Values{}
	params.Set("key", c.apiKey())
	params.Set("steamid", accountID)
	params.Set("include_appinfo", "1")
	params.Set("include_played_free_games", "1")

	var parsed ownedGamesResponse
	err := c.getJSON(ctx, "/IPlayerService/GetOwnedGames/v1/", params, &parsed)
	if err != nil {
		return nil, err
	}

	if len(parsed.Response.Games) == 0 {
		if parsed.Response.GameCount > 0 {
			return nil, domain.New(domain.CodeProfilePrivate, privateProfileMsg)
		}
		return []storefront.OwnedGame{}, nil
	}

	games := make([]storefront.OwnedGame, 0, len(parsed.Response.Games))
	for _, game := range parsed.Response.Games {
		owned := storefront.OwnedGame{
			AppID:                  fmt.Sprintf("%d", game.AppID),
			Name:                   game.Name,
			PlaytimeMinutes:        game.Playtime,
			PlaytimeWindowsMinutes: game.PlaytimeWindows,
			PlaytimeMacMinutes:     game.PlaytimeMac,
			PlaytimeLinuxMinutes:   game.PlaytimeLinux,
			IconURL:                imageURL(game.AppID, game.IconHash),
			LogoURL:                imageURL(game.AppID, game.LogoHash),
		}
		if game.LastPlayed > 0 {
			lastPlayed := time.Unix(game.LastPlayed, 0)
			owned.LastPlayedAt = &lastPlayed
		}
		games = append(games, owned)
	}
	return games, nil
}

// imageURL expands a Steam community image hash to a full URL.
func imageURL(appID int64, hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf(
		"https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg",
		appID, hash)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.apiURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create steam request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg, err)
	}
	return nil
}

func classifyStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return domain.New(domain.CodeRateLimited,
			"Too many requests to Steam. Please wait a moment and try again.")
	case statusCode >= http.StatusInternalServerError:
		return domain.New(domain.CodeExternalUnavailable, unavailableMsg)
	default:
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg,
			fmt.Errorf("steam api status %d", statusCode))
	}
}
