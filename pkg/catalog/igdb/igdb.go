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

// Package igdb implements the catalog interface against the IGDB API.
// IGDB requires Twitch client credentials in auth.toml: set
// username=client_id and password=client_secret for the configured
// catalog API URL.
package igdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/catalog"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/helpers/syncutil"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
	"github.com/savepoint-project/savepoint-core/pkg/shared/httpclient"
	"golang.org/x/time/rate"
)

const (
	// IGDB platform id for PC (Windows). Imports are storefront
	// libraries, so every search is scoped to PC.
	platformPC = 6

	searchLimit = 10

	// tokenExpiryMargin refreshes the token before Twitch actually
	// expires it, so an in-flight request never races the cutoff.
	tokenExpiryMargin = 60 * time.Second

	unavailableMsg = "Game catalog is temporarily unavailable. Please try again later."
)

// tokenInfo is a cached Twitch OAuth2 client-credentials token.
type tokenInfo struct {
	ExpiresAt   time.Time
	AccessToken string
	TokenType   string
}

// Client talks to the IGDB API behind a client-side rate limit.
type Client struct {
	client   *httpclient.Client
	token    *tokenInfo
	limiter  *rate.Limiter
	apiURL   string
	tokenURL string
	mu       syncutil.Mutex
}

// NewClient creates an IGDB client using URLs and the request budget
// from config.
func NewClient(cfg *config.Instance) *Client {
	rps := cfg.CatalogRequestsPerSecond()
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		client:   httpclient.NewClientWithTimeout(30 * time.Second),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		apiURL:   cfg.CatalogAPIURL(),
		tokenURL: cfg.CatalogTokenURL(),
	}
}

// creds reads the Twitch client id/secret pair from auth.toml.
func (c *Client) creds() *config.CredentialEntry {
	return config.LookupAuth(config.GetAuthCfg().Creds, c.apiURL)
}

// ensureValidToken refreshes the cached OAuth2 token if it is missing
// or near expiry.
func (c *Client) ensureValidToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && time.Now().Add(tokenExpiryMargin).Before(c.token.ExpiresAt) {
		return nil
	}

	creds := c.creds()
	if creds == nil || creds.Username == "" || creds.Password == "" {
		return domain.New(domain.CodeExternalUnavailable,
			"Game catalog credentials are missing. Set username=client_id and "+
				"password=client_secret for the catalog URL in auth.toml.")
	}

	params := url.Values{}
	params.Set("client_id", creds.Username)
	params.Set("client_secret", creds.Password)
	params.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg,
			fmt.Errorf("token request status %d", resp.StatusCode))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg, err)
	}

	c.token = &tokenInfo{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		TokenType:   tokenResp.TokenType,
	}

	log.Info().Msg("obtained catalog access token")
	return nil
}

// gameRecord is the IGDB wire shape for a games query.
type gameRecord struct {
	Name             string `json:"name"`
	Summary          string `json:"summary"`
	Cover            *cover `json:"cover"`
	ID               int64  `json:"id"`
	FirstReleaseDate int64  `json:"first_release_date"`
}

type cover struct {
	ImageID string `json:"image_id"`
}

// SearchByName searches PC games matching a title, best first.
func (c *Client) SearchByName(ctx context.Context, name string) ([]catalog.Result, error) {
	// IGDB uses a custom query language. Category 0 restricts results
	// to main games, excluding DLC and bundles.
	query := fmt.Sprintf(`fields id,name,summary,first_release_date,cover.image_id;
		search "%s";
		where platforms = (%d) & category = 0;
		limit %d;`, escapeQuery(name), platformPC, searchLimit)

	games, err := c.queryGames(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]catalog.Result, 0, len(games))
	for i := range games {
		results = append(results, convertGame(&games[i]))
	}
	return results, nil
}

// GetByID fetches a single catalog entry.
func (c *Client) GetByID(ctx context.Context, id int64) (catalog.Result, error) {
	query := fmt.Sprintf(
		`fields id,name,summary,first_release_date,cover.image_id; where id = %d;`, id)

	games, err := c.queryGames(ctx, query)
	if err != nil {
		return catalog.Result{}, err
	}
	if len(games) == 0 {
		return catalog.Result{}, domain.New(domain.CodeNotFound, "Game not found in catalog")
	}
	return convertGame(&games[0]), nil
}

func (c *Client) queryGames(ctx context.Context, query string) ([]gameRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog rate limiter: %w", err)
	}
	if err := c.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	log.Debug().Str("query", query).Msg("catalog games request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/games", bytes.NewBufferString(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	creds := c.creds()
	if creds != nil {
		req.Header.Set("Client-ID", creds.Username)
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	c.mu.Unlock()
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode)
	}

	var games []gameRecord
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg, err)
	}
	return games, nil
}

func classifyStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return domain.New(domain.CodeRateLimited,
			"Too many requests to the game catalog. Please wait a moment and try again.")
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.Wrap(domain.CodeExternalUnavailable,
			"Game catalog rejected the configured credentials. Check auth.toml.",
			fmt.Errorf("catalog api status %d", statusCode))
	default:
		return domain.Wrap(domain.CodeExternalUnavailable, unavailableMsg,
			fmt.Errorf("catalog api status %d", statusCode))
	}
}

func convertGame(game *gameRecord) catalog.Result {
	result := catalog.Result{
		CatalogID: game.ID,
		Name:      game.Name,
		Summary:   game.Summary,
	}
	if game.FirstReleaseDate > 0 {
		result.ReleaseDate = time.Unix(game.FirstReleaseDate, 0).UTC().Format("2006-01-02")
	}
	if game.Cover != nil && game.Cover.ImageID != "" {
		result.CoverURL = fmt.Sprintf(
			"https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg",
			game.Cover.ImageID)
	}
	return result
}

// escapeQuery keeps quotes in user-supplied titles from breaking the
// query body.
func escapeQuery(name string) string {
	return strings.ReplaceAll(name, `"`, `\"`)
}
