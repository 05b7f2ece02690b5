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

package httpclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/savepoint-project/savepoint-core/pkg/config"
)

const (
	// DefaultTimeoutSeconds is the default timeout for HTTP requests
	DefaultTimeoutSeconds = 30
)

// AuthTransport provides automatic authentication for HTTP requests based on auth.toml
type AuthTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper interface with automatic authentication
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}

	// Callers that manage their own token flow set Authorization
	// themselves; only fill it in when absent.
	creds := config.LookupAuth(config.GetAuthCfg().Creds, req.URL.String())
	if creds != nil && req.Header.Get("Authorization") == "" {
		if creds.Bearer != "" {
			req.Header.Set("Authorization", "Bearer "+creds.Bearer)
		} else if creds.Username != "" {
			user := creds.Username
			pass := creds.Password
			auth := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
			req.Header.Set("Authorization", "Basic "+auth)
		}
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport provides a configured transport with connection pooling and reasonable timeouts
var DefaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	// Connection pooling settings
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// Client provides an HTTP client with authentication and sensible defaults
type Client struct {
	*http.Client
}

// NewClient creates a new HTTP client with authentication support
func NewClient() *Client {
	return &Client{
		Client: &http.Client{
			Transport: &AuthTransport{
				Base: DefaultTransport,
			},
		},
	}
}

// NewClientWithTimeout creates a new HTTP client with a custom timeout
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &AuthTransport{
				Base: DefaultTransport,
			},
			Timeout: timeout,
		},
	}
}

// Get performs a GET request and returns the response
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing GET request: %w", err)
	}

	return resp, nil
}

// Post performs a POST request with the given body and returns the response
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing POST request: %w", err)
	}

	return resp, nil
}

// DefaultClient provides a shared HTTP client instance
var DefaultClient = NewClient()
