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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/shared/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// statusForCode maps the domain error taxonomy to HTTP statuses.
func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeProfilePrivate:
		return http.StatusForbidden
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeExternalUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeDatabase, domain.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error. Unexpected errors are logged with
// their cause and surfaced as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	if code == domain.CodeInternal || code == domain.CodeDatabase {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	resp := errorResponse{
		Code:    string(code),
		Message: domain.MessageOf(err),
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		resp.Fields = domainErr.Fields
	}
	writeJSON(w, statusForCode(code), resp)
}

// decodeJSON decodes a request body into out, rejecting unknown fields.
func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return domain.Wrap(domain.CodeValidation, "Request body is not valid JSON", err)
	}
	return nil
}
