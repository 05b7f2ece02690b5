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

// Package service wires the database, the Steam storefront, the game
// catalog and the HTTP API together and runs them until shutdown.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/api"
	"github.com/savepoint-project/savepoint-core/pkg/catalog/igdb"
	"github.com/savepoint-project/savepoint-core/pkg/collection"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/database"
	"github.com/savepoint-project/savepoint-core/pkg/database/userdb"
	"github.com/savepoint-project/savepoint-core/pkg/helpers"
	"github.com/savepoint-project/savepoint-core/pkg/importer"
	"github.com/savepoint-project/savepoint-core/pkg/storefront/steam"
	"golang.org/x/sync/errgroup"
)

// vacuumInterval is how often the database is compacted.
const vacuumInterval = 24 * time.Hour

// Run starts the service and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, cfg *config.Instance) error {
	dbPath := helpers.DatabasePath(cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userDB, err := userdb.OpenUserDB(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := userDB.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close database")
		}
	}()

	store := steam.NewClient(cfg)
	cat := igdb.NewClient(cfg)
	imp := importer.New(cfg, userDB, store, cat)
	col := collection.NewService(userDB, cat, clockwork.NewRealClock())
	server := api.NewServer(cfg, userDB, imp, col)

	log.Info().Str("db", dbPath).Int("port", cfg.APIPort()).Msg("service starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		runMaintenance(ctx, userDB)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}
	log.Info().Msg("service stopped")
	return nil
}

// runMaintenance compacts the database periodically until ctx ends.
func runMaintenance(ctx context.Context, db database.GenericDBI) {
	ticker := time.NewTicker(vacuumInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.Vacuum(); err != nil {
				log.Warn().Err(err).Msg("database vacuum failed")
			} else {
				log.Debug().Msg("database vacuumed")
			}
		}
	}
}
