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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/savepoint-project/savepoint-core/pkg/config"
	"github.com/savepoint-project/savepoint-core/pkg/helpers"
	"github.com/savepoint-project/savepoint-core/pkg/service"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	console := flag.Bool("console", false, "also log to the console")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("savepoint " + config.AppVersion)
		return
	}

	var extraWriters []io.Writer
	if *console {
		extraWriters = append(extraWriters, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if err := helpers.InitLogging(helpers.DataDir(), extraWriters); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logging:", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), config.BaseDefaults)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	helpers.SetLogLevel(*debug || cfg.DebugLogging())

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("service failed")
		os.Exit(1)
	}
}
