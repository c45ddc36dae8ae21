// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Command server runs the Curator daemon: it loads configuration, wires
// the Emby and MDBList clients behind circuit breakers, and supervises
// the sync engine and the ops HTTP server until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/curator/internal/api"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/reconcile"
	"github.com/tomtom215/curator/internal/store"
	"github.com/tomtom215/curator/internal/supervisor"
	"github.com/tomtom215/curator/internal/supervisor/services"
	syncclient "github.com/tomtom215/curator/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config carries the logging settings, so this one goes out on
		// the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Timestamp: true,
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	logging.Info().
		Str("emby_url", cfg.Emby.URL).
		Int("configured_lists", len(cfg.Lists)).
		Bool("process_my_lists", cfg.Sync.ProcessMyLists).
		Dur("interval", cfg.Sync.Interval).
		Msg("Starting Curator")

	specs, err := cfg.ListSpecs()
	if err != nil {
		// Validate already ran these conversions; kept as a guard.
		logging.Fatal().Err(err).Msg("Invalid list configuration")
	}

	db, err := store.OpenBadger(cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open poster store")
	}
	defer func() { _ = db.Close() }()

	embyClient := syncclient.NewEmbyCircuitBreakerClient(cfg.Emby.URL, cfg.Emby.APIKey, cfg.Emby.UserID, cfg.Sync.ConnectTimeout)
	mdblistClient := syncclient.NewMDBListCircuitBreakerClient(cfg.MDBList.URL, cfg.MDBList.APIKey, cfg.Sync.ConnectTimeout)
	posters := store.NewBadgerPosterStore(db)

	engine := reconcile.NewEngine(embyClient, mdblistClient, posters, reconcile.Options{
		Lists:                        specs,
		ProcessConfiguredLists:       cfg.Sync.ProcessConfiguredLists,
		ProcessMyLists:               cfg.Sync.ProcessMyLists,
		SortNamesDefault:             cfg.Sync.SortNamesDefault,
		UseListDescriptions:          cfg.Sync.UseListDescriptions,
		RefreshItems:                 cfg.Sync.RefreshItems,
		RefreshMaxDaysSinceAdded:     cfg.Sync.RefreshMaxDaysSinceAdded,
		RefreshMaxDaysSincePremiered: cfg.Sync.RefreshMaxDaysSincePremiered,
		RefreshRatingChanges:         cfg.Sync.RefreshRatingChanges,
		Interval:                     cfg.Sync.Interval,
		ConnectRetryBackoff:          cfg.Sync.ConnectRetryBackoff,
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewEngineService(engine))

	if cfg.Server.Enabled {
		router := api.NewRouter(engine)
		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router.Setup(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
		logging.Info().Str("addr", server.Addr).Msg("Ops HTTP server enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		_ = db.Close()
		os.Exit(1)
	}

	logging.Info().Msg("Curator stopped gracefully")
}
