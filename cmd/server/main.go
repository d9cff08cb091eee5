// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/eden/internal/api"
	"github.com/tomtom215/eden/internal/auth"
	"github.com/tomtom215/eden/internal/config"
	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/sensors"
	"github.com/tomtom215/eden/internal/state"
	"github.com/tomtom215/eden/internal/supervisor"
	"github.com/tomtom215/eden/internal/supervisor/services"
	ws "github.com/tomtom215/eden/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const sessionCleanupInterval = 15 * time.Minute

func main() {
	opts := parseFlags(os.Args[1:])
	if opts.showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("db_driver", cfg.Database.Driver).
		Str("sensors_mode", cfg.Sensors.Mode).
		Dur("interval", cfg.Control.Interval).
		Msg("Starting Eden")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Database unreachable")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	sensor, herd, err := sensors.New(&cfg.Sensors)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize sensors")
	}

	handle := state.NewHandle()
	hub := ws.NewHub()
	trends := api.NewTrendCache(api.DefaultTrendCacheTTL)
	loop := control.NewLoop(controlConfig(cfg), sensor, herd, repo, handle,
		control.WithPublisher(hub), control.WithPublisher(trends))

	if opts.once {
		if err := runOnce(ctx, loop, handle); err != nil {
			logging.Error().Err(err).Msg("Control cycle failed")
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, repo, handle, hub, trends, loop); err != nil {
		logging.Error().Err(err).Msg("Eden stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Eden stopped gracefully")
}

type flags struct {
	once        bool
	showVersion bool
}

func parseFlags(args []string) flags {
	var f flags
	fs := flag.NewFlagSet("eden", flag.ExitOnError)
	fs.BoolVar(&f.once, "once", false, "run a single control cycle and exit")
	fs.BoolVar(&f.showVersion, "version", false, "print the version and exit")
	_ = fs.Parse(args) // ExitOnError never returns an error
	return f
}

func controlConfig(cfg *config.Config) control.Config {
	return control.Config{
		Interval:         cfg.Control.Interval,
		CycleTimeout:     cfg.Control.CycleTimeout,
		TrendWindowHours: cfg.Control.TrendWindowHours,
		Thresholds:       cfg.Thresholds.Model(),
	}
}

// runOnce runs one cycle and logs the published actions.
func runOnce(ctx context.Context, loop *control.Loop, handle *state.Handle) error {
	if err := loop.RunCycle(ctx); err != nil {
		return err
	}
	snap, ok := handle.Current()
	if !ok {
		return errors.New("cycle completed without publishing a snapshot")
	}
	event := logging.Info().Uint64("cycle", snap.Cycle).Strs("actions", snap.Actions)
	if snap.Reading != nil {
		event = event.
			Int("soil_moisture", snap.Reading.SoilMoisture).
			Float64("temperature", snap.Reading.Temperature).
			Int("water_level", snap.Reading.WaterLevel).
			Float64("energy_level", snap.Reading.EnergyLevel)
	}
	event.Msg("Control cycle complete")
	return nil
}

// serve wires the dashboard and runs the supervisor tree until ctx ends.
func serve(ctx context.Context, cfg *config.Config, repo database.Repository, handle *state.Handle, hub *ws.Hub, trends *api.TrendCache, loop *control.Loop) error {
	factory, err := auth.NewSessionStoreFactory(auth.SessionStoreType(cfg.Security.SessionStore), cfg.Security.SessionStorePath)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer func() {
		if err := factory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessionStore := factory.CreateStore()
	if cfg.Security.SessionStore == string(auth.SessionStoreMemory) {
		logging.Warn().Msg("Sessions are kept in memory and will be lost on restart (SESSION_STORE=badger persists them)")
	}

	authService := auth.NewService(repo)
	if cfg.Security.AdminUsername != "" && cfg.Security.AdminPassword != "" {
		if err := authService.SeedAdmin(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}
	}

	sessions := auth.NewSessionMiddleware(sessionStore, &auth.SessionMiddlewareConfig{
		SessionTTL:     cfg.Security.SessionTTL,
		SlidingSession: true,
		CookieSecure:   cfg.Security.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	})

	handler, err := api.NewHandler(api.Dependencies{
		Repository:       repo,
		Handle:           handle,
		Loop:             loop,
		Auth:             authService,
		Sessions:         sessions,
		Hub:              hub,
		Trends:           trends,
		TrendWindowHours: loop.TrendWindowHours(),
		AllowedOrigins:   cfg.Security.CORSOrigins,
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("dashboard handler: %w", err)
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS_ORIGINS=* allows any website to call the API and open websockets")
			break
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&cfg.Security))),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddControlService(loop)
	tree.AddControlService(auth.NewSessionJanitor(sessionStore, sessionCleanupInterval))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, reportErr := tree.UnstoppedServiceReport()
	if reportErr == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
