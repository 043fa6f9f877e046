package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/auth"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/game"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gastos exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	gameStore, closeGames, err := factory.CreateGameStore(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create game store: %w", err)
	}
	defer func() { _ = closeGames() }()

	var monthOpts []services.MonthOption
	if result.Publisher != nil {
		monthOpts = append(monthOpts, services.WithPublisher(result.Publisher))
	}
	months := services.NewMonthService(result.Store, result.Store, monthOpts...)

	caches := cache.NewManager()
	caches.Register("months", months.Cache())
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	srv, err := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Store:                 result.Store,
		Months:                months,
		Accounts:              services.NewAccountService(result.Store, cfg.AppPassword),
		Games:                 game.NewService(gameStore, result.Store),
		Sessions:              auth.NewSessions(cfg.AuthSecret, auth.WithSecureCookie(cfg.CookieSecure)),
		Logger:                logger,
		AuthRequestsPerMinute: cfg.AuthRateLimit,
		TrustedProxies:        cfg.TrustedProxies,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gastos server",
			"addr", srv.Addr,
			"backend", backendCfg.Type,
			"legacy_login", cfg.AppPassword != "",
			"sync_enabled", result.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
