package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/sync/errgroup"

	"license-binding-server/internal/config"
	"license-binding-server/internal/database"
	"license-binding-server/internal/handler"
	"license-binding-server/internal/metrics"
	"license-binding-server/internal/middleware"
	"license-binding-server/internal/service"
	"license-binding-server/internal/util"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := database.OpenBackend(cfg.StorageBackend, cfg.DataDir, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeBackend()

	eventDB, err := database.OpenSQLite(cfg.EventLogPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer database.Close(eventDB)

	events, err := service.NewEventLog(eventDB, log)
	if err != nil {
		return fmt.Errorf("migrate event log: %w", err)
	}

	provider, err := metrics.NewProvider()
	if err != nil {
		return err
	}
	defer provider.Shutdown(context.Background())

	licenseMetrics, err := metrics.InitializeLicenseMetrics(provider.Meter)
	if err != nil {
		return err
	}

	notifier := service.MultiNotifier{
		service.LogNotifier{Logger: log},
		events,
		licenseMetrics,
	}
	if cfg.WebhookURL != "" {
		notifier = append(notifier, service.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout, log))
	}

	credentials, err := service.NewCredentialStore(backend, service.AdminCredential{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	if cfg.AdminPassword == "" {
		log.Warn("admin password is not set, administrator login is disabled")
	}

	opts := []service.LicenseStoreOption{
		service.WithNotifier(notifier),
		service.WithMetrics(licenseMetrics),
		service.WithLogger(log),
	}
	sheetSync, err := service.NewSheetSyncService(ctx, cfg.Sheets.Enabled, cfg.Sheets.CredentialPath,
		cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, log)
	if err != nil {
		return fmt.Errorf("init sheet sync: %w", err)
	}
	if sheetSync != nil {
		opts = append(opts, service.WithMirror(sheetSync))
		log.Info("spreadsheet mirror enabled", slog.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
	}
	licenses := service.NewLicenseStore(backend, credentials, opts...)

	tokens, err := util.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		log.Warn("jwt secret is not set, sessions will not survive a restart")
	}

	h := handler.New(handler.Deps{
		Licenses:    licenses,
		Credentials: credentials,
		Auth:        service.NewAuthService(credentials, licenses, notifier),
		Events:      events,
		Tokens:      tokens,
		Logger:      log,
	})

	app := handler.NewApp(handler.AppOptions{
		ProxyHeader:    cfg.ProxyHeader,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         log,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
	h.RegisterRoutes(app, handler.RouteOptions{
		Auth:      middleware.Auth(tokens, notifier),
		RateLimit: limiter.Handler(),
		Metrics:   provider.Handler,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", slog.String("addr", cfg.ListenAddr), slog.String("storage", cfg.StorageBackend))
		return app.Listen(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})

	return g.Wait()
}
