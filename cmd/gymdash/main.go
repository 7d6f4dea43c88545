package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gymdash/internal/auth"
	"gymdash/internal/backend"
	"gymdash/internal/cache"
	"gymdash/internal/calview"
	"gymdash/internal/cli"
	"gymdash/internal/dues"
	apphttp "gymdash/internal/http"
	applog "gymdash/internal/log"
	"gymdash/internal/paymentsapi"
	"gymdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	payments := services.NewPaymentService(result.Store, result.Publisher, services.PaymentOptions{
		MonthlyFee: cfg.MonthlyFeeCRC,
		Logger:     logger,
	})

	// The calendar reads and mutates through the local service unless a
	// remote payments API is configured.
	var (
		lister  dues.Lister  = payments
		mutator dues.Mutator = payments
	)
	if cfg.PaymentsAPIURL != "" {
		remote, err := paymentsapi.New(cfg.PaymentsAPIURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			logger.Error("Invalid payments API URL", applog.FieldError, err)
			os.Exit(1)
		}
		lister, mutator = remote, remote
		logger.Info("Using remote payments API", "url", cfg.PaymentsAPIURL)
	}

	fetcher := dues.NewFetcher(lister, dues.Options{
		CacheSize: cfg.DueCacheSize,
		CacheTTL:  cfg.DueCacheTTL,
		Logger:    logger,
	})

	sessions, err := auth.NewManager(string(cli.SessionKey(logger, cfg)), cfg.SecureCookies, logger)
	if err != nil {
		logger.Error("Failed to initialize sessions", applog.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Lister:   lister,
		Mutator:  fetcher.Invalidating(mutator),
		Fetcher:  fetcher,
		Members:  services.NewMemberService(result.Store, payments, services.MemberOptions{Location: loc, Logger: logger}),
		Stats:    services.NewStatsService(result.Store, result.Store, loc, time.Now),
		Auth:     auth.NewService(result.Store, auth.Options{Logger: logger}),
		Sessions: sessions,
		Store:    result.Store,
		Caches:   cache.NewManager(logger),
		Location: loc,
		Clock:    calview.SystemClock{},
		Logger:   logger,

		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting gymdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
