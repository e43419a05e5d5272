package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(log.Default(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m := metrics.New()

	retrier := services.NewSaveRetrier(services.SaveRetrierConfig{
		PollInterval: time.Second,
		BaseBackoff:  cfg.SaveRetryInterval,
		MaxBackoff:   cfg.SaveMaxBackoff,
	}, m)
	if err := retrier.Start(ctx); err != nil {
		logger.Error("Failed to start save retrier", log.FieldError, err)
		os.Exit(1)
	}

	sessions := ledger.NewSessions(result.Backend, ledger.SessionsConfig{
		Size:   cfg.SessionCacheSize,
		TTL:    cfg.SessionTTL,
		Gauge:  m,
		Logger: log.Default(log.ComponentLedger),
	},
		ledger.WithRetrier(retrier),
		ledger.WithNotifier(services.NewEventNotifier(result.Publisher, m)),
		ledger.WithObserver(m),
		ledger.WithLogger(log.Default(log.ComponentLedger)),
	)

	var verifier *auth.Verifier
	if cfg.AuthDisabled {
		logger.Warn("Authentication disabled, owner taken from " + auth.DevOwnerHeader)
	} else {
		verifier, err = auth.NewVerifier(auth.VerifierConfig{
			SigningKey: cfg.AuthSigningKey,
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience(),
		})
		if err != nil {
			logger.Error("Failed to initialize token verifier", log.FieldError, err)
			os.Exit(1)
		}
	}

	core.SetLocation(cfg.Location())

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Sessions:           sessions,
		Pinger:             result.Backend,
		Verifier:           verifier,
		Metrics:            m,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           cfg.Location(),
		Logger:             log.Default(log.ComponentHTTP),
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		// The server flushes pending saves; the retrier stops after it.
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := retrier.Stop(ctx); err != nil {
			logger.Error("Save retrier shutdown error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth_disabled", cfg.AuthDisabled,
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
