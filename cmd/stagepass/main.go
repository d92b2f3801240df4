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

	"stagepass/internal/core/ports"
	"stagepass/internal/core/services"
	httphandlers "stagepass/internal/handlers/http"
	"stagepass/internal/infrastructure/monitoring"
	"stagepass/internal/infrastructure/repositories"
	"stagepass/pkg/config"
	"stagepass/pkg/logger"
	"stagepass/pkg/rtctoken"
	"stagepass/pkg/tracing"
	"stagepass/pkg/utils"

	"github.com/gin-gonic/gin"
)

func configPath() string {
	if path := os.Getenv("STAGEPASS_CONFIG"); path != "" {
		return path
	}
	for _, path := range []string{
		"configs/config.yaml",
		"config.yaml",
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		if errors.Is(err, config.ErrMissingAppCredentials) {
			fmt.Fprintln(os.Stderr, "stagepass: AGORA_APP_ID and AGORA_APP_CERTIFICATE must be set; refusing to start")
		} else {
			fmt.Fprintf(os.Stderr, "stagepass: %v\n", err)
		}
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tp, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Environment:  cfg.Tracing.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     true,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	encoder, err := rtctoken.New(cfg.App.ID, cfg.App.Certificate)
	if err != nil {
		log.Fatalw("failed to create credential encoder", "error", err)
	}

	repoFactory := repositories.NewRepositoryFactory(cfg, log)
	defer repoFactory.Close()

	streamRepo := repoFactory.CreateStreamRepository()
	identityRepo := repoFactory.CreateIdentityRepository()

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repositories.SeedIdentities(seedCtx, identityRepo, cfg.Identities); err != nil {
		seedCancel()
		log.Fatalw("failed to seed identities", "error", err)
	}
	seedCancel()

	var metrics *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
		log.Info("Prometheus metrics enabled")
	}

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck(repoFactory.Backend(), repoFactory.HealthCheck, 2*time.Second)

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	credentialService := services.NewCredentialService(encoder, services.CredentialConfig{
		Lifetime:    cfg.Credentials.Lifetime,
		DefaultRole: cfg.Credentials.DefaultRole,
	}, recorder(metrics), log)
	streamService := services.NewStreamService(streamRepo, recorder(metrics), log)
	accessService := services.NewAccessService(identityRepo, recorder(metrics), log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := httphandlers.NewRouter(httphandlers.RouterDeps{
		Config:            cfg,
		Logger:            zapLogger,
		AuthService:       authService,
		CredentialService: credentialService,
		StreamService:     streamService,
		AccessService:     accessService,
		HealthChecker:     healthChecker,
		Metrics:           metrics,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting stagepass server",
			"address", cfg.Server.Address,
			"app_id", utils.MaskSensitive(cfg.App.ID, 6),
			"store", repoFactory.Backend(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}

	log.Info("stagepass server stopped")
}

// recorder keeps a nil collector from becoming a non-nil interface.
func recorder(metrics *monitoring.PrometheusCollector) ports.MetricsRecorder {
	if metrics == nil {
		return nil
	}
	return metrics
}
