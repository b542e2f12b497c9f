package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	authhandler "kycgate/internal/auth/handler"
	authservice "kycgate/internal/auth/service"
	authstore "kycgate/internal/auth/store"
	checkstore "kycgate/internal/checks/store"
	"kycgate/internal/ipintel"
	kychandler "kycgate/internal/kyc/handler"
	"kycgate/internal/kyc/provider"
	kycservice "kycgate/internal/kyc/service"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/database"
	"kycgate/internal/platform/health"
	"kycgate/internal/platform/httpserver"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/tracer"
	"kycgate/internal/session"
	httptransport "kycgate/internal/transport/http"
	"kycgate/internal/webhook"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing kycgate",
		"addr", cfg.Addr,
		"allowed_origin", cfg.AllowedOrigin,
	)

	m := metrics.New()
	trc := tracer.NewOTel()
	healthHandler := health.New()

	var users authstore.Store
	var checks checkstore.Store

	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		pool, err := database.New(dbCfg)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close() //nolint:errcheck // shutdown path

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pool.Migrate(migrateCtx); err != nil {
			cancel()
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		cancel()

		users = authstore.NewPostgres(pool.DB())
		checks = checkstore.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = authstore.NewMemory()
		checks = checkstore.NewMemory()
	}

	sessions := session.NewIssuer(cfg.SessionSigningKey, cfg.SessionTTL)

	kycProvider := provider.NewHTTPClient(cfg.KYCBaseURL, cfg.KYCAPIKey, cfg.KYCTimeout,
		provider.WithTracer(trc),
		provider.WithMetrics(m),
	)
	referrer := cfg.AllowedOrigin + "/*"
	kycSvc := kycservice.New(users, checks, kycProvider, referrer, log, m)

	ipClient := ipintel.NewHTTPClient(cfg.IPIntelBaseURL, cfg.IPIntelAPIKey, cfg.IPIntelTimeout,
		ipintel.WithTracer(trc),
	)

	authSvc := authservice.New(users, log, m)

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:          authhandler.New(authSvc, sessions, log),
		KYC:           kychandler.New(kycSvc, log),
		IPIntel:       ipintel.NewHandler(ipClient, log, m),
		Webhook:       webhook.New(cfg.WebhookSecret, checks, log, m),
		Health:        healthHandler,
		Sessions:      sessions,
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        log,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
