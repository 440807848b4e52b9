// Command server runs the Kinderbill billing lifecycle service: the
// provider webhook endpoint, the read-only billing API and the outbox
// dispatcher.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/kinderbill/kinderbill/internal/api/v1"
	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/email"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	repo "github.com/kinderbill/kinderbill/internal/repository/postgres"
	"github.com/kinderbill/kinderbill/internal/rest"
	"github.com/kinderbill/kinderbill/internal/sentry"
	"github.com/kinderbill/kinderbill/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.L.Fatalw("failed to load configuration", "error", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		logger.L.Fatalw("failed to initialize logger", "error", err)
	}

	sentrySvc := sentry.NewService(cfg, log)
	sentrySvc.Start()
	defer sentrySvc.Stop()

	db, err := postgres.NewClient(cfg, log)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	params := service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		TenantRepo:       repo.NewTenantRepository(db, log),
		SubscriptionRepo: repo.NewSubscriptionRepository(db, log),
		EventRepo:        repo.NewBillingEventRepository(db, log),
		PaymentRepo:      repo.NewPaymentRepository(db, log),
		OutboxRepo:       repo.NewOutboxRepository(db, log),
		StripeClient:     stripe.NewClient(cfg, log),
		EmailService:     email.NewEmail(email.NewEmailClient(cfg), log),
	}

	webhookService := service.NewBillingWebhookService(params)
	billingService := service.NewTenantBillingService(params)
	dispatcher := service.NewOutboxDispatcher(params)

	router := rest.NewRouter(rest.Handlers{
		Health:  v1.NewHealthHandler(),
		Webhook: v1.NewWebhookHandler(webhookService, log),
		Tenant:  v1.NewTenantHandler(billingService, log),
	}, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "address", cfg.Server.Address)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infow("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server error", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
}
