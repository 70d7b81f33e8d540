// Server binary. Wires configuration, storage, the evaluation engine, and
// optional integrations (Postgres, Redis, Kafka, webhooks), then runs the
// HTTP server until interrupted. Business logic lives in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"veriflow/internal/audit"
	httpapi "veriflow/internal/http"
	"veriflow/internal/platform/config"
	"veriflow/internal/platform/httpserver"
	"veriflow/internal/platform/kafka"
	"veriflow/internal/platform/logger"
	platformredis "veriflow/internal/platform/redis"
	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/handler"
	"veriflow/internal/verification/metrics"
	"veriflow/internal/verification/ports"
	"veriflow/internal/verification/service"
	"veriflow/internal/verification/store"
	"veriflow/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.HealthCheck{}

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		caseStore  store.CaseStore
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			return err
		}
		caseStore = store.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres storage")
	} else {
		caseStore = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory storage")
	}

	// Fingerprint velocity: Redis index when configured, else the case store.
	var lookup ports.FingerprintLookup = caseStore
	serviceOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	}
	if cfg.RedisURL != "" {
		velocity, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connect failed", "error", err)
			return err
		}
		defer velocity.Close()
		lookup = velocity
		serviceOpts = append(serviceOpts, service.WithFingerprintRecorder(velocity))
		checks["redis"] = velocity.Health
		log.Info("redis velocity index enabled")
	}

	// Audit trail, with an optional Kafka fan-out.
	publisherOpts := []audit.PublisherOption{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err, "brokers", cfg.KafkaBrokers)
			return err
		}
		defer producer.Close()

		inbox := make(chan audit.Event, 256)
		worker := audit.NewWorker(producer, inbox)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		publisherOpts = append(publisherOpts, audit.WithSink(inbox))
		log.Info("kafka audit sink enabled", "topic", cfg.KafkaTopic)
	}
	serviceOpts = append(serviceOpts, service.WithAuditPublisher(audit.NewPublisher(auditStore, publisherOpts...)))

	// Webhook notifications for decided cases.
	if cfg.WebhookSecret != "" {
		signer := webhook.NewSigner(cfg.WebhookSecret)
		var dispatcher *webhook.Dispatcher
		if len(cfg.WebhookEndpoints) > 0 {
			dispatcher = webhook.NewDispatcher(cfg.WebhookEndpoints, signer, cfg.WebhookTimeout, log)
			log.Info("webhook delivery enabled", "endpoints", len(cfg.WebhookEndpoints))
		}
		serviceOpts = append(serviceOpts, service.WithWebhooks(signer, dispatcher))
	}

	svc := service.New(caseStore, engine.New(lookup), serviceOpts...)

	if cfg.SeedDemoCases {
		if err := seedDemoCases(ctx, svc, caseStore, log); err != nil {
			log.Warn("demo case seeding failed", "error", err)
		}
	}

	router := httpapi.NewRouter(handler.New(svc, log), checks, caseStore.Stats)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
