package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/commission"
	"staybook/internal/domain/notification"
	"staybook/internal/domain/payment"
	"staybook/internal/middleware"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/mq"
	"staybook/internal/pkg/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracer, err := obs.InitTracer(cfg.OTelEnabled, "staybook-api", cfg.OTelEndpoint, cfg.AppEnv)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	catalogRepo := catalog.NewRepository(db)
	ledger := booking.NewLedger(db)
	availability := booking.NewAvailability(ledger, catalogRepo)
	reservations := booking.NewReservations(ledger, catalogRepo, log.Printf)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	deliveries := notification.NewDeliveryRepository(db)
	dispatcher, closeSinks := buildDispatcher(cfg, ledger, catalogRepo, deliveries)
	defer closeSinks()

	commissionRepo := commission.NewRepository(db)
	collector := commission.NewCollector(gateway, commissionRepo, commission.CollectorConfig{
		PlatformAccountID: cfg.StripePlatformAccountID,
		BatchSize:         cfg.CollectorBatch,
		Backoff: commission.BackoffPolicy{
			Base:        cfg.CollectorBaseBackoff,
			Max:         cfg.CollectorMaxBackoff,
			MaxAttempts: cfg.CollectorMaxAttempts,
		},
	}, log.Printf)

	processor := payment.NewProcessor(gateway, ledger, catalogRepo, dispatcher, collector, payment.ProcessorConfig{
		WriteRetries:    cfg.EventWriteRetries,
		DeferredMethods: cfg.DeferredFeeMethods,
	}, log.Printf)
	checkout := payment.NewCheckout(gateway, catalogRepo, availability, ledger, cfg.DeferredFeeMethods, log.Printf)

	worker, err := commission.NewWorker(log.Printf)
	if err != nil {
		log.Fatal(err)
	}
	if err := worker.AddCollector(collector, cfg.CollectorInterval); err != nil {
		log.Fatal(err)
	}
	cleanup := notification.NewCleanupService(deliveries, log.Printf)
	if err := worker.Every("delivery-cleanup", 24*time.Hour, time.Minute, func(ctx context.Context) {
		_, _ = cleanup.CleanupOldDeliveries(ctx, cfg.DeliveryRetentionDays)
	}); err != nil {
		log.Fatal(err)
	}
	worker.Start()

	catalogHandler := catalog.NewHandler(catalogRepo)
	bookingHandler := booking.NewHandler(availability, reservations, ledger)
	paymentHandler := payment.NewHandler(processor, checkout, log.Printf)
	commissionHandler := commission.NewHandler(commissionRepo, cfg.ReconcileToleranceMinor)

	operatorAuth := middleware.OperatorAuth(middleware.OperatorAuthConfig{
		Token:       cfg.InternalToken,
		TokenBcrypt: cfg.InternalTokenBcrypt,
		JWT:         jwtsvc.New(cfg.JWTSecret, 12*time.Hour),
	})

	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), middleware.ErrorLogger(), middleware.CORS(cfg.CORSAllowedOrigins))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")
	{
		// public
		catalogHandler.RegisterRoutes(v1)
		bookingHandler.RegisterRoutes(v1)
		paymentHandler.RegisterCheckoutRoutes(v1)
		// signed by the payment processor
		paymentHandler.RegisterWebhookRoutes(v1)

		ops := v1.Group("")
		ops.Use(operatorAuth)
		{
			catalogHandler.RegisterOperatorRoutes(ops)
			bookingHandler.RegisterOperatorRoutes(ops)
			commissionHandler.RegisterOperatorRoutes(ops)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("level=info msg=http_listening addr=%s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("level=info msg=shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error msg=http_shutdown_failed err=%v", err)
	}
	if err := worker.Stop(); err != nil {
		log.Printf("level=error msg=worker_shutdown_failed err=%v", err)
	}
	dispatcher.Wait()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("level=error msg=tracer_shutdown_failed err=%v", err)
	}
}

// buildDispatcher wires the optional side-effect backends that are configured.
func buildDispatcher(cfg *config.RuntimeConfig, ledger *booking.Ledger, tenants *catalog.Repository, deliveries *notification.DeliveryRepository) (*notification.Dispatcher, func()) {
	var closers []func()
	deps := notification.Deps{
		Ledger:     ledger,
		Tenants:    tenants,
		Deliveries: deliveries,
	}

	if cfg.SMTPHost != "" {
		mailer, err := notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		})
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		deps.Mailer = mailer
	} else {
		log.Println("level=warn msg=smtp_not_configured notices=logged")
		deps.Mailer = notification.NewLogMailer(log.Printf)
	}

	if cfg.RedisURL != "" {
		guard, err := notification.NewRedisGuardFromURL(cfg.RedisURL, "staybook:")
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		deps.Guard = guard
		closers = append(closers, func() { _ = guard.Close() })
	}

	if cfg.DownstreamWebhookURL != "" {
		deps.Sinks = append(deps.Sinks, notification.NewWebhookSink(notification.WebhookConfig{URL: cfg.DownstreamWebhookURL}))
	}

	if cfg.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// Downstream publication is best-effort; the service runs without it.
			log.Printf("level=error msg=amqp_unavailable err=%v", err)
		} else {
			deps.Sinks = append(deps.Sinks, notification.NewAMQPSink(pub))
			closers = append(closers, func() { _ = pub.Close() })
		}
	}

	d := notification.NewDispatcher(deps, notification.Config{Timeout: cfg.SideEffectTimeout}, log.Printf)
	return d, func() {
		for _, c := range closers {
			c()
		}
	}
}
