package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heterodox-labs/funding-service/internal/config"
	"github.com/heterodox-labs/funding-service/internal/db"
	"github.com/heterodox-labs/funding-service/internal/http/handlers"
	"github.com/heterodox-labs/funding-service/internal/http/routes"
	"github.com/heterodox-labs/funding-service/internal/kafka"
	"github.com/heterodox-labs/funding-service/internal/metrics"
	"github.com/heterodox-labs/funding-service/internal/middleware"
	"github.com/heterodox-labs/funding-service/internal/repository"
	"github.com/heterodox-labs/funding-service/internal/service"
	"github.com/heterodox-labs/funding-service/internal/stripe"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App собирает зависимости сервиса и управляет их жизненным циклом.
type App struct {
	cfg      *config.Config
	log      *logger.Logger
	dbClient *db.DBClient
	cache    repository.PaymentInfoCache
	producer kafka.Producer
	server   *http.Server
}

// NewApp создает приложение: подключения, репозитории, сервисы, маршруты.
// Redis и Kafka опциональны: сервис стартует и без них, с урезанными
// кэшированием и событиями.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	dbClient, err := db.NewDBClient(cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("app: database init failed: %w", err)
	}
	if err := dbClient.Migrate(); err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("app: migrations failed: %w", err)
	}

	var cache repository.PaymentInfoCache
	if cfg.Redis.Addr != "" {
		redisCache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warnw("Redis unavailable, payment info cache disabled", "error", err)
		} else {
			cache = redisCache
		}
	}

	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Kafka unavailable, funding events disabled", "error", err)
		} else {
			producer = p
		}
	}

	if cfg.Stripe.APIKey == "" {
		log.Warnw("Stripe API key is not configured, provider calls will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warnw("Stripe webhook secret is not configured, webhook deliveries will be rejected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fundingMetrics := metrics.NewFundingMetrics(registry, log)

	stripeClient := stripe.NewStripeClient(cfg.Stripe.APIKey, log)

	database := dbClient.DB()
	profileRepo := repository.NewProfileRepository(database, log)
	labRepo := repository.NewLabRepository(database, log)
	goalRepo := repository.NewFundingGoalRepository(database, log)
	donationRepo := repository.NewDonationRepository(database, log)
	membershipRepo := repository.NewMembershipRepository(database, log)
	webhookEventRepo := repository.NewWebhookEventRepository(database, log)

	fundingService := service.NewFundingService(profileRepo, stripeClient, log)
	billingService := service.NewBillingService(profileRepo, stripeClient, cache, log)
	donationService := service.NewDonationService(
		profileRepo, labRepo, goalRepo, donationRepo,
		stripeClient, producer, fundingMetrics,
		cfg.Funding.PlatformFeeRate, cfg.Funding.Currency, log,
	)
	membershipService := service.NewMembershipService(
		profileRepo, labRepo, goalRepo, membershipRepo,
		stripeClient, producer, fundingMetrics,
		cfg.Funding.PlatformFeeRate, cfg.Funding.Currency, log,
	)
	webhookService := service.NewWebhookService(
		donationRepo, membershipRepo, goalRepo, webhookEventRepo, fundingMetrics, log,
	)

	authMiddleware := middleware.NewJWTMiddleware(log, &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	})

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.Setup(router, routes.Handlers{
		Funding:    handlers.NewFundingHandler(fundingService, log),
		Billing:    handlers.NewBillingHandler(billingService, log),
		Donation:   handlers.NewDonationHandler(donationService, log),
		Membership: handlers.NewMembershipHandler(membershipService, log),
		Webhook:    handlers.NewWebhookHandler(webhookService, cfg.Stripe.WebhookSecret, log),
	}, authMiddleware, registry, log)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:      cfg,
		log:      log,
		dbClient: dbClient,
		cache:    cache,
		producer: producer,
		server:   server,
	}, nil
}

// Run запускает HTTP-сервер. Блокируется до остановки сервера.
func (a *App) Run() error {
	a.log.Infow("Starting funding service", "port", a.cfg.App.Port, "env", a.cfg.App.Env)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("app: server failed: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер и закрывает подключения.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Infow("Shutting down funding service...")

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Errorw("HTTP server shutdown failed", "error", err)
		firstErr = err
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.dbClient.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
