package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/api"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/identity"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Store    domain.CartStore
	API      domain.CommerceAPI
	Metrics  *metrics.CommerceMetrics
	Identity *identity.Resolver
	Carts    *cart.Manager
	Checkout *checkout.Submitter
	Orders   *lifecycle.Tracker
	Logger   *log.Entry

	pg       *postgres.Store
	producer *kafka.Producer
}

// NewDependencies создаёт и инициализирует все зависимости приложения.
// Хранилище корзины выбирается по конфигурации: PostgreSQL при заданном DSN,
// иначе in-memory.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.pg = pg
		deps.Store = postgres.NewCartStore(pg)
		logger.Info("cart store: postgres")
	} else {
		deps.Store = memory.NewCartStore()
		logger.Info("cart store: in-memory")
	}

	// Kafka producer (опционально): без brokers события просто не публикуются.
	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.producer = producer
	}

	deps.API = api.NewClient(cfg.CommerceURL, api.WithLogger(logger.WithField("component", "commerce-api")))
	deps.Metrics = metrics.NewCommerceMetrics()
	deps.Identity = identity.NewResolver(logger.WithField("component", "identity"))

	deps.Carts = cart.NewManager(deps.Store,
		cart.WithLogger(logger.WithField("component", "cart")),
		cart.WithMetrics(deps.Metrics),
	)

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(logger.WithField("component", "checkout")),
		checkout.WithMetrics(deps.Metrics),
	}
	trackerOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger.WithField("component", "lifecycle")),
		lifecycle.WithMetrics(deps.Metrics),
	}
	if cfg.ReverifyDelay > 0 {
		trackerOpts = append(trackerOpts, lifecycle.WithReverifyDelay(cfg.ReverifyDelay))
	}
	if deps.producer != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithEvents(deps.producer))
		trackerOpts = append(trackerOpts, lifecycle.WithEvents(deps.producer))
	}

	deps.Checkout = checkout.NewSubmitter(deps.API, deps.Carts, checkoutOpts...)
	deps.Orders = lifecycle.NewTracker(deps.API, trackerOpts...)

	// Смена личности сбрасывает активную корзину через barrier в Manager.
	deps.Identity.Subscribe(func(key domain.IdentityKey) {
		if err := deps.Carts.SetActiveIdentity(key); err != nil {
			logger.WithError(err).WithField("identity", key).Error("failed to switch cart identity")
		}
	})

	return deps, nil
}

// Close освобождает внешние ресурсы: Kafka producer и подключение к базе.
func (d *Dependencies) Close(logger *log.Entry) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	closeKafka(d.producer, logger)

	if d.pg != nil {
		if err := d.pg.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres connection")
		}
	}
}
