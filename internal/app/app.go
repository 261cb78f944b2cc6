package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Config описывает минимальные настройки запуска приложения.
type Config struct {
	MetricsAddr   string
	CommerceURL   string
	PostgresDSN   string
	KafkaBrokers  string
	ReverifyDelay time.Duration
}

// DefaultConfig возвращает базовые настройки: локальный commerce-бэкенд,
// in-memory хранилище корзины, без Kafka.
func DefaultConfig() Config {
	return Config{
		MetricsAddr: ":9090",
		CommerceURL: "http://localhost:8080",
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// На старте активна гостевая корзина.
	if err := deps.Carts.SetActiveIdentity(deps.Identity.Key()); err != nil {
		deps.Close(logger)
		return fmt.Errorf("activate guest cart: %w", err)
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.pg != nil {
		healthHandler.RegisterCheck("storage", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.pg.Ping(pingCtx)
		})
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	logger.WithField("commerce_url", cfg.CommerceURL).Info("storefront запущен")

	<-ctx.Done()
	logger.Info("получен сигнал остановки, завершаем работу")

	shutdownHTTP(metricsSrv, logger)

	// Дожидаемся фоновых перепроверок платежей, чтобы не потерять
	// подтверждённый сервером статус.
	deps.Orders.Wait()
	deps.Close(logger)

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health check эндпоинтами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
