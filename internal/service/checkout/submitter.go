package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

// Submitter превращает корзину в серверный заказ. Одноразовая операция:
// после подтверждения сервером вызывающая сторона немедленно очищает корзину
// через Manager.Clear(); повторный Submit по уже очищенной корзине упирается в
// ErrEmptyCart, что и защищает от дублей после сбоя на клиенте.
type Submitter struct {
	api     domain.CommerceAPI
	cart    *cart.Manager
	events  domain.EventSink
	logger  *log.Entry
	metrics *metrics.CommerceMetrics

	mu       sync.Mutex
	inFlight bool
}

// Options задаёт необязательные зависимости сабмиттера.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.CommerceMetrics
	Events  domain.EventSink
}

// Option настраивает Submitter.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает запись метрик оформления.
func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithEvents включает публикацию событий жизненного цикла.
func WithEvents(sink domain.EventSink) Option {
	return func(opts *Options) {
		opts.Events = sink
	}
}

// NewSubmitter создаёт сабмиттер заказов.
func NewSubmitter(api domain.CommerceAPI, manager *cart.Manager, options ...Option) *Submitter {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-submitter")
	}

	return &Submitter{
		api:     api,
		cart:    manager,
		events:  opts.Events,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Submit отправляет позиции активной корзины на сервер. В запрос уходят
// только productID и количество: цены сервер пересчитывает сам. Каждая
// попытка несёт клиентский idempotency-ключ, чтобы повтор после сетевого
// сбоя не породил дубль заказа.
//
// Отклонённое оформление оставляет корзину нетронутой для повторной попытки;
// после успеха вызывающая сторона очищает корзину через Manager.Clear().
// Одновременно допускается не более одного оформления.
func (s *Submitter) Submit(ctx context.Context) (domain.Order, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.Order{}, domain.ErrSubmitInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	lines := s.cart.Lines()
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	items := make([]domain.SubmitItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.SubmitItem{ProductID: line.ProductID, Qty: line.Qty})
	}

	idempotencyKey := uuid.NewString()
	order, err := s.api.CreateOrder(ctx, items, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderRejected):
			s.logger.WithError(err).WithField("lines", len(items)).Warn("order rejected by server")
			s.recordSubmit(metrics.SubmitResultRejected)
			s.publishEvent(kafka.EventTypeOrderRejected, "", map[string]interface{}{
				"lines": len(items),
			})
		default:
			s.logger.WithError(err).Warn("order submission failed")
			s.recordSubmit(metrics.SubmitResultFailed)
		}
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"amount_minor": order.AmountMinor,
		"lines":        len(order.Items),
	}).Info("order created")
	s.recordSubmit(metrics.SubmitResultAccepted)
	s.publishEvent(kafka.EventTypeOrderSubmitted, order.ID, map[string]interface{}{
		"amount_minor":    order.AmountMinor,
		"lines":           len(order.Items),
		"idempotency_key": idempotencyKey,
	})

	return order, nil
}

func (s *Submitter) recordSubmit(result string) {
	if s.metrics != nil {
		s.metrics.RecordSubmit(result)
	}
}

func (s *Submitter) publishEvent(eventType kafka.EventType, orderID string, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := kafka.NewLifecycleEvent(eventType, orderID, metadata)
	if err := s.events.PublishEvent(kafka.TopicOrderEvents, orderID, event); err != nil {
		s.logger.WithError(err).WithField("event_type", string(eventType)).Warn("failed to publish lifecycle event")
	}
}
