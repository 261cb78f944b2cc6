package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultReverifyDelay   = 3 * time.Second
	defaultReverifyTimeout = 10 * time.Second
)

// Tracker ведёт машину статусов заказа {created, paid, cancelled} поверх
// кэшированных реплик серверного состояния. Ключевое поведение — сверка после
// неопределённой оплаты: если сервер мог списать деньги, но клиент не увидел
// ответа, планируется ровно одна отложенная перезагрузка заказа. Сверка
// отвязана от контекста вызова: отмена ожидания в UI её не подавляет.
type Tracker struct {
	api     domain.CommerceAPI
	events  domain.EventSink
	logger  *log.Entry
	metrics *metrics.CommerceMetrics

	reverifyDelay time.Duration

	mu          sync.Mutex
	orders      map[string]domain.Order
	paying      map[string]bool
	reverifying map[string]bool

	wg sync.WaitGroup
}

// Options задаёт необязательные зависимости трекера.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.CommerceMetrics
	Events        domain.EventSink
	ReverifyDelay time.Duration
}

// Option настраивает Tracker.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает запись метрик оплаты.
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

// WithReverifyDelay задаёт задержку перед сверкой после неопределённой оплаты.
func WithReverifyDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.ReverifyDelay = delay
	}
}

// NewTracker создаёт трекер жизненного цикла заказов.
func NewTracker(api domain.CommerceAPI, options ...Option) *Tracker {
	opts := Options{
		ReverifyDelay: defaultReverifyDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-tracker")
	}
	if opts.ReverifyDelay <= 0 {
		opts.ReverifyDelay = defaultReverifyDelay
	}

	return &Tracker{
		api:           api,
		events:        opts.Events,
		logger:        logger,
		metrics:       opts.Metrics,
		reverifyDelay: opts.ReverifyDelay,
		orders:        make(map[string]domain.Order),
		paying:        make(map[string]bool),
		reverifying:   make(map[string]bool),
	}
}

// Load перезагружает заказ с сервера и обновляет кэш. Внешние переходы
// (административная отмена) становятся видны именно здесь.
func (t *Tracker) Load(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := t.api.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	t.mu.Lock()
	t.orders[order.ID] = order
	t.mu.Unlock()

	return order, nil
}

// Cached возвращает последнюю известную реплику заказа без обращения к серверу.
func (t *Tracker) Cached(orderID string) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	order, ok := t.orders[orderID]
	return order, ok
}

// Pay инициирует оплату заказа. Для кэшированного терминального статуса —
// идемпотентный no-op: возвращается текущий заказ без сетевого вызова, чтобы
// повтор оплаты был безопасен. Исходы сетевой попытки:
//
//   - успех: кэш переходит в paid;
//   - ErrPaymentDeclined: заказ остаётся created, ошибка отдаётся вызывающему;
//   - неопределённость (таймаут, 5xx, not-found-подобный транзиент): заказ
//     остаётся created, планируется одна отложенная сверка — при
//     неоднозначном ответе никогда не предполагаем провал, деньги могли уйти.
func (t *Tracker) Pay(ctx context.Context, orderID string) (domain.Order, error) {
	t.mu.Lock()
	if cached, ok := t.orders[orderID]; ok && cached.Status.Terminal() {
		t.mu.Unlock()
		return cached, nil
	}
	if t.paying[orderID] {
		cached := t.orders[orderID]
		t.mu.Unlock()
		return cached, domain.ErrPayInFlight
	}
	t.paying[orderID] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.paying, orderID)
		t.mu.Unlock()
	}()

	start := time.Now()
	order, err := t.api.PayOrder(ctx, orderID)
	if t.metrics != nil {
		t.metrics.ObservePayDuration(time.Since(start))
	}

	if err == nil {
		t.mu.Lock()
		t.orders[order.ID] = order
		t.mu.Unlock()

		t.logger.WithField("order_id", order.ID).Info("payment confirmed")
		t.recordPay(metrics.PayResultConfirmed)
		t.publishEvent(kafka.EventTypePaymentConfirmed, order.ID, map[string]interface{}{
			"amount_minor": order.AmountMinor,
		})
		return order, nil
	}

	if errors.Is(err, domain.ErrPaymentDeclined) {
		t.logger.WithError(err).WithField("order_id", orderID).Warn("payment declined")
		t.recordPay(metrics.PayResultDeclined)
		t.publishEvent(kafka.EventTypePaymentDeclined, orderID, nil)
		return t.lastKnown(orderID), err
	}

	// Всё остальное — неопределённость: сервер мог зафиксировать платёж.
	t.logger.WithError(err).WithField("order_id", orderID).Warn("payment outcome indeterminate, scheduling reverify")
	t.recordPay(metrics.PayResultIndeterminate)
	t.publishEvent(kafka.EventTypePaymentIndeterminate, orderID, nil)
	t.scheduleReverify(orderID)

	if !domain.IsIndeterminate(err) {
		err = errors.Join(domain.ErrPaymentIndeterminate, err)
	}
	return t.lastKnown(orderID), err
}

// Wait блокируется до завершения всех фоновых сверок. Используется при
// graceful shutdown и в тестах.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// scheduleReverify планирует одну отложенную перезагрузку заказа. Повторная
// попытка оплаты того же заказа до завершения сверки новую не добавляет.
func (t *Tracker) scheduleReverify(orderID string) {
	t.mu.Lock()
	if t.reverifying[orderID] {
		t.mu.Unlock()
		return
	}
	t.reverifying[orderID] = true
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			delete(t.reverifying, orderID)
			t.mu.Unlock()
		}()

		time.Sleep(t.reverifyDelay)

		// Контекст намеренно свежий: отмена ожидания в UI не должна
		// подавлять сверку.
		ctx, cancel := context.WithTimeout(context.Background(), defaultReverifyTimeout)
		defer cancel()

		order, err := t.api.GetOrder(ctx, orderID)
		if err != nil {
			t.logger.WithError(err).WithField("order_id", orderID).Error("reverify fetch failed")
			t.recordReverify(metrics.ReverifyResultFailed)
			return
		}

		t.mu.Lock()
		t.orders[order.ID] = order
		t.mu.Unlock()

		result := metrics.ReverifyResultCreated
		if order.Status == domain.OrderStatusPaid {
			result = metrics.ReverifyResultPaid
		}
		t.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   string(order.Status),
		}).Info("indeterminate payment reconciled")
		t.recordReverify(result)
		t.publishEvent(kafka.EventTypePaymentReconciled, order.ID, map[string]interface{}{
			"status": string(order.Status),
		})
	}()
}

func (t *Tracker) lastKnown(orderID string) domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orders[orderID]
}

func (t *Tracker) recordPay(result string) {
	if t.metrics != nil {
		t.metrics.RecordPay(result)
	}
}

func (t *Tracker) recordReverify(result string) {
	if t.metrics != nil {
		t.metrics.RecordReverify(result)
	}
}

func (t *Tracker) publishEvent(eventType kafka.EventType, orderID string, metadata map[string]interface{}) {
	if t.events == nil {
		return
	}
	event := kafka.NewLifecycleEvent(eventType, orderID, metadata)
	if err := t.events.PublishEvent(kafka.TopicOrderEvents, orderID, event); err != nil {
		t.logger.WithError(err).WithField("event_type", string(eventType)).Warn("failed to publish lifecycle event")
	}
}
