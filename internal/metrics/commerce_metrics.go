package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics содержит метрики корзины и жизненного цикла заказа.
type CommerceMetrics struct {
	// Счётчики операций с корзиной
	cartMutations     *prometheus.CounterVec
	cartClamped       prometheus.Counter
	cartStockRejected prometheus.Counter

	// Итоги оформления и оплаты
	submitTotal *prometheus.CounterVec
	payTotal    *prometheus.CounterVec

	// Итоги фоновой сверки после неопределённой оплаты
	reverifyTotal *prometheus.CounterVec

	// Гистограмма времени оплаты
	payDuration prometheus.Histogram

	// Gauge размера активной корзины
	activeCartLines prometheus.Gauge
}

// Значения label result для submitTotal.
const (
	SubmitResultAccepted = "accepted"
	SubmitResultRejected = "rejected"
	SubmitResultFailed   = "failed"
)

// Значения label result для payTotal.
const (
	PayResultConfirmed     = "confirmed"
	PayResultDeclined      = "declined"
	PayResultIndeterminate = "indeterminate"
)

// Значения label result для reverifyTotal.
const (
	ReverifyResultPaid    = "resolved_paid"
	ReverifyResultCreated = "resolved_created"
	ReverifyResultFailed  = "failed"
)

// NewCommerceMetrics создаёт новый экземпляр метрик витрины.
func NewCommerceMetrics() *CommerceMetrics {
	return newCommerceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCommerceMetricsWithRegisterer(registerer prometheus.Registerer) *CommerceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CommerceMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations grouped by operation",
		}, []string{"op"}),
		cartClamped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_clamped_total",
			Help: "Total number of add operations clamped to known stock",
		}),
		cartStockRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_stock_rejected_total",
			Help: "Total number of quantity updates refused for exceeding known stock",
		}),
		submitTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_submit_total",
			Help: "Total number of order submissions grouped by result",
		}, []string{"result"}),
		payTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_pay_total",
			Help: "Total number of payment attempts grouped by result",
		}, []string{"result"}),
		reverifyTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_payment_reverify_total",
			Help: "Total number of post-indeterminate order re-fetches grouped by result",
		}, []string{"result"}),
		payDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_order_pay_duration_seconds",
			Help:    "Duration of payment round-trips in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		activeCartLines: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_cart_lines",
			Help: "Number of lines in the currently active cart",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCartMutation увеличивает счётчик операций с корзиной.
func (m *CommerceMetrics) RecordCartMutation(op string) {
	m.cartMutations.WithLabelValues(op).Inc()
}

// RecordClamped увеличивает счётчик добавлений, урезанных до стока.
func (m *CommerceMetrics) RecordClamped() {
	m.cartClamped.Inc()
}

// RecordStockRejected увеличивает счётчик отклонённых обновлений количества.
func (m *CommerceMetrics) RecordStockRejected() {
	m.cartStockRejected.Inc()
}

// SetActiveCartLines фиксирует размер активной корзины.
func (m *CommerceMetrics) SetActiveCartLines(n int) {
	m.activeCartLines.Set(float64(n))
}

// RecordSubmit увеличивает счётчик оформлений с данным результатом.
func (m *CommerceMetrics) RecordSubmit(result string) {
	m.submitTotal.WithLabelValues(result).Inc()
}

// RecordPay увеличивает счётчик попыток оплаты с данным результатом.
func (m *CommerceMetrics) RecordPay(result string) {
	m.payTotal.WithLabelValues(result).Inc()
}

// RecordReverify увеличивает счётчик фоновых сверок с данным результатом.
func (m *CommerceMetrics) RecordReverify(result string) {
	m.reverifyTotal.WithLabelValues(result).Inc()
}

// ObservePayDuration записывает время раунда оплаты.
func (m *CommerceMetrics) ObservePayDuration(duration time.Duration) {
	m.payDuration.Observe(duration.Seconds())
}
