package cart

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Manager владеет in-memory корзиной активной identity: единственный источник
// истины для позиций, пока сессия жива. Каждая мутация синхронно сохраняет
// полный снимок в CartStore под активным ключом, поэтому прерванная сессия не
// теряет подтверждённых изменений.
//
// Все операции сериализуются внутренним мьютексом: SetActiveIdentity работает
// как барьер и не может чередоваться с мутациями другой identity.
type Manager struct {
	mu      sync.Mutex
	store   domain.CartStore
	logger  *log.Entry
	metrics *metrics.CommerceMetrics

	active    bool
	activeKey domain.IdentityKey
	cart      domain.Cart
}

// Options задаёт необязательные зависимости менеджера.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.CommerceMetrics
}

// Option настраивает Manager.
type Option func(*Options)

// WithLogger задаёт logger для менеджера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает запись метрик корзины.
func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// AddResult — итог AddOrReplace: фактическая позиция и признак того, что
// запрошенное количество было урезано до известного стока.
type AddResult struct {
	Line    domain.CartLine
	Clamped bool
}

// NewManager создаёт менеджер корзины. Identity ещё не выбрана: до первого
// SetActiveIdentity мутации возвращают ErrNoActiveIdentity.
func NewManager(store domain.CartStore, options ...Option) *Manager {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-manager")
	}

	return &Manager{
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// SetActiveIdentity сбрасывает текущую корзину в хранилище под прежним ключом
// и загружает (или инициализирует пустой) снимок нового ключа. Повторный вызов
// с тем же ключом — no-op. Единственная операция, которая вправе заместить
// in-memory состояние, не будучи мутацией.
func (m *Manager) SetActiveIdentity(key domain.IdentityKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active && m.activeKey == key {
		return nil
	}

	if m.active {
		if err := m.store.Save(m.activeKey, m.cart.Lines); err != nil {
			return fmt.Errorf("flush cart for %s: %w", m.activeKey, err)
		}
	}

	lines, ok, err := m.store.Load(key)
	if err != nil {
		return fmt.Errorf("load cart for %s: %w", key, err)
	}
	if !ok {
		lines = nil
	}

	m.activeKey = key
	m.active = true
	m.cart = domain.Cart{Lines: lines}

	m.logger.WithFields(log.Fields{
		"identity_key": string(key),
		"lines":        len(lines),
	}).Info("active cart switched")
	m.observeSize()
	return nil
}

// AddOrReplace вставляет позицию или замещает количество существующей
// (количество не суммируется — повторное добавление того же товара задаёт
// новое значение). Запрошенное количество урезается до snapshot.Stock, но не
// ниже 1; превышение стока не ошибка, а флаг Clamped в результате.
func (m *Manager) AddOrReplace(productID string, snapshot domain.ProductSnapshot, requestedQty int32) (AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return AddResult{}, domain.ErrNoActiveIdentity
	}
	if productID == "" {
		return AddResult{}, domain.ErrProductIDRequired
	}

	qty := requestedQty
	clamped := false
	if qty > snapshot.Stock {
		qty = snapshot.Stock
		clamped = true
	}
	if qty < 1 {
		qty = 1
	}

	line := domain.CartLine{
		ProductID:  productID,
		Name:       snapshot.Name,
		PriceMinor: snapshot.PriceMinor,
		ImageRef:   snapshot.ImageRef,
		Qty:        qty,
		KnownStock: snapshot.Stock,
	}

	prev := m.cart.CloneLines()
	m.cart.Upsert(line)
	if err := m.persistLocked(prev); err != nil {
		return AddResult{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordCartMutation("add")
		if clamped {
			m.metrics.RecordClamped()
		}
	}
	return AddResult{Line: line, Clamped: clamped}, nil
}

// UpdateQuantity задаёт количество существующей позиции. Значение < 1
// эквивалентно Remove. Превышение последнего известного стока отклоняется с
// ErrExceedsStock без изменения позиции (в отличие от AddOrReplace, здесь
// урезания нет).
func (m *Manager) UpdateQuantity(productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return domain.ErrNoActiveIdentity
	}

	if qty < 1 {
		return m.removeLocked(productID)
	}

	idx, ok := m.cart.Find(productID)
	if !ok {
		return domain.ErrLineNotFound
	}
	if qty > m.cart.Lines[idx].KnownStock {
		if m.metrics != nil {
			m.metrics.RecordStockRejected()
		}
		return domain.ErrExceedsStock
	}

	prev := m.cart.CloneLines()
	m.cart.Lines[idx].Qty = qty
	if err := m.persistLocked(prev); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordCartMutation("update")
	}
	return nil
}

// Remove удаляет позицию; отсутствие позиции — молчаливый no-op.
func (m *Manager) Remove(productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return domain.ErrNoActiveIdentity
	}
	return m.removeLocked(productID)
}

// Clear опустошает корзину; вызывается после успешного оформления заказа.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return domain.ErrNoActiveIdentity
	}

	prev := m.cart.CloneLines()
	m.cart = domain.Cart{}
	if err := m.persistLocked(prev); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordCartMutation("clear")
	}
	return nil
}

// Lines возвращает копию позиций активной корзины.
func (m *Manager) Lines() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.CloneLines()
}

// TotalMinor возвращает сумму активной корзины.
func (m *Manager) TotalMinor() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.TotalMinor()
}

// TotalQuantity возвращает суммарное количество единиц в активной корзине.
func (m *Manager) TotalQuantity() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.TotalQuantity()
}

// ActiveKey возвращает ключ активной identity и false, если identity ещё не выбрана.
func (m *Manager) ActiveKey() (domain.IdentityKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeKey, m.active
}

func (m *Manager) removeLocked(productID string) error {
	prev := m.cart.CloneLines()
	if !m.cart.Remove(productID) {
		return nil
	}
	if err := m.persistLocked(prev); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordCartMutation("remove")
	}
	return nil
}

// persistLocked сохраняет снимок под активным ключом. При ошибке записи
// in-memory состояние откатывается к prev: завершение мутации означает
// долговечность.
func (m *Manager) persistLocked(prev []domain.CartLine) error {
	if err := m.store.Save(m.activeKey, m.cart.Lines); err != nil {
		m.cart = domain.Cart{Lines: prev}
		m.logger.WithError(err).WithField("identity_key", string(m.activeKey)).Error("failed to persist cart snapshot")
		return fmt.Errorf("persist cart for %s: %w", m.activeKey, err)
	}
	m.observeSize()
	return nil
}

func (m *Manager) observeSize() {
	if m.metrics != nil {
		m.metrics.SetActiveCartLines(len(m.cart.Lines))
	}
}
