package identity

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Resolver хранит текущую identity сессии и оповещает подписчиков о смене
// ключа. Источник переходов (auth-подсистема) внешний: сюда приходят только
// уже свершившиеся факты «вошёл пользователь X» / «вышел».
type Resolver struct {
	mu        sync.RWMutex
	current   domain.IdentityKey
	listeners []func(domain.IdentityKey)
	logger    *log.Entry
}

// NewResolver создаёт резолвер; стартовая identity — гость.
func NewResolver(logger *log.Entry) *Resolver {
	if logger == nil {
		logger = log.WithField("component", "identity-resolver")
	}
	return &Resolver{
		current: domain.GuestKey,
		logger:  logger,
	}
}

// Key возвращает активный ключ хранилища корзин.
func (r *Resolver) Key() domain.IdentityKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// IsGuest сообщает, гостевая ли сейчас сессия.
func (r *Resolver) IsGuest() bool {
	return r.Key() == domain.GuestKey
}

// SetUser фиксирует вход пользователя. Пустой идентификатор трактуется как выход.
func (r *Resolver) SetUser(userID string) {
	r.transition(domain.UserKey(userID))
}

// SetGuest фиксирует выход (возврат к гостевой сессии).
func (r *Resolver) SetGuest() {
	r.transition(domain.GuestKey)
}

// Subscribe регистрирует обработчик смены identity. Обработчики вызываются
// синхронно в порядке регистрации: смена ключа завершается только после того,
// как все подписчики её отработали.
func (r *Resolver) Subscribe(fn func(domain.IdentityKey)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Resolver) transition(key domain.IdentityKey) {
	r.mu.Lock()
	if r.current == key {
		r.mu.Unlock()
		return
	}
	prev := r.current
	r.current = key
	listeners := make([]func(domain.IdentityKey), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	r.logger.WithFields(log.Fields{
		"from": string(prev),
		"to":   string(key),
	}).Info("identity changed")

	// Вызываем вне блокировки: подписчик может читать Key().
	for _, fn := range listeners {
		fn(key)
	}
}
