package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartStoreInMemory — простая in-memory реализация CartStore.
type cartStoreInMemory struct {
	mu    sync.RWMutex
	items map[domain.IdentityKey][]domain.CartLine
}

// NewCartStore возвращает in-memory хранилище для локальной разработки и тестов.
func NewCartStore() domain.CartStore {
	return &cartStoreInMemory{
		items: make(map[domain.IdentityKey][]domain.CartLine),
	}
}

// Load возвращает снимок корзины по ключу.
func (s *cartStoreInMemory) Load(key domain.IdentityKey) ([]domain.CartLine, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return cloneLines(lines), true, nil
}

// Save перезаписывает снимок корзины под ключом.
func (s *cartStoreInMemory) Save(key domain.IdentityKey, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	s.items[key] = cloneLines(lines)
	return nil
}

// Delete удаляет снимок; отсутствие записи не считается ошибкой.
func (s *cartStoreInMemory) Delete(key domain.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
