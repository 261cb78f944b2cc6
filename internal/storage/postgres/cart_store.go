package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const opTimeout = 5 * time.Second

type cartStore struct {
	db *sql.DB
}

// NewCartStore создаёт PostgreSQL-реализацию CartStore.
// Снимок хранится одной JSONB-записью на identity key: хранилищу не нужны
// запросы по отдельным позициям, а атомарность перезаписи получается даром.
func NewCartStore(store *Store) domain.CartStore {
	return &cartStore{db: store.DB()}
}

// Load возвращает снимок корзины по ключу.
func (s *cartStore) Load(key domain.IdentityKey) ([]domain.CartLine, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM cart_snapshots WHERE identity_key = $1
	`, string(key)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select cart snapshot: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, false, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return lines, true, nil
}

// Save перезаписывает снимок корзины под ключом (upsert).
func (s *cartStore) Save(key domain.IdentityKey, lines []domain.CartLine) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if lines == nil {
		lines = []domain.CartLine{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (identity_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, string(key), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

// Delete удаляет снимок; отсутствие записи не считается ошибкой.
func (s *cartStore) Delete(key domain.IdentityKey) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_snapshots WHERE identity_key = $1
	`, string(key)); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

var _ domain.CartStore = (*cartStore)(nil)
