package domain

import "context"

// CartStore описывает требования к хранилищу снимков корзин.
// Чистое key/value: бизнес-логики здесь нет, пишет в него только Cart Manager
// и только под активным ключом.
type CartStore interface {
	// Load возвращает снимок корзины по ключу. Второй результат false, если
	// под этим ключом ничего не сохранено.
	Load(key IdentityKey) ([]CartLine, bool, error)
	// Save перезаписывает снимок корзины под ключом.
	Save(key IdentityKey, lines []CartLine) error
	// Delete удаляет снимок; отсутствие записи не считается ошибкой.
	Delete(key IdentityKey) error
}

// CommerceAPI описывает взаимодействие с удалённым commerce-бэкендом —
// единственным источником истины по стоку и ценам.
type CommerceAPI interface {
	// CreateOrder отправляет позиции (только productID и количество) и
	// возвращает созданный сервером заказ.
	CreateOrder(ctx context.Context, items []SubmitItem, idempotencyKey string) (Order, error)
	// GetOrder возвращает актуальное состояние заказа или ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// PayOrder инициирует оплату; различает ErrPaymentDeclined и
	// ErrPaymentIndeterminate.
	PayOrder(ctx context.Context, orderID string) (Order, error)
	// GetProduct возвращает свежий снимок каталога для обновления границ стока.
	GetProduct(ctx context.Context, productID string) (ProductSnapshot, error)
}

// EventSink публикует события жизненного цикла наружу (аналитика).
// Публикация best-effort: ошибка не прерывает основную операцию.
type EventSink interface {
	PublishEvent(topic string, key string, event interface{}) error
}
