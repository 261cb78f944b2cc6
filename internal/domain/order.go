package domain

import "time"

// OrderStatus описывает жизненный цикл заказа со стороны витрины.
type OrderStatus string

const (
	// OrderStatusCreated — заказ принят сервером, оплата ещё не выполнена.
	OrderStatusCreated OrderStatus = "created"
	// OrderStatusPaid — оплата подтверждена сервером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён административным действием.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem — одна позиция заказа, возвращаемая сервером.
type OrderItem struct {
	ProductID  string
	Qty        int32
	PriceMinor int64
}

// SubmitItem — позиция запроса на создание заказа. Цена намеренно отсутствует:
// сервер пересчитывает стоимость по собственному каталогу и клиентскому
// снимку не доверяет.
type SubmitItem struct {
	ProductID string
	Qty       int32
}

// Order — серверная сущность заказа. Витрина держит только кэшированную
// реплику; единственный инициируемый отсюда переход — оплата.
type Order struct {
	ID          string
	Status      OrderStatus
	AmountMinor int64
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanPay сообщает, допустима ли попытка оплаты из текущего статуса.
func (o *Order) CanPay() bool {
	return o.Status == OrderStatusCreated
}
