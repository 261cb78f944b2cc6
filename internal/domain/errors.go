package domain

import "errors"

var (
	// ErrProductIDRequired — пустой идентификатор товара в операции с корзиной.
	ErrProductIDRequired = errors.New("product_id is required")
	// ErrNoActiveIdentity — операция с корзиной до первого выбора identity.
	ErrNoActiveIdentity = errors.New("no active identity")
	// ErrLineNotFound — позиция с таким товаром отсутствует в корзине.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrExceedsStock — запрошенное количество превышает последний известный сток;
	// операция отклоняется без изменения позиции.
	ErrExceedsStock = errors.New("quantity exceeds known stock")
	// ErrEmptyCart — попытка оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmitInFlight — оформление уже выполняется, повторный запуск запрещён.
	ErrSubmitInFlight = errors.New("order submission already in flight")
	// ErrOrderRejected — сервер отклонил заказ (например, позиция превысила живой сток).
	ErrOrderRejected = errors.New("order rejected by server")
	// ErrOrderNotFound — заказ не существует или принадлежит другому клиенту.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound — товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrPayInFlight — оплата этого заказа уже выполняется.
	ErrPayInFlight = errors.New("payment already in flight")
	// ErrPaymentDeclined — провайдер отклонил платёж; заказ остаётся created.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentIndeterminate — исход платежа неизвестен; требуется сверка с сервером.
	ErrPaymentIndeterminate = errors.New("payment indeterminate state")
	// ErrTransport — сетевая ошибка при обращении к commerce API.
	ErrTransport = errors.New("transport failure")
)

// IsIndeterminate проверяет, является ли ошибка неопределённым исходом платежа.
func IsIndeterminate(err error) bool {
	return errors.Is(err, ErrPaymentIndeterminate)
}
