package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusNotFound — статус с таким именем или идентификатором отсутствует в справочнике.
	ErrStatusNotFound = errors.New("order status not found")
	// ErrToadNotFound — жабы с таким идентификатором нет в пуле.
	ErrToadNotFound = errors.New("toad not found")

	// ErrOrderNotIssued — удалять можно только выданные заказы.
	ErrOrderNotIssued = errors.New("only issued orders can be deleted")
	// ErrToadPoolExhausted — свободных жаб нет, а политика выдачи требует жабу.
	ErrToadPoolExhausted = errors.New("no free toad available")
	// ErrForbidden — вызывающий не имеет доступа к заказу.
	ErrForbidden = errors.New("access to order is forbidden")

	// ErrInitialStatusMissing — в справочнике нет начального статуса заказа.
	ErrInitialStatusMissing = errors.New("initial order status is not configured")
	// ErrTerminalStatusMissing — в справочнике нет терминального статуса заказа.
	ErrTerminalStatusMissing = errors.New("terminal order status is not configured")

	// ErrPersistence — хранилище не смогло выполнить или зафиксировать единицу работы.
	ErrPersistence = errors.New("persistence failure")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующему заказу, статусу или жабе.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrToadNotFound)
}

// IsPrecondition проверяет, что операция отклонена из-за состояния заказа или пула.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrOrderNotIssued) || errors.Is(err, ErrToadPoolExhausted)
}

// IsConfiguration проверяет, что не хватает справочных данных развёртывания.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrInitialStatusMissing) || errors.Is(err, ErrTerminalStatusMissing)
}

// IsPersistence проверяет, является ли ошибка сбоем хранилища.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
