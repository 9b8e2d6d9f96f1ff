package domain

import (
	"context"
	"time"
)

// ToadPool управляет пулом жаб внутри единицы работы.
type ToadPool interface {
	// TryClaim блокирует и занимает свободную жабу с наименьшим id.
	// ok=false означает, что свободных жаб нет; это не ошибка.
	TryClaim(ctx context.Context) (toadID int64, ok bool, err error)
	// Release освобождает жабу. Повторный вызов безопасен.
	Release(ctx context.Context, toadID int64) error
}

// StatusCatalog — справочник статусов заказа.
type StatusCatalog interface {
	Resolve(ctx context.Context, name string) (Status, error)
	NameOf(ctx context.Context, id int64) (string, error)
}

// OrderStore хранит заказы и строки корзины.
type OrderStore interface {
	// Insert создаёт заказ; id и created_at назначает хранилище.
	Insert(ctx context.Context, order NewOrder) (Order, error)
	// Get возвращает заказ без позиций.
	Get(ctx context.Context, id int64) (Order, error)
	// GetForUpdate возвращает заказ, удерживая блокировку строки до конца единицы работы.
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateStatus(ctx context.Context, id, statusID int64) error
	Items(ctx context.Context, orderID int64) ([]LineItem, error)
	DeleteItems(ctx context.Context, orderID int64) error
	Delete(ctx context.Context, id int64) error
	// DeleteAll удаляет все строки корзины и все заказы, возвращает число удалённых заказов.
	DeleteAll(ctx context.Context) (int64, error)
}

// OutboxWriter ставит событие в outbox в рамках текущей единицы работы.
type OutboxWriter interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// Tx открывает доступ к хранилищам внутри одной единицы работы.
type Tx interface {
	Toads() ToadPool
	Statuses() StatusCatalog
	Orders() OrderStore
	Outbox() OutboxWriter
}

// UnitOfWork выполняет fn атомарно: фиксирует изменения, если fn вернула nil,
// и откатывает их при любой ошибке или отмене контекста.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository отдаёт накопленные события воркеру публикации.
type OutboxRepository interface {
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
