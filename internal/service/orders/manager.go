package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

// Service описывает операции над заказами кафе.
type Service interface {
	// CreateOrder атомарно занимает свободную жабу и создаёт заказ в начальном статусе.
	CreateOrder(ctx context.Context, userID int64) (domain.Order, error)
	// GetOrder возвращает заказ с позициями, если вызывающему он доступен.
	GetOrder(ctx context.Context, caller domain.Caller, orderID int64) (domain.Order, error)
	// SetStatus переводит заказ в статус statusID и возвращает его актуальное состояние.
	SetStatus(ctx context.Context, orderID, statusID int64) (domain.Order, error)
	// DeleteOrder удаляет выданный заказ и освобождает его жабу.
	DeleteOrder(ctx context.Context, orderID int64) error
	// ClearAll удаляет все заказы и строки корзины, возвращает число удалённых заказов.
	ClearAll(ctx context.Context) (int64, error)
}

// AllocationPolicy определяет поведение при пустом пуле жаб.
type AllocationPolicy int

const (
	// PolicyProceedWithoutToad создаёт заказ без жабы.
	PolicyProceedWithoutToad AllocationPolicy = iota
	// PolicyRequireToad отклоняет заказ с ErrToadPoolExhausted.
	PolicyRequireToad
)

func (p AllocationPolicy) String() string {
	if p == PolicyRequireToad {
		return "require-toad"
	}
	return "proceed-without-toad"
}

// Option настраивает Manager.
type Option func(*Manager)

// WithLifecycleNames задаёт имена начального и терминального статусов.
func WithLifecycleNames(names domain.LifecycleNames) Option {
	return func(m *Manager) {
		m.names = names
	}
}

// WithAllocationPolicy задаёт политику пустого пула.
func WithAllocationPolicy(policy AllocationPolicy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithLogger задаёт logger менеджера.
func WithLogger(logger *log.Entry) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager реализует Service поверх единицы работы хранилища.
type Manager struct {
	uow    domain.UnitOfWork
	names  domain.LifecycleNames
	policy AllocationPolicy
	logger *log.Entry
}

// NewManager создаёт менеджер заказов.
func NewManager(uow domain.UnitOfWork, opts ...Option) *Manager {
	m := &Manager{
		uow:    uow,
		names:  domain.DefaultLifecycleNames(),
		policy: PolicyProceedWithoutToad,
		logger: log.WithField("component", "order-manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateOrder в одной транзакции занимает свободную жабу и создаёт заказ в статусе Created.
func (m *Manager) CreateOrder(ctx context.Context, userID int64) (domain.Order, error) {
	var created domain.Order

	err := m.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		in := domain.NewOrder{UserID: userID}

		toadID, ok, err := tx.Toads().TryClaim(ctx)
		if err != nil {
			return fmt.Errorf("claim toad: %w", err)
		}
		switch {
		case ok:
			in.ToadID = &toadID
		case m.policy == PolicyRequireToad:
			return domain.ErrToadPoolExhausted
		default:
			m.logger.WithField("user_id", userID).Warn("no free toad, creating order without toad")
		}

		status, err := m.resolve(ctx, tx, domain.LifecycleCreated)
		if err != nil {
			return err
		}
		in.StatusID = status.ID

		order, err := tx.Orders().Insert(ctx, in)
		if err != nil {
			return fmt.Errorf("%w: insert order: %v", domain.ErrPersistence, err)
		}
		order.StatusName = status.Name
		order.Items = []domain.LineItem{}

		if err := m.enqueue(ctx, tx, domain.NewOrderEvent(domain.EventTypeOrderCreated, order)); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return created, nil
}

func (m *Manager) GetOrder(ctx context.Context, caller domain.Caller, orderID int64) (domain.Order, error) {
	var result domain.Order

	err := m.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.BelongsTo(caller) {
			return fmt.Errorf("%w: order %d", domain.ErrForbidden, orderID)
		}

		if order.Items, err = tx.Orders().Items(ctx, orderID); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return result, nil
}

func (m *Manager) SetStatus(ctx context.Context, orderID, statusID int64) (domain.Order, error) {
	var result domain.Order

	err := m.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		name, err := tx.Statuses().NameOf(ctx, statusID)
		if err != nil {
			return err
		}
		if err := tx.Orders().UpdateStatus(ctx, orderID, statusID); err != nil {
			return err
		}

		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		order.StatusName = name
		if order.Items, err = tx.Orders().Items(ctx, orderID); err != nil {
			return err
		}

		if err := m.enqueue(ctx, tx, domain.NewOrderEvent(domain.EventTypeOrderStatusChanged, order)); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return result, nil
}

// DeleteOrder удаляет выданный заказ вместе с корзиной и освобождает его жабу.
func (m *Manager) DeleteOrder(ctx context.Context, orderID int64) error {
	return m.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		issued, err := m.resolve(ctx, tx, domain.LifecycleIssued)
		if err != nil {
			return err
		}
		if order.StatusID != issued.ID {
			return fmt.Errorf("%w: order %d is %q", domain.ErrOrderNotIssued, orderID, order.StatusName)
		}

		if order.ToadID != nil {
			if err := tx.Toads().Release(ctx, *order.ToadID); err != nil {
				return fmt.Errorf("release toad %d: %w", *order.ToadID, err)
			}
		}
		if err := tx.Orders().DeleteItems(ctx, orderID); err != nil {
			return err
		}
		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return err
		}

		return m.enqueue(ctx, tx, domain.NewOrderEvent(domain.EventTypeOrderDeleted, order))
	})
}

func (m *Manager) ClearAll(ctx context.Context) (int64, error) {
	var removed int64

	err := m.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		n, err := tx.Orders().DeleteAll(ctx)
		if err != nil {
			return err
		}

		event := domain.OrderEvent{EventType: domain.EventTypeOrdersCleared, Removed: n}
		if err := m.enqueue(ctx, tx, event); err != nil {
			return err
		}

		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// resolve находит в справочнике статус жизненного цикла.
func (m *Manager) resolve(ctx context.Context, tx domain.Tx, l domain.Lifecycle) (domain.Status, error) {
	name := m.names.Name(l)
	status, err := tx.Statuses().Resolve(ctx, name)
	if errors.Is(err, domain.ErrStatusNotFound) {
		return domain.Status{}, fmt.Errorf("%w: %q", l.MissingError(), name)
	}
	if err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

func (m *Manager) enqueue(ctx context.Context, tx domain.Tx, event domain.OrderEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	msg, err := event.OutboxMessage()
	if err != nil {
		return err
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", event.EventType, asPersistence(err))
	}
	return nil
}

// asPersistence помечает неклассифицированную ошибку хранилища как ErrPersistence.
func asPersistence(err error) error {
	if err == nil || domain.IsPersistence(err) || domain.IsNotFound(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

var _ Service = (*Manager)(nil)
