package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

type unit struct {
	state  *state
	staged []outboxRecord
	now    func() time.Time
}

func (u *unit) Toads() domain.ToadPool {
	return toadPool{state: u.state}
}

func (u *unit) Statuses() domain.StatusCatalog {
	return statusCatalog{state: u.state}
}

func (u *unit) Orders() domain.OrderStore {
	return orderStore{state: u.state, now: u.now}
}

func (u *unit) Outbox() domain.OutboxWriter {
	return outboxWriter{unit: u}
}

type toadPool struct {
	state *state
}

func (p toadPool) TryClaim(context.Context) (int64, bool, error) {
	for i := range p.state.toads {
		if !p.state.toads[i].taken {
			p.state.toads[i].taken = true
			return p.state.toads[i].id, true, nil
		}
	}
	return 0, false, nil
}

func (p toadPool) Release(_ context.Context, toadID int64) error {
	idx := p.state.toadIndex(toadID)
	if idx < 0 {
		return fmt.Errorf("%w: id %d", domain.ErrToadNotFound, toadID)
	}
	p.state.toads[idx].taken = false
	return nil
}

type statusCatalog struct {
	state *state
}

func (c statusCatalog) Resolve(_ context.Context, name string) (domain.Status, error) {
	for _, status := range c.state.statuses {
		if status.Name == name {
			return status, nil
		}
	}
	return domain.Status{}, fmt.Errorf("%w: name %q", domain.ErrStatusNotFound, name)
}

func (c statusCatalog) NameOf(_ context.Context, id int64) (string, error) {
	for _, status := range c.state.statuses {
		if status.ID == id {
			return status.Name, nil
		}
	}
	return "", fmt.Errorf("%w: id %d", domain.ErrStatusNotFound, id)
}

type orderStore struct {
	state *state
	now   func() time.Time
}

func (s orderStore) Insert(ctx context.Context, in domain.NewOrder) (domain.Order, error) {
	statusName, err := statusCatalog{state: s.state}.NameOf(ctx, in.StatusID)
	if err != nil {
		return domain.Order{}, err
	}
	if in.ToadID != nil {
		if s.state.toadIndex(*in.ToadID) < 0 {
			return domain.Order{}, fmt.Errorf("%w: id %d", domain.ErrToadNotFound, *in.ToadID)
		}
		for _, rec := range s.state.orders {
			if rec.toadID != nil && *rec.toadID == *in.ToadID {
				return domain.Order{}, fmt.Errorf("%w: toad %d is already bound to order %d",
					domain.ErrPersistence, *in.ToadID, rec.id)
			}
		}
	}

	s.state.nextOrderID++
	rec := orderRecord{
		id:        s.state.nextOrderID,
		createdAt: s.now().UTC(),
		userID:    in.UserID,
		toadID:    copyID(in.ToadID),
		statusID:  in.StatusID,
	}
	s.state.orders[rec.id] = rec

	order := rec.toDomain()
	order.StatusName = statusName
	return order, nil
}

func (s orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	rec, ok := s.state.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}

	order := rec.toDomain()
	name, err := statusCatalog{state: s.state}.NameOf(ctx, rec.statusID)
	if err != nil {
		return domain.Order{}, err
	}
	order.StatusName = name
	return order, nil
}

// GetForUpdate совпадает с Get: единица работы уже владеет всем состоянием.
func (s orderStore) GetForUpdate(ctx context.Context, id int64) (domain.Order, error) {
	return s.Get(ctx, id)
}

func (s orderStore) UpdateStatus(ctx context.Context, id, statusID int64) error {
	if _, err := (statusCatalog{state: s.state}).NameOf(ctx, statusID); err != nil {
		return err
	}
	rec, ok := s.state.orders[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	rec.statusID = statusID
	s.state.orders[id] = rec
	return nil
}

func (s orderStore) Items(_ context.Context, orderID int64) ([]domain.LineItem, error) {
	counts := make(map[int64]int32)
	for _, row := range s.state.cart {
		if row.orderID == orderID {
			counts[row.menuItem]++
		}
	}

	items := make([]domain.LineItem, 0, len(counts))
	for menuID, quantity := range counts {
		item, ok := s.state.menu[menuID]
		if !ok {
			return nil, fmt.Errorf("%w: cart references unknown menu item %d", domain.ErrPersistence, menuID)
		}
		item.Quantity = quantity
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].MenuItemID < items[j].MenuItemID })

	return items, nil
}

func (s orderStore) DeleteItems(_ context.Context, orderID int64) error {
	kept := s.state.cart[:0]
	for _, row := range s.state.cart {
		if row.orderID != orderID {
			kept = append(kept, row)
		}
	}
	s.state.cart = kept
	return nil
}

func (s orderStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.state.orders[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	for _, row := range s.state.cart {
		if row.orderID == id {
			return fmt.Errorf("%w: order %d still has cart rows", domain.ErrPersistence, id)
		}
	}
	delete(s.state.orders, id)
	return nil
}

func (s orderStore) DeleteAll(context.Context) (int64, error) {
	removed := int64(len(s.state.orders))
	s.state.cart = nil
	s.state.orders = make(map[int64]orderRecord)
	return removed, nil
}

type outboxWriter struct {
	unit *unit
}

func (w outboxWriter) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := w.unit.now().UTC()
	w.unit.staged = append(w.unit.staged, outboxRecord{
		msg:       msg,
		status:    outboxPending,
		createdAt: now,
		updatedAt: now,
	})
	return msg, nil
}

func (r orderRecord) toDomain() domain.Order {
	return domain.Order{
		ID:        r.id,
		CreatedAt: r.createdAt,
		UserID:    r.userID,
		ToadID:    copyID(r.toadID),
		StatusID:  r.statusID,
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
