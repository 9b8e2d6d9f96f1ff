package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

const defaultToadCount = 10

// DefaultStatuses — статусы, которыми заполняется справочник по умолчанию.
var DefaultStatuses = []string{"Created", "Cooking", "Ready", "Issued"}

// Store — in-memory хранилище кафе для локальной разработки и тестов.
// Единицы работы выполняются последовательно под общим мьютексом
// над копией состояния; копия подменяет состояние только после успеха.
// Outbox живёт вне копируемого состояния: единица работы накапливает
// свои сообщения и переносит их в outbox только при фиксации.
type Store struct {
	mu     sync.Mutex
	state  *state
	outbox map[string]outboxRecord
	now    func() time.Time
}

// Option настраивает Store.
type Option func(*storeOptions)

type storeOptions struct {
	toads    int
	statuses []string
	now      func() time.Time
}

// WithToads задаёт размер пула жаб (id 1..n).
func WithToads(n int) Option {
	return func(o *storeOptions) {
		if n >= 0 {
			o.toads = n
		}
	}
}

// WithStatuses задаёт справочник статусов; id назначаются по порядку с 1.
func WithStatuses(names ...string) Option {
	return func(o *storeOptions) {
		o.statuses = append([]string(nil), names...)
	}
}

// WithClock подменяет источник времени для created_at.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewStore создаёт заполненное справочными данными хранилище.
func NewStore(opts ...Option) *Store {
	cfg := storeOptions{
		toads:    defaultToadCount,
		statuses: DefaultStatuses,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := newState()
	for id := int64(1); id <= int64(cfg.toads); id++ {
		st.toads = append(st.toads, toad{id: id})
	}
	for i, name := range cfg.statuses {
		st.statuses = append(st.statuses, domain.Status{ID: int64(i + 1), Name: name})
	}

	return &Store{
		state:  st,
		outbox: make(map[string]outboxRecord),
		now:    cfg.now,
	}
}

// Do выполняет fn атомарно над копией состояния.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin unit of work: %w", domain.ErrPersistence, err)
	}

	u := &unit{state: s.state.clone(), now: s.now}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: unit of work aborted: %w", domain.ErrPersistence, err)
	}

	s.state = u.state
	for _, rec := range u.staged {
		s.outbox[rec.msg.ID] = rec
	}
	return nil
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(context.Context) error {
	return nil
}

// AddMenuItem добавляет блюдо в меню и возвращает его id.
func (s *Store) AddMenuItem(item domain.LineItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.nextMenuID++
	item.MenuItemID = s.state.nextMenuID
	item.Quantity = 0
	s.state.menu[item.MenuItemID] = item
	return item.MenuItemID
}

// AddCartItem добавляет строку корзины к заказу.
func (s *Store) AddCartItem(orderID, menuItemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.orders[orderID]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, orderID)
	}
	if _, ok := s.state.menu[menuItemID]; !ok {
		return fmt.Errorf("menu item %d not found", menuItemID)
	}

	s.state.nextCartID++
	s.state.cart = append(s.state.cart, cartRow{id: s.state.nextCartID, orderID: orderID, menuItem: menuItemID})
	return nil
}

// ToadTaken сообщает, занята ли жаба; ok=false, если жабы нет в пуле.
func (s *Store) ToadTaken(id int64) (taken, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.toadIndex(id)
	if idx < 0 {
		return false, false
	}
	return s.state.toads[idx].taken, true
}

// FreeToads возвращает число свободных жаб.
func (s *Store) FreeToads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	free := 0
	for _, t := range s.state.toads {
		if !t.taken {
			free++
		}
	}
	return free
}

// OrderCount возвращает число хранимых заказов.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.state.orders)
}

// CartRows возвращает число строк корзины.
func (s *Store) CartRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.state.cart)
}

type toad struct {
	id    int64
	taken bool
}

type orderRecord struct {
	id        int64
	createdAt time.Time
	userID    int64
	toadID    *int64
	statusID  int64
}

type cartRow struct {
	id       int64
	orderID  int64
	menuItem int64
}

type state struct {
	toads    []toad
	statuses []domain.Status
	menu     map[int64]domain.LineItem
	orders   map[int64]orderRecord
	cart     []cartRow

	nextOrderID int64
	nextCartID  int64
	nextMenuID  int64
}

func newState() *state {
	return &state{
		menu:   make(map[int64]domain.LineItem),
		orders: make(map[int64]orderRecord),
	}
}

func (st *state) clone() *state {
	cp := &state{
		toads:       append([]toad(nil), st.toads...),
		statuses:    st.statuses,
		menu:        st.menu,
		orders:      make(map[int64]orderRecord, len(st.orders)),
		cart:        append([]cartRow(nil), st.cart...),
		nextOrderID: st.nextOrderID,
		nextCartID:  st.nextCartID,
		nextMenuID:  st.nextMenuID,
	}
	for id, rec := range st.orders {
		cp.orders[id] = rec
	}
	return cp
}

func (st *state) toadIndex(id int64) int {
	i := sort.Search(len(st.toads), func(i int) bool { return st.toads[i].id >= id })
	if i < len(st.toads) && st.toads[i].id == id {
		return i
	}
	return -1
}
