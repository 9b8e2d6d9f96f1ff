package domain

import "time"

// Order агрегирует состояние заказа кафе и его позиции.
type Order struct {
	ID        int64
	CreatedAt time.Time
	UserID    int64
	// ToadID пуст, если на момент создания свободных жаб не было.
	ToadID     *int64
	StatusID   int64
	StatusName string
	Items      []LineItem
}

// HasToad сообщает, закреплена ли за заказом жаба.
func (o Order) HasToad() bool {
	return o.ToadID != nil
}

// BelongsTo проверяет, может ли вызывающий видеть заказ.
func (o Order) BelongsTo(caller Caller) bool {
	return caller.IsAdmin() || o.UserID == caller.UserID
}

// NewOrder описывает запись заказа, которую создаёт транзакция выдачи.
type NewOrder struct {
	UserID   int64
	ToadID   *int64
	StatusID int64
}

// LineItem — позиция корзины, сгруппированная по блюду меню.
type LineItem struct {
	MenuItemID  int64
	DishName    string
	Image       string
	Description string
	Category    string
	IsAvailable bool
	// QuantityLeft — остаток блюда в меню.
	QuantityLeft int32
	// Quantity — количество одинаковых строк корзины для этого блюда.
	Quantity int32
}

// Role задаёт роль вызывающего, которую передаёт шлюз аутентификации.
type Role int

const (
	// RoleAdmin видит все заказы и может очищать их.
	RoleAdmin Role = 0
	// RoleCustomer работает только со своими заказами.
	RoleCustomer Role = 1
)

// Caller — уже аутентифицированный пользователь запроса.
type Caller struct {
	UserID int64
	Role   Role
}

// IsAdmin сообщает, есть ли у вызывающего административные права.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
