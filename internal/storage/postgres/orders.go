package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

const selectOrderSQL = `
	SELECT o.id, o.created_at, o.user_id, o.toad_id, o.status_id, s.name
	FROM orders o
	JOIN order_statuses s ON s.id = o.status_id
	WHERE o.id = $1
`

type orderStore struct {
	tx *sql.Tx
}

func (s orderStore) Insert(ctx context.Context, in domain.NewOrder) (domain.Order, error) {
	var toadID sql.NullInt64
	if in.ToadID != nil {
		toadID = sql.NullInt64{Int64: *in.ToadID, Valid: true}
	}

	order := domain.Order{
		UserID:   in.UserID,
		ToadID:   in.ToadID,
		StatusID: in.StatusID,
	}
	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, toad_id, status_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, in.UserID, toadID, in.StatusID).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return domain.Order{}, mapOrderWriteError("insert order", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()

	return order, nil
}

func (s orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	return s.scanOrder(ctx, selectOrderSQL, id)
}

func (s orderStore) GetForUpdate(ctx context.Context, id int64) (domain.Order, error) {
	return s.scanOrder(ctx, selectOrderSQL+" FOR UPDATE OF o", id)
}

func (s orderStore) scanOrder(ctx context.Context, query string, id int64) (domain.Order, error) {
	var (
		order  domain.Order
		toadID sql.NullInt64
	)
	err := s.tx.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.CreatedAt, &order.UserID, &toadID, &order.StatusID, &order.StatusName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return domain.Order{}, persistenceError("select order", err)
	}
	if toadID.Valid {
		order.ToadID = &toadID.Int64
	}
	order.CreatedAt = order.CreatedAt.UTC()

	return order, nil
}

func (s orderStore) UpdateStatus(ctx context.Context, id, statusID int64) error {
	res, err := s.tx.ExecContext(ctx, `UPDATE orders SET status_id = $2 WHERE id = $1`, id, statusID)
	if err != nil {
		return mapOrderWriteError("update order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceError("update order status rows affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	return nil
}

func (s orderStore) Items(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT m.id, m.dish_name, m.image, m.description, m.category,
		       m.is_available, m.quantity_left, COUNT(*) AS quantity
		FROM cart c
		JOIN menu m ON m.id = c.menu_item
		WHERE c.order_id = $1
		GROUP BY m.id, m.dish_name, m.image, m.description, m.category,
		         m.is_available, m.quantity_left
		ORDER BY m.id
	`, orderID)
	if err != nil {
		return nil, persistenceError("select order items", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.MenuItemID,
			&item.DishName,
			&item.Image,
			&item.Description,
			&item.Category,
			&item.IsAvailable,
			&item.QuantityLeft,
			&item.Quantity,
		); err != nil {
			return nil, persistenceError("scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate order items", err)
	}

	return items, nil
}

func (s orderStore) DeleteItems(ctx context.Context, orderID int64) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM cart WHERE order_id = $1`, orderID); err != nil {
		return persistenceError("delete cart rows", err)
	}
	return nil
}

func (s orderStore) Delete(ctx context.Context, id int64) error {
	var deleted int64
	err := s.tx.QueryRowContext(ctx, `DELETE FROM orders WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return persistenceError("delete order", err)
	}
	return nil
}

func (s orderStore) DeleteAll(ctx context.Context) (int64, error) {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM cart`); err != nil {
		return 0, persistenceError("delete all cart rows", err)
	}
	res, err := s.tx.ExecContext(ctx, `DELETE FROM orders`)
	if err != nil {
		return 0, persistenceError("delete all orders", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, persistenceError("delete all orders rows affected", err)
	}
	return removed, nil
}

// mapOrderWriteError переводит нарушения ссылочной целостности в доменные ошибки.
func mapOrderWriteError(op string, err error) error {
	if pgErrorCode(err) == pgForeignKeyViolation {
		switch pgConstraint(err) {
		case "orders_status_id_fkey":
			return fmt.Errorf("%w: %s: %w", domain.ErrStatusNotFound, op, err)
		case "orders_toad_id_fkey":
			return fmt.Errorf("%w: %s: %w", domain.ErrToadNotFound, op, err)
		}
	}
	if pgErrorCode(err) == pgUniqueViolation && pgConstraint(err) == "idx_orders_toad_id" {
		return fmt.Errorf("%w: %s: toad is already bound to another order: %w", domain.ErrPersistence, op, err)
	}
	return persistenceError(op, err)
}
