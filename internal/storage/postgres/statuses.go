package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

type statusCatalog struct {
	tx *sql.Tx
}

func (c statusCatalog) Resolve(ctx context.Context, name string) (domain.Status, error) {
	var status domain.Status
	err := c.tx.QueryRowContext(ctx, `
		SELECT id, name
		FROM order_statuses
		WHERE name = $1
	`, name).Scan(&status.ID, &status.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, fmt.Errorf("%w: name %q", domain.ErrStatusNotFound, name)
	}
	if err != nil {
		return domain.Status{}, persistenceError("resolve status", err)
	}
	return status, nil
}

func (c statusCatalog) NameOf(ctx context.Context, id int64) (string, error) {
	var name string
	err := c.tx.QueryRowContext(ctx, `SELECT name FROM order_statuses WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: id %d", domain.ErrStatusNotFound, id)
	}
	if err != nil {
		return "", persistenceError("select status name", err)
	}
	return name, nil
}
