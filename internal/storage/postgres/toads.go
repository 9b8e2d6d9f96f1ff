package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

type toadPool struct {
	tx *sql.Tx
}

// TryClaim блокирует свободную жабу с наименьшим id и помечает её занятой.
// Конкурентная транзакция ждёт на блокировке строки и после commit
// первой перечитывает условие, поэтому одна жаба не достаётся двоим.
func (p toadPool) TryClaim(ctx context.Context) (int64, bool, error) {
	var toadID int64
	err := p.tx.QueryRowContext(ctx, `
		SELECT id
		FROM toads
		WHERE is_taken = false
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`).Scan(&toadID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, persistenceError("select free toad", err)
	}

	res, err := p.tx.ExecContext(ctx, `
		UPDATE toads
		SET is_taken = true
		WHERE id = $1
		  AND is_taken = false
	`, toadID)
	if err != nil {
		return 0, false, persistenceError("claim toad", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, persistenceError("claim toad rows affected", err)
	}
	if affected != 1 {
		return 0, false, fmt.Errorf("%w: toad %d was taken while locked", domain.ErrPersistence, toadID)
	}

	return toadID, true, nil
}

func (p toadPool) Release(ctx context.Context, toadID int64) error {
	res, err := p.tx.ExecContext(ctx, `UPDATE toads SET is_taken = false WHERE id = $1`, toadID)
	if err != nil {
		return persistenceError("release toad", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceError("release toad rows affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrToadNotFound, toadID)
	}
	return nil
}
