package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

// unit — доступ к хранилищам в рамках одной SQL-транзакции.
type unit struct {
	tx *sql.Tx
}

func (u *unit) Toads() domain.ToadPool {
	return toadPool{tx: u.tx}
}

func (u *unit) Statuses() domain.StatusCatalog {
	return statusCatalog{tx: u.tx}
}

func (u *unit) Orders() domain.OrderStore {
	return orderStore{tx: u.tx}
}

func (u *unit) Outbox() domain.OutboxWriter {
	return outboxWriter{tx: u.tx}
}

// Do выполняет fn в транзакции READ COMMITTED с таймаутом единицы работы.
// Любая ошибка fn, отмена ctx или сбой commit откатывают все изменения.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) (err error) {
	if s == nil || s.db == nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, errStoreNotInitialized)
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", domain.ErrPersistence, err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WithError(rbErr).Warn("failed to rollback unit of work")
		}
	}()

	if err = fn(ctx, &unit{tx: tx}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("%w: unit of work aborted: %w", domain.ErrPersistence, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}

	return nil
}

// persistenceError помечает сбой SQL как ошибку хранилища.
func persistenceError(op string, err error) error {
	if code := pgErrorCode(err); code == pgDeadlockDetected || code == pgSerializationFail {
		return fmt.Errorf("%w: %s: transaction conflict (%s): %w", domain.ErrPersistence, op, code, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

var _ domain.UnitOfWork = (*Store)(nil)
