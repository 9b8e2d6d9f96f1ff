package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

const (
	outboxPending = "pending"
	outboxFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля публикации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// PullPending возвращает до limit сообщений со статусом pending в порядке создания.
func (s *Store) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pendingRecords()
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (s *Store) Stats() (domain.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pendingRecords()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].createdAt
	}
	return stats, nil
}

// MarkSent удаляет опубликованное сообщение из outbox.
func (s *Store) MarkSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[id]; !ok {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	delete(s.outbox, id)
	return nil
}

// MarkFailed фиксирует окончательную ошибку публикации; запись остаётся для разбора.
func (s *Store) MarkFailed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.outbox[id]
	if !ok {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	rec.status = outboxFailed
	rec.attemptCnt++
	rec.updatedAt = s.now().UTC()
	s.outbox[id] = rec
	return nil
}

// OutboxRecords возвращает число хранимых outbox-записей (pending и failed).
func (s *Store) OutboxRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.outbox)
}

// PendingOutbox возвращает копию всех pending-сообщений (используется в тестах).
func (s *Store) PendingOutbox() []domain.OutboxMessage {
	msgs, _ := s.PullPending(int(^uint(0) >> 1))
	return msgs
}

func (s *Store) pendingRecords() []outboxRecord {
	pending := make([]outboxRecord, 0)
	for _, rec := range s.outbox {
		if rec.status == outboxPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].createdAt.Equal(pending[j].createdAt) {
			return pending[i].createdAt.Before(pending[j].createdAt)
		}
		return pending[i].msg.ID < pending[j].msg.ID
	})
	return pending
}

var (
	_ domain.UnitOfWork       = (*Store)(nil)
	_ domain.OutboxRepository = (*Store)(nil)
)
