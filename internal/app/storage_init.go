package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
	"github.com/vladislavdragonenkov/frogcafe/internal/health"
	"github.com/vladislavdragonenkov/frogcafe/internal/storage/memory"
	"github.com/vladislavdragonenkov/frogcafe/internal/storage/postgres"
)

type runtimeDependencies struct {
	uow        domain.UnitOfWork
	outboxRepo domain.OutboxRepository
	storage    health.Pinger
	closeFn    func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		return initMemoryStorage(cfg, logger), nil
	case StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger)
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initMemoryStorage(cfg Config, logger *log.Entry) runtimeDependencies {
	names := cfg.LifecycleNames()
	store := memory.NewStore(
		memory.WithToads(cfg.MemoryToads),
		memory.WithStatuses(memoryStatuses(names)...),
	)
	logger.WithField("toads", cfg.MemoryToads).Info("using in-memory storage")

	return runtimeDependencies{
		uow:        store,
		outboxRepo: store,
		storage:    store,
		closeFn:    func() error { return nil },
	}
}

// memoryStatuses собирает справочник Created → Cooking → Ready → Issued
// с настроенными именами; повторяющиеся имена пропускаются.
func memoryStatuses(names domain.LifecycleNames) []string {
	statuses := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, name := range []string{names.Created, "Cooking", "Ready", names.Issued} {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		statuses = append(statuses, name)
	}
	return statuses
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return runtimeDependencies{}, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN,
		postgres.WithTxTimeout(cfg.TxTimeout),
		postgres.WithLogger(logger.WithField("layer", "postgres")),
	)
	if err != nil {
		return runtimeDependencies{}, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return runtimeDependencies{}, err
		}
	}
	logger.Info("using postgres storage")

	return runtimeDependencies{
		uow:        store,
		outboxRepo: postgres.NewOutboxRepository(store),
		storage:    store,
		closeFn:    store.Close,
	}, nil
}
