package app

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
	"github.com/vladislavdragonenkov/frogcafe/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса. Тип сравним по значению.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	TxTimeout           time.Duration
	MemoryToads         int

	StatusCreated string
	StatusIssued  string
	RequireToad   bool

	// KafkaBrokers — список брокеров через запятую; пусто отключает публикацию outbox.
	KafkaBrokers       string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	TracingExporter string
	OTLPEndpoint    string
}

// DefaultConfig возвращает настройки для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	names := domain.DefaultLifecycleNames()
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		TxTimeout:           5 * time.Second,
		MemoryToads:         10,
		StatusCreated:       names.Created,
		StatusIssued:        names.Issued,
		KafkaTopic:          kafka.TopicOrderEvents,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		TracingExporter:     "none",
	}
}

// LifecycleNames возвращает имена начального и терминального статусов.
func (c Config) LifecycleNames() domain.LifecycleNames {
	return domain.LifecycleNames{Created: c.StatusCreated, Issued: c.StatusIssued}
}

// AllocationPolicy возвращает политику пустого пула жаб.
func (c Config) AllocationPolicy() orders.AllocationPolicy {
	if c.RequireToad {
		return orders.PolicyRequireToad
	}
	return orders.PolicyProceedWithoutToad
}

// Brokers разбирает KafkaBrokers, отбрасывая пустые элементы.
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
