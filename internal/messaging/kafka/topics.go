package kafka

// Topics для Kafka.
const (
	TopicOrderEvents     = "cafe.order.events"
	TopicDeadLetterQueue = "cafe.dlq"
)

// Заголовки сообщений, по которым потребители фильтруют события без разбора payload.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)
