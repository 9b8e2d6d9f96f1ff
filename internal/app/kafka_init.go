package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/frogcafe/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer, если брокеры заданы; иначе возвращает nil, nil.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, "")
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, outbox events stay pending")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
