package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// Топики событий финансирования.
const (
	TopicDonationRecorded   = "funding.donation.recorded"
	TopicMembershipCreated  = "funding.membership.created"
	TopicMembershipCanceled = "funding.membership.canceled"
)

const publishMaxRetries = 3

// FundingEvent событие движения средств, публикуемое после синхронной записи.
type FundingEvent struct {
	UserID     string    `json:"user_id"`
	LabID      string    `json:"lab_id"`
	GoalID     string    `json:"goal_id,omitempty"`
	Amount     float64   `json:"amount"` // В основных единицах валюты
	ExternalID string    `json:"external_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer определяет интерфейс для публикации событий финансирования.
type Producer interface {
	// PublishFundingEvent отправляет событие в указанный топик.
	// Ключ сообщения - lab_id: события одной лаборатории попадают
	// в одну партицию и сохраняют порядок.
	PublishFundingEvent(ctx context.Context, topic string, event FundingEvent) error

	// Close закрывает соединение продюсера.
	Close() error
}

// kafkaProducer реализует Producer, используя segmentio/kafka-go.
type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer создает и настраивает новый продюсер Kafka.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)

	return &kafkaProducer{
		writer: writer,
		log:    log,
	}, nil
}

// PublishFundingEvent сериализует событие и отправляет его с повторными
// попытками. Повторы касаются только публикации событий: само движение
// средств на уровне сервисов не ретраится.
func (k *kafkaProducer) PublishFundingEvent(ctx context.Context, topic string, event FundingEvent) error {
	messageValue, err := json.Marshal(event)
	if err != nil {
		k.log.Errorw("Failed to marshal funding event", "error", err, "topic", topic, "labID", event.LabID)
		return fmt.Errorf("kafka: failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(event.LabID),
		Value: messageValue,
		Time:  time.Now(),
	}

	operation := func() error {
		writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		if err := k.writer.WriteMessages(writeCtx, message); err != nil {
			if errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			k.log.Warnw("Kafka write failed, will retry", "error", err, "topic", topic)
			return err
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), publishMaxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		k.log.Errorw("Failed to publish funding event after retries", "error", err, "topic", topic, "labID", event.LabID)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Infow("Funding event published", "topic", topic, "labID", event.LabID, "externalID", event.ExternalID)
	return nil
}

// Close закрывает Kafka Writer. Вызывается при graceful shutdown.
func (k *kafkaProducer) Close() error {
	k.log.Infow("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}
