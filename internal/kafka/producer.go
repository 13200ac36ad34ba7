package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Топики событий использования
const (
	TopicChatMessageSent     = "chat_message_sent"
	TopicConversationCreated = "conversation_created"
	TopicConversationDeleted = "conversation_deleted"
)

// Producer определяет интерфейс для публикации событий использования в Kafka.
type Producer interface {
	// PublishUsageEvent отправляет событие использования в указанный топик.
	// Ключ сообщения — UserID, чтобы события одного пользователя попадали
	// в одну партицию и сохраняли порядок.
	PublishUsageEvent(ctx context.Context, topic string, event *domain.UsageEvent) error
	// Close закрывает соединение продюсера Kafka.
	Close() error
}

// kafkaProducer реализует интерфейс Producer, используя segmentio/kafka-go.
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

// PublishUsageEvent преобразует событие использования в JSON и отправляет в указанный топик Kafka.
func (k *kafkaProducer) PublishUsageEvent(ctx context.Context, topic string, event *domain.UsageEvent) error {
	messageKey := []byte(event.UserID)

	messageValue, err := json.Marshal(event)
	if err != nil {
		k.log.Errorw("Failed to marshal usage event to JSON for Kafka", "error", err, "userID", event.UserID, "topic", topic)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   messageKey,
		Value: messageValue,
		Time:  time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Errorw("Kafka write timeout exceeded", "error", err, "topic", topic, "userID", event.UserID)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Errorw("Failed to write message to Kafka", "error", err, "topic", topic, "userID", event.UserID)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debugw("Usage event published to Kafka", "topic", topic, "userID", event.UserID)
	return nil
}

// Close закрывает соединение Kafka Writer.
func (k *kafkaProducer) Close() error {
	k.log.Infow("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	k.log.Infow("Kafka producer writer closed successfully")
	return nil
}

// NoOpProducer заглушка продюсера для запуска без Kafka (локальная разработка, тесты)
type NoOpProducer struct{}

// NewNoOpProducer создает продюсер-заглушку
func NewNoOpProducer() *NoOpProducer {
	return &NoOpProducer{}
}

// PublishUsageEvent ничего не делает
func (p *NoOpProducer) PublishUsageEvent(_ context.Context, _ string, _ *domain.UsageEvent) error {
	return nil
}

// Close ничего не делает
func (p *NoOpProducer) Close() error {
	return nil
}
