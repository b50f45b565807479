// Package broker publishes domain notifications to a message bus.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ds124wfegd/eventbook/config"

	"github.com/google/uuid"
)

// Topics
const (
	TopicBookingCreated   = "booking.created"
	TopicBookingCancelled = "booking.cancelled"
	TopicEventDeleted     = "event.deleted"
	TopicBookingReminder  = "booking.reminder"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// Message is the envelope every driver writes to the wire.
type Message struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

func NewMessage(topic string, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Message{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// New builds the publisher selected by cfg.Driver. An empty driver means "log".
func New(cfg *config.BrokerConfig) (Publisher, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogPublisher(), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka)
	case "telegram":
		return NewTelegramPublisher(cfg.Telegram), nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}
