package broker

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes messages to the application log. Used when no bus is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: logrus.StandardLogger()}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"topic":      msg.Topic,
		"payload":    string(msg.Payload),
	}).Info("Notification published")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
