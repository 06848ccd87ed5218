package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Harvester/internal/telemetry"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn     *Connection
	logger   *slog.Logger
	exchange string
}

// NewPublisher создаёт новый Publisher, публикующий в exchange задач.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:     conn,
		logger:   telemetry.OrDefault(logger),
		exchange: ExchangeTasks,
	}
}

// Publish публикует тело сообщения в очередь queue (routing key = имя очереди).
//
// msgType попадает в AMQP-свойство Type; обычно это имя задачи.
func (p *Publisher) Publish(ctx context.Context, queue string, msgType string, body []byte) error {
	id := uuid.NewString()

	return p.conn.WithPublishChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			p.exchange, // exchange
			queue,      // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    id,
				Type:         msgType,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", p.exchange, queue, err)
		}

		p.logger.Debug("published message",
			"exchange", p.exchange,
			"routing_key", queue,
			"message_id", id,
			"type", msgType,
		)

		return nil
	})
}
