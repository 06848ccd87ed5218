package mq

import (
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges — имена обменников.
const (
	ExchangeTasks = "harvester.tasks"
	ExchangeDLQ   = "harvester.dlq"
)

// DeadLetterQueue возвращает имя DLQ для рабочей очереди.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// SetupTopology объявляет exchanges, рабочую очередь и её DLQ.
//
// visibilityTimeout передаётся брокеру как x-consumer-timeout: сообщение без
// ack дольше этого времени возвращается в очередь.
func SetupTopology(conn *Connection, queue string, visibilityTimeout time.Duration) error {
	return conn.WithPublishChannel(func(ch *amqp.Channel) error {
		for _, name := range []string{ExchangeTasks, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				name,     // name
				"direct", // type
				true,     // durable
				false,    // auto-deleted
				false,    // internal
				false,    // no-wait
				nil,      // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", name, err)
			}
		}

		dlq := DeadLetterQueue(queue)
		queues := []struct {
			name     string
			exchange string
			args     amqp.Table
		}{
			{queue, ExchangeTasks, QueueArgs(visibilityTimeout, dlq)},
			{dlq, ExchangeDLQ, nil},
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				q.name, // name
				true,   // durable
				false,  // delete when unused
				false,  // exclusive
				false,  // no-wait
				q.args, // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}

			if err := ch.QueueBind(q.name, q.name, q.exchange, false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
			}
		}

		return nil
	})
}

// QueueArgs возвращает аргументы рабочей очереди.
func QueueArgs(visibilityTimeout time.Duration, dlq string) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLQ,
		"x-dead-letter-routing-key": dlq,
	}
	if visibilityTimeout > 0 {
		args["x-consumer-timeout"] = visibilityTimeout.Milliseconds()
	}
	return args
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(queue string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (direct)\n", ExchangeTasks)
	fmt.Fprintf(&b, "└── %s [routing: %s] DLQ: %s\n", queue, queue, DeadLetterQueue(queue))
	fmt.Fprintf(&b, "%s (direct)\n", ExchangeDLQ)
	fmt.Fprintf(&b, "└── %s [routing: %s] manual processing\n", DeadLetterQueue(queue), DeadLetterQueue(queue))
	return b.String()
}
