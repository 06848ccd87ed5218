package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Harvester/internal/telemetry"
)

// Handler — функция обработки тела сообщения.
//
// nil — сообщение подтверждается (ack). Ошибка — сообщение отклоняется без
// возврата в очередь и уходит в DLQ брокера.
type Handler func(ctx context.Context, body []byte) error

// Consumer потребляет сообщения из очереди RabbitMQ несколькими воркерами.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	workers  int
	prefetch int
	tag      string

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	inflight   sync.WaitGroup
	done       chan struct{}
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Workers — количество параллельных обработчиков (default: 1).
	Workers int

	// FetchSize — сообщений на воркера, выдаваемых брокером заранее (default: 1).
	// Итоговый prefetch = Workers * FetchSize.
	FetchSize int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	workers := max(cfg.Workers, 1)
	fetchSize := max(cfg.FetchSize, 1)

	return &Consumer{
		conn:     conn,
		logger:   telemetry.OrDefault(logger),
		queue:    cfg.Queue,
		workers:  workers,
		prefetch: workers * fetchSize,
		tag:      "harvester-" + uuid.NewString(),
	}
}

// Start запускает потребление и блокируется до Stop или отмены ctx.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancelFunc != nil {
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("consumer for %s already started", c.queue)
	}
	c.cancelFunc = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	defer close(c.done)

	err := c.consume(ctx, handler)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume — основной цикл потребления с переподключением.
func (c *Consumer) consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue, "workers", c.workers, "prefetch", c.prefetch)

		c.runWorkers(ctx, deliveries, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// setupConsume настраивает prefetch и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.ConsumeChannel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// runWorkers раздаёт сообщения воркерам, пока канал доставки открыт.
func (c *Consumer) runWorkers(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-deliveries:
					if !ok {
						return
					}
					c.handleDelivery(ctx, raw, handler)
				}
			}
		}()
	}
	wg.Wait()
}

// handleDelivery обрабатывает одно сообщение.
//
// Обработчик получает контекст без отмены: сообщение дорабатывается
// даже во время остановки.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery, handler Handler) {
	c.inflight.Add(1)
	defer c.inflight.Done()

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", raw.MessageId,
		"type", raw.Type,
	)

	if err := handler(context.WithoutCancel(ctx), raw.Body); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", raw.MessageId,
			"error", err,
		)
		if nErr := raw.Nack(false, false); nErr != nil {
			c.logger.Warn("failed to nack message", "message_id", raw.MessageId, "error", nErr)
		}
		return
	}

	if err := raw.Ack(false); err != nil {
		c.logger.Warn("failed to ack message", "message_id", raw.MessageId, "error", err)
	}
}

// Stop прекращает потребление и ждёт завершения обрабатываемых сообщений
// или отмены ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancelFunc
	done := c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	if ch := c.conn.ConsumeChannel(); ch != nil && !ch.IsClosed() {
		if err := ch.Cancel(c.tag, false); err != nil {
			c.logger.Warn("failed to cancel consumer", "queue", c.queue, "error", err)
		}
	}
	cancel()

	drained := make(chan struct{})
	go func() {
		<-done
		c.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		c.logger.Info("consumer stopped", "queue", c.queue)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain consumer %s: %w", c.queue, ctx.Err())
	}
}
