package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Harvester/internal/telemetry"
)

const maxReconnectDelay = 30 * time.Second

// ErrNoChannel — соединение ещё не установлено или переподключается.
var ErrNoChannel = errors.New("no amqp channel available")

// Connection — обёртка над AMQP соединением с автоматическим reconnect.
//
// Держит два канала: для потребления и для публикации, чтобы publish из
// обработчиков не конкурировал с доставкой сообщений.
type Connection struct {
	url    string
	logger *slog.Logger

	mu        sync.RWMutex
	conn      *amqp.Connection
	consumeCh *amqp.Channel
	publishCh *amqp.Channel

	closed   bool
	closedCh chan struct{}

	// Для уведомления о переподключении
	reconnectCh chan struct{}
}

// NewConnection создаёт новое соединение с RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:         url,
		logger:      telemetry.OrDefault(logger),
		closedCh:    make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watchConnection()

	return c, nil
}

// connect устанавливает соединение и открывает каналы.
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	consumeCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open consume channel: %w", err)
	}

	publishCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open publish channel: %w", err)
	}

	c.conn = conn
	c.consumeCh = consumeCh
	c.publishCh = publishCh

	c.logger.Info("connected to RabbitMQ")

	return nil
}

// watchConnection следит за соединением и переподключается при разрыве.
func (c *Connection) watchConnection() {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		conn := c.conn
		c.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-notifyClose:
			if err != nil {
				c.logger.Warn("connection closed", "error", err)
			}
			c.reconnect()
		}
	}
}

// reconnect пытается переподключиться с экспоненциальной задержкой.
func (c *Connection) reconnect() {
	delay := time.Second

	for {
		select {
		case <-c.closedCh:
			return
		case <-time.After(delay):
		}

		c.logger.Info("attempting to reconnect", "delay", delay)

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")

		select {
		case c.reconnectCh <- struct{}{}:
		default:
		}

		return
	}
}

// ConsumeChannel возвращает канал для потребления.
func (c *Connection) ConsumeChannel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consumeCh
}

// ReconnectNotify возвращает канал для уведомлений о переподключении.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnectCh
}

// WithPublishChannel выполняет функцию с каналом публикации.
func (c *Connection) WithPublishChannel(fn func(ch *amqp.Channel) error) error {
	c.mu.RLock()
	ch := c.publishCh
	c.mu.RUnlock()

	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}

	return fn(ch)
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Ping проверяет соединение для health-check.
func (c *Connection) Ping(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNoChannel
	}
	return nil
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.closedCh)

	var errs []error
	for _, ch := range []*amqp.Channel{c.consumeCh, c.publishCh} {
		if ch != nil && !ch.IsClosed() {
			if err := ch.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close channel: %w", err))
			}
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Info("connection closed")
	return nil
}
