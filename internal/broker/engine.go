package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Harvester/internal/deadletter"
	"github.com/shaiso/Harvester/internal/dispatch"
	"github.com/shaiso/Harvester/internal/mq"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// Default configuration values.
const (
	defaultWorkers           = 1
	defaultFetchSize         = 1
	defaultVisibilityTimeout = 5 * time.Minute
)

// Consumer — источник сообщений брокера.
type Consumer interface {
	// Start блокируется, пока потребление не остановлено.
	Start(ctx context.Context, handler mq.Handler) error

	// Stop прекращает потребление и ждёт обработки полученных сообщений.
	Stop(ctx context.Context) error
}

// Publisher — отправка сообщений в очередь.
type Publisher interface {
	Publish(ctx context.Context, queue string, msgType string, body []byte) error
}

// Config — конфигурация Engine.
type Config struct {
	// Connection — соединение с RabbitMQ. Если задано, New объявляет топологию
	// очереди и создаёт недостающие Consumer и Publisher поверх него.
	Connection *mq.Connection

	Consumer  Consumer
	Publisher Publisher

	// Store — blob-хранилище dead-letter записей.
	Store deadletter.Store

	// Queue — рабочая очередь.
	Queue string

	// Bucket — bucket для dead-letter записей.
	Bucket string

	// Workers — количество параллельных обработчиков (default: 1).
	Workers int

	// FetchSize — сообщений на воркера за одну выборку (default: 1).
	FetchSize int

	// VisibilityTimeout — время, на которое сообщение скрыто от других
	// потребителей до ack (default: 5m).
	VisibilityTimeout time.Duration

	// Factories — фабрики задач.
	Factories []task.Factory

	// Logger
	Logger *slog.Logger
}

// WithDefaults возвращает копию конфигурации с заполненными значениями по умолчанию.
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.FetchSize <= 0 {
		c.FetchSize = defaultFetchSize
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = defaultVisibilityTimeout
	}
	return c
}

// Engine — движок поверх очереди брокера.
//
// Сообщения из очереди разбираются в Payload и передаются диспетчеру.
// Ошибки задач сохраняются в blob-хранилище; некорректные сообщения
// логируются и отбрасываются.
type Engine struct {
	consumer   Consumer
	publisher  Publisher
	sink       *deadletter.Sink
	dispatcher *dispatch.Dispatcher
	queue      string
	logger     *slog.Logger
}

// ConsumerConfig возвращает настройки consumer для очереди движка.
func (c Config) ConsumerConfig() mq.ConsumerConfig {
	c = c.WithDefaults()
	return mq.ConsumerConfig{
		Queue:     c.Queue,
		Workers:   c.Workers,
		FetchSize: c.FetchSize,
	}
}

// New создаёт Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Queue == "" {
		return nil, errors.New("broker: queue is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("broker: dead letter store is required")
	}

	cfg = cfg.WithDefaults()
	logger := telemetry.OrDefault(cfg.Logger)

	if cfg.Connection != nil {
		if err := mq.SetupTopology(cfg.Connection, cfg.Queue, cfg.VisibilityTimeout); err != nil {
			return nil, fmt.Errorf("setup topology: %w", err)
		}
		if cfg.Consumer == nil {
			cfg.Consumer = mq.NewConsumer(cfg.Connection, logger, cfg.ConsumerConfig())
		}
		if cfg.Publisher == nil {
			cfg.Publisher = mq.NewPublisher(cfg.Connection, logger)
		}
	}

	if cfg.Consumer == nil {
		return nil, errors.New("broker: consumer is required")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("broker: publisher is required")
	}

	registry, err := dispatch.NewRegistry(cfg.Factories)
	if err != nil {
		return nil, fmt.Errorf("build task registry: %w", err)
	}

	e := &Engine{
		consumer:  cfg.Consumer,
		publisher: cfg.Publisher,
		sink:      deadletter.NewSink(cfg.Store, cfg.Bucket, logger),
		queue:     cfg.Queue,
		logger:    logger,
	}
	e.dispatcher = dispatch.New(registry, e, logger)

	logger.Info("created broker engine",
		"queue", cfg.Queue,
		"bucket", cfg.Bucket,
		"workers", cfg.Workers,
		"fetch_size", cfg.FetchSize,
		"visibility_timeout", cfg.VisibilityTimeout,
		"tasks", registry.Names(),
	)

	return e, nil
}

// Registry возвращает реестр задач движка.
func (e *Engine) Registry() *dispatch.Registry {
	return e.dispatcher.Registry()
}

// Start запускает потребление и блокируется до остановки.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("starting broker engine", "queue", e.queue)
	return e.consumer.Start(ctx, e.OnMessage)
}

// Stop останавливает потребление.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("stopping broker engine", "queue", e.queue)
	return e.consumer.Stop(ctx)
}

// OnMessage обрабатывает одно сообщение брокера.
//
// Некорректные сообщения отбрасываются (nil). Ошибка возвращается только
// при отказе failure sink: брокер отклоняет сообщение в DLQ.
func (e *Engine) OnMessage(ctx context.Context, body []byte) error {
	p, err := Decode(body)
	if err != nil {
		e.drop(body, err)
		return nil
	}

	return e.dispatcher.Handle(ctx, p)
}

// drop логирует отброшенное сообщение.
func (e *Engine) drop(body []byte, err error) {
	var envErr *EnvelopeError

	switch {
	case errors.Is(err, ErrEmptyBody):
		telemetry.MessagesDropped.WithLabelValues(telemetry.DropEmptyBody).Inc()
		e.logger.Warn("got empty message")
	case errors.As(err, &envErr):
		telemetry.MessagesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		e.logger.Warn("got invalid task envelope", "reason", envErr.Reason, "body", string(body))
	default:
		telemetry.MessagesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		e.logger.Warn("failed to decode message", "error", err, "body", string(body))
	}
}

// AddTask публикует payload в рабочую очередь.
func (e *Engine) AddTask(ctx context.Context, p task.Payload) error {
	body, err := Encode(p)
	if err != nil {
		return err
	}

	if err := e.publisher.Publish(ctx, e.queue, p.Task, body); err != nil {
		return fmt.Errorf("add task %s: %w", p.Task, err)
	}

	e.logger.Debug("task added to queue", "task", p.Task, "queue", e.queue)
	return nil
}

// AddFailedTask сохраняет запись об ошибке в blob-хранилище.
func (e *Engine) AddFailedTask(ctx context.Context, p task.Payload, err error) error {
	e.logger.Error("task failed", "task", p.Task, "error", err)

	_, wErr := e.sink.Write(ctx, p, err)
	return wErr
}
