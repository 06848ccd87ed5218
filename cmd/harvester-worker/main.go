// Harvester Worker — broker-движок задач.
//
// Worker:
//   - Получает конверты задач из RabbitMQ
//   - Передаёт их диспетчеру (fan-out по зарегистрированным фабрикам)
//   - Сохраняет ошибки задач в dead-letter хранилище (PostgreSQL или SQLite)
//   - Обслуживает HTTP API: /healthz, /metrics, /api/v1/*
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Harvester/internal/api"
	"github.com/shaiso/Harvester/internal/broker"
	"github.com/shaiso/Harvester/internal/config"
	"github.com/shaiso/Harvester/internal/mq"
	"github.com/shaiso/Harvester/internal/repo"
	"github.com/shaiso/Harvester/internal/tasks"
	"github.com/shaiso/Harvester/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("HARVESTER_CONFIG"))
	if err != nil {
		telemetry.NewLogger("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting harvester-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			logger.Error("failed to init tracer", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	// Dead-letter хранилище
	store, err := repo.OpenStore(ctx, cfg.DeadLetter.Driver, cfg.DeadLetter.DSN)
	if err != nil {
		logger.Error("failed to open dead letter store", "driver", cfg.DeadLetter.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("dead letter store opened", "driver", cfg.DeadLetter.Driver)

	// RabbitMQ
	conn, err := mq.NewConnection(cfg.Broker.URL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger.Debug("rabbitmq topology\n" + mq.TopologyInfo(cfg.Broker.Queue))

	engine, err := broker.New(broker.Config{
		Connection:        conn,
		Store:             store,
		Queue:             cfg.Broker.Queue,
		Bucket:            cfg.DeadLetter.Bucket,
		Workers:           cfg.Broker.Workers,
		FetchSize:         cfg.Broker.FetchSize,
		VisibilityTimeout: cfg.Broker.VisibilityTimeout,
		Factories:         tasks.Builtin(&http.Client{Timeout: 60 * time.Second}, logger),
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create broker engine", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(api.Config{
		Enqueuer: engine,
		Registry: engine.Registry(),
		Store:    store,
		Bucket:   cfg.DeadLetter.Bucket,
		Checks: map[string]api.HealthCheck{
			"broker":      conn.Ping,
			"dead_letter": store.Ping,
		},
		Logger: logger,
	})

	go func() {
		err := api.Serve(ctx, api.ServerConfig{
			Addr:            cfg.HTTP.Addr,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			WriteTimeout:    cfg.HTTP.WriteTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		}, handler.Router(), logger)
		if err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Start(ctx)
	}()

	// Ожидаем сигнал завершения
	select {
	case <-ctx.Done():
	case err := <-engineDone:
		if err != nil {
			logger.Error("broker engine stopped with error", "error", err)
		}
		cancel()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stopCancel()

	if err := engine.Stop(stopCtx); err != nil {
		logger.Error("failed to stop broker engine", "error", err)
	}
	logger.Info("harvester-worker stopped")
}
